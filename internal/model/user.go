// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// Accounts are created either through email + password signup or through
// GitHub sign-in. GitHubID is nil for password accounts and PasswordHash is
// empty for GitHub-only accounts; the JSON encoding never exposes either.
//
// The social graph (following / followers), liked posts and the notification
// log are NOT fields here. They live in their own tables and are read through
// the repository, so a User value never carries a stale copy of them.
type User struct {
	ID           string    `json:"id"`
	Handle       string    `json:"handle"`
	Email        string    `json:"email,omitempty"`
	PasswordHash string    `json:"-"`
	GitHubID     *int64    `json:"-"`
	Bio          string    `json:"bio"`
	ProfileImg   string    `json:"profileImg,omitempty"`
	CoverImg     string    `json:"coverImg,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserSummary is the compact form used inside other payloads
// (followers lists, post owners, notification origins).
type UserSummary struct {
	ID         string `json:"id"`
	Handle     string `json:"handle"`
	ProfileImg string `json:"profileImg,omitempty"`
}

// Summary returns the compact form of u.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Handle: u.Handle, ProfileImg: u.ProfileImg}
}

// Public returns a copy of u fit for other users to see: no email.
func (u *User) Public() *User {
	pub := *u
	pub.Email = ""
	return &pub
}

// ProfileUpdate carries the optional fields of a profile edit.
// A nil pointer means "leave unchanged".
type ProfileUpdate struct {
	Bio        *string `json:"bio,omitempty"`
	ProfileImg *string `json:"profileImg,omitempty"`
	CoverImg   *string `json:"coverImg,omitempty"`
}

// Profile is the aggregated view returned by GET /api/users/{id}/profile.
//
// Notifications are only filled in when the viewer owns the profile;
// IsFollowing only when they don't.
type Profile struct {
	User          *User          `json:"user"`
	IsFollowing   bool           `json:"isFollowing"`
	Following     []UserSummary  `json:"following"`
	Followers     []UserSummary  `json:"followers"`
	Notifications []Notification `json:"notifications,omitempty"`
	Posts         []Post         `json:"posts"`
	LikedPosts    []Post         `json:"likedPosts"`
}
