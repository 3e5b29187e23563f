// Package repository declares the storage contracts the services depend on.
//
// Services accept these interfaces; internal/repository/sqlite provides the
// production implementation and service tests provide hand-written fakes.
package repository

import (
	"context"

	"github.com/sakif/chirp/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHubUser finds the account linked to user.GitHubID or creates
	// one, filling user.ID and timestamps in place.
	UpsertGitHubUser(ctx context.Context, user *model.User) error
	UpdateProfile(ctx context.Context, id string, upd model.ProfileUpdate) (*model.User, error)
	// UserSummaries resolves ids to summaries; unknown ids are skipped.
	UserSummaries(ctx context.Context, ids []string) (map[string]model.UserSummary, error)
}

type PostRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPostByID(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, viewerID string, opts ListOptions) ([]model.Post, error)
	PostsByUser(ctx context.Context, userID string) ([]model.Post, error)
	LikedPosts(ctx context.Context, userID string) ([]model.Post, error)
	SearchPosts(ctx context.Context, query string, opts ListOptions) ([]model.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// FollowRepository owns the follow edges. An edge is stored once, so
// "A follows B" and "B has follower A" can never disagree.
type FollowRepository interface {
	// Follow inserts the edge and appends the follow notification to the
	// followee's log in one transaction. It returns the stored notification,
	// or apperror.AlreadyFollowing if the edge already existed.
	Follow(ctx context.Context, followerID, followeeID string) (*model.Notification, error)
	// Unfollow removes the edge, or returns apperror.NotFollowing.
	Unfollow(ctx context.Context, followerID, followeeID string) error
	IsFollowing(ctx context.Context, followerID, followeeID string) (bool, error)
	Following(ctx context.Context, userID string) ([]model.UserSummary, error)
	Followers(ctx context.Context, userID string) ([]model.UserSummary, error)
}

// LikeOutcome is the result of a toggle as seen by the store.
// Notification is non-nil only when a like notification was appended.
type LikeOutcome struct {
	Liked        bool
	Count        int
	OwnerID      string
	Notification *model.Notification
}

type LikeRepository interface {
	// ToggleLike flips the (user, post) like and, on a like by someone other
	// than the owner, appends a like notification to the owner's log. All of
	// it happens in one transaction.
	ToggleLike(ctx context.Context, userID, postID string) (*LikeOutcome, error)
}

type NotificationRepository interface {
	AppendNotification(ctx context.Context, n *model.Notification) error
	// RetractNotification removes the most recent entry in userID's log with
	// the given kind and origin. Removing nothing is not an error.
	RetractNotification(ctx context.Context, userID string, kind model.NotificationKind, originID string) error
	// ListNotifications returns the last limit entries of userID's log,
	// oldest first.
	ListNotifications(ctx context.Context, userID string, limit int) ([]model.Notification, error)
}
