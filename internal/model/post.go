package model

import "time"

// Post is a piece of user-authored content.
//
// LikeCount is derived from the likes table at read time. LikedByMe is only
// filled when the read is made on behalf of a signed-in viewer.
type Post struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"ownerId"`
	Owner     *UserSummary `json:"owner,omitempty"`
	Content   string       `json:"content"`
	Img       string       `json:"img,omitempty"`
	LikeCount int          `json:"likeCount"`
	LikedByMe bool         `json:"likedByMe,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}

// LikeAction is the transition a toggle produced.
type LikeAction string

const (
	Liked   LikeAction = "liked"
	Unliked LikeAction = "unliked"
)

// LikeResult is what toggling a like returns to the client.
type LikeResult struct {
	Action    LikeAction `json:"action"`
	LikeCount int        `json:"likeCount"`
}
