package model

import "time"

// NotificationKind is the category of an event recorded in a user's log.
type NotificationKind string

const (
	KindFollow  NotificationKind = "follow"
	KindMessage NotificationKind = "message"
	KindLike    NotificationKind = "like"
)

// Notification is one immutable entry in a user's notification log.
//
// UserID is the owner of the log (the recipient); OriginID is the user whose
// action produced it. Entries are only ever appended (and, for follows, the
// matching entry may be retracted on unfollow). Log order is display order.
type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Kind      NotificationKind `json:"type"`
	OriginID  string           `json:"from"`
	Origin    *UserSummary     `json:"origin,omitempty"`
	CreatedAt time.Time        `json:"date"`
}
