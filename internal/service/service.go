// Package service contains the business logic layer of the application.
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (business layer) → validates, enforces rules, orchestrates
//	Repository (data layer)  → reads/writes the database
//
// Services accept repository interfaces, never *sqlite.DB, so tests run them
// against hand-written in-memory fakes.
//
// Every id a client supplies is checked with checkID before any lookup: a
// malformed id is an InvalidReference, a well-formed id that matches nothing
// is a NotFound. Clients can tell a typo from a deleted account.
package service

import (
	"context"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// Notifier pushes a freshly stored notification to the recipient's live
// sessions. Delivery is best effort: no queue, no ack, no retry. A
// recipient with no open session simply reads the log later.
//
// Implementations must not block the caller on slow sessions.
type Notifier interface {
	Publish(ctx context.Context, userID string, n *model.Notification)
}

// NopNotifier discards every notification. Useful when real-time delivery
// is not wired (CLI tools, some tests).
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, string, *model.Notification) {}

// checkID validates that id is a well-formed identifier.
func checkID(field, id string) error {
	if _, err := xid.FromString(id); err != nil {
		return apperror.InvalidReference(field, id)
	}
	return nil
}

// normalizeList clamps pagination to sane bounds.
func normalizeList(opts repository.ListOptions) repository.ListOptions {
	if opts.Limit <= 0 {
		opts.Limit = DefaultListLimit
	}
	if opts.Limit > MaxListLimit {
		opts.Limit = MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return opts
}
