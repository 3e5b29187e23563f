package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

// NotificationService exposes the notification log directly: appending a
// "message" ping and reading the caller's tail. Follow and like entries are
// only written by the ledgers that own them.
type NotificationService struct {
	notes    repository.NotificationRepository
	users    repository.UserRepository
	notifier Notifier
	tail     int
	logger   *slog.Logger
}

// NewNotificationService creates a NotificationService. tail is the default
// number of entries List returns.
func NewNotificationService(
	notes repository.NotificationRepository,
	users repository.UserRepository,
	notifier Notifier,
	tail int,
	logger *slog.Logger,
) *NotificationService {
	if tail <= 0 {
		tail = 10
	}
	return &NotificationService{
		notes:    notes,
		users:    users,
		notifier: notifier,
		tail:     tail,
		logger:   logger,
	}
}

// Add appends {kind, origin = callerID} to toUserID's log and publishes it.
// Only KindMessage is accepted; a hand-made follow entry could otherwise be
// the one an unfollow retracts.
func (s *NotificationService) Add(ctx context.Context, callerID, toUserID string, kind model.NotificationKind) (*model.Notification, error) {
	if err := checkID("toUserId", toUserID); err != nil {
		return nil, err
	}
	if kind != model.KindMessage {
		return nil, apperror.ValidationFailed("type", "type must be message")
	}

	n := &model.Notification{
		UserID:   toUserID,
		Kind:     kind,
		OriginID: callerID,
	}
	if err := s.notes.AppendNotification(ctx, n); err != nil {
		return nil, fmt.Errorf("service/notifications: appending to %s: %w", toUserID, err)
	}

	s.logger.Info("notification added",
		slog.String("to", toUserID),
		slog.String("from", callerID),
		slog.String("type", string(kind)),
	)

	attachOrigins(ctx, s.users, s.logger, n)
	s.notifier.Publish(ctx, toUserID, n)
	return n, nil
}

// List returns the newest limit entries of userID's log, oldest first.
// limit <= 0 uses the configured tail.
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = s.tail
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	list, err := s.notes.ListNotifications(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("service/notifications: listing for %s: %w", userID, err)
	}
	return list, nil
}

// attachOrigins fills in each notification's Origin summary before it is
// pushed to a live session, so the client can render "alice liked your post"
// without another request. A lookup failure only costs the summary.
func attachOrigins(ctx context.Context, users repository.UserRepository, logger *slog.Logger, ns ...*model.Notification) {
	ids := make([]string, 0, len(ns))
	for _, n := range ns {
		if n != nil && n.Origin == nil {
			ids = append(ids, n.OriginID)
		}
	}
	if len(ids) == 0 {
		return
	}

	summaries, err := users.UserSummaries(ctx, ids)
	if err != nil {
		logger.Warn("loading notification origins failed", slog.String("error", err.Error()))
		return
	}
	for _, n := range ns {
		if n == nil || n.Origin != nil {
			continue
		}
		if s, ok := summaries[n.OriginID]; ok {
			n.Origin = &s
		}
	}
}
