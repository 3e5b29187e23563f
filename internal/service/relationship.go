package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

// RelationshipService maintains the follow graph.
//
// The store keeps one row per edge, so "A follows B" and "B is followed by
// A" cannot disagree. This service adds the rules around it: id checks,
// no self-follow, fan-out after commit, and retraction on unfollow.
type RelationshipService struct {
	follows  repository.FollowRepository
	notes    repository.NotificationRepository
	users    repository.UserRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewRelationshipService(
	follows repository.FollowRepository,
	notes repository.NotificationRepository,
	users repository.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) *RelationshipService {
	return &RelationshipService{
		follows:  follows,
		notes:    notes,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// Follow makes followerID follow targetID.
//
// The edge and the target's follow notification are written in one
// transaction. Only after it commits is the notification published, so a
// live client never hears about a follow that was rolled back.
func (s *RelationshipService) Follow(ctx context.Context, followerID, targetID string) error {
	if err := checkID("followerId", followerID); err != nil {
		return err
	}
	if err := checkID("userId", targetID); err != nil {
		return err
	}
	if followerID == targetID {
		return apperror.ValidationFailed("userId", "cannot follow yourself")
	}

	n, err := s.follows.Follow(ctx, followerID, targetID)
	if err != nil {
		return fmt.Errorf("service/relationship: following %s: %w", targetID, err)
	}

	s.logger.Info("user followed",
		slog.String("follower", followerID),
		slog.String("target", targetID),
	)

	attachOrigins(ctx, s.users, s.logger, n)
	s.notifier.Publish(ctx, targetID, n)
	return nil
}

// Unfollow removes the edge. Retracting the matching follow notification is
// a separate, best-effort step: if it fails the edge is still gone and the
// failure is only logged.
func (s *RelationshipService) Unfollow(ctx context.Context, followerID, targetID string) error {
	if err := checkID("followerId", followerID); err != nil {
		return err
	}
	if err := checkID("userId", targetID); err != nil {
		return err
	}

	if err := s.follows.Unfollow(ctx, followerID, targetID); err != nil {
		return fmt.Errorf("service/relationship: unfollowing %s: %w", targetID, err)
	}

	s.logger.Info("user unfollowed",
		slog.String("follower", followerID),
		slog.String("target", targetID),
	)

	if err := s.notes.RetractNotification(ctx, targetID, model.KindFollow, followerID); err != nil {
		s.logger.Warn("retracting follow notification failed",
			slog.String("target", targetID),
			slog.String("follower", followerID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
