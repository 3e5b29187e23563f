package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

// EngagementService handles likes.
type EngagementService struct {
	likes    repository.LikeRepository
	users    repository.UserRepository
	notifier Notifier
	logger   *slog.Logger
}

func NewEngagementService(
	likes repository.LikeRepository,
	users repository.UserRepository,
	notifier Notifier,
	logger *slog.Logger,
) *EngagementService {
	return &EngagementService{
		likes:    likes,
		users:    users,
		notifier: notifier,
		logger:   logger,
	}
}

// ToggleLike likes the post if likerID hasn't yet, and unlikes it otherwise.
//
// On a like by someone other than the owner, the owner's like notification
// was stored in the same transaction as the like; it is published here once
// that transaction has committed. Liking your own post notifies nobody.
func (s *EngagementService) ToggleLike(ctx context.Context, likerID, postID string) (*model.LikeResult, error) {
	if err := checkID("userId", likerID); err != nil {
		return nil, err
	}
	if err := checkID("postId", postID); err != nil {
		return nil, err
	}

	out, err := s.likes.ToggleLike(ctx, likerID, postID)
	if err != nil {
		return nil, fmt.Errorf("service/engagement: toggling like on %s: %w", postID, err)
	}

	result := &model.LikeResult{Action: model.Unliked, LikeCount: out.Count}
	if out.Liked {
		result.Action = model.Liked
	}

	s.logger.Info("like toggled",
		slog.String("post", postID),
		slog.String("user", likerID),
		slog.String("action", string(result.Action)),
		slog.Int("count", result.LikeCount),
	)

	if out.Notification != nil {
		attachOrigins(ctx, s.users, s.logger, out.Notification)
		s.notifier.Publish(ctx, out.OwnerID, out.Notification)
	}

	return result, nil
}
