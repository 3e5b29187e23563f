package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

const MaxBioLength = 120

// ProfileService assembles the profile page and applies profile edits.
type ProfileService struct {
	users   repository.UserRepository
	follows repository.FollowRepository
	posts   repository.PostRepository
	notes   repository.NotificationRepository
	tail    int
	logger  *slog.Logger
}

// NewProfileService creates a ProfileService. tail is how many of the
// newest notification log entries a profile read includes.
func NewProfileService(
	users repository.UserRepository,
	follows repository.FollowRepository,
	posts repository.PostRepository,
	notes repository.NotificationRepository,
	tail int,
	logger *slog.Logger,
) *ProfileService {
	if tail <= 0 {
		tail = 10
	}
	return &ProfileService{
		users:   users,
		follows: follows,
		posts:   posts,
		notes:   notes,
		tail:    tail,
		logger:  logger,
	}
}

// Get returns userID's profile as viewerID sees it: account, both sides of
// the follow graph, their posts and the posts they liked. The owner also
// gets their email and the tail of their notification log; anyone else
// gets the public account and whether they follow userID.
//
// The reads are not one snapshot. A follow landing between two of them can
// show in one list before the other; the next read is consistent again.
func (s *ProfileService) Get(ctx context.Context, viewerID, userID string) (*model.Profile, error) {
	if err := checkID("viewerId", viewerID); err != nil {
		return nil, err
	}
	if err := checkID("userId", userID); err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/profile: loading %s: %w", userID, err)
	}

	own := viewerID == userID
	p := &model.Profile{User: user}
	if own {
		if p.Notifications, err = s.notes.ListNotifications(ctx, userID, s.tail); err != nil {
			return nil, fmt.Errorf("service/profile: notifications of %s: %w", userID, err)
		}
	} else {
		p.User = user.Public()
		if p.IsFollowing, err = s.follows.IsFollowing(ctx, viewerID, userID); err != nil {
			return nil, fmt.Errorf("service/profile: %s follows %s: %w", viewerID, userID, err)
		}
	}

	if p.Following, err = s.follows.Following(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/profile: following of %s: %w", userID, err)
	}
	if p.Followers, err = s.follows.Followers(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/profile: followers of %s: %w", userID, err)
	}
	if p.Posts, err = s.posts.PostsByUser(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/profile: posts of %s: %w", userID, err)
	}
	if p.LikedPosts, err = s.posts.LikedPosts(ctx, userID); err != nil {
		return nil, fmt.Errorf("service/profile: liked posts of %s: %w", userID, err)
	}

	return p, nil
}

// Update edits the caller's own profile. Only the provided fields change.
func (s *ProfileService) Update(ctx context.Context, callerID string, upd model.ProfileUpdate) (*model.User, error) {
	if upd.Bio != nil {
		bio := strings.TrimSpace(*upd.Bio)
		if utf8.RuneCountInString(bio) > MaxBioLength {
			return nil, apperror.ValidationFailed("bio",
				fmt.Sprintf("bio must be %d characters or fewer", MaxBioLength))
		}
		upd.Bio = &bio
	}
	for _, img := range []*string{upd.ProfileImg, upd.CoverImg} {
		if img != nil {
			*img = strings.TrimSpace(*img)
		}
	}

	user, err := s.users.UpdateProfile(ctx, callerID, upd)
	if err != nil {
		return nil, fmt.Errorf("service/profile: updating %s: %w", callerID, err)
	}

	s.logger.Info("profile updated", slog.String("userID", callerID))
	return user, nil
}
