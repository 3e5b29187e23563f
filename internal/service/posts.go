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

const (
	MaxPostLength  = 5000
	MaxQueryLength = 100
)

// PostService handles creating, reading and deleting posts.
type PostService struct {
	posts  repository.PostRepository
	logger *slog.Logger
}

func NewPostService(posts repository.PostRepository, logger *slog.Logger) *PostService {
	return &PostService{posts: posts, logger: logger}
}

// CreatePostInput is the body of POST /api/posts. Img is an imageRef
// returned by the media signer (or any URL the client already has).
type CreatePostInput struct {
	Content string `json:"content"`
	Img     string `json:"img"`
}

func (s *PostService) Create(ctx context.Context, ownerID string, in CreatePostInput) (*model.Post, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, apperror.ValidationFailed("content", "content is required")
	}
	if utf8.RuneCountInString(content) > MaxPostLength {
		return nil, apperror.ValidationFailed("content",
			fmt.Sprintf("content must be %d characters or fewer", MaxPostLength))
	}

	post := &model.Post{
		OwnerID: ownerID,
		Content: content,
		Img:     strings.TrimSpace(in.Img),
	}
	if err := s.posts.CreatePost(ctx, post); err != nil {
		return nil, fmt.Errorf("service/posts: creating post: %w", err)
	}

	s.logger.Info("post created",
		slog.String("id", post.ID),
		slog.String("owner", ownerID),
	)

	// Read back so the response carries the owner summary.
	created, err := s.posts.GetPostByID(ctx, post.ID)
	if err != nil {
		return post, nil
	}
	return created, nil
}

// List returns the feed, newest first. viewerID may be "" for anonymous
// readers; when set, each post reports whether the viewer liked it.
func (s *PostService) List(ctx context.Context, viewerID string, opts repository.ListOptions) ([]model.Post, error) {
	posts, err := s.posts.ListPosts(ctx, viewerID, normalizeList(opts))
	if err != nil {
		return nil, fmt.Errorf("service/posts: listing: %w", err)
	}
	return posts, nil
}

func (s *PostService) Get(ctx context.Context, id string) (*model.Post, error) {
	if err := checkID("postId", id); err != nil {
		return nil, err
	}
	post, err := s.posts.GetPostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/posts: getting %s: %w", id, err)
	}
	return post, nil
}

// Delete removes a post. Only its owner may; anyone else gets Unauthorized.
// Likes on the post disappear with it.
func (s *PostService) Delete(ctx context.Context, callerID, postID string) error {
	if err := checkID("postId", postID); err != nil {
		return err
	}

	post, err := s.posts.GetPostByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("service/posts: loading %s: %w", postID, err)
	}
	if post.OwnerID != callerID {
		return apperror.Unauthorized("you can only delete your own posts")
	}

	if err := s.posts.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("service/posts: deleting %s: %w", postID, err)
	}

	s.logger.Info("post deleted", slog.String("id", postID), slog.String("owner", callerID))
	return nil
}

// Liked returns the posts userID has liked, most recent like first.
func (s *PostService) Liked(ctx context.Context, userID string) ([]model.Post, error) {
	posts, err := s.posts.LikedPosts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/posts: liked posts of %s: %w", userID, err)
	}
	return posts, nil
}

// Search matches q case-insensitively anywhere in the content.
func (s *PostService) Search(ctx context.Context, q string, opts repository.ListOptions) ([]model.Post, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.ValidationFailed("q", "search query is required")
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return nil, apperror.ValidationFailed("q",
			fmt.Sprintf("search query must be %d characters or fewer", MaxQueryLength))
	}

	posts, err := s.posts.SearchPosts(ctx, q, normalizeList(opts))
	if err != nil {
		return nil, fmt.Errorf("service/posts: searching: %w", err)
	}
	return posts, nil
}
