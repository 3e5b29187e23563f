package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/repository"
)

func TestCreatePost(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	p := &model.Post{OwnerID: alice.ID, Content: "first post", Img: "https://cdn.example.com/p.png"}
	if err := db.CreatePost(context.Background(), p); err != nil {
		t.Fatalf("CreatePost() error = %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() {
		t.Fatalf("CreatePost() did not fill ID/CreatedAt: %+v", p)
	}

	got, err := db.GetPostByID(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("GetPostByID() error = %v", err)
	}
	if got.Content != "first post" || got.Img != p.Img {
		t.Errorf("GetPostByID() = %+v", got)
	}
	if got.Owner == nil || got.Owner.Handle != "alice" {
		t.Errorf("Owner = %+v, want alice", got.Owner)
	}
	if got.LikeCount != 0 {
		t.Errorf("LikeCount = %d, want 0", got.LikeCount)
	}
}

func TestCreatePost_UnknownOwner(t *testing.T) {
	db := newTestDB(t)
	err := db.CreatePost(context.Background(), &model.Post{OwnerID: "ghost", Content: "x"})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("CreatePost() error = %v, want ErrNotFound", err)
	}
}

func TestGetPostByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetPostByID(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetPostByID() error = %v, want ErrNotFound", err)
	}
}

func TestListPosts_NewestFirstWithPagination(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")

	first := createTestPost(t, db, alice, "one")
	createTestPost(t, db, alice, "two")
	third := createTestPost(t, db, alice, "three")

	posts, err := db.ListPosts(context.Background(), "", repository.ListOptions{Limit: 2})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len = %d, want 2", len(posts))
	}
	if posts[0].ID != third.ID {
		t.Errorf("posts[0] = %s, want newest %s", posts[0].Content, third.Content)
	}

	rest, err := db.ListPosts(context.Background(), "", repository.ListOptions{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListPosts() page 2 error = %v", err)
	}
	if len(rest) != 1 || rest[0].ID != first.ID {
		t.Errorf("page 2 = %+v, want only the oldest post", rest)
	}
}

func TestListPosts_LikedByViewer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	p := createTestPost(t, db, alice, "hi")

	if _, err := db.ToggleLike(ctx, bob.ID, p.ID); err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}

	asBob, err := db.ListPosts(ctx, bob.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if !asBob[0].LikedByMe || asBob[0].LikeCount != 1 {
		t.Errorf("as bob: LikedByMe=%v LikeCount=%d, want true/1", asBob[0].LikedByMe, asBob[0].LikeCount)
	}

	asAlice, err := db.ListPosts(ctx, alice.ID, repository.ListOptions{Limit: 10})
	if err != nil {
		t.Fatalf("ListPosts() error = %v", err)
	}
	if asAlice[0].LikedByMe {
		t.Error("as alice: LikedByMe = true, want false")
	}
}

func TestPostsByUser(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	createTestPost(t, db, alice, "a1")
	createTestPost(t, db, bob, "b1")
	createTestPost(t, db, alice, "a2")

	posts, err := db.PostsByUser(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("PostsByUser() error = %v", err)
	}
	if len(posts) != 2 {
		t.Fatalf("len = %d, want 2", len(posts))
	}
	if posts[0].Content != "a2" {
		t.Errorf("posts[0] = %q, want newest %q", posts[0].Content, "a2")
	}
}

func TestSearchPosts(t *testing.T) {
	db := newTestDB(t)
	alice := createTestUser(t, db, "alice")
	createTestPost(t, db, alice, "Learning Go today")
	createTestPost(t, db, alice, "coffee break")
	createTestPost(t, db, alice, "100% done")

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"case insensitive", "go", 1},
		{"no match", "rust", 0},
		{"percent is literal", "%", 1},
		{"underscore is literal", "_", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			posts, err := db.SearchPosts(context.Background(), tt.query, repository.ListOptions{Limit: 10})
			if err != nil {
				t.Fatalf("SearchPosts() error = %v", err)
			}
			if len(posts) != tt.want {
				t.Errorf("SearchPosts(%q) returned %d posts, want %d", tt.query, len(posts), tt.want)
			}
		})
	}
}

func TestDeletePost_CascadesLikes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	p := createTestPost(t, db, alice, "doomed")

	if _, err := db.ToggleLike(ctx, bob.ID, p.ID); err != nil {
		t.Fatalf("ToggleLike() error = %v", err)
	}

	if err := db.DeletePost(ctx, p.ID); err != nil {
		t.Fatalf("DeletePost() error = %v", err)
	}

	liked, err := db.LikedPosts(ctx, bob.ID)
	if err != nil {
		t.Fatalf("LikedPosts() error = %v", err)
	}
	if len(liked) != 0 {
		t.Errorf("bob still likes %d posts after delete, want 0", len(liked))
	}

	var n int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM likes WHERE post_id = ?`, p.ID).Scan(&n); err != nil {
		t.Fatalf("counting likes: %v", err)
	}
	if n != 0 {
		t.Errorf("%d like rows survived the delete", n)
	}
}

func TestDeletePost_NotFound(t *testing.T) {
	db := newTestDB(t)
	err := db.DeletePost(context.Background(), "missing")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeletePost() error = %v, want ErrNotFound", err)
	}
}
