package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/repository"
)

func TestPostCreate(t *testing.T) {
	store := newMemStore()
	svc := NewPostService(store, testLogger())
	alice := store.mustUser(t, "alice")

	post, err := svc.Create(context.Background(), alice.ID, CreatePostInput{Content: "  first post  ", Img: "posts/x.png"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if post.Content != "first post" {
		t.Errorf("Content = %q, want trimmed", post.Content)
	}
	if post.Owner == nil || post.Owner.Handle != "alice" {
		t.Errorf("Owner = %+v, want alice", post.Owner)
	}
}

func TestPostCreate_Validation(t *testing.T) {
	store := newMemStore()
	svc := NewPostService(store, testLogger())
	alice := store.mustUser(t, "alice")

	for name, content := range map[string]string{
		"empty":    "   ",
		"too long": strings.Repeat("a", MaxPostLength+1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), alice.ID, CreatePostInput{Content: content})
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestPostList_NewestFirstAndLikedByMe(t *testing.T) {
	store := newMemStore()
	svc := NewPostService(store, testLogger())
	ctx := context.Background()

	alice := store.mustUser(t, "alice")
	bob := store.mustUser(t, "bob")
	older := store.mustPost(t, bob, "older")
	newer := store.mustPost(t, bob, "newer")
	if _, err := store.ToggleLike(ctx, alice.ID, older.ID); err != nil {
		t.Fatalf("setup like: %v", err)
	}

	got, err := svc.List(ctx, alice.ID, repository.ListOptions{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != newer.ID || got[1].ID != older.ID {
		t.Fatalf("List() order wrong: %+v", got)
	}
	if got[0].LikedByMe || !got[1].LikedByMe {
		t.Errorf("LikedByMe = [%v %v], want [false true]", got[0].LikedByMe, got[1].LikedByMe)
	}

	paged, _ := svc.List(ctx, "", repository.ListOptions{Limit: 1, Offset: 1})
	if len(paged) != 1 || paged[0].ID != older.ID {
		t.Errorf("page 2 = %+v, want [older]", paged)
	}
}

func TestPostDelete(t *testing.T) {
	store := newMemStore()
	svc := NewPostService(store, testLogger())
	ctx := context.Background()

	alice := store.mustUser(t, "alice")
	bob := store.mustUser(t, "bob")
	post := store.mustPost(t, bob, "bob's post")
	if _, err := store.ToggleLike(ctx, alice.ID, post.ID); err != nil {
		t.Fatalf("setup like: %v", err)
	}

	if err := svc.Delete(ctx, alice.ID, post.ID); !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Delete() by non-owner error = %v, want ErrUnauthorized", err)
	}
	if err := svc.Delete(ctx, bob.ID, post.ID); err != nil {
		t.Fatalf("Delete() by owner error = %v", err)
	}

	if _, err := svc.Get(ctx, post.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	liked, _ := svc.Liked(ctx, alice.ID)
	if len(liked) != 0 {
		t.Errorf("alice still likes %d deleted posts", len(liked))
	}

	if err := svc.Delete(ctx, bob.ID, xid.New().String()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Delete(unknown) error = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, bob.ID, "garbage"); !errors.Is(err, apperror.ErrInvalidReference) {
		t.Errorf("Delete(garbage) error = %v, want ErrInvalidReference", err)
	}
}

func TestPostSearch(t *testing.T) {
	store := newMemStore()
	svc := NewPostService(store, testLogger())
	ctx := context.Background()

	alice := store.mustUser(t, "alice")
	store.mustPost(t, alice, "Gophers are great")
	store.mustPost(t, alice, "rust is fine too")

	got, err := svc.Search(ctx, "GOPHER", repository.ListOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 1 || got[0].Content != "Gophers are great" {
		t.Errorf("Search() = %+v", got)
	}

	for _, q := range []string{"", "   ", strings.Repeat("q", MaxQueryLength+1)} {
		if _, err := svc.Search(ctx, q, repository.ListOptions{}); !errors.Is(err, apperror.ErrValidation) {
			t.Errorf("Search(%q) error = %v, want ErrValidation", q, err)
		}
	}
}
