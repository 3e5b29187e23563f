package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/apperror"
	"github.com/sakif/chirp/internal/auth"
)

// newTestAuthService returns an AuthService wired to an in-memory store.
func newTestAuthService(t *testing.T, store *memStore) (*AuthService, *auth.TokenService) {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	// Cost 4 is the bcrypt minimum and keeps these tests fast.
	ps := auth.NewPasswordServiceForTest(4)

	return NewAuthService(store, ts, ps, testLogger()), ts
}

// =========================================================================
// Signup TESTS
// =========================================================================

func TestSignup_CreatesAccountAndToken(t *testing.T) {
	store := newMemStore()
	svc, ts := newTestAuthService(t, store)

	result, err := svc.Signup(context.Background(), SignupInput{
		Handle:   "alice",
		Email:    "  Alice@Example.com ",
		Password: "hunter22",
	})
	if err != nil {
		t.Fatalf("Signup() error = %v", err)
	}

	if result.User.ID == "" {
		t.Fatal("Signup() returned a user without an ID")
	}
	if result.User.Email != "alice@example.com" {
		t.Errorf("Email = %q, want it trimmed and lowercased", result.User.Email)
	}
	if result.User.PasswordHash == "" || result.User.PasswordHash == "hunter22" {
		t.Error("password must be stored as a bcrypt hash")
	}

	subject, err := ts.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate(token) error = %v", err)
	}
	if subject != result.User.ID {
		t.Errorf("token subject = %q, want %q", subject, result.User.ID)
	}
}

func TestSignup_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    SignupInput
		field string
	}{
		{"handle too short", SignupInput{Handle: "ab", Email: "a@b.co", Password: "secret1"}, "handle"},
		{"handle too long", SignupInput{Handle: strings.Repeat("x", MaxHandleLength+1), Email: "a@b.co", Password: "secret1"}, "handle"},
		{"handle with space", SignupInput{Handle: "al ice", Email: "a@b.co", Password: "secret1"}, "handle"},
		{"bad email", SignupInput{Handle: "alice", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", SignupInput{Handle: "alice", Email: "a@b.co", Password: "12345"}, "password"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestAuthService(t, newMemStore())

			_, err := svc.Signup(context.Background(), tc.in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Signup() error = %v, want ErrValidation", err)
			}
			var appErr *apperror.AppError
			if errors.As(err, &appErr) && appErr.Field != tc.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tc.field)
			}
		})
	}
}

func TestSignup_DuplicateHandleIsConflict(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Handle: "alice", Email: "a1@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("first Signup() error = %v", err)
	}
	_, err := svc.Signup(ctx, SignupInput{Handle: "alice", Email: "a2@example.com", Password: "secret1"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("second Signup() error = %v, want ErrConflict", err)
	}
}

// =========================================================================
// Login TESTS
// =========================================================================

func TestLogin(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	signed, err := svc.Signup(ctx, SignupInput{Handle: "bob", Email: "bob@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("setup Signup() error = %v", err)
	}

	t.Run("correct password", func(t *testing.T) {
		result, err := svc.Login(ctx, LoginInput{Email: "BOB@example.com", Password: "correct-horse"})
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}
		if result.User.ID != signed.User.ID {
			t.Errorf("Login() user = %q, want %q", result.User.ID, signed.User.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "wrong"})
		if !errors.Is(err, apperror.ErrUnauthorized) {
			t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
		}
	})

	t.Run("unknown email looks the same as wrong password", func(t *testing.T) {
		_, errUnknown := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "whatever"})
		_, errWrong := svc.Login(ctx, LoginInput{Email: "bob@example.com", Password: "wrong"})
		if !errors.Is(errUnknown, apperror.ErrUnauthorized) {
			t.Fatalf("Login() error = %v, want ErrUnauthorized", errUnknown)
		}
		if errUnknown.Error() != errWrong.Error() {
			t.Errorf("messages differ: %q vs %q", errUnknown, errWrong)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		_, err := svc.Login(ctx, LoginInput{Email: "", Password: ""})
		if !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("Login() error = %v, want ErrValidation", err)
		}
	})
}

func TestLogin_GitHubOnlyAccountHasNoPassword(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	if _, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 3, Login: "octo", Email: "octo@example.com"}); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, err := svc.Login(ctx, LoginInput{Email: "octo@example.com", Password: "anything"})
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Login() error = %v, want ErrUnauthorized", err)
	}
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuthService(t, store)

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:        42,
		Login:     "octocat",
		Email:     "octocat@github.com",
		AvatarURL: "https://avatars.githubusercontent.com/u/42",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	if result.Token == "" {
		t.Fatal("LoginOrRegisterGitHub() returned empty Token")
	}
	if result.User.Handle != "octocat" {
		t.Errorf("Handle = %q, want %q", result.User.Handle, "octocat")
	}
	if result.User.ProfileImg != "https://avatars.githubusercontent.com/u/42" {
		t.Errorf("ProfileImg = %q, want the GitHub avatar", result.User.ProfileImg)
	}
}

func TestLoginOrRegisterGitHub_SameAccountTwice(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuthService(t, store)
	ctx := context.Background()

	first, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "gopher"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}
	second, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 99, Login: "gopher"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}
	if first.User.ID != second.User.ID {
		t.Errorf("second login created a new account: %q != %q", second.User.ID, first.User.ID)
	}
}

func TestLoginOrRegisterGitHub_NilGitHubUser(t *testing.T) {
	svc, _ := newTestAuthService(t, newMemStore())

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub() should return error for nil GitHubUser")
	}
}

// =========================================================================
// Me TESTS
// =========================================================================

func TestMe(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestAuthService(t, store)
	alice := store.mustUser(t, "alice")

	user, err := svc.Me(context.Background(), alice.ID)
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.Handle != "alice" {
		t.Errorf("Handle = %q, want %q", user.Handle, "alice")
	}

	if _, err := svc.Me(context.Background(), xid.New().String()); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Me(unknown) error = %v, want ErrNotFound", err)
	}
}
