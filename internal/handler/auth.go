package handler

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/chirp/internal/auth"
	"github.com/sakif/chirp/internal/service"
)

const stateCookie = "oauth_state"

// AuthHandler serves signup, login, logout, "who am I" and the GitHub
// sign-in flow.
//
//   - HandleSignup / HandleLogin → JSON in, {token, user} out, token cookie set
//   - HandleGitHubLogin          → redirect the browser to GitHub
//   - HandleGitHubCallback       → exchange the code, redirect back to the client
//   - HandleLogout               → clear the token cookie
//   - HandleMe                   → the caller's account
//
// github is nil when GitHub sign-in is not configured; its routes then
// answer 503.
type AuthHandler struct {
	svc          *service.AuthService
	github       *auth.GitHubProvider
	tokens       *auth.TokenService
	clientURL    string
	secureCookie bool
	logger       *slog.Logger
}

func NewAuthHandler(
	svc *service.AuthService,
	github *auth.GitHubProvider,
	tokens *auth.TokenService,
	clientURL string,
	secureCookie bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		github:       github,
		tokens:       tokens,
		clientURL:    strings.TrimRight(clientURL, "/"),
		secureCookie: secureCookie,
		logger:       logger,
	}
}

// HandleSignup creates a password account.
//
// HTTP: POST /auth/signup
// BODY: {"handle": "alice", "email": "alice@example.com", "password": "..."}
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.Signup(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeData(w, http.StatusCreated, result)
}

// HandleLogin signs in with email and password.
//
// HTTP: POST /auth/login
// BODY: {"email": "alice@example.com", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setTokenCookie(w, result.Token)
	writeData(w, http.StatusOK, map[string]any{
		"token":  result.Token,
		"userId": result.User.ID,
		"user":   result.User,
	})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state goes into a short-lived HttpOnly cookie and into the
// authorization URL. The callback only proceeds if the two match, which
// proves the flow was started here and not by a cross-site attacker.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeUnavailable(w, "GitHub sign-in is not configured")
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the GitHub flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// On success the browser lands on the client with the token in the URL
// fragment (never sent to any server) and in the token cookie.
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		writeUnavailable(w, "GitHub sign-in is not configured")
		return
	}

	// --- Step 1: CSRF state ---
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != c.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// single use
	http.SetCookie(w, &http.Cookie{Name: stateCookie, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.clientURL+"/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 2: exchange the code for a GitHub profile ---
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Redirect(w, r, h.clientURL+"/?auth=failed", http.StatusSeeOther)
		return
	}

	// --- Step 3: link or create the account, issue a token ---
	result, err := h.svc.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Redirect(w, r, h.clientURL+"/?auth=failed", http.StatusSeeOther)
		return
	}

	h.setTokenCookie(w, result.Token)
	http.Redirect(w, r, h.clientURL+"/#token="+url.QueryEscape(result.Token), http.StatusSeeOther)
}

// HandleLogout clears the token cookie.
//
// HTTP: POST /auth/logout
//
// Tokens are stateless, so the token itself stays valid until it expires;
// a client holding it in memory should drop it too.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	writeData(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the caller's account.
//
// HTTP: GET /api/me
// Auth: required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.svc.Me(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeData(w, http.StatusOK, user)
}

// setTokenCookie stores the token for browser clients. It lives exactly as
// long as the token.
func (h *AuthHandler) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeUnavailable(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusServiceUnavailable, envelope{Error: "unavailable", Message: msg})
}
