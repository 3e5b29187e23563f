package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/chirp/internal/auth"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/service"
)

// UserHandler serves profiles and the follow graph.
type UserHandler struct {
	profiles      *service.ProfileService
	relationships *service.RelationshipService
	logger        *slog.Logger
}

func NewUserHandler(
	profiles *service.ProfileService,
	relationships *service.RelationshipService,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		profiles:      profiles,
		relationships: relationships,
		logger:        logger,
	}
}

// HandleProfile returns a user's profile page as the caller sees it.
//
// HTTP: GET /api/users/{userID}/profile
func (h *UserHandler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	p, err := h.profiles.Get(r.Context(), callerID, chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p)
}

// HandleFollow makes the caller follow {userID}.
//
// HTTP: POST /api/users/{userID}/follow
// 409 already_following if the edge exists.
func (h *UserHandler) HandleFollow(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	target := chi.URLParam(r, "userID")

	if err := h.relationships.Follow(r.Context(), callerID, target); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"action": "followed", "userId": target})
}

// HandleUnfollow removes the caller's edge to {userID}.
//
// HTTP: DELETE /api/users/{userID}/follow
func (h *UserHandler) HandleUnfollow(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	target := chi.URLParam(r, "userID")

	if err := h.relationships.Unfollow(r.Context(), callerID, target); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"action": "unfollowed", "userId": target})
}

// HandleUpdateProfile edits the caller's bio and images.
//
// HTTP: PATCH /api/me/profile
// BODY: {"bio": "...", "profileImg": "...", "coverImg": "..."} (all optional)
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	var upd model.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.profiles.Update(r.Context(), callerID, upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, user)
}
