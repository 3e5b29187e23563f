package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/chirp/internal/auth"
	"github.com/sakif/chirp/internal/service"
)

// PostHandler serves the feed, post CRUD and likes.
type PostHandler struct {
	posts      *service.PostService
	engagement *service.EngagementService
	logger     *slog.Logger
}

func NewPostHandler(posts *service.PostService, engagement *service.EngagementService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, engagement: engagement, logger: logger}
}

// HandleList returns the feed, newest first.
//
// HTTP: GET /api/posts?limit=20&offset=0
// Auth: optional; signed-in callers also get likedByMe.
func (h *PostHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	posts, err := h.posts.List(r.Context(), viewerID, listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, posts)
}

// HandleCreate publishes a post as the caller.
//
// HTTP: POST /api/posts
// BODY: {"content": "...", "img": "<imageRef>"}
func (h *PostHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	var in service.CreatePostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Create(r.Context(), callerID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, post)
}

// HandleSearch finds posts whose content contains q.
//
// HTTP: GET /api/posts/search?q=gopher
func (h *PostHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.Search(r.Context(), r.URL.Query().Get("q"), listOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, posts)
}

// HandleGet returns one post.
//
// HTTP: GET /api/posts/{postID}
func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, post)
}

// HandleDelete removes one of the caller's posts.
//
// HTTP: DELETE /api/posts/{postID}
func (h *PostHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	postID := chi.URLParam(r, "postID")

	if err := h.posts.Delete(r.Context(), callerID, postID); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "post deleted", "id": postID})
}

// HandleToggleLike likes or unlikes a post.
//
// HTTP: POST /api/posts/{postID}/like
// RESPONSE: {"action": "liked"|"unliked", "likeCount": n}
func (h *PostHandler) HandleToggleLike(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.engagement.ToggleLike(r.Context(), callerID, chi.URLParam(r, "postID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, result)
}

// HandleLiked returns the posts the caller has liked.
//
// HTTP: GET /api/me/liked-posts
func (h *PostHandler) HandleLiked(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	posts, err := h.posts.Liked(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, posts)
}
