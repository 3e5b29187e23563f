package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/chirp/internal/auth"
	"github.com/sakif/chirp/internal/model"
	"github.com/sakif/chirp/internal/service"
)

type NotificationHandler struct {
	svc    *service.NotificationService
	logger *slog.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// HandleList returns the tail of the caller's notification log, oldest
// first.
//
// HTTP: GET /api/notifications?limit=10
func (h *NotificationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.svc.List(r.Context(), callerID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, list)
}

type addNotificationRequest struct {
	ToUserID string                 `json:"toUserId"`
	Type     model.NotificationKind `json:"type"`
}

// HandleAdd appends an entry from the caller to another user's log.
//
// HTTP: POST /api/notifications
// BODY: {"toUserId": "...", "type": "message"}
func (h *NotificationHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	callerID, _ := auth.UserIDFromContext(r.Context())

	var req addNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	n, err := h.svc.Add(r.Context(), callerID, req.ToUserID, req.Type)
	if err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, n)
}
