package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/chirp/internal/auth"
	"github.com/sakif/chirp/internal/media"
)

// Signer issues presigned upload URLs. *media.S3Signer implements it.
type Signer interface {
	Sign(ctx context.Context, userID string, purpose media.Purpose, contentType string) (*media.Upload, error)
}

type MediaHandler struct {
	signer Signer
	logger *slog.Logger
}

// NewMediaHandler creates a MediaHandler. signer may be nil when no bucket
// is configured.
func NewMediaHandler(signer Signer, logger *slog.Logger) *MediaHandler {
	return &MediaHandler{signer: signer, logger: logger}
}

type signRequest struct {
	Purpose     media.Purpose `json:"purpose"`
	ContentType string        `json:"contentType"`
}

// HandleSign returns a presigned PUT URL and the imageRef to store once the
// upload succeeds.
//
// HTTP: POST /api/media/sign
// BODY: {"purpose": "profile"|"cover"|"post", "contentType": "image/png"}
func (h *MediaHandler) HandleSign(w http.ResponseWriter, r *http.Request) {
	if h.signer == nil {
		writeUnavailable(w, "media storage is not configured")
		return
	}
	callerID, _ := auth.UserIDFromContext(r.Context())

	var req signRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	up, err := h.signer.Sign(r.Context(), callerID, req.Purpose, req.ContentType)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("upload signed",
		slog.String("userID", callerID),
		slog.String("purpose", string(req.Purpose)),
	)
	writeData(w, http.StatusOK, up)
}
