package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Health answers GET /healthz: 200 when the database responds, 503 when it
// does not.
func Health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			writeUnavailable(w, "database unavailable")
			return
		}
		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
