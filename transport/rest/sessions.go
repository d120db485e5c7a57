package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rocketscienceinc/tictactoe-bot/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-bot/internal/entity"
)

type sessionGetter interface {
	GetSession(ctx context.Context, key string) (entity.SessionView, error)
}

type sessionHandler struct {
	logger   *slog.Logger
	sessions sessionGetter
}

// getSession - GET /sessions/{key}, read-only view of a live session.
func (that *sessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")

	view, err := that.sessions.GetSession(r.Context(), key)
	if errors.Is(err, apperror.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		that.logger.Error("failed to get session", "key", key, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal Server Error"})
		return
	}

	writeJSON(w, http.StatusOK, view)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
