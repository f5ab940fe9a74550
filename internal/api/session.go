package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/selahapp/selah/internal/session"
)

// sessionStore is the persistence surface the session endpoints need.
type sessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*session.Session, error)
	List(ctx context.Context, limit, offset int32) ([]session.Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, sessionID uuid.UUID) ([]session.Turn, error)
}

// sessionHandler serves session CRUD endpoints.
type sessionHandler struct {
	store  sessionStore
	logger *slog.Logger
}

func (h *sessionHandler) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", h.getSession)
	mux.HandleFunc("GET /api/sessions/{id}/turns", h.getTurns)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.deleteSession)
}

// sessionItem is the JSON representation of a session.
type sessionItem struct {
	ID        string `json:"id"`
	Persona   string `json:"persona"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// turnItem is the JSON representation of a conversation turn.
type turnItem struct {
	Seq       int32  `json:"seq"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

func toSessionItem(s *session.Session) sessionItem {
	return sessionItem{
		ID:        s.ID.String(),
		Persona:   s.Persona,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
		UpdatedAt: s.UpdatedAt.Format(time.RFC3339),
	}
}

// listSessions handles GET /api/sessions?limit=20&offset=0, most recently
// active first.
func (h *sessionHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", 20), 100)
	offset := parseIntParam(r, "offset", 0)
	if limit < 1 || offset < 0 {
		WriteError(w, http.StatusBadRequest, "invalid_pagination", "limit must be positive and offset non-negative", h.logger)
		return
	}

	sessions, err := h.store.List(r.Context(), int32(limit), int32(offset))
	if err != nil {
		h.logger.Error("listing sessions", "error", err)
		WriteError(w, http.StatusInternalServerError, "list_failed", "failed to list sessions", h.logger)
		return
	}

	items := make([]sessionItem, len(sessions))
	for i := range sessions {
		items[i] = toSessionItem(&sessions[i])
	}

	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// getSession handles GET /api/sessions/{id}.
func (h *sessionHandler) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "no session with id "+id.String(), h.logger)
			return
		}
		h.logger.Error("getting session", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get session", h.logger)
		return
	}

	WriteJSON(w, http.StatusOK, toSessionItem(sess), h.logger)
}

// getTurns handles GET /api/sessions/{id}/turns: the retained
// conversation history in ascending order.
func (h *sessionHandler) getTurns(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if _, err := h.store.Get(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "no session with id "+id.String(), h.logger)
			return
		}
		h.logger.Error("getting session", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "get_failed", "failed to get session", h.logger)
		return
	}

	turns, err := h.store.History(r.Context(), id)
	if err != nil {
		h.logger.Error("loading history", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "history_failed", "failed to load history", h.logger)
		return
	}

	items := make([]turnItem, len(turns))
	for i, t := range turns {
		items[i] = turnItem{
			Seq:       t.Seq,
			Role:      string(t.Role),
			Content:   t.Content,
			CreatedAt: t.CreatedAt.Format(time.RFC3339),
		}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"items": items}, h.logger)
}

// deleteSession handles DELETE /api/sessions/{id}. Turns are removed by
// cascade.
func (h *sessionHandler) deleteSession(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			WriteError(w, http.StatusNotFound, "session_not_found", "no session with id "+id.String(), h.logger)
			return
		}
		h.logger.Error("deleting session", "error", err, "session_id", id)
		WriteError(w, http.StatusInternalServerError, "delete_failed", "failed to delete session", h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// sessionID parses the {id} path value, writing a 400 on malformed input.
func (h *sessionHandler) sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_session_id", "session id must be a UUID", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
