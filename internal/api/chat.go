package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/selahapp/selah/internal/agent"
)

// maxChatBodyBytes bounds the chat request body.
const maxChatBodyBytes = 1024 * 1024

// chatHandler serves conversation endpoints through the agent flow.
//
// Endpoints:
//   - POST /api/chat        - synchronous turn (JSON request/response)
//   - POST /api/chat/stream - streaming turn (Server-Sent Events)
//
// Both paths run the same flow, so behavior is identical apart from
// delivery.
type chatHandler struct {
	flow   *agent.Flow
	logger *slog.Logger
}

// registerRoutes registers chat routes on the given mux. With a nil flow
// the routes are omitted and requests return 404.
func (h *chatHandler) registerRoutes(mux *http.ServeMux) {
	if h.flow == nil {
		h.logger.Warn("chat flow not configured, skipping route registration")
		return
	}

	mux.Handle("POST /api/chat", genkit.Handler(h.flow))
	mux.HandleFunc("POST /api/chat/stream", h.stream)
}

// SSE event types for chat streaming.
const (
	eventChunk = "chunk" // partial response text
	eventDone  = "done"  // stream completed successfully
	eventError = "error" // error occurred during streaming
)

// chunkPayload is the SSE data payload for streaming text chunks.
type chunkPayload struct {
	Text string `json:"text"`
}

// donePayload is the SSE data payload when streaming completes.
type donePayload struct {
	Response   string `json:"response"`
	SessionID  string `json:"sessionId"`
	Incomplete bool   `json:"incomplete,omitempty"`
}

// errorPayload is the SSE data payload when an error occurs.
type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// stream handles SSE streaming chat requests, forwarding partial model
// output as it becomes available.
func (h *chatHandler) stream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var input agent.Input
	r.Body = http.MaxBytesReader(w, r.Body, maxChatBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = writeEvent(w, flusher, eventError, errorPayload{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body",
		})
		return
	}
	if input.Query == "" {
		_ = writeEvent(w, flusher, eventError, errorPayload{Code: "MISSING_QUERY", Message: "query is required"})
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "session_id", input.SessionID)

	var (
		finalOutput agent.Output
		streamErr   error
	)

	for streamValue, err := range h.flow.Stream(ctx, input) {
		select {
		case <-ctx.Done():
			h.logger.Info("client disconnected", "session_id", input.SessionID)
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}

		if streamValue.Done {
			finalOutput = streamValue.Output
			break
		}

		if streamValue.Stream.Text != "" {
			if err := writeEvent(w, flusher, eventChunk, chunkPayload{
				Text: streamValue.Stream.Text,
			}); err != nil {
				// Write failure usually means the connection closed.
				h.logger.Debug("failed to write chunk", "error", err)
				return
			}
		}
	}

	if streamErr != nil {
		h.writeStreamError(w, flusher, streamErr)
		return
	}

	_ = writeEvent(w, flusher, eventDone, donePayload{
		Response:   finalOutput.Response,
		SessionID:  finalOutput.SessionID,
		Incomplete: finalOutput.Incomplete,
	})

	h.logger.Info("SSE stream completed", "session_id", finalOutput.SessionID)
}

// writeStreamError maps agent errors to SSE error events.
func (h *chatHandler) writeStreamError(w io.Writer, f http.Flusher, err error) {
	code := "STREAM_ERROR"
	if errors.Is(err, agent.ErrGenerationUnavailable) {
		code = "MODEL_UNAVAILABLE"
	}

	_ = writeEvent(w, f, eventError, errorPayload{
		Code:    code,
		Message: err.Error(),
	})
}

// writeEvent writes a single SSE event with JSON-encoded data.
// SSE format: "event: <type>\ndata: <json>\n\n"
func writeEvent[T any](w io.Writer, flusher http.Flusher, event string, data T) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	flusher.Flush()
	return nil
}
