package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lennythecreator/sphinx/pkg/advisor"
	"github.com/lennythecreator/sphinx/pkg/api/response"
	"github.com/lennythecreator/sphinx/pkg/completion"
	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
	"github.com/lennythecreator/sphinx/pkg/stream"
)

type Streamer interface {
	Stream(ctx context.Context, messages []domain.Message, system string, emit func(domain.StreamEvent) error) error
}

type chat struct {
	streamer      Streamer
	defaultSystem string
}

// NewChat serves the advisor chat endpoint: it runs a completion turn with
// tools and streams the framed parts back as they are produced.
func NewChat(streamer Streamer) *chat {
	return &chat{
		streamer:      streamer,
		defaultSystem: advisor.DefaultSystemPrompt,
	}
}

func (c *chat) Stream(w http.ResponseWriter, r *http.Request) {
	var req completion.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	system := req.System
	if system == "" {
		system = c.defaultSystem
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	sw := stream.NewWriter(w)
	if err := c.streamer.Stream(r.Context(), req.Messages, system, sw.WriteEvent); err != nil {
		// Headers are gone; the best we can do is an in-band error part.
		slog.ErrorContext(r.Context(), "Completion stream failed", logger.Err(err))
		_ = sw.WriteEvent(domain.StreamEvent{Type: domain.StreamEventError, Err: "The model is unavailable right now."})
		_ = sw.WriteEvent(domain.StreamEvent{Type: domain.StreamEventFinish, FinishReason: "error"})
	}
}
