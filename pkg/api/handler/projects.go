package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lennythecreator/sphinx/pkg/api/response"
	"github.com/lennythecreator/sphinx/pkg/completion"
	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
	"github.com/lennythecreator/sphinx/pkg/stream"
)

const councilSystemPrompt = `You are the Sphinx-AI Project Council. Your job is to help any major design a meaningful project that can be technical, non-technical, or a mix of both.

Guidelines:
- Always include at least one non-technical option or non-technical pathway.
- Avoid heavy jargon unless the user asks for it.
- If the user is unsure, ask about comfort level and available time.

Process:
1) If critical details are missing, ask up to 3 concise questions and stop.
2) If enough detail is provided, simulate a brief roundtable:
   - Software Engineer
   - Project Manager
   - Security Engineer
   - Data Analyst
   - Machine Learning Engineer
   - Technical Program Manager
Each advisor gives 2-4 bullets tailored to the user's major and goals.
3) Provide a short Cross-Advisor Synthesis paragraph.
4) Provide a Final Project Plan with phases, timeline, deliverables, and tools/resources.

Keep it concise and actionable. End the final plan with the exact line: "` + domain.CouncilCompletionMarker + `"`

type projects struct {
	streamer Streamer
}

// NewProjects serves the project council endpoint. The council runs without
// tools and with its own roundtable prompt.
func NewProjects(streamer Streamer) *projects {
	return &projects{streamer: streamer}
}

func (p *projects) Stream(w http.ResponseWriter, r *http.Request) {
	var req completion.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	system := req.System
	if system == "" {
		system = councilSystemPrompt
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")

	sw := stream.NewWriter(w)
	if err := p.streamer.Stream(r.Context(), req.Messages, system, sw.WriteEvent); err != nil {
		slog.ErrorContext(r.Context(), "Council stream failed", logger.Err(err))
		_ = sw.WriteEvent(domain.StreamEvent{Type: domain.StreamEventError, Err: "The model is unavailable right now."})
		_ = sw.WriteEvent(domain.StreamEvent{Type: domain.StreamEventFinish, FinishReason: "error"})
	}
}
