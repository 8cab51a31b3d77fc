package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/stream"
)

func collectChan(t *testing.T, ch <-chan domain.StreamEvent) []domain.StreamEvent {
	t.Helper()
	var events []domain.StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestClientDecodesStream(t *testing.T) {
	var gotAuth string
	var gotReq ChatRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request body: %v", err)
		}

		sw := stream.NewWriter(w)
		for _, ev := range []domain.StreamEvent{
			{Type: domain.StreamEventText, Text: "Hi "},
			{Type: domain.StreamEventToolCall, ToolCall: &domain.ToolCallChunk{
				ToolCallID: "call_1", ToolName: domain.ToolFindBook, Args: json.RawMessage(`{"bookTitle":"SICP"}`),
			}},
			{Type: domain.StreamEventToolResult, ToolResult: &domain.ToolResultChunk{
				ToolCallID: "call_1", Result: json.RawMessage(`{"title":"SICP"}`),
			}},
			{Type: domain.StreamEventText, Text: "there"},
			{Type: domain.StreamEventFinish, FinishReason: "stop"},
		} {
			if err := sw.WriteEvent(ev); err != nil {
				t.Errorf("writing event: %v", err)
			}
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/chat", "tok123")
	ch, err := c.StreamCompletion(context.Background(), []domain.Message{
		{ID: "m1", Role: domain.RoleUser, Content: "hi"},
	}, "be helpful")
	if err != nil {
		t.Fatalf("StreamCompletion: %v", err)
	}

	events := collectChan(t, ch)
	if len(events) != 5 {
		t.Fatalf("expected 5 events, got %d: %+v", len(events), events)
	}
	if events[0].Text != "Hi " || events[3].Text != "there" {
		t.Errorf("text deltas out of order: %+v", events)
	}
	if events[1].ToolCall == nil || events[1].ToolCall.ToolCallID != "call_1" {
		t.Errorf("tool call not decoded: %+v", events[1])
	}
	if events[2].ToolResult == nil || events[2].ToolResult.ToolCallID != "call_1" {
		t.Errorf("tool result not decoded: %+v", events[2])
	}
	if events[4].Type != domain.StreamEventFinish || events[4].FinishReason != "stop" {
		t.Errorf("finish part not decoded: %+v", events[4])
	}

	if gotAuth != "Bearer tok123" {
		t.Errorf("authorization header = %q", gotAuth)
	}
	if gotReq.System != "be helpful" || len(gotReq.Messages) != 1 {
		t.Errorf("request body not threaded through: %+v", gotReq)
	}
}

func TestClientRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/chat", "")
	if _, err := c.StreamCompletion(context.Background(), nil, ""); err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestClientSurfacesErrorPart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintln(w, `3:"model overloaded"`)
		fmt.Fprintln(w, `d:{"finishReason":"error"}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/chat", "")
	ch, err := c.StreamCompletion(context.Background(), nil, "")
	if err != nil {
		t.Fatalf("StreamCompletion: %v", err)
	}

	events := collectChan(t, ch)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Type != domain.StreamEventError || events[0].Err != "model overloaded" {
		t.Errorf("error part not surfaced: %+v", events[0])
	}
}

func TestClientStopsOnCancel(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `0:"partial"`)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	c := NewClient(srv.URL+"/api/chat", "")
	ch, err := c.StreamCompletion(ctx, nil, "")
	if err != nil {
		t.Fatalf("StreamCompletion: %v", err)
	}

	ev, ok := <-ch
	if !ok || ev.Text != "partial" {
		t.Fatalf("expected the partial text delta, got %+v (ok=%v)", ev, ok)
	}

	cancel()

	// The channel must close without an error event for a local cancel.
	for ev := range ch {
		if ev.Type == domain.StreamEventError {
			t.Errorf("cancel must not surface an error event: %+v", ev)
		}
	}
}
