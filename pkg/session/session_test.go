package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

var testAdvisor = domain.Advisor{
	ID:           "software-engineer",
	Role:         "Software Engineer",
	Domain:       "Software Development",
	SystemPrompt: "You are a career advisor.",
}

type scriptStreamer struct {
	events  []domain.StreamEvent
	block   bool
	started chan struct{}

	lastMessages []domain.Message
	lastSystem   string
}

func (f *scriptStreamer) StreamCompletion(ctx context.Context, messages []domain.Message, system string) (<-chan domain.StreamEvent, error) {
	f.lastMessages = messages
	f.lastSystem = system

	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)
		for _, ev := range f.events {
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
		if f.block {
			if f.started != nil {
				close(f.started)
			}
			<-ctx.Done()
		}
	}()
	return ch, nil
}

type recordingSaver struct {
	advisorID string
	saves     [][]domain.Message
}

func (r *recordingSaver) SaveHistory(_ context.Context, advisorID string, messages []domain.Message) error {
	r.advisorID = advisorID
	r.saves = append(r.saves, messages)
	return nil
}

type fakeAttachment struct {
	info  domain.AttachmentInfo
	pages []domain.PageImage
}

func (f *fakeAttachment) Info() domain.AttachmentInfo { return f.info }
func (f *fakeAttachment) Pages() []domain.PageImage   { return f.pages }

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func textEvents(parts ...string) []domain.StreamEvent {
	var events []domain.StreamEvent
	for _, p := range parts {
		events = append(events, domain.StreamEvent{Type: domain.StreamEventText, Text: p})
	}
	events = append(events, domain.StreamEvent{Type: domain.StreamEventFinish, FinishReason: "stop"})
	return events
}

func TestNewSeedsWelcomeMessage(t *testing.T) {
	s := New(testAdvisor, &scriptStreamer{}, &recordingSaver{}, nil)

	msgs := s.Messages()
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one seeded message, got %d", len(msgs))
	}
	if msgs[0].Role != domain.RoleAssistant {
		t.Errorf("welcome message role = %q", msgs[0].Role)
	}
	for _, want := range []string{testAdvisor.Role, testAdvisor.Domain} {
		if !strings.Contains(msgs[0].Content, want) {
			t.Errorf("welcome message should mention %q: %q", want, msgs[0].Content)
		}
	}
}

func TestNewKeepsExistingHistory(t *testing.T) {
	history := []domain.Message{
		{ID: "w", Role: domain.RoleAssistant, Content: "Hello!"},
		{ID: "m1", Role: domain.RoleUser, Content: "hi"},
	}

	s := New(testAdvisor, &scriptStreamer{}, &recordingSaver{}, history)
	if len(s.Messages()) != 2 {
		t.Fatalf("existing history must not be re-seeded, got %d messages", len(s.Messages()))
	}
}

func TestSubmitEmptyIsNoOp(t *testing.T) {
	saver := &recordingSaver{}
	s := New(testAdvisor, &scriptStreamer{}, saver, nil)

	err := s.Submit(context.Background(), "   \n\t")
	if err != domain.ErrEmptySubmission {
		t.Fatalf("expected ErrEmptySubmission, got %v", err)
	}
	if len(s.Messages()) != 1 {
		t.Fatalf("empty submission must not change conversation state")
	}
	if len(saver.saves) != 0 {
		t.Fatal("empty submission must not trigger a save")
	}
}

func TestSubmitRefusedWhileAttachmentProcessing(t *testing.T) {
	s := New(testAdvisor, &scriptStreamer{}, &recordingSaver{}, nil)
	s.Attach(&fakeAttachment{info: domain.AttachmentInfo{Name: "resume.pdf", Status: domain.AttachmentProcessing}})

	err := s.Submit(context.Background(), "rate my resume")
	if err != domain.ErrAttachmentProcessing {
		t.Fatalf("expected ErrAttachmentProcessing, got %v", err)
	}
	if len(s.Messages()) != 1 {
		t.Fatal("refused submission must not change conversation state")
	}
}

func TestSubmitStreamsAndAccumulates(t *testing.T) {
	streamer := &scriptStreamer{events: textEvents("Hel", "lo ", "there")}
	saver := &recordingSaver{}
	s := New(testAdvisor, streamer, saver, nil, withIDGenerator(sequentialIDs()))

	if err := s.Submit(context.Background(), "hi"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected welcome + user + assistant, got %d", len(msgs))
	}
	if msgs[1].Role != domain.RoleUser || msgs[1].Content != "hi" {
		t.Errorf("unexpected user message: %+v", msgs[1])
	}
	if msgs[2].Role != domain.RoleAssistant || msgs[2].Content != "Hello there" {
		t.Errorf("assistant content not accumulated: %q", msgs[2].Content)
	}

	if streamer.lastSystem != testAdvisor.SystemPrompt {
		t.Errorf("system prompt not threaded through: %q", streamer.lastSystem)
	}
	if saver.advisorID != testAdvisor.ID || len(saver.saves) == 0 {
		t.Error("completed turn must trigger a save for the advisor")
	}
}

func TestToolInvocationsMatchedByCallID(t *testing.T) {
	events := []domain.StreamEvent{
		{Type: domain.StreamEventText, Text: "Let me look. "},
		{Type: domain.StreamEventToolCall, ToolCall: &domain.ToolCallChunk{
			ToolCallID: "call_a", ToolName: domain.ToolSearchJob, Args: json.RawMessage(`{"job":"swe"}`),
		}},
		{Type: domain.StreamEventToolCall, ToolCall: &domain.ToolCallChunk{
			ToolCallID: "call_b", ToolName: domain.ToolFindVideo, Args: json.RawMessage(`{"video":"sql"}`),
		}},
		// Results arrive out of call order and must match independently.
		{Type: domain.StreamEventToolResult, ToolResult: &domain.ToolResultChunk{
			ToolCallID: "call_b", Result: json.RawMessage(`{"videoId":"v1","title":"SQL"}`),
		}},
		{Type: domain.StreamEventToolResult, ToolResult: &domain.ToolResultChunk{
			ToolCallID: "call_a", Result: json.RawMessage(`{"jobs":[]}`),
		}},
		{Type: domain.StreamEventFinish, FinishReason: "stop"},
	}
	s := New(testAdvisor, &scriptStreamer{events: events}, &recordingSaver{}, nil)

	if err := s.Submit(context.Background(), "find jobs and a video"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if len(last.ToolInvocations) != 2 {
		t.Fatalf("expected 2 tool invocations, got %d", len(last.ToolInvocations))
	}
	if last.ToolInvocations[0].ToolCallID != "call_a" || last.ToolInvocations[1].ToolCallID != "call_b" {
		t.Fatalf("invocations must keep emit order: %+v", last.ToolInvocations)
	}
	for _, inv := range last.ToolInvocations {
		if inv.State != domain.InvocationStateResult {
			t.Errorf("invocation %s stuck in state %q", inv.ToolCallID, inv.State)
		}
		if len(inv.Result) == 0 {
			t.Errorf("invocation %s missing result", inv.ToolCallID)
		}
	}
}

func TestAttachmentMetaOnNewestUserMessageOnly(t *testing.T) {
	streamer := &scriptStreamer{events: textEvents("ok")}
	s := New(testAdvisor, streamer, &recordingSaver{}, nil, withIDGenerator(sequentialIDs()))

	if err := s.Submit(context.Background(), "no attachment here"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	streamer.events = textEvents("nice resume")
	s.Attach(&fakeAttachment{
		info: domain.AttachmentInfo{Name: "resume.pdf", Status: domain.AttachmentReady, Pages: 2},
		pages: []domain.PageImage{
			{Name: "resume.pdf (page 1)", ContentType: "image/png", URL: "data:image/png;base64,AA=="},
			{Name: "resume.pdf (page 2)", ContentType: "image/png", URL: "data:image/png;base64,BB=="},
		},
	})
	if err := s.Submit(context.Background(), "rate it"); err != nil {
		t.Fatalf("Submit with attachment: %v", err)
	}

	var carriers []domain.Message
	for _, m := range s.Messages() {
		if m.AttachmentMeta != nil {
			carriers = append(carriers, m)
		}
	}
	if len(carriers) != 1 {
		t.Fatalf("exactly one message should carry attachment metadata, got %d", len(carriers))
	}
	got := carriers[0]
	if got.Content != "rate it" {
		t.Errorf("metadata landed on the wrong message: %+v", got)
	}
	if got.AttachmentMeta.Name != "resume.pdf" || got.AttachmentMeta.PageCount != 2 {
		t.Errorf("unexpected metadata: %+v", got.AttachmentMeta)
	}
	if len(got.Attachments) != 2 {
		t.Errorf("page images not threaded onto the message: %d", len(got.Attachments))
	}

	if _, ok := s.AttachmentInfo(); ok {
		t.Error("pending attachment must be cleared after a successful send")
	}
}

func TestErrorAttachmentSurvivesTextOnlySend(t *testing.T) {
	streamer := &scriptStreamer{events: textEvents("sure")}
	s := New(testAdvisor, streamer, &recordingSaver{}, nil)

	s.Attach(&fakeAttachment{
		info: domain.AttachmentInfo{Name: "notes.txt", Status: domain.AttachmentError, Message: "Only PDF files are supported"},
	})

	if err := s.Submit(context.Background(), "never mind the file"); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	info, ok := s.AttachmentInfo()
	if !ok {
		t.Fatal("failed attachment dropped by a text-only send; it is cleared only by a send that carries it or an explicit removal")
	}
	if info.Status != domain.AttachmentError || info.Name != "notes.txt" {
		t.Errorf("pending attachment = %+v", info)
	}

	for _, m := range s.Messages() {
		if m.AttachmentMeta != nil || len(m.Attachments) != 0 {
			t.Errorf("failed attachment must not ride out on a message: %+v", m)
		}
	}
}

func TestStopKeepsPartialContent(t *testing.T) {
	streamer := &scriptStreamer{
		events:  []domain.StreamEvent{{Type: domain.StreamEventText, Text: "partial answer"}},
		block:   true,
		started: make(chan struct{}),
	}
	s := New(testAdvisor, streamer, &recordingSaver{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "long question") }()

	select {
	case <-streamer.started:
	case <-time.After(time.Second):
		t.Fatal("stream never started")
	}

	s.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Submit after Stop: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit did not return after Stop")
	}

	msgs := s.Messages()
	last := msgs[len(msgs)-1]
	if last.Role != domain.RoleAssistant || last.Content != "partial answer" {
		t.Fatalf("partial content must be retained: %+v", last)
	}

	if s.Streaming() {
		t.Fatal("session must return to idle after Stop")
	}

	// And the session accepts a new submission immediately.
	streamer.block = false
	streamer.events = textEvents("fresh answer")
	if err := s.Submit(context.Background(), "again"); err != nil {
		t.Fatalf("Submit after Stop should succeed: %v", err)
	}
}

func TestSubmitWhileStreamingIsRefused(t *testing.T) {
	streamer := &scriptStreamer{block: true, started: make(chan struct{})}
	s := New(testAdvisor, streamer, &recordingSaver{}, nil)

	done := make(chan error, 1)
	go func() { done <- s.Submit(context.Background(), "first") }()

	select {
	case <-streamer.started:
	case <-time.After(time.Second):
		t.Fatal("stream never started")
	}

	if err := s.Submit(context.Background(), "second"); err != domain.ErrSessionBusy {
		t.Fatalf("expected ErrSessionBusy, got %v", err)
	}

	s.Stop()
	<-done
}

func TestDeleteRemovesExactlyOne(t *testing.T) {
	history := []domain.Message{
		{ID: "a", Role: domain.RoleAssistant, Content: "Hello!"},
		{ID: "b", Role: domain.RoleUser, Content: "one"},
		{ID: "c", Role: domain.RoleAssistant, Content: "two"},
		{ID: "d", Role: domain.RoleUser, Content: "three"},
	}
	s := New(testAdvisor, &scriptStreamer{}, &recordingSaver{}, history)

	s.Delete(context.Background(), "c")

	msgs := s.Messages()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages after delete, got %d", len(msgs))
	}
	for i, want := range []string{"a", "b", "d"} {
		if msgs[i].ID != want {
			t.Fatalf("relative order broken: %v", msgs)
		}
	}
}

func TestCompletionMarkerLocksSession(t *testing.T) {
	history := []domain.Message{
		{ID: "m1", Role: domain.RoleUser, Content: "plan my project"},
		{ID: "m2", Role: domain.RoleAssistant, Content: "…details… Project plan complete."},
	}
	s := New(testAdvisor, &scriptStreamer{}, &recordingSaver{}, history,
		WithCompletionMarker("Project plan complete."))

	if err := s.Submit(context.Background(), "one more thing"); err != domain.ErrSessionComplete {
		t.Fatalf("expected ErrSessionComplete, got %v", err)
	}
}
