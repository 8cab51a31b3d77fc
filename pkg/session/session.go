// Package session drives a single advisor conversation: submitting user
// turns, consuming the streamed completion, and keeping the transcript
// persisted. One session owns one advisor's message history; switching
// advisors means tearing the session down and mounting a new one.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/lennythecreator/sphinx/pkg/advisor"
	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
)

type Streamer interface {
	StreamCompletion(ctx context.Context, messages []domain.Message, system string) (<-chan domain.StreamEvent, error)
}

type Saver interface {
	SaveHistory(ctx context.Context, advisorID string, messages []domain.Message) error
}

// Attachment is a compose-box upload as the session sees it.
type Attachment interface {
	Info() domain.AttachmentInfo
	Pages() []domain.PageImage
}

type Option func(*Session)

// WithCompletionMarker locks the session once an assistant message contains
// the marker text. Used by the project council surface, whose conversation
// ends when the plan is delivered.
func WithCompletionMarker(marker string) Option {
	return func(s *Session) { s.marker = marker }
}

func withIDGenerator(newID func() string) Option {
	return func(s *Session) { s.newID = newID }
}

// WithEventObserver calls fn for every stream event after it has been applied
// to the transcript. The chat surface uses it to paint deltas as they arrive.
func WithEventObserver(fn func(domain.StreamEvent)) Option {
	return func(s *Session) { s.observe = fn }
}

type Session struct {
	advisor  domain.Advisor
	streamer Streamer
	saver    Saver
	marker   string
	newID    func() string
	observe  func(domain.StreamEvent)

	mu        sync.Mutex
	messages  []domain.Message
	pending   Attachment
	streaming bool
	cancel    context.CancelFunc
}

// New mounts a session over prior history. An empty history is seeded with
// exactly one welcome message bound to the advisor's role and domain.
func New(adv domain.Advisor, streamer Streamer, saver Saver, history []domain.Message, opts ...Option) *Session {
	s := &Session{
		advisor:  adv,
		streamer: streamer,
		saver:    saver,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if len(history) == 0 {
		s.messages = []domain.Message{advisor.WelcomeMessage(adv)}
	} else {
		s.messages = append(s.messages, history...)
	}

	return s
}

func (s *Session) Advisor() domain.Advisor { return s.advisor }

func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) Streaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// Attach replaces any pending compose-box attachment.
func (s *Session) Attach(a Attachment) {
	s.mu.Lock()
	s.pending = a
	s.mu.Unlock()
}

func (s *Session) RemoveAttachment() {
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

func (s *Session) AttachmentInfo() (domain.AttachmentInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return domain.AttachmentInfo{}, false
	}
	return s.pending.Info(), true
}

// Submit sends one user turn and blocks consuming the streamed response
// until it completes, errors, or Stop is called. Guard failures leave the
// conversation untouched.
func (s *Session) Submit(ctx context.Context, text string) error {
	userMsg, streamCtx, err := s.begin(ctx, text)
	if err != nil {
		return err
	}
	defer s.end()

	s.mu.Lock()
	s.messages = append(s.messages, userMsg)
	history := make([]domain.Message, len(s.messages))
	copy(history, s.messages)
	s.mu.Unlock()

	events, err := s.streamer.StreamCompletion(streamCtx, history, s.advisor.SystemPrompt)
	if err != nil {
		s.save(ctx)
		return fmt.Errorf("starting completion stream: %w", err)
	}

	s.consume(ctx, events)
	s.save(ctx)
	return nil
}

// begin applies the submit guards and, on success, builds the outgoing user
// message and moves the session to the streaming state. The user message id
// exists before dispatch, so attachment metadata is threaded onto it directly
// instead of being back-filled by a scan.
func (s *Session) begin(ctx context.Context, text string) (domain.Message, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.streaming {
		return domain.Message{}, nil, domain.ErrSessionBusy
	}
	if s.marker != "" && s.markerReachedLocked() {
		return domain.Message{}, nil, domain.ErrSessionComplete
	}

	var info domain.AttachmentInfo
	if s.pending != nil {
		info = s.pending.Info()
		if info.Status == domain.AttachmentProcessing {
			return domain.Message{}, nil, domain.ErrAttachmentProcessing
		}
	}

	hasAttachment := s.pending != nil && info.Status == domain.AttachmentReady
	if strings.TrimSpace(text) == "" && !hasAttachment {
		return domain.Message{}, nil, domain.ErrEmptySubmission
	}

	userMsg := domain.Message{
		ID:      s.newID(),
		Role:    domain.RoleUser,
		Content: text,
	}
	if hasAttachment {
		pages := s.pending.Pages()
		userMsg.Attachments = pages
		userMsg.AttachmentMeta = &domain.AttachmentMeta{
			Name:      info.Name,
			PageCount: len(pages),
		}
		// Cleared only once it rode out on a message; an error-status upload
		// stays visible until the user removes it.
		s.pending = nil
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.streaming = true
	s.cancel = cancel

	return userMsg, streamCtx, nil
}

func (s *Session) end() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.streaming = false
	s.mu.Unlock()
}

// Stop aborts the in-flight stream. Content accumulated so far is kept and
// the session is immediately ready for the next submission. A pending file
// decode is unaffected.
func (s *Session) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
}

func (s *Session) consume(ctx context.Context, events <-chan domain.StreamEvent) {
	assistantID := s.newID()

	s.mu.Lock()
	s.messages = append(s.messages, domain.Message{ID: assistantID, Role: domain.RoleAssistant})
	s.mu.Unlock()

	for ev := range events {
		switch ev.Type {
		case domain.StreamEventText:
			s.withAssistant(assistantID, func(m *domain.Message) {
				m.Content += ev.Text
			})
		case domain.StreamEventToolCall:
			s.withAssistant(assistantID, func(m *domain.Message) {
				m.ToolInvocations = append(m.ToolInvocations, domain.ToolInvocation{
					ToolCallID: ev.ToolCall.ToolCallID,
					ToolName:   ev.ToolCall.ToolName,
					State:      domain.InvocationStateCall,
					Args:       ev.ToolCall.Args,
				})
			})
		case domain.StreamEventToolResult:
			s.withAssistant(assistantID, func(m *domain.Message) {
				for i := range m.ToolInvocations {
					inv := &m.ToolInvocations[i]
					if inv.ToolCallID != ev.ToolResult.ToolCallID {
						continue
					}
					// call -> result is monotonic; a duplicate result is ignored.
					if inv.State == domain.InvocationStateCall {
						inv.State = domain.InvocationStateResult
						inv.Result = ev.ToolResult.Result
					}
					break
				}
			})
		case domain.StreamEventError:
			slog.WarnContext(ctx, "Completion stream reported an error", "err", ev.Err)
		case domain.StreamEventFinish:
			// The channel closes right after; nothing to do.
		}

		if s.observe != nil {
			s.observe(ev)
		}
	}

	// A stream that produced nothing leaves no empty assistant bubble behind.
	s.mu.Lock()
	if i := lo.IndexOf(lo.Map(s.messages, func(m domain.Message, _ int) string { return m.ID }), assistantID); i >= 0 {
		m := s.messages[i]
		if m.Content == "" && len(m.ToolInvocations) == 0 {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
		}
	}
	s.mu.Unlock()
}

func (s *Session) withAssistant(id string, fn func(*domain.Message)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			fn(&s.messages[i])
			return
		}
	}
}

// Delete removes exactly one message by id, preserving the order of the rest.
func (s *Session) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	s.messages = lo.Filter(s.messages, func(m domain.Message, _ int) bool {
		return m.ID != id
	})
	s.mu.Unlock()

	s.save(ctx)
}

// Flush persists the current transcript; called on teardown and advisor
// switches.
func (s *Session) Flush(ctx context.Context) {
	s.save(ctx)
}

func (s *Session) save(ctx context.Context) {
	msgs := s.Messages()
	if len(msgs) == 0 {
		return
	}
	if err := s.saver.SaveHistory(ctx, s.advisor.ID, msgs); err != nil {
		slog.ErrorContext(ctx, "Saving conversation", "advisorID", s.advisor.ID, logger.Err(err))
	}
}

func (s *Session) markerReachedLocked() bool {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].Role == domain.RoleAssistant {
			return strings.Contains(s.messages[i].Content, s.marker)
		}
	}
	return false
}
