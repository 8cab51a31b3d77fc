// Package completion produces streaming chat completions. The Service talks
// to the OpenAI API and runs the tool loop on the server; the Client consumes
// the resulting event stream over HTTP from the chat frontend.
package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/logger"
)

// maxToolRounds caps the number of tool-use iterations per request.
const maxToolRounds = 6

type Tool interface {
	Name() string
	Description() string
	Parameters() jsonschema.Definition
	Execute(ctx context.Context, args json.RawMessage) (any, error)
}

type service struct {
	client *openai.Client
	model  string
	tools  []Tool
	byName map[string]Tool
}

func NewService(client *openai.Client, model string, tools []Tool) *service {
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name()] = t
	}
	return &service{
		client: client,
		model:  model,
		tools:  tools,
		byName: byName,
	}
}

// Stream runs one completion turn, invoking tools as the model requests them,
// and hands every incremental part to emit in the order it was produced.
func (s *service) Stream(ctx context.Context, messages []domain.Message, system string, emit func(domain.StreamEvent) error) error {
	history := toOpenAIMessages(system, messages)

	for round := 0; round < maxToolRounds; round++ {
		text, toolCalls, finish, err := s.streamOnce(ctx, history, emit)
		if err != nil {
			return err
		}

		if len(toolCalls) == 0 {
			reason := string(finish)
			if reason == "" {
				reason = "stop"
			}
			return emit(domain.StreamEvent{Type: domain.StreamEventFinish, FinishReason: reason})
		}

		history = append(history, openai.ChatCompletionMessage{
			Role:      openai.ChatMessageRoleAssistant,
			Content:   text,
			ToolCalls: toolCalls,
		})

		// Some models repeat a tool_call_id within one response.
		seen := make(map[string]bool, len(toolCalls))
		for _, call := range toolCalls {
			if seen[call.ID] {
				continue
			}
			seen[call.ID] = true

			if err := emit(domain.StreamEvent{
				Type: domain.StreamEventToolCall,
				ToolCall: &domain.ToolCallChunk{
					ToolCallID: call.ID,
					ToolName:   call.Function.Name,
					Args:       json.RawMessage(call.Function.Arguments),
				},
			}); err != nil {
				return err
			}

			result := s.invokeTool(ctx, call)

			if err := emit(domain.StreamEvent{
				Type: domain.StreamEventToolResult,
				ToolResult: &domain.ToolResultChunk{
					ToolCallID: call.ID,
					Result:     result,
				},
			}); err != nil {
				return err
			}

			history = append(history, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: call.ID,
				Content:    string(result),
			})
		}
	}

	if err := emit(domain.StreamEvent{Type: domain.StreamEventError, Err: "tool round limit reached"}); err != nil {
		return err
	}
	return emit(domain.StreamEvent{Type: domain.StreamEventFinish, FinishReason: "stop"})
}

// streamOnce runs a single model call, emitting text deltas as they arrive and
// accumulating any tool call deltas into complete calls.
func (s *service) streamOnce(
	ctx context.Context,
	history []openai.ChatCompletionMessage,
	emit func(domain.StreamEvent) error,
) (string, []openai.ToolCall, openai.FinishReason, error) {
	req := openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: history,
		Tools:    s.toolDefinitions(),
	}

	st, err := s.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return "", nil, "", fmt.Errorf("creating completion stream: %w", err)
	}
	defer st.Close()

	var (
		text   string
		calls  []openai.ToolCall
		finish openai.FinishReason
	)

	for {
		resp, err := st.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", nil, "", fmt.Errorf("receiving completion chunk: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		if choice.FinishReason != "" {
			finish = choice.FinishReason
		}

		if choice.Delta.Content != "" {
			text += choice.Delta.Content
			if err := emit(domain.StreamEvent{Type: domain.StreamEventText, Text: choice.Delta.Content}); err != nil {
				return "", nil, "", err
			}
		}

		for _, tc := range choice.Delta.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			for len(calls) <= idx {
				calls = append(calls, openai.ToolCall{Type: openai.ToolTypeFunction})
			}
			call := &calls[idx]
			if tc.ID != "" {
				call.ID = tc.ID
			}
			if tc.Function.Name != "" {
				call.Function.Name = tc.Function.Name
			}
			call.Function.Arguments += tc.Function.Arguments
		}
	}

	return text, calls, finish, nil
}

// invokeTool runs one tool call and always returns a JSON payload, folding
// execution failures into it so the turn can continue.
func (s *service) invokeTool(ctx context.Context, call openai.ToolCall) json.RawMessage {
	tool, ok := s.byName[call.Function.Name]
	if !ok {
		slog.WarnContext(ctx, "Model requested an unknown tool", "tool", call.Function.Name)
		return mustJSON(map[string]string{"error": "unknown tool: " + call.Function.Name})
	}

	result, err := tool.Execute(ctx, json.RawMessage(call.Function.Arguments))
	if err != nil {
		slog.ErrorContext(ctx, "Tool execution failed", "tool", call.Function.Name, logger.Err(err))
		return mustJSON(map[string]string{"error": err.Error()})
	}

	data, err := json.Marshal(result)
	if err != nil {
		slog.ErrorContext(ctx, "Encoding tool result failed", "tool", call.Function.Name, logger.Err(err))
		return mustJSON(map[string]string{"error": "encoding tool result: " + err.Error()})
	}
	return data
}

func (s *service) toolDefinitions() []openai.Tool {
	if len(s.tools) == 0 {
		return nil
	}
	defs := make([]openai.Tool, 0, len(s.tools))
	for _, t := range s.tools {
		defs = append(defs, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}
	return defs
}

// toOpenAIMessages rebuilds the provider-side conversation: attachments become
// image parts on the user message, and completed tool invocations are replayed
// as assistant tool calls followed by their tool results.
func toOpenAIMessages(system string, messages []domain.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	if system != "" {
		out = append(out, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, m := range messages {
		switch m.Role {
		case domain.RoleUser:
			if len(m.Attachments) == 0 {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: m.Content,
				})
				continue
			}
			parts := make([]openai.ChatMessagePart, 0, len(m.Attachments)+1)
			if m.Content != "" {
				parts = append(parts, openai.ChatMessagePart{
					Type: openai.ChatMessagePartTypeText,
					Text: m.Content,
				})
			}
			for _, page := range m.Attachments {
				parts = append(parts, openai.ChatMessagePart{
					Type:     openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{URL: page.URL},
				})
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			})

		case domain.RoleAssistant:
			msg := openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
			var results []openai.ChatCompletionMessage
			for _, inv := range m.ToolInvocations {
				if inv.State != domain.InvocationStateResult {
					continue
				}
				msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
					ID:   inv.ToolCallID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      inv.ToolName,
						Arguments: string(inv.Args),
					},
				})
				results = append(results, openai.ChatCompletionMessage{
					Role:       openai.ChatMessageRoleTool,
					ToolCallID: inv.ToolCallID,
					Content:    string(inv.Result),
				})
			}
			out = append(out, msg)
			out = append(out, results...)
		}
	}
	return out
}

func mustJSON(v any) json.RawMessage {
	data, _ := json.Marshal(v)
	return data
}
