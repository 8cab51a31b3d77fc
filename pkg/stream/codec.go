// Package stream implements the newline-delimited data-stream framing spoken
// between the completion endpoint and the chat client. Each part is a single
// line "<code>:<json>": text deltas, tool calls, tool results, errors and the
// end-of-stream marker.
package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

const (
	codeText       = "0"
	codeError      = "3"
	codeToolCall   = "9"
	codeToolResult = "a"
	codeFinish     = "d"
)

type finishPart struct {
	FinishReason string `json:"finishReason"`
}

// Writer encodes stream events onto an io.Writer, flushing after every part
// when the underlying writer supports it.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteEvent(ev domain.StreamEvent) error {
	switch ev.Type {
	case domain.StreamEventText:
		return w.writePart(codeText, ev.Text)
	case domain.StreamEventToolCall:
		return w.writePart(codeToolCall, ev.ToolCall)
	case domain.StreamEventToolResult:
		return w.writePart(codeToolResult, ev.ToolResult)
	case domain.StreamEventError:
		return w.writePart(codeError, ev.Err)
	case domain.StreamEventFinish:
		return w.writePart(codeFinish, finishPart{FinishReason: ev.FinishReason})
	default:
		return fmt.Errorf("unknown stream event type %q", ev.Type)
	}
}

func (w *Writer) writePart(code string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding stream part: %w", err)
	}
	if _, err := fmt.Fprintf(w.w, "%s:%s\n", code, data); err != nil {
		return err
	}
	if f, ok := w.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}

// Reader decodes stream events from an io.Reader. Next returns io.EOF once
// the underlying stream is exhausted.
type Reader struct {
	sc *bufio.Scanner
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Reader{sc: sc}
}

func (r *Reader) Next() (domain.StreamEvent, error) {
	for r.sc.Scan() {
		line := strings.TrimSpace(r.sc.Text())
		if line == "" {
			continue
		}
		ev, err := ParseLine(line)
		if err == ErrUnknownPart {
			continue
		}
		return ev, err
	}
	if err := r.sc.Err(); err != nil {
		return domain.StreamEvent{}, err
	}
	return domain.StreamEvent{}, io.EOF
}

// ParseLine decodes a single framed part.
func ParseLine(line string) (domain.StreamEvent, error) {
	code, payload, ok := strings.Cut(line, ":")
	if !ok {
		return domain.StreamEvent{}, fmt.Errorf("malformed stream part: %q", line)
	}

	switch code {
	case codeText:
		var text string
		if err := json.Unmarshal([]byte(payload), &text); err != nil {
			return domain.StreamEvent{}, fmt.Errorf("decoding text part: %w", err)
		}
		return domain.StreamEvent{Type: domain.StreamEventText, Text: text}, nil
	case codeToolCall:
		var call domain.ToolCallChunk
		if err := json.Unmarshal([]byte(payload), &call); err != nil {
			return domain.StreamEvent{}, fmt.Errorf("decoding tool call part: %w", err)
		}
		return domain.StreamEvent{Type: domain.StreamEventToolCall, ToolCall: &call}, nil
	case codeToolResult:
		var result domain.ToolResultChunk
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return domain.StreamEvent{}, fmt.Errorf("decoding tool result part: %w", err)
		}
		return domain.StreamEvent{Type: domain.StreamEventToolResult, ToolResult: &result}, nil
	case codeError:
		var msg string
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return domain.StreamEvent{}, fmt.Errorf("decoding error part: %w", err)
		}
		return domain.StreamEvent{Type: domain.StreamEventError, Err: msg}, nil
	case codeFinish:
		var fin finishPart
		if err := json.Unmarshal([]byte(payload), &fin); err != nil {
			return domain.StreamEvent{}, fmt.Errorf("decoding finish part: %w", err)
		}
		return domain.StreamEvent{Type: domain.StreamEventFinish, FinishReason: fin.FinishReason}, nil
	default:
		// Unknown part codes are skipped by callers for forward compatibility.
		return domain.StreamEvent{}, ErrUnknownPart
	}
}

var ErrUnknownPart = fmt.Errorf("unknown stream part code")
