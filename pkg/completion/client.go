package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/stream"
)

// ChatRequest is the body of a streaming completion request.
type ChatRequest struct {
	Messages []domain.Message `json:"messages"`
	System   string           `json:"system"`
}

// Client streams completions from a chat endpoint and decodes the framed
// response into stream events. It satisfies the session's streamer contract.
type Client struct {
	endpoint string
	token    string
	hc       *http.Client
}

func NewClient(endpoint, token string) *Client {
	return &Client{
		endpoint: endpoint,
		token:    token,
		hc:       &http.Client{},
	}
}

func (c *Client) StreamCompletion(ctx context.Context, messages []domain.Message, system string) (<-chan domain.StreamEvent, error) {
	body, err := json.Marshal(ChatRequest{Messages: messages, System: system})
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing chat request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, data)
	}

	ch := make(chan domain.StreamEvent)
	go func() {
		defer close(ch)
		defer resp.Body.Close()

		r := stream.NewReader(resp.Body)
		for {
			ev, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				// A canceled request surfaces as a read error; stay quiet then.
				if ctx.Err() != nil {
					return
				}
				select {
				case ch <- domain.StreamEvent{Type: domain.StreamEventError, Err: err.Error()}:
				case <-ctx.Done():
				}
				return
			}
			select {
			case ch <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
