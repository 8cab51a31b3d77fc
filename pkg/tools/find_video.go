package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

const youtubeBaseURL = "https://www.googleapis.com/youtube/v3/search"

type findVideo struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewFindVideo(youtubeAPIKey string) *findVideo {
	return &findVideo{
		apiKey:  youtubeAPIKey,
		baseURL: youtubeBaseURL,
		hc:      &http.Client{},
	}
}

func (f *findVideo) Name() string {
	return domain.ToolFindVideo
}

func (f *findVideo) Description() string {
	return "Search for a video based on a query when the user asks where they can learn more about a particular thing."
}

func (f *findVideo) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"video": {
				Type:        jsonschema.String,
				Description: "The video title or keywords to search for.",
			},
		},
		Required: []string{"video"},
	}
}

func (f *findVideo) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Video string `json:"video"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}

	slog.DebugContext(ctx, "Tool invoked with args", "tool", f.Name(), "video", params.Video)

	query := url.Values{}
	query.Set("part", "snippet")
	query.Set("type", "video")
	query.Set("q", params.Video)
	query.Set("maxResults", "1")
	query.Set("key", f.apiKey)

	var resp struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title      string `json:"title"`
				Thumbnails struct {
					Default struct {
						URL string `json:"url"`
					} `json:"default"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := getJSON(ctx, f.hc, f.baseURL+"?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching video data: %w", err)
	}

	if len(resp.Items) == 0 {
		return domain.VideoResult{Message: "Sorry no video found"}, nil
	}

	item := resp.Items[0]
	return domain.VideoResult{
		VideoID:   item.ID.VideoID,
		Title:     item.Snippet.Title,
		Thumbnail: item.Snippet.Thumbnails.Default.URL,
	}, nil
}

func getJSON(ctx context.Context, hc *http.Client, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, data)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
