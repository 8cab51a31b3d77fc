package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

const booksBaseURL = "https://www.googleapis.com/books/v1/volumes"

type findBook struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewFindBook(booksAPIKey string) *findBook {
	return &findBook{
		apiKey:  booksAPIKey,
		baseURL: booksBaseURL,
		hc:      &http.Client{},
	}
}

func (f *findBook) Name() string {
	return domain.ToolFindBook
}

func (f *findBook) Description() string {
	return "Search for a book if the user wants to learn or read about a particular topic related to a career."
}

func (f *findBook) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"book": {
				Type:        jsonschema.String,
				Description: "The book name or keywords to search for.",
			},
		},
		Required: []string{"book"},
	}
}

func (f *findBook) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Book string `json:"book"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}

	slog.DebugContext(ctx, "Tool invoked with args", "tool", f.Name(), "book", params.Book)

	query := url.Values{}
	query.Set("q", params.Book)
	query.Set("maxResults", "1")
	query.Set("key", f.apiKey)

	var resp struct {
		Items []struct {
			VolumeInfo struct {
				Title       string   `json:"title"`
				Authors     []string `json:"authors"`
				Description string   `json:"description"`
				InfoLink    string   `json:"infoLink"`
				ImageLinks  struct {
					Thumbnail string `json:"thumbnail"`
				} `json:"imageLinks"`
			} `json:"volumeInfo"`
		} `json:"items"`
	}
	if err := getJSON(ctx, f.hc, f.baseURL+"?"+query.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("fetching book data: %w", err)
	}

	if len(resp.Items) == 0 {
		return domain.BookResult{
			Note:            "I could not find a matching book.",
			BookTitle:       "No book found",
			Authors:         []string{},
			BookDescription: "No description available.",
		}, nil
	}

	info := resp.Items[0].VolumeInfo
	book := domain.BookResult{
		Note:            "I think this would be a good read!",
		BookTitle:       info.Title,
		Authors:         info.Authors,
		BookDescription: info.Description,
		BookThumbnail:   info.ImageLinks.Thumbnail,
		BookLink:        info.InfoLink,
	}
	if len(book.Authors) == 0 {
		book.Authors = []string{"Unknown"}
	}
	if book.BookDescription == "" {
		book.BookDescription = "No description available."
	}
	return book, nil
}
