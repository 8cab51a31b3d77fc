package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

const serpBaseURL = "https://serpapi.com/search.json"

type serpClient struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func newSerpClient(apiKey string) *serpClient {
	return &serpClient{
		apiKey:  apiKey,
		baseURL: serpBaseURL,
		hc:      &http.Client{},
	}
}

func (c *serpClient) search(ctx context.Context, params url.Values, out any) error {
	params.Set("api_key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating search request: %w", err)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("executing search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("unexpected status code: %d, response: %s", resp.StatusCode, data)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading search response: %w", err)
	}

	// The API reports failures inside an otherwise valid JSON body.
	var failure struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &failure); err == nil && failure.Error != "" {
		return fmt.Errorf("search API error: %s", failure.Error)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding search response: %w", err)
	}
	return nil
}

type serpJob struct {
	JobID       string `json:"job_id"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Location    string `json:"location"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	ShareLink   string `json:"share_link"`

	ApplyOptions []struct {
		Link string `json:"link"`
	} `json:"apply_options"`
	RelatedLinks []struct {
		Link string `json:"link"`
	} `json:"related_links"`
	JobHighlights []struct {
		Items []string `json:"items"`
	} `json:"job_highlights"`
}

func (c *serpClient) jobResults(ctx context.Context, query string) ([]serpJob, error) {
	params := url.Values{}
	params.Set("engine", "google_jobs")
	params.Set("q", query)
	params.Set("hl", "en")

	var resp struct {
		JobsResults []serpJob `json:"jobs_results"`
	}
	if err := c.search(ctx, params, &resp); err != nil {
		return nil, err
	}
	return resp.JobsResults, nil
}

type serpSalary struct {
	SalaryFrom *float64 `json:"salary_from"`
	SalaryTo   *float64 `json:"salary_to"`
	Source     string   `json:"source"`
}

func (c *serpClient) jobSalaries(ctx context.Context, jobID string) ([]serpSalary, error) {
	params := url.Values{}
	params.Set("engine", "google_jobs_listing")
	params.Set("q", jobID)

	var resp struct {
		Salaries []serpSalary `json:"salaries"`
	}
	if err := c.search(ctx, params, &resp); err != nil {
		return nil, err
	}
	return resp.Salaries, nil
}
