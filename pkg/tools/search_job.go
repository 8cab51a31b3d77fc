// Package tools implements the callable tools the advisor model can invoke
// during a chat turn: job search, salary lookup, video and book search.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

const maxJobResults = 8

type searchJob struct {
	serp *serpClient
}

func NewSearchJob(serpAPIKey string) *searchJob {
	return &searchJob{serp: newSerpClient(serpAPIKey)}
}

func (s *searchJob) Name() string {
	return domain.ToolSearchJob
}

func (s *searchJob) Description() string {
	return "Search for jobs based on a query and return multiple results with title, location, and a short description."
}

func (s *searchJob) Parameters() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"job": {
				Type:        jsonschema.String,
				Description: "The job title or keywords to search for.",
			},
		},
		Required: []string{"job"},
	}
}

func (s *searchJob) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Job string `json:"job"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}

	slog.DebugContext(ctx, "Tool invoked with args", "tool", s.Name(), "job", params.Job)

	results, err := s.serp.jobResults(ctx, params.Job)
	if err != nil {
		return nil, fmt.Errorf("fetching job data: %w", err)
	}

	jobs := make([]domain.Job, 0, maxJobResults)
	for _, item := range results {
		if len(jobs) == maxJobResults {
			break
		}
		jobs = append(jobs, mapJob(item, params.Job))
	}

	if len(jobs) == 0 {
		return domain.JobSearchResult{
			Query:   params.Job,
			Count:   0,
			Jobs:    []domain.Job{},
			Message: "No jobs found",
		}, nil
	}

	return domain.JobSearchResult{
		Query: params.Job,
		Count: len(jobs),
		Jobs:  jobs,
	}, nil
}

func mapJob(item serpJob, query string) domain.Job {
	job := domain.Job{
		ID:          item.JobID,
		Title:       item.Title,
		Description: item.Description,
		Company:     item.CompanyName,
		Location:    item.Location,
		Link:        applyLink(item),
		Thumbnail:   item.Thumbnail,
	}
	if job.ID == "" {
		company := item.CompanyName
		if company == "" {
			company = "company"
		}
		title := item.Title
		if title == "" {
			title = "role"
		}
		location := item.Location
		if location == "" {
			location = "location"
		}
		job.ID = fmt.Sprintf("%s-%s-%s", company, title, location)
	}
	if job.Title == "" {
		job.Title = query
	}
	if len(item.JobHighlights) > 0 {
		job.Qualifications = item.JobHighlights[0].Items
	}
	if job.Qualifications == nil {
		job.Qualifications = []string{}
	}
	return job
}

// applyLink picks the most direct application link available for a listing.
func applyLink(item serpJob) string {
	if len(item.ApplyOptions) > 0 && item.ApplyOptions[0].Link != "" {
		return item.ApplyOptions[0].Link
	}
	if len(item.RelatedLinks) > 0 && item.RelatedLinks[0].Link != "" {
		return item.RelatedLinks[0].Link
	}
	return item.ShareLink
}
