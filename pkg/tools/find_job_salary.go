package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

type findJobSalary struct {
	serp *serpClient
}

func NewFindJobSalary(serpAPIKey string) *findJobSalary {
	return &findJobSalary{serp: newSerpClient(serpAPIKey)}
}

func (f *findJobSalary) Name() string {
	return domain.ToolFindJobSalary
}

func (f *findJobSalary) Description() string {
	return "Find the average salary for a job"
}

func (f *findJobSalary) Parameters() jsonschema.Definition {
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

func (f *findJobSalary) Execute(ctx context.Context, args json.RawMessage) (any, error) {
	var params struct {
		Job string `json:"job"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("decoding arguments: %w", err)
	}

	slog.DebugContext(ctx, "Tool invoked with args", "tool", f.Name(), "job", params.Job)

	results, err := f.serp.jobResults(ctx, params.Job)
	if err != nil {
		return nil, fmt.Errorf("fetching job data: %w", err)
	}
	if len(results) == 0 || results[0].JobID == "" {
		return domain.SalaryResult{
			Message: "No job ID found for the given job query",
			Source:  "Unknown",
		}, nil
	}

	salaries, err := f.serp.jobSalaries(ctx, results[0].JobID)
	if err != nil {
		return nil, fmt.Errorf("fetching salary data: %w", err)
	}
	if len(salaries) == 0 {
		return domain.SalaryResult{
			Message: "No salary data found",
			Source:  "Unknown",
		}, nil
	}

	salary := salaries[0]
	source := salary.Source
	if source == "" {
		source = "Unknown"
	}

	return domain.SalaryResult{
		Title:  params.Job,
		Source: source,
		Message: fmt.Sprintf("The average salary for %s is $%s to $%s based on %s",
			params.Job, formatAmount(salary.SalaryFrom), formatAmount(salary.SalaryTo), source),
	}, nil
}

func formatAmount(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
