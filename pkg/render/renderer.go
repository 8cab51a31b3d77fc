// Package render is the read side of a conversation: it turns completed tool
// invocations into typed display records and message markdown into HTML. It
// holds no state of its own.
package render

import (
	"encoding/json"
	"fmt"

	"github.com/lennythecreator/sphinx/pkg/domain"
)

type Kind string

const (
	KindJobCarousel Kind = "job_carousel"
	KindSalary      Kind = "salary"
	KindVideo       Kind = "video"
	KindBook        Kind = "book"
	KindNotice      Kind = "notice"
)

// DisplayRecord is one renderable view of a finished tool invocation.
// Exactly one of the variant fields is set, according to Kind.
type DisplayRecord struct {
	// Key is the invocation's toolCallId, stable across re-renders.
	Key  string
	Kind Kind

	Jobs   []domain.Job
	Salary *domain.SalaryResult
	Video  *domain.VideoResult
	Book   *domain.BookResult
	Notice string
}

// Render maps a tool invocation to its display record. Invocations still in
// the call state and unknown tool names produce nil: the former are rendered
// again once they carry a result, the latter are ignored for forward
// compatibility.
func Render(inv domain.ToolInvocation) (*DisplayRecord, error) {
	if inv.State != domain.InvocationStateResult || len(inv.Result) == 0 {
		return nil, nil
	}

	switch inv.ToolName {
	case domain.ToolSearchJob:
		return renderJobs(inv)
	case domain.ToolFindJobSalary:
		var res domain.SalaryResult
		if err := json.Unmarshal(inv.Result, &res); err != nil {
			return nil, fmt.Errorf("decoding salary result: %w", err)
		}
		return &DisplayRecord{Key: inv.ToolCallID, Kind: KindSalary, Salary: &res}, nil
	case domain.ToolFindVideo:
		var res domain.VideoResult
		if err := json.Unmarshal(inv.Result, &res); err != nil {
			return nil, fmt.Errorf("decoding video result: %w", err)
		}
		if res.VideoID == "" {
			return &DisplayRecord{Key: inv.ToolCallID, Kind: KindNotice, Notice: "Video not found."}, nil
		}
		return &DisplayRecord{Key: inv.ToolCallID, Kind: KindVideo, Video: &res}, nil
	case domain.ToolFindBook:
		var res domain.BookResult
		if err := json.Unmarshal(inv.Result, &res); err != nil {
			return nil, fmt.Errorf("decoding book result: %w", err)
		}
		return &DisplayRecord{Key: inv.ToolCallID, Kind: KindBook, Book: &res}, nil
	default:
		return nil, nil
	}
}

// renderJobs accepts both the list-shaped result and the legacy single-job
// shape older transcripts carry, and normalizes both to a job list.
func renderJobs(inv domain.ToolInvocation) (*DisplayRecord, error) {
	var res domain.JobSearchResult
	if err := json.Unmarshal(inv.Result, &res); err != nil {
		return nil, fmt.Errorf("decoding job search result: %w", err)
	}

	if res.Jobs == nil {
		var single domain.Job
		if err := json.Unmarshal(inv.Result, &single); err == nil && single.Title != "" {
			res.Jobs = []domain.Job{single}
		}
	}

	if len(res.Jobs) == 0 {
		notice := res.Message
		if notice == "" {
			notice = "No jobs found"
		}
		return &DisplayRecord{Key: inv.ToolCallID, Kind: KindNotice, Notice: notice}, nil
	}

	return &DisplayRecord{Key: inv.ToolCallID, Kind: KindJobCarousel, Jobs: res.Jobs}, nil
}

// RenderAll flattens the renderable invocations of a message, in order.
func RenderAll(msg domain.Message) []DisplayRecord {
	var records []DisplayRecord
	for _, inv := range msg.ToolInvocations {
		rec, err := Render(inv)
		if err != nil || rec == nil {
			continue
		}
		records = append(records, *rec)
	}
	return records
}
