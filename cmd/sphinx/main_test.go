package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lennythecreator/sphinx/pkg/domain"
	"github.com/lennythecreator/sphinx/pkg/render"
	"github.com/lennythecreator/sphinx/pkg/session"
)

// gatedStreamer emits one text delta, signals started, then holds the stream
// open until released. Cancellation is deliberately ignored so the turn stays
// in flight across a Stop.
type gatedStreamer struct {
	started chan struct{}
	release chan struct{}
}

func (s *gatedStreamer) StreamCompletion(_ context.Context, _ []domain.Message, _ string) (<-chan domain.StreamEvent, error) {
	out := make(chan domain.StreamEvent)
	go func() {
		defer close(out)
		out <- domain.StreamEvent{Type: domain.StreamEventText, Text: "working on it"}
		close(s.started)
		<-s.release
	}()
	return out, nil
}

type nopSaver struct{}

func (nopSaver) SaveHistory(context.Context, string, []domain.Message) error { return nil }

func TestUnmountWaitsForInFlightTurn(t *testing.T) {
	st := &gatedStreamer{started: make(chan struct{}), release: make(chan struct{})}
	adv := domain.Advisor{ID: "software-engineer", Role: "Software Engineer", Domain: "software engineering"}

	a := &app{histories: map[string][]domain.Message{}}
	a.sess = session.New(adv, st, nopSaver{}, nil)

	a.submit(context.Background(), "hello")
	<-st.started

	done := make(chan struct{})
	go func() {
		a.unmount()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("unmount returned while a turn was still in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(st.release)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("unmount did not return after the turn finished")
	}

	msgs := a.histories["software-engineer"]
	if len(msgs) != 3 {
		t.Fatalf("stashed history has %d messages, want welcome+user+assistant: %+v", len(msgs), msgs)
	}
	if msgs[2].Content != "working on it" {
		t.Errorf("stashed partial content = %q, want %q", msgs[2].Content, "working on it")
	}
	if a.sess != nil {
		t.Error("session not torn down")
	}
}

func TestJobPagingSafeDuringTurnRender(t *testing.T) {
	a := &app{histories: map[string][]domain.Message{}}

	three := []render.DisplayRecord{{Kind: render.KindJobCarousel, Jobs: []domain.Job{
		{ID: "a", Title: "Nurse"}, {ID: "b", Title: "Teacher"}, {ID: "c", Title: "Engineer"},
	}}}
	one := []render.DisplayRecord{{Kind: render.KindJobCarousel, Jobs: []domain.Job{
		{ID: "d", Title: "Analyst"},
	}}}
	a.printRecords(three)

	// A finishing turn replaces the job list while the user pages through it.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 25; i++ {
			a.printRecords(three)
			a.printRecords(one)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			a.pageJobs((*render.Carousel).Next)
		}
	}()
	wg.Wait()

	if idx, n := a.jobs.ActiveIndex(), a.jobs.Len(); idx < 0 || idx >= n {
		t.Errorf("active index %d out of range for %d jobs", idx, n)
	}
}
