package queue_test

import (
	"testing"
	"time"

	"github.com/JaimeStill/underwrite/internal/queue"
)

func TestSummaryAdd(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	window := 2 * time.Hour

	var s queue.Summary
	s.Add(queue.StatusPending, 10, now.Add(-time.Minute), now, window)
	s.Add(queue.StatusPending, 50, now, now, window)
	s.Add(queue.StatusAssigned, 35, now.Add(90*time.Minute), now, window)
	s.Add(queue.StatusAssigned, 45, now.Add(2*time.Hour), now, window)
	s.Add(queue.StatusInProgress, 80, now.Add(5*time.Hour), now, window)
	s.Add(queue.StatusCompleted, 10, now.Add(-time.Hour), now, window)

	want := queue.Summary{
		Total:          5,
		Pending:        2,
		Assigned:       2,
		InProgress:     1,
		ApproachingSLA: 2,
		BreachedSLA:    2,
		ByPriority:     queue.PriorityHistogram{High: 1, Medium: 3, Low: 1},
	}

	if s != want {
		t.Errorf("Summary = %+v, want %+v", s, want)
	}
}
