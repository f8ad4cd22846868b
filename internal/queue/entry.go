// Package queue places applications in front of human analysts. It owns the priority
// formula, SLA deadlines, the queue listing and summary views, and the background
// sweep that flags breached entries.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of a queue entry.
type Status string

// Queue entry states. Entries are never deleted; completed entries stay as history.
const (
	StatusPending    Status = "pending"
	StatusAssigned   Status = "assigned"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// ActiveStatuses are the states counted toward workload and SLA tracking.
var ActiveStatuses = []Status{StatusPending, StatusAssigned, StatusInProgress}

func (s Status) active() bool {
	for _, a := range ActiveStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// Entry is one human-review unit for an application.
type Entry struct {
	ID             uuid.UUID  `json:"id"`
	ApplicationID  uuid.UUID  `json:"application_id"`
	AnalystID      *uuid.UUID `json:"analyst_id"`
	Priority       int        `json:"priority"`
	PriorityReason *string    `json:"priority_reason"`
	Status         Status     `json:"status"`
	AssignedAt     *time.Time `json:"assigned_at"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	SLADeadline    time.Time  `json:"sla_deadline"`
	SLABreached    bool       `json:"sla_breached"`
	RoutingReason  *string    `json:"routing_reason"`
	ScoreAtRouting *int       `json:"score_at_routing"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Bucket returns the dashboard bucket of the entry's priority.
func (e Entry) Bucket() string {
	return Bucket(e.Priority)
}

// CreateCommand routes an application into the analyst queue.
type CreateCommand struct {
	ApplicationID  uuid.UUID `json:"application_id"`
	ScoreAtRouting *int      `json:"score_at_routing,omitempty"`
	RoutingReason  *string   `json:"routing_reason,omitempty"`
	IsVIP          bool      `json:"is_vip"`
}

// ListResult is a page of queue entries.
type ListResult struct {
	Items  []Entry `json:"items"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// PriorityHistogram counts active entries per priority bucket.
type PriorityHistogram struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Summary aggregates a tenant's active queue at a point in time.
type Summary struct {
	Total          int               `json:"total"`
	Pending        int               `json:"pending"`
	Assigned       int               `json:"assigned"`
	InProgress     int               `json:"in_progress"`
	ApproachingSLA int               `json:"approaching_sla"`
	BreachedSLA    int               `json:"breached_sla"`
	ByPriority     PriorityHistogram `json:"by_priority"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

// Add counts one active entry against the summary. Entries with a deadline at or
// before now are breached; entries due within window are approaching.
func (s *Summary) Add(status Status, priority int, deadline, now time.Time, window time.Duration) {
	if !status.active() {
		return
	}

	s.Total++
	switch status {
	case StatusPending:
		s.Pending++
	case StatusAssigned:
		s.Assigned++
	case StatusInProgress:
		s.InProgress++
	}

	switch {
	case !deadline.After(now):
		s.BreachedSLA++
	case !deadline.After(now.Add(window)):
		s.ApproachingSLA++
	}

	switch Bucket(priority) {
	case BucketHigh:
		s.ByPriority.High++
	case BucketMedium:
		s.ByPriority.Medium++
	default:
		s.ByPriority.Low++
	}
}
