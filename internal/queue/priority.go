package queue

import (
	"fmt"
	"strings"
)

// Priority bounds. Lower values are more urgent.
const (
	MinPriority  = 1
	MaxPriority  = 100
	VIPPriority  = 10
	BasePriority = 50
)

// Priority buckets reported by Bucket.
const (
	BucketHigh   = "high"
	BucketMedium = "medium"
	BucketLow    = "low"
)

type adjustment struct {
	delta  int
	reason string
}

func loanAdjustment(loanAmount float64) *adjustment {
	switch {
	case loanAmount > 5_000_000:
		return &adjustment{-15, "loan amount above 5,000,000"}
	case loanAmount > 2_000_000:
		return &adjustment{-10, "loan amount above 2,000,000"}
	case loanAmount > 1_000_000:
		return &adjustment{-5, "loan amount above 1,000,000"}
	}
	return nil
}

func slaAdjustment(hours float64) *adjustment {
	switch {
	case hours < 2:
		return &adjustment{-20, "sla under 2h"}
	case hours < 4:
		return &adjustment{-10, "sla under 4h"}
	case hours < 8:
		return &adjustment{-5, "sla under 8h"}
	}
	return nil
}

// ComputePriority returns the review priority for an application in [1, 100].
// VIP applications always receive VIPPriority. The score is accepted for routing
// context but does not move the priority.
func ComputePriority(score int, loanAmount float64, isVIP bool, slaHoursRemaining float64) int {
	if isVIP {
		return VIPPriority
	}

	priority := BasePriority
	if adj := loanAdjustment(loanAmount); adj != nil {
		priority += adj.delta
	}
	if adj := slaAdjustment(slaHoursRemaining); adj != nil {
		priority += adj.delta
	}

	return min(max(priority, MinPriority), MaxPriority)
}

// PriorityReason describes the adjustments ComputePriority applied for the same inputs.
func PriorityReason(loanAmount float64, isVIP bool, slaHoursRemaining float64) string {
	if isVIP {
		return "vip"
	}

	parts := []string{fmt.Sprintf("base %d", BasePriority)}
	for _, adj := range []*adjustment{loanAdjustment(loanAmount), slaAdjustment(slaHoursRemaining)} {
		if adj != nil {
			parts = append(parts, fmt.Sprintf("%s (%d)", adj.reason, adj.delta))
		}
	}
	return strings.Join(parts, "; ")
}

// Bucket groups a priority for dashboards.
func Bucket(priority int) string {
	switch {
	case priority <= 20:
		return BucketHigh
	case priority <= 50:
		return BucketMedium
	default:
		return BucketLow
	}
}
