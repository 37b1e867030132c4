// Package scheduling holds the triage rules for pending scheduling requests and the
// capacity indicator for time slots.
package scheduling

import (
	"sort"
	"time"

	"example.com/backstage/services/laundry/internal/models"
)

// Urgency is the triage tier of a pending request
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyOverdue  Urgency = "overdue"
	UrgencyNormal   Urgency = "normal"
)

const (
	criticalWithin = 4 * time.Hour
	highWithin     = 24 * time.Hour
	overdueAfter   = 2 * time.Hour
)

// Rank orders tiers, most urgent first
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyOverdue:
		return 2
	default:
		return 3
	}
}

// Classify returns the tier of a request. The checks run in a fixed order, so a request
// that is due soon and also old is reported by its due time only.
func Classify(requestedAt, createdAt, now time.Time) Urgency {
	hoursUntil := requestedAt.Sub(now).Hours()
	hoursOld := now.Sub(createdAt).Hours()

	switch {
	case hoursUntil <= criticalWithin.Hours():
		return UrgencyCritical
	case hoursUntil <= highWithin.Hours():
		return UrgencyHigh
	case hoursOld > overdueAfter.Hours():
		return UrgencyOverdue
	default:
		return UrgencyNormal
	}
}

// TriagedRequest is a pending request with its tier
type TriagedRequest struct {
	models.SchedulingRequest
	Urgency Urgency `json:"urgency"`
}

// SortByUrgency classifies requests and orders them by tier, then by submission time,
// oldest first. Equal keys keep their input order.
func SortByUrgency(requests []models.SchedulingRequest, now time.Time) []TriagedRequest {
	out := make([]TriagedRequest, len(requests))
	for i, r := range requests {
		out[i] = TriagedRequest{
			SchedulingRequest: r,
			Urgency:           Classify(r.RequestedDateTime, r.CreatedAt, now),
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Urgency.Rank(), out[j].Urgency.Rank()
		if ri != rj {
			return ri < rj
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	return out
}
