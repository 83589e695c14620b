package services

import (
	"time"

	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
)

// IsVisible decides whether a distribution may be shown and claimed on the
// given day. Past distributions are always visible so history is never
// hidden. Present and future distributions are visible when they have no
// source plan, or when the most recent approval for that plan is APPROVED.
// Approvals must be ordered most recent first; only the head is consulted.
func IsVisible(dist entities.Distribution, today time.Time, approvals []entities.Approval) bool {
	if entities.DateOnly(dist.Date).Before(entities.DateOnly(today)) {
		return true
	}
	if dist.SourcePlanID == "" {
		return true
	}
	if len(approvals) == 0 {
		return false
	}
	return approvals[0].Status == entities.ApprovalStatusApproved
}

// IsServingNow reports whether a distribution is inside its serving window.
// A distribution without both window bounds is never serving.
func IsServingNow(dist entities.Distribution, today time.Time, now entities.ClockTime) bool {
	if !entities.SameDate(dist.Date, today) {
		return false
	}
	if dist.StartTime == nil || dist.EndTime == nil {
		return false
	}
	return now >= *dist.StartTime && now <= *dist.EndTime
}
