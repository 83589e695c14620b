package entities

import (
	"fmt"
	"time"
)

type MealType string

const (
	MealTypeBreakfast MealType = "BREAKFAST"
	MealTypeLunch     MealType = "LUNCH"
	MealTypeDinner    MealType = "DINNER"
	MealTypeMeal      MealType = "MEAL"
)

type DistributionStatus string

const (
	DistributionStatusPlanned    DistributionStatus = "PLANNED"
	DistributionStatusInProgress DistributionStatus = "IN_PROGRESS"
	DistributionStatusDelivered  DistributionStatus = "DELIVERED"
	DistributionStatusCancelled  DistributionStatus = "CANCELLED"
)

// ClockTime is a time of day with minute precision, counted from midnight.
type ClockTime int

func NewClockTime(hour int, minute int) ClockTime {
	return ClockTime(hour*60 + minute)
}

func ClockTimeOf(t time.Time) ClockTime {
	return NewClockTime(t.Hour(), t.Minute())
}

func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// DateOnly truncates a timestamp to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func SameDate(a time.Time, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

type DistributionItem struct {
	ID       string
	FoodID   string
	FoodName string
	Quantity int
}

type Distribution struct {
	ID            string
	SourcePlanID  string
	Date          time.Time
	MealType      MealType
	Status        DistributionStatus
	StartTime     *ClockTime
	EndTime       *ClockTime
	RoundsAllowed int
	Items         []DistributionItem
}

// MaxRounds resolves the rounds-allowed invariant: absent or non-positive
// values count as a single round.
func (d Distribution) MaxRounds() int {
	if d.RoundsAllowed < 1 {
		return 1
	}
	return d.RoundsAllowed
}

func (d Distribution) NormalizedMealType() MealType {
	if d.MealType == "" {
		return MealTypeMeal
	}
	return d.MealType
}

type ClaimStatus string

const ClaimStatusRegistered ClaimStatus = "REGISTERED"

// RegistrationClaim is one student's registration for one round of one
// distribution. Claims are append-only: they are never mutated or deleted
// after a successful commit.
type RegistrationClaim struct {
	ID             string
	StudentID      string
	DistributionID string
	Round          int
	Status         ClaimStatus
	TakenAt        time.Time
}

type Student struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Age       int
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

type ApprovalStatus string

const (
	ApprovalStatusPending  ApprovalStatus = "PENDING"
	ApprovalStatusApproved ApprovalStatus = "APPROVED"
	ApprovalStatusRejected ApprovalStatus = "REJECTED"
)

// Approval is a read-only projection of a plan approval decision owned by
// the delivery side. Only the most recent approval is authoritative.
type Approval struct {
	ID        string
	PlanID    string
	Status    ApprovalStatus
	Reason    string
	CreatedAt time.Time
}
