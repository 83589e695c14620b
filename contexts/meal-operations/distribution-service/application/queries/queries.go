package queries

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	application "mealtrack/contexts/meal-operations/distribution-service/application"
	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/distribution-service/domain/errors"
	"mealtrack/contexts/meal-operations/distribution-service/domain/services"
	"mealtrack/contexts/meal-operations/distribution-service/ports"
)

const (
	dashboardDaysBack    = 3
	dashboardDaysForward = 7
)

type MealOption struct {
	Distribution     entities.Distribution
	RegisteredRounds int
	MaxRounds        int
	CanRegisterMore  bool
	IsServingNow     bool
	CanTakeMore      bool
}

type DashboardDay struct {
	Date  time.Time
	Meals []MealOption
}

type DashboardView struct {
	Student entities.Student
	Days    []DashboardDay
}

type UseCase struct {
	Distributions ports.DistributionRepository
	Ledger        ports.ClaimLedger
	Students      ports.StudentDirectory
	Approvals     ports.ApprovalSource
	Clock         ports.Clock
	Logger        *slog.Logger
}

// Dashboard assembles the student's meal view for the window
// [anchor-3 days, anchor+7 days]. Distributions whose source plan lacks an
// APPROVED latest approval are hidden unless they are already in the past.
func (uc UseCase) Dashboard(ctx context.Context, studentID string, anchor time.Time) (DashboardView, error) {
	logger := application.ResolveLogger(uc.Logger)
	student, found, err := uc.Students.FindStudent(ctx, strings.TrimSpace(studentID))
	if err != nil {
		logger.Error("dashboard student lookup failed",
			"event", "dashboard_student_lookup_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", strings.TrimSpace(studentID),
			"error", err.Error(),
		)
		return DashboardView{}, err
	}
	if !found {
		return DashboardView{}, domainerrors.ErrStudentNotFound
	}

	anchorDate := entities.DateOnly(anchor)
	from := anchorDate.AddDate(0, 0, -dashboardDaysBack)
	to := anchorDate.AddDate(0, 0, dashboardDaysForward)
	distributions, err := uc.Distributions.ListDistributionsInRange(ctx, from, to)
	if err != nil {
		logger.Error("dashboard distribution range query failed",
			"event", "dashboard_range_query_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"from", from.Format(time.DateOnly),
			"to", to.Format(time.DateOnly),
			"error", err.Error(),
		)
		return DashboardView{}, err
	}

	now := uc.now()
	today := entities.DateOnly(now)
	clockNow := entities.ClockTimeOf(now)

	byDate := make(map[time.Time][]MealOption)
	for _, dist := range distributions {
		if !uc.isVisible(ctx, dist, today) {
			continue
		}
		registered, err := uc.Ledger.CountClaimedRounds(ctx, student.ID, dist.ID)
		if err != nil {
			logger.Error("dashboard round count failed",
				"event", "dashboard_round_count_failed",
				"module", "meal-operations/distribution-service",
				"layer", "application",
				"student_id", student.ID,
				"distribution_id", dist.ID,
				"error", err.Error(),
			)
			return DashboardView{}, err
		}
		maxRounds := dist.MaxRounds()
		canRegisterMore := registered < maxRounds
		servingNow := services.IsServingNow(dist, today, clockNow)
		date := entities.DateOnly(dist.Date)
		byDate[date] = append(byDate[date], MealOption{
			Distribution:     dist,
			RegisteredRounds: registered,
			MaxRounds:        maxRounds,
			CanRegisterMore:  canRegisterMore,
			IsServingNow:     servingNow,
			CanTakeMore:      canRegisterMore && servingNow,
		})
	}

	dates := make([]time.Time, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	days := make([]DashboardDay, 0, len(dates))
	for _, date := range dates {
		days = append(days, DashboardDay{Date: date, Meals: byDate[date]})
	}

	logger.Info("dashboard assembled",
		"event", "dashboard_assembled",
		"module", "meal-operations/distribution-service",
		"layer", "application",
		"student_id", student.ID,
		"anchor", anchorDate.Format(time.DateOnly),
		"day_count", len(days),
	)
	return DashboardView{Student: student, Days: days}, nil
}

func (uc UseCase) MealDetails(ctx context.Context, distributionID string) (entities.Distribution, error) {
	logger := application.ResolveLogger(uc.Logger)
	dist, err := uc.Distributions.GetDistribution(ctx, strings.TrimSpace(distributionID))
	if err != nil {
		logger.Warn("meal details lookup failed",
			"event", "meal_details_lookup_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"distribution_id", strings.TrimSpace(distributionID),
			"error", err.Error(),
		)
		return entities.Distribution{}, err
	}
	return dist, nil
}

// isVisible applies the approval gate. A failed approval lookup counts as
// approved so that meals never disappear behind a transient outage; the
// failure is logged so the fail-open does not mask a real outage silently.
func (uc UseCase) isVisible(ctx context.Context, dist entities.Distribution, today time.Time) bool {
	if dist.SourcePlanID == "" || entities.DateOnly(dist.Date).Before(today) {
		return services.IsVisible(dist, today, nil)
	}
	approvals, err := uc.Approvals.FindLatestApprovals(ctx, dist.SourcePlanID)
	if err != nil {
		application.ResolveLogger(uc.Logger).Warn("approval lookup failed, defaulting to visible",
			"event", "dashboard_approval_lookup_failed_open",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"distribution_id", dist.ID,
			"plan_id", dist.SourcePlanID,
			"error", err.Error(),
		)
		return true
	}
	return services.IsVisible(dist, today, approvals)
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
