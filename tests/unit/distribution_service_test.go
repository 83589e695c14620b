package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	distributionservice "mealtrack/contexts/meal-operations/distribution-service"
	"mealtrack/contexts/meal-operations/distribution-service/adapters/memory"
	"mealtrack/contexts/meal-operations/distribution-service/application/commands"
	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/distribution-service/domain/errors"
	httptransport "mealtrack/contexts/meal-operations/distribution-service/transport/http"
)

func clockTime(hour int, minute int) *entities.ClockTime {
	value := entities.NewClockTime(hour, minute)
	return &value
}

func newServingModule(t *testing.T, roundsAllowed int) (distributionservice.Module, time.Time) {
	t.Helper()

	now := time.Date(2026, time.March, 10, 9, 10, 0, 0, time.UTC)
	module := distributionservice.NewInMemoryModule(nil, nil)
	module.Store.FixClock(now)
	module.Store.SeedStudent(entities.Student{
		ID:        "student-1",
		FirstName: "Ada",
		LastName:  "Obi",
		Email:     "ada@school.example",
		Age:       12,
	})
	module.Store.SeedDistribution(entities.Distribution{
		ID:            "dist-today",
		Date:          now,
		MealType:      entities.MealTypeLunch,
		Status:        entities.DistributionStatusInProgress,
		StartTime:     clockTime(9, 0),
		EndTime:       clockTime(9, 30),
		RoundsAllowed: roundsAllowed,
		Items: []entities.DistributionItem{
			{ID: "item-1", FoodID: "food-rice", FoodName: "Jollof Rice", Quantity: 100},
		},
	})
	return module, now
}

func TestRegisterMealRequiresIdentity(t *testing.T) {
	module, _ := newServingModule(t, 2)

	_, err := module.Handler.RegisterMealHandler(context.Background(), "", httptransport.RegisterMealRequest{
		DistributionID: "dist-today",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrUnauthenticated) {
		t.Fatalf("expected unauthenticated error, got %v", err)
	}
}

func TestRegisterMealUnknownStudent(t *testing.T) {
	module, _ := newServingModule(t, 2)

	_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
		StudentID:      "ghost",
		DistributionID: "dist-today",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}

func TestRegisterMealUnknownDistribution(t *testing.T) {
	module, _ := newServingModule(t, 2)

	_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "missing",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrDistributionNotFound) {
		t.Fatalf("expected distribution not found, got %v", err)
	}
}

func TestRegisterMealRejectsPastDistribution(t *testing.T) {
	module, now := newServingModule(t, 2)
	module.Store.SeedDistribution(entities.Distribution{
		ID:            "dist-yesterday",
		Date:          now.AddDate(0, 0, -1),
		StartTime:     clockTime(9, 0),
		EndTime:       clockTime(9, 30),
		RoundsAllowed: 2,
	})

	_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "dist-yesterday",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrPastDistribution) {
		t.Fatalf("expected past distribution error, got %v", err)
	}
}

func TestRegisterMealOutsideServingWindow(t *testing.T) {
	module, now := newServingModule(t, 2)
	module.Store.SeedDistribution(entities.Distribution{
		ID:            "dist-evening",
		Date:          now,
		StartTime:     clockTime(17, 0),
		EndTime:       clockTime(17, 30),
		RoundsAllowed: 2,
	})

	_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "dist-evening",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrNotServingNow) {
		t.Fatalf("expected not serving error, got %v", err)
	}
}

func TestRegisterMealMissingWindowNeverServes(t *testing.T) {
	module, now := newServingModule(t, 2)
	module.Store.SeedDistribution(entities.Distribution{
		ID:            "dist-no-window",
		Date:          now,
		StartTime:     clockTime(9, 0),
		RoundsAllowed: 2,
	})

	_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "dist-no-window",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrNotServingNow) {
		t.Fatalf("expected not serving error for missing end time, got %v", err)
	}
}

func TestRegisterMealAllowsFutureDistribution(t *testing.T) {
	module, now := newServingModule(t, 2)
	module.Store.SeedDistribution(entities.Distribution{
		ID:            "dist-tomorrow",
		Date:          now.AddDate(0, 0, 1),
		StartTime:     clockTime(12, 0),
		EndTime:       clockTime(12, 30),
		RoundsAllowed: 2,
	})

	claim, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "dist-tomorrow",
		Round:          1,
	})
	if err != nil {
		t.Fatalf("pre-registration for a future distribution failed: %v", err)
	}
	if claim.Status != entities.ClaimStatusRegistered {
		t.Fatalf("unexpected claim status %q", claim.Status)
	}
}

func TestRegisterMealRoundBounds(t *testing.T) {
	module, _ := newServingModule(t, 2)

	for _, round := range []int{0, -1, 3} {
		_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
			StudentID:      "student-1",
			DistributionID: "dist-today",
			Round:          round,
		})
		if !errors.Is(err, domainerrors.ErrInvalidRound) {
			t.Fatalf("round %d: expected invalid round error, got %v", round, err)
		}
	}
}

func TestRegisterMealRoundLifecycle(t *testing.T) {
	module, now := newServingModule(t, 2)
	ctx := context.Background()

	first, err := module.Handler.RegisterMealHandler(ctx, "student-1", httptransport.RegisterMealRequest{
		DistributionID: "dist-today",
		Round:          1,
	})
	if err != nil {
		t.Fatalf("first round registration failed: %v", err)
	}
	if first.Round != 1 || first.Status != string(entities.ClaimStatusRegistered) {
		t.Fatalf("unexpected first response %+v", first)
	}
	if first.TakenAt != now.Format(time.RFC3339) {
		t.Fatalf("expected taken_at %q, got %q", now.Format(time.RFC3339), first.TakenAt)
	}

	_, err = module.Handler.RegisterMealHandler(ctx, "student-1", httptransport.RegisterMealRequest{
		DistributionID: "dist-today",
		Round:          1,
	})
	if !errors.Is(err, domainerrors.ErrRoundAlreadyClaimed) {
		t.Fatalf("expected duplicate round error, got %v", err)
	}

	if _, err := module.Handler.RegisterMealHandler(ctx, "student-1", httptransport.RegisterMealRequest{
		DistributionID: "dist-today",
		Round:          2,
	}); err != nil {
		t.Fatalf("second round registration failed: %v", err)
	}

	_, err = module.Handler.RegisterMealHandler(ctx, "student-1", httptransport.RegisterMealRequest{
		DistributionID: "dist-today",
		Round:          2,
	})
	if !errors.Is(err, domainerrors.ErrRoundAlreadyClaimed) {
		t.Fatalf("expected duplicate on exhausted rounds, got %v", err)
	}
}

func TestRegisterMealWindowBoundariesInclusive(t *testing.T) {
	for _, tc := range []struct {
		name   string
		minute int
		ok     bool
	}{
		{name: "at start", minute: 0, ok: true},
		{name: "inside", minute: 15, ok: true},
		{name: "at end", minute: 30, ok: true},
		{name: "after end", minute: 31, ok: false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			module, _ := newServingModule(t, 1)
			module.Store.FixClock(time.Date(2026, time.March, 10, 9, tc.minute, 0, 0, time.UTC))

			_, err := module.Handler.Commands.Register(context.Background(), commands.RegisterCommand{
				StudentID:      "student-1",
				DistributionID: "dist-today",
				Round:          1,
			})
			if tc.ok && err != nil {
				t.Fatalf("expected registration to succeed, got %v", err)
			}
			if !tc.ok && !errors.Is(err, domainerrors.ErrNotServingNow) {
				t.Fatalf("expected not serving error, got %v", err)
			}
		})
	}
}

func TestDashboardHidesUnapprovedFutureMeals(t *testing.T) {
	module, now := newServingModule(t, 1)
	ctx := context.Background()

	module.Store.SeedDistribution(entities.Distribution{
		ID:           "dist-unapproved",
		SourcePlanID: "plan-unapproved",
		Date:         now.AddDate(0, 0, 2),
	})
	module.Store.SeedDistribution(entities.Distribution{
		ID:           "dist-approved",
		SourcePlanID: "plan-approved",
		Date:         now.AddDate(0, 0, 2),
	})
	module.Store.SeedApproval(entities.Approval{
		ID:        "appr-1",
		PlanID:    "plan-approved",
		Status:    entities.ApprovalStatusApproved,
		CreatedAt: now.Add(-time.Hour),
	})
	// Rejected plan in the past stays visible: history is never hidden.
	module.Store.SeedDistribution(entities.Distribution{
		ID:           "dist-past-rejected",
		SourcePlanID: "plan-rejected",
		Date:         now.AddDate(0, 0, -1),
	})
	module.Store.SeedApproval(entities.Approval{
		ID:        "appr-2",
		PlanID:    "plan-rejected",
		Status:    entities.ApprovalStatusRejected,
		CreatedAt: now.Add(-time.Hour),
	})

	resp, err := module.Handler.DashboardHandler(ctx, "student-1", now)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}

	seen := map[string]bool{}
	for _, day := range resp.Days {
		for _, meal := range day.Meals {
			seen[meal.DistributionID] = true
		}
	}
	if seen["dist-unapproved"] {
		t.Fatal("unapproved future distribution must be hidden")
	}
	if !seen["dist-approved"] {
		t.Fatal("approved distribution must be visible")
	}
	if !seen["dist-past-rejected"] {
		t.Fatal("past distribution must stay visible regardless of approval")
	}
	if !seen["dist-today"] {
		t.Fatal("distribution without a source plan must be visible")
	}
}

func TestDashboardLatestApprovalWins(t *testing.T) {
	module, now := newServingModule(t, 1)

	module.Store.SeedDistribution(entities.Distribution{
		ID:           "dist-flipflop",
		SourcePlanID: "plan-flipflop",
		Date:         now.AddDate(0, 0, 1),
	})
	module.Store.SeedApproval(entities.Approval{
		ID:        "appr-old",
		PlanID:    "plan-flipflop",
		Status:    entities.ApprovalStatusApproved,
		CreatedAt: now.Add(-2 * time.Hour),
	})
	module.Store.SeedApproval(entities.Approval{
		ID:        "appr-new",
		PlanID:    "plan-flipflop",
		Status:    entities.ApprovalStatusRejected,
		CreatedAt: now.Add(-time.Hour),
	})

	resp, err := module.Handler.DashboardHandler(context.Background(), "student-1", now)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	for _, day := range resp.Days {
		for _, meal := range day.Meals {
			if meal.DistributionID == "dist-flipflop" {
				t.Fatal("distribution whose latest approval is REJECTED must be hidden")
			}
		}
	}
}

func TestDashboardFlagsAndWindow(t *testing.T) {
	module, now := newServingModule(t, 2)
	ctx := context.Background()

	// Outside the [-3d, +7d] window on both sides.
	module.Store.SeedDistribution(entities.Distribution{
		ID:   "dist-too-old",
		Date: now.AddDate(0, 0, -4),
	})
	module.Store.SeedDistribution(entities.Distribution{
		ID:   "dist-too-far",
		Date: now.AddDate(0, 0, 8),
	})

	if _, err := module.Handler.Commands.Register(ctx, commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "dist-today",
		Round:          1,
	}); err != nil {
		t.Fatalf("seed registration failed: %v", err)
	}

	resp, err := module.Handler.DashboardHandler(ctx, "student-1", now)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	if resp.StudentName != "Ada Obi" {
		t.Fatalf("unexpected student name %q", resp.StudentName)
	}

	var today *httptransport.MealOptionDTO
	for _, day := range resp.Days {
		for i := range day.Meals {
			switch day.Meals[i].DistributionID {
			case "dist-too-old", "dist-too-far":
				t.Fatalf("distribution %s is outside the dashboard window", day.Meals[i].DistributionID)
			case "dist-today":
				today = &day.Meals[i]
			}
		}
	}
	if today == nil {
		t.Fatal("expected today's distribution on the dashboard")
	}
	if today.RegisteredRounds != 1 || today.MaxRounds != 2 {
		t.Fatalf("unexpected round counts %+v", today)
	}
	if !today.CanRegisterMore || !today.IsServingNow || !today.CanTakeMore {
		t.Fatalf("expected open flags for a serving meal with spare rounds, got %+v", today)
	}
	if today.StartTime != "09:00" || today.EndTime != "09:30" {
		t.Fatalf("unexpected window rendering %q-%q", today.StartTime, today.EndTime)
	}
}

type unavailableApprovalSource struct{}

func (unavailableApprovalSource) FindLatestApprovals(context.Context, string) ([]entities.Approval, error) {
	return nil, errors.New("approval projection unavailable")
}

func TestDashboardFailsOpenWhenApprovalLookupFails(t *testing.T) {
	now := time.Date(2026, time.March, 10, 9, 10, 0, 0, time.UTC)
	store := memory.NewStore(nil)
	store.FixClock(now)
	store.SeedStudent(entities.Student{
		ID:        "student-1",
		FirstName: "Ada",
		LastName:  "Obi",
	})
	// Future, plan-gated: only the approval outcome decides visibility here.
	store.SeedDistribution(entities.Distribution{
		ID:           "dist-gated",
		SourcePlanID: "plan-gated",
		Date:         now.AddDate(0, 0, 2),
	})

	module := distributionservice.NewModule(distributionservice.Dependencies{
		Distributions: store,
		Ledger:        store,
		Students:      store,
		Approvals:     unavailableApprovalSource{},
		Clock:         store,
		IDGen:         store,
		Outbox:        store,
	})

	resp, err := module.Handler.DashboardHandler(context.Background(), "student-1", now)
	if err != nil {
		t.Fatalf("dashboard failed: %v", err)
	}
	seen := map[string]bool{}
	for _, day := range resp.Days {
		for _, meal := range day.Meals {
			seen[meal.DistributionID] = true
		}
	}
	if !seen["dist-gated"] {
		t.Fatal("distribution must stay visible when the approval lookup fails")
	}
}

func TestDashboardUnknownStudent(t *testing.T) {
	module, now := newServingModule(t, 1)

	_, err := module.Handler.DashboardHandler(context.Background(), "ghost", now)
	if !errors.Is(err, domainerrors.ErrStudentNotFound) {
		t.Fatalf("expected student not found, got %v", err)
	}
}

func TestMealDetails(t *testing.T) {
	module, _ := newServingModule(t, 2)

	resp, err := module.Handler.MealDetailsHandler(context.Background(), "dist-today")
	if err != nil {
		t.Fatalf("meal details failed: %v", err)
	}
	if resp.MealType != string(entities.MealTypeLunch) || resp.MaxRounds != 2 {
		t.Fatalf("unexpected details %+v", resp)
	}
	if len(resp.Items) != 1 || resp.Items[0].Unit != "kg" {
		t.Fatalf("expected a kg unit for rice, got %+v", resp.Items)
	}

	_, err = module.Handler.MealDetailsHandler(context.Background(), "missing")
	if !errors.Is(err, domainerrors.ErrDistributionNotFound) {
		t.Fatalf("expected distribution not found, got %v", err)
	}
}
