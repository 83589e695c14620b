package unit

import (
	"context"
	"errors"
	"testing"
	"time"

	deliveryservice "mealtrack/contexts/meal-operations/delivery-service"
	"mealtrack/contexts/meal-operations/delivery-service/application/commands"
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
	httptransport "mealtrack/contexts/meal-operations/delivery-service/transport/http"
)

func newVendorModule(t *testing.T, planStatus entities.PlanStatus) deliveryservice.Module {
	t.Helper()

	module := deliveryservice.NewInMemoryModule(nil, nil)
	module.Store.FixClock(time.Date(2026, time.March, 10, 8, 0, 0, 0, time.UTC))
	module.Store.SeedVendor(entities.Vendor{
		ID:           "vendor-1",
		StaffID:      "staff-9",
		FirstName:    "Bola",
		LastName:     "Ade",
		Email:        "bola@catering.example",
		CompanyName:  "Ade Catering",
		FoodCategory: "Staples",
		Role:         entities.VendorRole,
	})
	module.Store.SeedVendor(entities.Vendor{
		ID:        "teacher-1",
		FirstName: "Chi",
		LastName:  "Eze",
		Role:      "TEACHER",
	})
	module.Store.SeedPlan(entities.MealPlan{
		ID:       "plan-1",
		VendorID: "vendor-1",
		Date:     time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		Name:     "Tuesday Lunch",
		Quantity: 150,
		Status:   planStatus,
		Foods: []entities.Food{
			{ID: "food-rice", Name: "Jollof Rice"},
			{ID: "food-chicken", Name: "Chicken"},
		},
	})
	return module
}

func TestStartPreparationTransitionsPlan(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusPlanned)

	resp, err := module.Handler.StartPreparationHandler(context.Background(), "vendor-1", "plan-1")
	if err != nil {
		t.Fatalf("start preparation failed: %v", err)
	}
	if resp.Status != string(entities.PlanStatusInProgress) {
		t.Fatalf("expected IN_PROGRESS, got %q", resp.Status)
	}

	_, err = module.Handler.StartPreparationHandler(context.Background(), "vendor-1", "plan-1")
	if !errors.Is(err, domainerrors.ErrPlanNotPlanned) {
		t.Fatalf("expected not planned error on repeat, got %v", err)
	}
}

func TestStartPreparationRejectsWrongVendor(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusPlanned)
	module.Store.SeedVendor(entities.Vendor{
		ID:   "vendor-2",
		Role: entities.VendorRole,
	})

	_, err := module.Handler.StartPreparationHandler(context.Background(), "vendor-2", "plan-1")
	if !errors.Is(err, domainerrors.ErrPlanNotAssigned) {
		t.Fatalf("expected not assigned error, got %v", err)
	}

	_, err = module.Handler.StartPreparationHandler(context.Background(), "teacher-1", "plan-1")
	if !errors.Is(err, domainerrors.ErrNotAVendor) {
		t.Fatalf("expected non-vendor error, got %v", err)
	}

	_, err = module.Handler.StartPreparationHandler(context.Background(), "ghost", "plan-1")
	if !errors.Is(err, domainerrors.ErrVendorNotFound) {
		t.Fatalf("expected vendor not found, got %v", err)
	}
}

func TestMarkDeliveredReconcilesSuppliedQuantities(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusInProgress)

	resp, err := module.Handler.MarkDeliveredHandler(context.Background(), "vendor-1", "plan-1", httptransport.MarkDeliveredRequest{
		Details: []httptransport.SuppliedDetailDTO{
			{FoodID: "food-rice", SuppliedQuantity: 100},
			{FoodID: "food-chicken", SuppliedQuantity: 50},
		},
	})
	if err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if resp.Status != string(entities.PlanStatusDelivered) {
		t.Fatalf("expected DELIVERED, got %q", resp.Status)
	}

	details, err := module.Store.ListDeliveryDetails(context.Background(), "plan-1")
	if err != nil {
		t.Fatalf("list details failed: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("expected 2 persisted details, got %d", len(details))
	}
}

func TestMarkDeliveredRejectsBadDetails(t *testing.T) {
	for _, tc := range []struct {
		name    string
		details []commands.SuppliedDetail
		want    error
	}{
		{
			name: "empty details",
			want: domainerrors.ErrEmptyDeliveryDetails,
		},
		{
			name: "missing food",
			details: []commands.SuppliedDetail{
				{FoodID: "food-rice", SuppliedQuantity: 150},
			},
			want: domainerrors.ErrDeliveryFoodMismatch,
		},
		{
			name: "unknown food",
			details: []commands.SuppliedDetail{
				{FoodID: "food-rice", SuppliedQuantity: 100},
				{FoodID: "food-soup", SuppliedQuantity: 50},
			},
			want: domainerrors.ErrDeliveryFoodMismatch,
		},
		{
			name: "wrong total",
			details: []commands.SuppliedDetail{
				{FoodID: "food-rice", SuppliedQuantity: 100},
				{FoodID: "food-chicken", SuppliedQuantity: 10},
			},
			want: domainerrors.ErrDeliveryTotalMismatch,
		},
		{
			name: "negative quantity",
			details: []commands.SuppliedDetail{
				{FoodID: "food-rice", SuppliedQuantity: 200},
				{FoodID: "food-chicken", SuppliedQuantity: -50},
			},
			want: domainerrors.ErrInvalidDeliveryDetail,
		},
		{
			name: "duplicate food",
			details: []commands.SuppliedDetail{
				{FoodID: "food-rice", SuppliedQuantity: 75},
				{FoodID: "food-rice", SuppliedQuantity: 75},
			},
			want: domainerrors.ErrInvalidDeliveryDetail,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			module := newVendorModule(t, entities.PlanStatusInProgress)

			_, err := module.Handler.Commands.MarkDelivered(context.Background(), commands.MarkDeliveredCommand{
				PlanID:   "plan-1",
				VendorID: "vendor-1",
				Details:  tc.details,
			})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}

			plan, err := module.Store.GetPlan(context.Background(), "plan-1")
			if err != nil {
				t.Fatalf("plan lookup failed: %v", err)
			}
			if plan.Status != entities.PlanStatusInProgress {
				t.Fatalf("rejected delivery must not change plan status, got %q", plan.Status)
			}
		})
	}
}

func TestMarkDeliveredRequiresInProgress(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusPlanned)

	_, err := module.Handler.Commands.MarkDelivered(context.Background(), commands.MarkDeliveredCommand{
		PlanID:   "plan-1",
		VendorID: "vendor-1",
		Details: []commands.SuppliedDetail{
			{FoodID: "food-rice", SuppliedQuantity: 100},
			{FoodID: "food-chicken", SuppliedQuantity: 50},
		},
	})
	if !errors.Is(err, domainerrors.ErrInvalidPlanStatus) {
		t.Fatalf("expected invalid status error, got %v", err)
	}
}

func TestRecordApprovalValidation(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusPlanned)
	ctx := context.Background()

	_, err := module.Handler.RecordApprovalHandler(ctx, httptransport.RecordApprovalRequest{
		PlanID: "plan-1",
		Status: "MAYBE",
	})
	if !errors.Is(err, domainerrors.ErrInvalidApprovalInput) {
		t.Fatalf("expected invalid approval input, got %v", err)
	}

	_, err = module.Handler.RecordApprovalHandler(ctx, httptransport.RecordApprovalRequest{
		PlanID: "missing",
		Status: "APPROVED",
	})
	if !errors.Is(err, domainerrors.ErrPlanNotFound) {
		t.Fatalf("expected plan not found, got %v", err)
	}

	resp, err := module.Handler.RecordApprovalHandler(ctx, httptransport.RecordApprovalRequest{
		PlanID: "plan-1",
		Status: "approved",
		Reason: "meets nutrition guidelines",
	})
	if err != nil {
		t.Fatalf("record approval failed: %v", err)
	}
	if resp.Status != string(entities.ApprovalStatusApproved) {
		t.Fatalf("expected normalized APPROVED status, got %q", resp.Status)
	}
}

func TestVendorDashboardApprovalAnnotation(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusInProgress)
	ctx := context.Background()

	// plan-2 has an explicit decision, plan-1 will be delivered but undecided.
	module.Store.SeedPlan(entities.MealPlan{
		ID:       "plan-2",
		VendorID: "vendor-1",
		Date:     time.Date(2026, time.March, 11, 0, 0, 0, 0, time.UTC),
		Name:     "Wednesday Lunch",
		Quantity: 80,
		Status:   entities.PlanStatusPlanned,
		Foods:    []entities.Food{{ID: "food-beans", Name: "Beans"}},
	})
	module.Store.SeedPlan(entities.MealPlan{
		ID:       "plan-3",
		VendorID: "vendor-1",
		Date:     time.Date(2026, time.March, 12, 0, 0, 0, 0, time.UTC),
		Name:     "Thursday Lunch",
		Quantity: 90,
		Status:   entities.PlanStatusPlanned,
		Foods:    []entities.Food{{ID: "food-yam", Name: "Yam"}},
	})
	if _, err := module.Handler.RecordApprovalHandler(ctx, httptransport.RecordApprovalRequest{
		PlanID: "plan-2",
		Status: "REJECTED",
		Reason: "quantity too low",
	}); err != nil {
		t.Fatalf("record approval failed: %v", err)
	}
	if _, err := module.Handler.MarkDeliveredHandler(ctx, "vendor-1", "plan-1", httptransport.MarkDeliveredRequest{
		Details: []httptransport.SuppliedDetailDTO{
			{FoodID: "food-rice", SuppliedQuantity: 100},
			{FoodID: "food-chicken", SuppliedQuantity: 50},
		},
	}); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}

	resp, err := module.Handler.VendorDashboardHandler(ctx, "vendor-1")
	if err != nil {
		t.Fatalf("vendor dashboard failed: %v", err)
	}
	if resp.VendorName != "Bola Ade" || resp.CompanyName != "Ade Catering" {
		t.Fatalf("unexpected vendor header %+v", resp)
	}

	byID := map[string]httptransport.MealPlanDTO{}
	for _, plan := range resp.Plans {
		byID[plan.PlanID] = plan
	}
	if got := byID["plan-1"].ApprovalStatus; got != entities.ApprovalStatusPendingApproval {
		t.Fatalf("delivered undecided plan must be PENDING_APPROVAL, got %q", got)
	}
	if got := byID["plan-2"]; got.ApprovalStatus != string(entities.ApprovalStatusRejected) || got.ApprovalReason != "quantity too low" {
		t.Fatalf("unexpected annotation for plan-2: %+v", got)
	}
	if got := byID["plan-3"].ApprovalStatus; got != "" {
		t.Fatalf("untouched plan must have no annotation, got %q", got)
	}
}

func TestVendorPlanQueries(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusPlanned)
	ctx := context.Background()

	// 2026-03-10 is a Tuesday.
	module.Store.SeedPlan(entities.MealPlan{
		ID:       "plan-next-week",
		VendorID: "vendor-1",
		Date:     time.Date(2026, time.March, 17, 0, 0, 0, 0, time.UTC),
		Name:     "Next Tuesday Lunch",
		Quantity: 60,
		Status:   entities.PlanStatusPlanned,
	})

	byDate, err := module.Handler.PlansByDateHandler(ctx, "vendor-1", time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("plans by date failed: %v", err)
	}
	if len(byDate) != 1 || byDate[0].PlanID != "plan-1" {
		t.Fatalf("unexpected by-date result %+v", byDate)
	}

	byDay, err := module.Handler.PlansByDayHandler(ctx, "vendor-1", time.Tuesday)
	if err != nil {
		t.Fatalf("plans by day failed: %v", err)
	}
	if len(byDay) != 2 {
		t.Fatalf("expected both Tuesday plans, got %+v", byDay)
	}
}
