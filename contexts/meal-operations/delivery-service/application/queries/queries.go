package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "mealtrack/contexts/meal-operations/delivery-service/application"
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
	"mealtrack/contexts/meal-operations/delivery-service/ports"
)

type VendorDashboardView struct {
	Vendor entities.Vendor
	Plans  []entities.PlanApprovalView
}

type UseCase struct {
	Plans     ports.PlanRepository
	Vendors   ports.VendorDirectory
	Approvals ports.ApprovalRepository
	Logger    *slog.Logger
}

// VendorDashboard lists the vendor's assigned plans, each annotated with its
// authoritative approval state: the most recent recorded approval if any,
// PENDING_APPROVAL when details were delivered but no decision exists, and
// empty otherwise.
func (uc UseCase) VendorDashboard(ctx context.Context, vendorID string) (VendorDashboardView, error) {
	logger := application.ResolveLogger(uc.Logger)
	vendor, err := uc.requireVendor(ctx, vendorID)
	if err != nil {
		return VendorDashboardView{}, err
	}

	plans, err := uc.Plans.ListPlansByVendor(ctx, vendor.ID)
	if err != nil {
		logger.Error("vendor dashboard plan list failed",
			"event", "vendor_dashboard_plan_list_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"vendor_id", vendor.ID,
			"error", err.Error(),
		)
		return VendorDashboardView{}, err
	}

	views := make([]entities.PlanApprovalView, 0, len(plans))
	for _, plan := range plans {
		view := entities.PlanApprovalView{Plan: plan}
		approvals, err := uc.Approvals.FindLatestApprovals(ctx, plan.ID)
		if err != nil {
			logger.Error("vendor dashboard approval lookup failed",
				"event", "vendor_dashboard_approval_lookup_failed",
				"module", "meal-operations/delivery-service",
				"layer", "application",
				"vendor_id", vendor.ID,
				"plan_id", plan.ID,
				"error", err.Error(),
			)
			return VendorDashboardView{}, err
		}
		if len(approvals) > 0 {
			view.ApprovalStatus = string(approvals[0].Status)
			view.ApprovalReason = approvals[0].Reason
		} else {
			details, err := uc.Plans.ListDeliveryDetails(ctx, plan.ID)
			if err != nil {
				logger.Error("vendor dashboard detail lookup failed",
					"event", "vendor_dashboard_detail_lookup_failed",
					"module", "meal-operations/delivery-service",
					"layer", "application",
					"vendor_id", vendor.ID,
					"plan_id", plan.ID,
					"error", err.Error(),
				)
				return VendorDashboardView{}, err
			}
			if len(details) > 0 {
				view.ApprovalStatus = entities.ApprovalStatusPendingApproval
			}
		}
		views = append(views, view)
	}

	logger.Info("vendor dashboard assembled",
		"event", "vendor_dashboard_assembled",
		"module", "meal-operations/delivery-service",
		"layer", "application",
		"vendor_id", vendor.ID,
		"plan_count", len(views),
	)
	return VendorDashboardView{Vendor: vendor, Plans: views}, nil
}

func (uc UseCase) PlansByDate(ctx context.Context, vendorID string, date time.Time) ([]entities.MealPlan, error) {
	logger := application.ResolveLogger(uc.Logger)
	vendor, err := uc.requireVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	plans, err := uc.Plans.ListPlansByVendorAndDate(ctx, vendor.ID, date)
	if err != nil {
		logger.Error("vendor plans by date query failed",
			"event", "vendor_plans_by_date_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"vendor_id", vendor.ID,
			"date", date.Format(time.DateOnly),
			"error", err.Error(),
		)
		return nil, err
	}
	return plans, nil
}

func (uc UseCase) PlansByDay(ctx context.Context, vendorID string, day time.Weekday) ([]entities.MealPlan, error) {
	logger := application.ResolveLogger(uc.Logger)
	vendor, err := uc.requireVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	plans, err := uc.Plans.ListPlansByVendor(ctx, vendor.ID)
	if err != nil {
		logger.Error("vendor plans by day query failed",
			"event", "vendor_plans_by_day_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"vendor_id", vendor.ID,
			"day", day.String(),
			"error", err.Error(),
		)
		return nil, err
	}
	filtered := make([]entities.MealPlan, 0, len(plans))
	for _, plan := range plans {
		if plan.Date.UTC().Weekday() == day {
			filtered = append(filtered, plan)
		}
	}
	return filtered, nil
}

func (uc UseCase) requireVendor(ctx context.Context, vendorID string) (entities.Vendor, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalized := strings.TrimSpace(vendorID)
	vendor, found, err := uc.Vendors.FindVendor(ctx, normalized)
	if err != nil {
		logger.Error("vendor lookup failed",
			"event", "vendor_lookup_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"vendor_id", normalized,
			"error", err.Error(),
		)
		return entities.Vendor{}, err
	}
	if !found {
		return entities.Vendor{}, domainerrors.ErrVendorNotFound
	}
	if !strings.EqualFold(vendor.Role, entities.VendorRole) {
		return entities.Vendor{}, domainerrors.ErrNotAVendor
	}
	return vendor, nil
}
