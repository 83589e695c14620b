package httpadapter

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "mealtrack/contexts/meal-operations/delivery-service/application"
	"mealtrack/contexts/meal-operations/delivery-service/application/commands"
	"mealtrack/contexts/meal-operations/delivery-service/application/queries"
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	httptransport "mealtrack/contexts/meal-operations/delivery-service/transport/http"
)

type Handler struct {
	Commands commands.UseCase
	Queries  queries.UseCase
	Logger   *slog.Logger
}

func (h Handler) StartPreparationHandler(
	ctx context.Context,
	vendorID string,
	planID string,
) (httptransport.MealPlanDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	plan, err := h.Commands.StartPreparation(ctx, commands.StartPreparationCommand{
		PlanID:   planID,
		VendorID: vendorID,
	})
	if err != nil {
		logger.Warn("delivery http start preparation failed",
			"event", "delivery_http_start_preparation_failed",
			"module", "meal-operations/delivery-service",
			"layer", "adapter",
			"vendor_id", strings.TrimSpace(vendorID),
			"plan_id", strings.TrimSpace(planID),
			"error", err.Error(),
		)
		return httptransport.MealPlanDTO{}, err
	}
	logger.Info("delivery http start preparation completed",
		"event", "delivery_http_start_preparation_completed",
		"module", "meal-operations/delivery-service",
		"layer", "adapter",
		"plan_id", plan.ID,
		"status", string(plan.Status),
	)
	return mapMealPlan(plan), nil
}

func (h Handler) MarkDeliveredHandler(
	ctx context.Context,
	vendorID string,
	planID string,
	req httptransport.MarkDeliveredRequest,
) (httptransport.MealPlanDTO, error) {
	logger := application.ResolveLogger(h.Logger)
	details := make([]commands.SuppliedDetail, 0, len(req.Details))
	for _, detail := range req.Details {
		details = append(details, commands.SuppliedDetail{
			FoodID:           detail.FoodID,
			SuppliedQuantity: detail.SuppliedQuantity,
		})
	}
	plan, err := h.Commands.MarkDelivered(ctx, commands.MarkDeliveredCommand{
		PlanID:   planID,
		VendorID: vendorID,
		Details:  details,
	})
	if err != nil {
		logger.Warn("delivery http mark delivered failed",
			"event", "delivery_http_mark_delivered_failed",
			"module", "meal-operations/delivery-service",
			"layer", "adapter",
			"vendor_id", strings.TrimSpace(vendorID),
			"plan_id", strings.TrimSpace(planID),
			"detail_count", len(req.Details),
			"error", err.Error(),
		)
		return httptransport.MealPlanDTO{}, err
	}
	logger.Info("delivery http mark delivered completed",
		"event", "delivery_http_mark_delivered_completed",
		"module", "meal-operations/delivery-service",
		"layer", "adapter",
		"plan_id", plan.ID,
		"status", string(plan.Status),
	)
	return mapMealPlan(plan), nil
}

func (h Handler) RecordApprovalHandler(
	ctx context.Context,
	req httptransport.RecordApprovalRequest,
) (httptransport.ApprovalResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	approval, err := h.Commands.RecordApproval(ctx, commands.RecordApprovalCommand{
		PlanID: req.PlanID,
		Status: req.Status,
		Reason: req.Reason,
	})
	if err != nil {
		logger.Warn("delivery http record approval failed",
			"event", "delivery_http_record_approval_failed",
			"module", "meal-operations/delivery-service",
			"layer", "adapter",
			"plan_id", strings.TrimSpace(req.PlanID),
			"status", strings.TrimSpace(req.Status),
			"error", err.Error(),
		)
		return httptransport.ApprovalResponse{}, err
	}
	logger.Info("delivery http record approval completed",
		"event", "delivery_http_record_approval_completed",
		"module", "meal-operations/delivery-service",
		"layer", "adapter",
		"approval_id", approval.ID,
		"plan_id", approval.PlanID,
		"status", string(approval.Status),
	)
	return httptransport.ApprovalResponse{
		ApprovalID: approval.ID,
		PlanID:     approval.PlanID,
		Status:     string(approval.Status),
		Reason:     approval.Reason,
		CreatedAt:  approval.CreatedAt.Format(time.RFC3339),
	}, nil
}

func (h Handler) VendorDashboardHandler(
	ctx context.Context,
	vendorID string,
) (httptransport.VendorDashboardResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	view, err := h.Queries.VendorDashboard(ctx, vendorID)
	if err != nil {
		logger.Warn("delivery http vendor dashboard failed",
			"event", "delivery_http_vendor_dashboard_failed",
			"module", "meal-operations/delivery-service",
			"layer", "adapter",
			"vendor_id", strings.TrimSpace(vendorID),
			"error", err.Error(),
		)
		return httptransport.VendorDashboardResponse{}, err
	}

	plans := make([]httptransport.MealPlanDTO, 0, len(view.Plans))
	for _, annotated := range view.Plans {
		dto := mapMealPlan(annotated.Plan)
		dto.ApprovalStatus = annotated.ApprovalStatus
		dto.ApprovalReason = annotated.ApprovalReason
		plans = append(plans, dto)
	}
	return httptransport.VendorDashboardResponse{
		VendorID:     view.Vendor.ID,
		StaffID:      view.Vendor.StaffID,
		VendorName:   view.Vendor.FullName(),
		Email:        view.Vendor.Email,
		CompanyName:  view.Vendor.CompanyName,
		FoodCategory: view.Vendor.FoodCategory,
		Plans:        plans,
	}, nil
}

func (h Handler) PlansByDateHandler(
	ctx context.Context,
	vendorID string,
	date time.Time,
) ([]httptransport.MealPlanDTO, error) {
	plans, err := h.Queries.PlansByDate(ctx, vendorID, date)
	if err != nil {
		return nil, err
	}
	return mapMealPlans(plans), nil
}

func (h Handler) PlansByDayHandler(
	ctx context.Context,
	vendorID string,
	day time.Weekday,
) ([]httptransport.MealPlanDTO, error) {
	plans, err := h.Queries.PlansByDay(ctx, vendorID, day)
	if err != nil {
		return nil, err
	}
	return mapMealPlans(plans), nil
}

func mapMealPlans(plans []entities.MealPlan) []httptransport.MealPlanDTO {
	out := make([]httptransport.MealPlanDTO, 0, len(plans))
	for _, plan := range plans {
		out = append(out, mapMealPlan(plan))
	}
	return out
}

func mapMealPlan(plan entities.MealPlan) httptransport.MealPlanDTO {
	foods := make([]httptransport.FoodDTO, 0, len(plan.Foods))
	for _, food := range plan.Foods {
		foods = append(foods, httptransport.FoodDTO{FoodID: food.ID, Name: food.Name})
	}
	return httptransport.MealPlanDTO{
		PlanID:   plan.ID,
		VendorID: plan.VendorID,
		Date:     plan.Date.Format(time.DateOnly),
		Name:     plan.Name,
		Quantity: plan.Quantity,
		Status:   string(plan.Status),
		Foods:    foods,
	}
}
