package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "mealtrack/contexts/meal-operations/delivery-service/application"
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
	"mealtrack/contexts/meal-operations/delivery-service/domain/services"
	"mealtrack/contexts/meal-operations/delivery-service/ports"
)

type StartPreparationCommand struct {
	PlanID   string
	VendorID string
}

type SuppliedDetail struct {
	FoodID           string
	SuppliedQuantity int
}

type MarkDeliveredCommand struct {
	PlanID   string
	VendorID string
	Details  []SuppliedDetail
}

type RecordApprovalCommand struct {
	PlanID string
	Status string
	Reason string
}

type UseCase struct {
	Plans     ports.PlanRepository
	Vendors   ports.VendorDirectory
	Approvals ports.ApprovalRepository
	Clock     ports.Clock
	IDGen     ports.IDGenerator
	Outbox    ports.OutboxWriter
	Logger    *slog.Logger
}

func (uc UseCase) StartPreparation(ctx context.Context, cmd StartPreparationCommand) (entities.MealPlan, error) {
	logger := application.ResolveLogger(uc.Logger)
	plan, err := uc.loadAssignedPlan(ctx, cmd.PlanID, cmd.VendorID)
	if err != nil {
		return entities.MealPlan{}, err
	}
	if plan.Status != entities.PlanStatusPlanned {
		logger.Warn("delivery start preparation invalid status",
			"event", "delivery_start_preparation_invalid_status",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"status", string(plan.Status),
		)
		return entities.MealPlan{}, domainerrors.ErrPlanNotPlanned
	}
	if err := uc.Plans.UpdatePlanStatus(ctx, plan.ID, entities.PlanStatusInProgress); err != nil {
		logger.Error("delivery start preparation update failed",
			"event", "delivery_start_preparation_update_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"error", err.Error(),
		)
		return entities.MealPlan{}, err
	}
	plan.Status = entities.PlanStatusInProgress
	logger.Info("delivery preparation started",
		"event", "delivery_preparation_started",
		"module", "meal-operations/delivery-service",
		"layer", "application",
		"plan_id", plan.ID,
		"vendor_id", plan.VendorID,
	)
	return plan, nil
}

// MarkDelivered reconciles the vendor's supplied quantities against the plan
// and, only when every check passes, persists the details and transitions
// the plan to DELIVERED. No partial state survives a failed check.
func (uc UseCase) MarkDelivered(ctx context.Context, cmd MarkDeliveredCommand) (entities.MealPlan, error) {
	logger := application.ResolveLogger(uc.Logger)
	plan, err := uc.loadAssignedPlan(ctx, cmd.PlanID, cmd.VendorID)
	if err != nil {
		return entities.MealPlan{}, err
	}
	if plan.Status != entities.PlanStatusInProgress {
		logger.Warn("delivery mark delivered invalid status",
			"event", "delivery_mark_delivered_invalid_status",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"status", string(plan.Status),
		)
		return entities.MealPlan{}, domainerrors.ErrInvalidPlanStatus
	}

	details := make([]entities.DeliveryDetail, 0, len(cmd.Details))
	for _, supplied := range cmd.Details {
		detailID, err := uc.IDGen.NewID(ctx)
		if err != nil {
			logger.Error("delivery detail id generation failed",
				"event", "delivery_detail_id_generation_failed",
				"module", "meal-operations/delivery-service",
				"layer", "application",
				"plan_id", plan.ID,
				"error", err.Error(),
			)
			return entities.MealPlan{}, err
		}
		details = append(details, entities.DeliveryDetail{
			ID:               detailID,
			PlanID:           plan.ID,
			FoodID:           strings.TrimSpace(supplied.FoodID),
			SuppliedQuantity: supplied.SuppliedQuantity,
		})
	}

	if err := services.ReconcileDelivery(plan, details); err != nil {
		logger.Warn("delivery reconciliation rejected",
			"event", "delivery_reconciliation_rejected",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"vendor_id", plan.VendorID,
			"detail_count", len(details),
			"error", err.Error(),
		)
		return entities.MealPlan{}, err
	}

	if err := uc.Plans.SaveDelivery(ctx, plan.ID, details); err != nil {
		logger.Error("delivery persistence failed",
			"event", "delivery_persistence_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"error", err.Error(),
		)
		return entities.MealPlan{}, err
	}
	plan.Status = entities.PlanStatusDelivered

	if err := uc.appendOutbox(ctx, "plan.delivered", plan); err != nil {
		logger.Error("delivery outbox append failed",
			"event", "delivery_outbox_append_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"error", err.Error(),
		)
		return entities.MealPlan{}, err
	}

	logger.Info("delivery marked delivered",
		"event", "delivery_marked_delivered",
		"module", "meal-operations/delivery-service",
		"layer", "application",
		"plan_id", plan.ID,
		"vendor_id", plan.VendorID,
		"detail_count", len(details),
	)
	return plan, nil
}

func (uc UseCase) RecordApproval(ctx context.Context, cmd RecordApprovalCommand) (entities.Approval, error) {
	logger := application.ResolveLogger(uc.Logger)
	planID := strings.TrimSpace(cmd.PlanID)
	status := entities.ApprovalStatus(strings.ToUpper(strings.TrimSpace(cmd.Status)))
	if planID == "" ||
		(status != entities.ApprovalStatusPending &&
			status != entities.ApprovalStatusApproved &&
			status != entities.ApprovalStatusRejected) {
		logger.Warn("delivery approval invalid input",
			"event", "delivery_approval_invalid_input",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", planID,
			"status", strings.TrimSpace(cmd.Status),
		)
		return entities.Approval{}, domainerrors.ErrInvalidApprovalInput
	}

	if _, err := uc.Plans.GetPlan(ctx, planID); err != nil {
		logger.Warn("delivery approval plan lookup failed",
			"event", "delivery_approval_plan_lookup_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", planID,
			"error", err.Error(),
		)
		return entities.Approval{}, err
	}

	approvalID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("delivery approval id generation failed",
			"event", "delivery_approval_id_generation_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", planID,
			"error", err.Error(),
		)
		return entities.Approval{}, err
	}
	approval := entities.Approval{
		ID:        approvalID,
		PlanID:    planID,
		Status:    status,
		Reason:    strings.TrimSpace(cmd.Reason),
		CreatedAt: uc.now(),
	}
	if err := uc.Approvals.AppendApproval(ctx, approval); err != nil {
		logger.Error("delivery approval append failed",
			"event", "delivery_approval_append_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", planID,
			"approval_id", approvalID,
			"error", err.Error(),
		)
		return entities.Approval{}, err
	}
	logger.Info("delivery approval recorded",
		"event", "delivery_approval_recorded",
		"module", "meal-operations/delivery-service",
		"layer", "application",
		"plan_id", planID,
		"approval_id", approvalID,
		"status", string(status),
	)
	return approval, nil
}

func (uc UseCase) loadAssignedPlan(ctx context.Context, planID string, vendorID string) (entities.MealPlan, error) {
	logger := application.ResolveLogger(uc.Logger)
	normalizedVendorID := strings.TrimSpace(vendorID)
	vendor, found, err := uc.Vendors.FindVendor(ctx, normalizedVendorID)
	if err != nil {
		logger.Error("delivery vendor lookup failed",
			"event", "delivery_vendor_lookup_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"vendor_id", normalizedVendorID,
			"error", err.Error(),
		)
		return entities.MealPlan{}, err
	}
	if !found {
		return entities.MealPlan{}, domainerrors.ErrVendorNotFound
	}
	if !strings.EqualFold(vendor.Role, entities.VendorRole) {
		return entities.MealPlan{}, domainerrors.ErrNotAVendor
	}

	plan, err := uc.Plans.GetPlan(ctx, strings.TrimSpace(planID))
	if err != nil {
		logger.Warn("delivery plan lookup failed",
			"event", "delivery_plan_lookup_failed",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", strings.TrimSpace(planID),
			"vendor_id", normalizedVendorID,
			"error", err.Error(),
		)
		return entities.MealPlan{}, err
	}
	if plan.VendorID != vendor.ID {
		logger.Warn("delivery plan not assigned to vendor",
			"event", "delivery_plan_not_assigned",
			"module", "meal-operations/delivery-service",
			"layer", "application",
			"plan_id", plan.ID,
			"vendor_id", vendor.ID,
		)
		return entities.MealPlan{}, domainerrors.ErrPlanNotAssigned
	}
	return plan, nil
}

func (uc UseCase) appendOutbox(ctx context.Context, eventType string, plan entities.MealPlan) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"plan_id":   plan.ID,
		"vendor_id": plan.VendorID,
		"status":    string(plan.Status),
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    uc.now(),
		SourceService: "delivery-service",
		PartitionKey:  plan.ID,
		SchemaVersion: 1,
		Data:          payload,
	})
}

func (uc UseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
