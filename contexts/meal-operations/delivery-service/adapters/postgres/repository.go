package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
	"mealtrack/contexts/meal-operations/delivery-service/ports"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

func (r *Repository) GetPlan(ctx context.Context, planID string) (entities.MealPlan, error) {
	var row mealPlanModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(planID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.MealPlan{}, domainerrors.ErrPlanNotFound
		}
		return entities.MealPlan{}, r.logError("delivery_repo_get_plan_failed", err,
			"plan_id", strings.TrimSpace(planID),
		)
	}
	foods, err := r.loadFoods(ctx, []string{row.ID})
	if err != nil {
		return entities.MealPlan{}, err
	}
	return row.toEntity(foods[row.ID]), nil
}

func (r *Repository) ListPlansByVendor(ctx context.Context, vendorID string) ([]entities.MealPlan, error) {
	var rows []mealPlanModel
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", strings.TrimSpace(vendorID)).
		Order("plan_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("delivery_repo_list_plans_failed", err,
			"vendor_id", strings.TrimSpace(vendorID),
		)
	}
	return r.attachFoods(ctx, rows)
}

func (r *Repository) ListPlansByVendorAndDate(ctx context.Context, vendorID string, date time.Time) ([]entities.MealPlan, error) {
	year, month, day := date.UTC().Date()
	dateOnly := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	var rows []mealPlanModel
	if err := r.db.WithContext(ctx).
		Where("vendor_id = ?", strings.TrimSpace(vendorID)).
		Where("plan_date = ?", dateOnly).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("delivery_repo_list_plans_by_date_failed", err,
			"vendor_id", strings.TrimSpace(vendorID),
			"date", dateOnly.Format(time.DateOnly),
		)
	}
	return r.attachFoods(ctx, rows)
}

func (r *Repository) attachFoods(ctx context.Context, rows []mealPlanModel) ([]entities.MealPlan, error) {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	foods, err := r.loadFoods(ctx, ids)
	if err != nil {
		return nil, err
	}
	plans := make([]entities.MealPlan, 0, len(rows))
	for _, row := range rows {
		plans = append(plans, row.toEntity(foods[row.ID]))
	}
	return plans, nil
}

func (r *Repository) loadFoods(ctx context.Context, planIDs []string) (map[string][]entities.Food, error) {
	grouped := make(map[string][]entities.Food, len(planIDs))
	if len(planIDs) == 0 {
		return grouped, nil
	}
	var rows []planFoodModel
	if err := r.db.WithContext(ctx).
		Where("plan_id IN ?", planIDs).
		Order("plan_id ASC, food_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("delivery_repo_load_foods_failed", err,
			"plan_count", len(planIDs),
		)
	}
	for _, row := range rows {
		grouped[row.PlanID] = append(grouped[row.PlanID], entities.Food{
			ID:   row.FoodID,
			Name: row.FoodName,
		})
	}
	return grouped, nil
}

func (r *Repository) UpdatePlanStatus(ctx context.Context, planID string, status entities.PlanStatus) error {
	result := r.db.WithContext(ctx).
		Model(&mealPlanModel{}).
		Where("id = ?", strings.TrimSpace(planID)).
		Update("status", string(status))
	if result.Error != nil {
		return r.logError("delivery_repo_update_status_failed", result.Error,
			"plan_id", strings.TrimSpace(planID),
			"status", string(status),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrPlanNotFound
	}
	return nil
}

// SaveDelivery writes the supplied details and the DELIVERED transition in
// one transaction so a failed insert leaves the plan untouched.
func (r *Repository) SaveDelivery(ctx context.Context, planID string, details []entities.DeliveryDetail) error {
	normalizedPlanID := strings.TrimSpace(planID)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, detail := range details {
			row := deliveryDetailModel{
				ID:               strings.TrimSpace(detail.ID),
				PlanID:           normalizedPlanID,
				FoodID:           strings.TrimSpace(detail.FoodID),
				SuppliedQuantity: detail.SuppliedQuantity,
			}
			if row.ID == "" {
				row.ID = uuid.NewString()
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		result := tx.Model(&mealPlanModel{}).
			Where("id = ?", normalizedPlanID).
			Update("status", string(entities.PlanStatusDelivered))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domainerrors.ErrPlanNotFound
		}
		return nil
	})
	if err == nil || errors.Is(err, domainerrors.ErrPlanNotFound) {
		return err
	}
	return r.logError("delivery_repo_save_delivery_failed", err,
		"plan_id", normalizedPlanID,
		"detail_count", len(details),
	)
}

func (r *Repository) ListDeliveryDetails(ctx context.Context, planID string) ([]entities.DeliveryDetail, error) {
	var rows []deliveryDetailModel
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", strings.TrimSpace(planID)).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("delivery_repo_list_details_failed", err,
			"plan_id", strings.TrimSpace(planID),
		)
	}
	details := make([]entities.DeliveryDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, entities.DeliveryDetail{
			ID:               row.ID,
			PlanID:           row.PlanID,
			FoodID:           row.FoodID,
			SuppliedQuantity: row.SuppliedQuantity,
		})
	}
	return details, nil
}

func (r *Repository) FindVendor(ctx context.Context, vendorID string) (entities.Vendor, bool, error) {
	var row vendorModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(vendorID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Vendor{}, false, nil
		}
		return entities.Vendor{}, false, r.logError("delivery_repo_find_vendor_failed", err,
			"vendor_id", strings.TrimSpace(vendorID),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) AppendApproval(ctx context.Context, approval entities.Approval) error {
	row := planApprovalModel{
		ID:        strings.TrimSpace(approval.ID),
		PlanID:    strings.TrimSpace(approval.PlanID),
		Status:    string(approval.Status),
		Reason:    strings.TrimSpace(approval.Reason),
		CreatedAt: approval.CreatedAt.UTC(),
	}
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return r.logError("delivery_repo_append_approval_failed", err,
			"plan_id", row.PlanID,
			"approval_id", row.ID,
		)
	}
	return nil
}

func (r *Repository) FindLatestApprovals(ctx context.Context, planID string) ([]entities.Approval, error) {
	var rows []planApprovalModel
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", strings.TrimSpace(planID)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("delivery_repo_find_approvals_failed", err,
			"plan_id", strings.TrimSpace(planID),
		)
	}
	approvals := make([]entities.Approval, 0, len(rows))
	for _, row := range rows {
		approvals = append(approvals, entities.Approval{
			ID:        row.ID,
			PlanID:    row.PlanID,
			Status:    entities.ApprovalStatus(row.Status),
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt.UTC(),
		})
	}
	return approvals, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	row := deliveryOutboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      append([]byte(nil), envelope.Data...),
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row).Error; err != nil {
		return r.logError("delivery_repo_append_outbox_failed", err,
			"outbox_id", row.OutboxID,
			"event_type", row.EventType,
		)
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []deliveryOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("delivery_repo_list_pending_outbox_failed", err,
			"limit", limit,
		)
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return messages, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&deliveryOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("delivery_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return errors.New("outbox row not found")
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "meal-operations/delivery-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("delivery repository operation failed", fields...)
	return err
}

type mealPlanModel struct {
	ID       string    `gorm:"column:id;primaryKey"`
	VendorID string    `gorm:"column:vendor_id"`
	Date     time.Time `gorm:"column:plan_date"`
	Name     string    `gorm:"column:name"`
	Quantity int       `gorm:"column:quantity"`
	Status   string    `gorm:"column:status"`
}

func (mealPlanModel) TableName() string {
	return "meal_plans"
}

func (m mealPlanModel) toEntity(foods []entities.Food) entities.MealPlan {
	return entities.MealPlan{
		ID:       m.ID,
		VendorID: m.VendorID,
		Date:     m.Date.UTC(),
		Name:     m.Name,
		Quantity: m.Quantity,
		Status:   entities.PlanStatus(m.Status),
		Foods:    foods,
	}
}

type planFoodModel struct {
	PlanID   string `gorm:"column:plan_id;primaryKey"`
	FoodID   string `gorm:"column:food_id;primaryKey"`
	FoodName string `gorm:"column:food_name"`
}

func (planFoodModel) TableName() string {
	return "plan_foods"
}

type deliveryDetailModel struct {
	ID               string `gorm:"column:id;primaryKey"`
	PlanID           string `gorm:"column:plan_id;uniqueIndex:ux_delivery_plan_food"`
	FoodID           string `gorm:"column:food_id;uniqueIndex:ux_delivery_plan_food"`
	SuppliedQuantity int    `gorm:"column:supplied_quantity"`
}

func (deliveryDetailModel) TableName() string {
	return "delivery_details"
}

type vendorModel struct {
	ID           string `gorm:"column:id;primaryKey"`
	StaffID      string `gorm:"column:staff_id"`
	FirstName    string `gorm:"column:first_name"`
	LastName     string `gorm:"column:last_name"`
	Email        string `gorm:"column:email"`
	CompanyName  string `gorm:"column:company_name"`
	FoodCategory string `gorm:"column:food_category"`
	Role         string `gorm:"column:role"`
}

func (vendorModel) TableName() string {
	return "staff"
}

func (m vendorModel) toEntity() entities.Vendor {
	return entities.Vendor{
		ID:           m.ID,
		StaffID:      m.StaffID,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		Email:        m.Email,
		CompanyName:  m.CompanyName,
		FoodCategory: m.FoodCategory,
		Role:         m.Role,
	}
}

type planApprovalModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	PlanID    string    `gorm:"column:plan_id"`
	Status    string    `gorm:"column:status"`
	Reason    string    `gorm:"column:reason"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (planApprovalModel) TableName() string {
	return "plan_approvals"
}

type deliveryOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (deliveryOutboxModel) TableName() string {
	return "delivery_outbox"
}

var _ ports.PlanRepository = (*Repository)(nil)
var _ ports.VendorDirectory = (*Repository)(nil)
var _ ports.ApprovalRepository = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
