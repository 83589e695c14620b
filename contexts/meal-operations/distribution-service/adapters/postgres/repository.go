package postgresadapter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/distribution-service/domain/errors"
	"mealtrack/contexts/meal-operations/distribution-service/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
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

func (r *Repository) GetDistribution(ctx context.Context, distributionID string) (entities.Distribution, error) {
	var row distributionModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(distributionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Distribution{}, domainerrors.ErrDistributionNotFound
		}
		return entities.Distribution{}, r.logError("distribution_repo_get_failed", err,
			"distribution_id", strings.TrimSpace(distributionID),
		)
	}
	items, err := r.loadItems(ctx, []string{row.ID})
	if err != nil {
		return entities.Distribution{}, err
	}
	return row.toEntity(items[row.ID]), nil
}

func (r *Repository) ListDistributionsInRange(ctx context.Context, from time.Time, to time.Time) ([]entities.Distribution, error) {
	var rows []distributionModel
	if err := r.db.WithContext(ctx).
		Where("distribution_date >= ?", entities.DateOnly(from)).
		Where("distribution_date <= ?", entities.DateOnly(to)).
		Order("distribution_date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_range_failed", err,
			"from", entities.DateOnly(from).Format(time.DateOnly),
			"to", entities.DateOnly(to).Format(time.DateOnly),
		)
	}
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	items, err := r.loadItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	distributions := make([]entities.Distribution, 0, len(rows))
	for _, row := range rows {
		distributions = append(distributions, row.toEntity(items[row.ID]))
	}
	return distributions, nil
}

func (r *Repository) loadItems(ctx context.Context, distributionIDs []string) (map[string][]entities.DistributionItem, error) {
	grouped := make(map[string][]entities.DistributionItem, len(distributionIDs))
	if len(distributionIDs) == 0 {
		return grouped, nil
	}
	var rows []distributionItemModel
	if err := r.db.WithContext(ctx).
		Where("distribution_id IN ?", distributionIDs).
		Order("distribution_id ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_load_items_failed", err,
			"distribution_count", len(distributionIDs),
		)
	}
	for _, row := range rows {
		grouped[row.DistributionID] = append(grouped[row.DistributionID], row.toEntity())
	}
	return grouped, nil
}

func (r *Repository) FindStudent(ctx context.Context, studentID string) (entities.Student, bool, error) {
	var row studentModel
	err := r.db.WithContext(ctx).
		Where("student_id = ?", strings.TrimSpace(studentID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Student{}, false, nil
		}
		return entities.Student{}, false, r.logError("distribution_repo_find_student_failed", err,
			"student_id", strings.TrimSpace(studentID),
		)
	}
	return row.toEntity(), true, nil
}

// FindLatestApprovals is a read-only projection lookup of the approvals
// table owned by the delivery side. Ordering contract: creation time
// descending, ties broken by highest identifier.
func (r *Repository) FindLatestApprovals(ctx context.Context, planID string) ([]entities.Approval, error) {
	var rows []planApprovalModel
	if err := r.db.WithContext(ctx).
		Where("plan_id = ?", strings.TrimSpace(planID)).
		Order("created_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_find_approvals_failed", err,
			"plan_id", strings.TrimSpace(planID),
		)
	}
	approvals := make([]entities.Approval, 0, len(rows))
	for _, row := range rows {
		approvals = append(approvals, row.toEntity())
	}
	return approvals, nil
}

func (r *Repository) CountClaimedRounds(ctx context.Context, studentID string, distributionID string) (int, error) {
	count, err := countDistinctRounds(r.db.WithContext(ctx), studentID, distributionID)
	if err != nil {
		return 0, r.logError("distribution_repo_count_rounds_failed", err,
			"student_id", strings.TrimSpace(studentID),
			"distribution_id", strings.TrimSpace(distributionID),
		)
	}
	return count, nil
}

func (r *Repository) HasClaim(ctx context.Context, studentID string, distributionID string, round int) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&registrationClaimModel{}).
		Where("student_id = ?", strings.TrimSpace(studentID)).
		Where("distribution_id = ?", strings.TrimSpace(distributionID)).
		Where("round = ?", round).
		Count(&count).Error; err != nil {
		return false, r.logError("distribution_repo_has_claim_failed", err,
			"student_id", strings.TrimSpace(studentID),
			"distribution_id", strings.TrimSpace(distributionID),
			"round", round,
		)
	}
	return count > 0, nil
}

// CommitClaim serializes the check-and-insert against concurrent commits for
// the same distribution by locking the distribution row. The unique index on
// (student_id, distribution_id, round) stays the final arbiter; the capacity
// re-check inside the transaction closes the double-submit race.
func (r *Repository) CommitClaim(ctx context.Context, claim entities.RegistrationClaim, maxRounds int) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dist distributionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", strings.TrimSpace(claim.DistributionID)).
			First(&dist).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrDistributionNotFound
			}
			return err
		}
		registered, err := countDistinctRounds(tx, claim.StudentID, claim.DistributionID)
		if err != nil {
			return err
		}
		if registered >= maxRounds {
			return domainerrors.ErrRoundsExhausted
		}
		row := registrationClaimModelFromEntity(claim)
		if err := tx.Create(&row).Error; err != nil {
			if isUniqueViolation(err) {
				return domainerrors.ErrRoundAlreadyClaimed
			}
			return err
		}
		return nil
	})
	if err == nil ||
		errors.Is(err, domainerrors.ErrRoundAlreadyClaimed) ||
		errors.Is(err, domainerrors.ErrRoundsExhausted) ||
		errors.Is(err, domainerrors.ErrDistributionNotFound) {
		return err
	}
	return r.logError("distribution_repo_commit_claim_failed", err,
		"student_id", strings.TrimSpace(claim.StudentID),
		"distribution_id", strings.TrimSpace(claim.DistributionID),
		"round", claim.Round,
	)
}

func countDistinctRounds(tx *gorm.DB, studentID string, distributionID string) (int, error) {
	var count int64
	err := tx.Model(&registrationClaimModel{}).
		Distinct("round").
		Where("student_id = ?", strings.TrimSpace(studentID)).
		Where("distribution_id = ?", strings.TrimSpace(distributionID)).
		Count(&count).Error
	return int(count), err
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	row := registrationOutboxModel{
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
		return r.logError("distribution_repo_append_outbox_failed", err,
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
	var rows []registrationOutboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("distribution_repo_list_pending_outbox_failed", err,
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
		Model(&registrationOutboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("distribution_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		r.logWarn("distribution_repo_mark_outbox_published_not_found",
			"outbox_id", strings.TrimSpace(outboxID),
		)
		return errors.New("outbox row not found")
	}
	return nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "meal-operations/distribution-service",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("distribution repository operation failed", fields...)
	return err
}

func (r *Repository) logWarn(event string, attrs ...any) {
	fields := make([]any, 0, len(attrs)+6)
	fields = append(fields,
		"event", event,
		"module", "meal-operations/distribution-service",
		"layer", "adapter",
	)
	fields = append(fields, attrs...)
	r.logger.Warn("distribution repository warning", fields...)
}

type distributionModel struct {
	ID            string    `gorm:"column:id;primaryKey"`
	SourcePlanID  *string   `gorm:"column:source_plan_id"`
	Date          time.Time `gorm:"column:distribution_date"`
	MealType      string    `gorm:"column:meal_type"`
	Status        string    `gorm:"column:status"`
	StartMinutes  *int      `gorm:"column:start_minutes"`
	EndMinutes    *int      `gorm:"column:end_minutes"`
	RoundsAllowed int       `gorm:"column:rounds_allowed"`
}

func (distributionModel) TableName() string {
	return "meal_distributions"
}

func (m distributionModel) toEntity(items []entities.DistributionItem) entities.Distribution {
	dist := entities.Distribution{
		ID:            m.ID,
		Date:          entities.DateOnly(m.Date),
		MealType:      entities.MealType(m.MealType),
		Status:        entities.DistributionStatus(m.Status),
		RoundsAllowed: m.RoundsAllowed,
		Items:         items,
	}
	if m.SourcePlanID != nil {
		dist.SourcePlanID = strings.TrimSpace(*m.SourcePlanID)
	}
	if m.StartMinutes != nil {
		start := entities.ClockTime(*m.StartMinutes)
		dist.StartTime = &start
	}
	if m.EndMinutes != nil {
		end := entities.ClockTime(*m.EndMinutes)
		dist.EndTime = &end
	}
	return dist
}

type distributionItemModel struct {
	ID             string `gorm:"column:id;primaryKey"`
	DistributionID string `gorm:"column:distribution_id"`
	FoodID         string `gorm:"column:food_id"`
	FoodName       string `gorm:"column:food_name"`
	Quantity       int    `gorm:"column:quantity"`
}

func (distributionItemModel) TableName() string {
	return "distribution_items"
}

func (m distributionItemModel) toEntity() entities.DistributionItem {
	return entities.DistributionItem{
		ID:       m.ID,
		FoodID:   m.FoodID,
		FoodName: m.FoodName,
		Quantity: m.Quantity,
	}
}

type studentModel struct {
	StudentID string `gorm:"column:student_id;primaryKey"`
	FirstName string `gorm:"column:first_name"`
	LastName  string `gorm:"column:last_name"`
	Email     string `gorm:"column:email"`
	Age       int    `gorm:"column:age"`
}

func (studentModel) TableName() string {
	return "students"
}

func (m studentModel) toEntity() entities.Student {
	return entities.Student{
		ID:        m.StudentID,
		FirstName: m.FirstName,
		LastName:  m.LastName,
		Email:     m.Email,
		Age:       m.Age,
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

func (m planApprovalModel) toEntity() entities.Approval {
	return entities.Approval{
		ID:        m.ID,
		PlanID:    m.PlanID,
		Status:    entities.ApprovalStatus(m.Status),
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type registrationClaimModel struct {
	ID             string    `gorm:"column:id;primaryKey"`
	StudentID      string    `gorm:"column:student_id;uniqueIndex:ux_claims_student_dist_round"`
	DistributionID string    `gorm:"column:distribution_id;uniqueIndex:ux_claims_student_dist_round"`
	Round          int       `gorm:"column:round;uniqueIndex:ux_claims_student_dist_round"`
	Status         string    `gorm:"column:status"`
	TakenAt        time.Time `gorm:"column:taken_at"`
}

func (registrationClaimModel) TableName() string {
	return "registration_claims"
}

func registrationClaimModelFromEntity(claim entities.RegistrationClaim) registrationClaimModel {
	return registrationClaimModel{
		ID:             strings.TrimSpace(claim.ID),
		StudentID:      strings.TrimSpace(claim.StudentID),
		DistributionID: strings.TrimSpace(claim.DistributionID),
		Round:          claim.Round,
		Status:         string(claim.Status),
		TakenAt:        claim.TakenAt.UTC(),
	}
}

type registrationOutboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (registrationOutboxModel) TableName() string {
	return "registration_outbox"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.DistributionRepository = (*Repository)(nil)
var _ ports.ClaimLedger = (*Repository)(nil)
var _ ports.StudentDirectory = (*Repository)(nil)
var _ ports.ApprovalSource = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
