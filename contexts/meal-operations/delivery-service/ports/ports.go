package ports

import (
	"context"
	"time"

	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
)

type PlanRepository interface {
	GetPlan(ctx context.Context, planID string) (entities.MealPlan, error)
	ListPlansByVendor(ctx context.Context, vendorID string) ([]entities.MealPlan, error)
	ListPlansByVendorAndDate(ctx context.Context, vendorID string, date time.Time) ([]entities.MealPlan, error)
	UpdatePlanStatus(ctx context.Context, planID string, status entities.PlanStatus) error
	// SaveDelivery persists the details and the DELIVERED transition as one
	// all-or-nothing operation.
	SaveDelivery(ctx context.Context, planID string, details []entities.DeliveryDetail) error
	ListDeliveryDetails(ctx context.Context, planID string) ([]entities.DeliveryDetail, error)
}

// VendorDirectory is an external lookup. A miss is reported as absence,
// not an error.
type VendorDirectory interface {
	FindVendor(ctx context.Context, vendorID string) (entities.Vendor, bool, error)
}

type ApprovalRepository interface {
	AppendApproval(ctx context.Context, approval entities.Approval) error
	// FindLatestApprovals returns approvals ordered by creation time
	// descending, ties broken by highest identifier.
	FindLatestApprovals(ctx context.Context, planID string) ([]entities.Approval, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type EventEnvelope struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	SourceService string    `json:"source_service"`
	PartitionKey  string    `json:"partition_key"`
	SchemaVersion int       `json:"schema_version"`
	Data          []byte    `json:"data"`
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxRepository interface {
	OutboxWriter
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}
