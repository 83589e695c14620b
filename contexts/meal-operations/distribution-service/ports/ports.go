package ports

import (
	"context"
	"time"

	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
)

type DistributionRepository interface {
	GetDistribution(ctx context.Context, distributionID string) (entities.Distribution, error)
	ListDistributionsInRange(ctx context.Context, from time.Time, to time.Time) ([]entities.Distribution, error)
}

// ClaimLedger is the durable, append-only record of round claims.
// CommitClaim must make the existence check, capacity check, and insert
// appear atomic per (student, distribution) key.
type ClaimLedger interface {
	CountClaimedRounds(ctx context.Context, studentID string, distributionID string) (int, error)
	HasClaim(ctx context.Context, studentID string, distributionID string, round int) (bool, error)
	CommitClaim(ctx context.Context, claim entities.RegistrationClaim, maxRounds int) error
}

// StudentDirectory is an external lookup. A miss is reported as absence,
// not an error.
type StudentDirectory interface {
	FindStudent(ctx context.Context, studentID string) (entities.Student, bool, error)
}

// ApprovalSource reads plan approvals owned by the delivery side.
// Implementations must return approvals ordered by creation time descending,
// ties broken by highest identifier.
type ApprovalSource interface {
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
