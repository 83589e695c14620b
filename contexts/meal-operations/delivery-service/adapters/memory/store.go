package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/delivery-service/domain/errors"
	"mealtrack/contexts/meal-operations/delivery-service/ports"

	"github.com/google/uuid"
)

type outboxRecord struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
	PublishedAt  *time.Time
}

type Store struct {
	mu sync.RWMutex

	plans     map[string]entities.MealPlan
	vendors   map[string]entities.Vendor
	approvals map[string][]entities.Approval
	details   map[string][]entities.DeliveryDetail
	outbox    map[string]outboxRecord

	now func() time.Time
}

func NewStore(seed []entities.MealPlan) *Store {
	plans := make(map[string]entities.MealPlan, len(seed))
	for _, plan := range seed {
		plans[plan.ID] = plan
	}
	return &Store{
		plans:     plans,
		vendors:   make(map[string]entities.Vendor),
		approvals: make(map[string][]entities.Approval),
		details:   make(map[string][]entities.DeliveryDetail),
		outbox:    make(map[string]outboxRecord),
	}
}

func (s *Store) SeedVendor(vendor entities.Vendor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors[vendor.ID] = vendor
}

func (s *Store) SeedPlan(plan entities.MealPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[plan.ID] = plan
}

func (s *Store) FixClock(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fixed := now.UTC()
	s.now = func() time.Time { return fixed }
}

func (s *Store) GetPlan(_ context.Context, planID string) (entities.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, exists := s.plans[strings.TrimSpace(planID)]
	if !exists {
		return entities.MealPlan{}, domainerrors.ErrPlanNotFound
	}
	return plan, nil
}

func (s *Store) ListPlansByVendor(_ context.Context, vendorID string) ([]entities.MealPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plans := make([]entities.MealPlan, 0)
	for _, plan := range s.plans {
		if plan.VendorID == strings.TrimSpace(vendorID) {
			plans = append(plans, plan)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].Date.Equal(plans[j].Date) {
			return plans[i].Date.Before(plans[j].Date)
		}
		return plans[i].ID < plans[j].ID
	})
	return plans, nil
}

func (s *Store) ListPlansByVendorAndDate(ctx context.Context, vendorID string, date time.Time) ([]entities.MealPlan, error) {
	plans, err := s.ListPlansByVendor(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	year, month, day := date.UTC().Date()
	filtered := make([]entities.MealPlan, 0, len(plans))
	for _, plan := range plans {
		py, pm, pd := plan.Date.UTC().Date()
		if py == year && pm == month && pd == day {
			filtered = append(filtered, plan)
		}
	}
	return filtered, nil
}

func (s *Store) UpdatePlanStatus(_ context.Context, planID string, status entities.PlanStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, exists := s.plans[strings.TrimSpace(planID)]
	if !exists {
		return domainerrors.ErrPlanNotFound
	}
	plan.Status = status
	s.plans[plan.ID] = plan
	return nil
}

func (s *Store) SaveDelivery(_ context.Context, planID string, details []entities.DeliveryDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, exists := s.plans[strings.TrimSpace(planID)]
	if !exists {
		return domainerrors.ErrPlanNotFound
	}
	s.details[plan.ID] = append([]entities.DeliveryDetail(nil), details...)
	plan.Status = entities.PlanStatusDelivered
	s.plans[plan.ID] = plan
	return nil
}

func (s *Store) ListDeliveryDetails(_ context.Context, planID string) ([]entities.DeliveryDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]entities.DeliveryDetail(nil), s.details[strings.TrimSpace(planID)]...), nil
}

func (s *Store) FindVendor(_ context.Context, vendorID string) (entities.Vendor, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	vendor, exists := s.vendors[strings.TrimSpace(vendorID)]
	return vendor, exists, nil
}

func (s *Store) AppendApproval(_ context.Context, approval entities.Approval) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.plans[approval.PlanID]; !exists {
		return domainerrors.ErrPlanNotFound
	}
	s.approvals[approval.PlanID] = append(s.approvals[approval.PlanID], approval)
	return nil
}

func (s *Store) FindLatestApprovals(_ context.Context, planID string) ([]entities.Approval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	approvals := append([]entities.Approval(nil), s.approvals[strings.TrimSpace(planID)]...)
	sort.Slice(approvals, func(i, j int) bool {
		if !approvals[i].CreatedAt.Equal(approvals[j].CreatedAt) {
			return approvals[i].CreatedAt.After(approvals[j].CreatedAt)
		}
		return approvals[i].ID > approvals[j].ID
	})
	return approvals, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if _, exists := s.outbox[outboxID]; exists {
		return nil
	}
	s.outbox[outboxID] = outboxRecord{
		OutboxID:     outboxID,
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      append([]byte(nil), envelope.Data...),
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]outboxRecord, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	messages := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt,
		})
	}
	return messages, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return errors.New("outbox row not found")
	}
	timestamp := publishedAt.UTC()
	row.PublishedAt = &timestamp
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) Now() time.Time {
	s.mu.RLock()
	now := s.now
	s.mu.RUnlock()
	if now != nil {
		return now()
	}
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.PlanRepository = (*Store)(nil)
var _ ports.VendorDirectory = (*Store)(nil)
var _ ports.ApprovalRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
