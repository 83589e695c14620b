package memory

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/distribution-service/domain/errors"
	"mealtrack/contexts/meal-operations/distribution-service/ports"

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

// Store is the in-memory adapter behind every distribution-service port.
// The single mutex makes the claim commit's check-and-insert atomic per
// store, which subsumes the per-(student, distribution) requirement.
type Store struct {
	mu sync.RWMutex

	distributions map[string]entities.Distribution
	students      map[string]entities.Student
	approvals     map[string][]entities.Approval
	claims        map[string]entities.RegistrationClaim
	outbox        map[string]outboxRecord

	now func() time.Time
}

func NewStore(seed []entities.Distribution) *Store {
	distributions := make(map[string]entities.Distribution, len(seed))
	for _, dist := range seed {
		distributions[dist.ID] = dist
	}
	return &Store{
		distributions: distributions,
		students:      make(map[string]entities.Student),
		approvals:     make(map[string][]entities.Approval),
		claims:        make(map[string]entities.RegistrationClaim),
		outbox:        make(map[string]outboxRecord),
	}
}

func (s *Store) SeedStudent(student entities.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[student.ID] = student
}

func (s *Store) SeedDistribution(dist entities.Distribution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.distributions[dist.ID] = dist
}

func (s *Store) SeedApproval(approval entities.Approval) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.approvals[approval.PlanID] = append(s.approvals[approval.PlanID], approval)
}

// FixClock pins the store clock for tests.
func (s *Store) FixClock(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fixed := now.UTC()
	s.now = func() time.Time { return fixed }
}

func (s *Store) GetDistribution(_ context.Context, distributionID string) (entities.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dist, exists := s.distributions[strings.TrimSpace(distributionID)]
	if !exists {
		return entities.Distribution{}, domainerrors.ErrDistributionNotFound
	}
	return dist, nil
}

func (s *Store) ListDistributionsInRange(_ context.Context, from time.Time, to time.Time) ([]entities.Distribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fromDate := entities.DateOnly(from)
	toDate := entities.DateOnly(to)
	items := make([]entities.Distribution, 0)
	for _, dist := range s.distributions {
		date := entities.DateOnly(dist.Date)
		if date.Before(fromDate) || date.After(toDate) {
			continue
		}
		items = append(items, dist)
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date) {
			return items[i].Date.Before(items[j].Date)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) FindStudent(_ context.Context, studentID string) (entities.Student, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	student, exists := s.students[strings.TrimSpace(studentID)]
	return student, exists, nil
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

func (s *Store) CountClaimedRounds(_ context.Context, studentID string, distributionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.countClaimedRoundsLocked(studentID, distributionID), nil
}

func (s *Store) HasClaim(_ context.Context, studentID string, distributionID string, round int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.claims[claimKey(studentID, distributionID, round)]
	return exists, nil
}

func (s *Store) CommitClaim(_ context.Context, claim entities.RegistrationClaim, maxRounds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.distributions[claim.DistributionID]; !exists {
		return domainerrors.ErrDistributionNotFound
	}
	key := claimKey(claim.StudentID, claim.DistributionID, claim.Round)
	if _, exists := s.claims[key]; exists {
		return domainerrors.ErrRoundAlreadyClaimed
	}
	if s.countClaimedRoundsLocked(claim.StudentID, claim.DistributionID) >= maxRounds {
		return domainerrors.ErrRoundsExhausted
	}
	s.claims[key] = claim
	return nil
}

func (s *Store) countClaimedRoundsLocked(studentID string, distributionID string) int {
	rounds := make(map[int]struct{})
	for _, claim := range s.claims {
		if claim.StudentID == strings.TrimSpace(studentID) && claim.DistributionID == strings.TrimSpace(distributionID) {
			rounds[claim.Round] = struct{}{}
		}
	}
	return len(rounds)
}

func claimKey(studentID string, distributionID string, round int) string {
	return strings.TrimSpace(studentID) + "|" + strings.TrimSpace(distributionID) + "|" + strconv.Itoa(round)
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

var _ ports.DistributionRepository = (*Store)(nil)
var _ ports.ClaimLedger = (*Store)(nil)
var _ ports.StudentDirectory = (*Store)(nil)
var _ ports.ApprovalSource = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
var _ ports.OutboxRepository = (*Store)(nil)
