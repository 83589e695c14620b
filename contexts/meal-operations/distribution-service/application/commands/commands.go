package commands

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "mealtrack/contexts/meal-operations/distribution-service/application"
	"mealtrack/contexts/meal-operations/distribution-service/domain/entities"
	domainerrors "mealtrack/contexts/meal-operations/distribution-service/domain/errors"
	"mealtrack/contexts/meal-operations/distribution-service/domain/services"
	"mealtrack/contexts/meal-operations/distribution-service/ports"
)

type RegisterCommand struct {
	StudentID      string
	DistributionID string
	Round          int
}

type UseCase struct {
	Distributions ports.DistributionRepository
	Ledger        ports.ClaimLedger
	Students      ports.StudentDirectory
	Clock         ports.Clock
	IDGen         ports.IDGenerator
	Outbox        ports.OutboxWriter
	Logger        *slog.Logger
}

// Register validates a round registration and commits the claim.
// All checks run before any mutation; the ledger commit is the only write
// and re-enforces uniqueness and capacity under its own concurrency
// discipline.
func (uc UseCase) Register(ctx context.Context, cmd RegisterCommand) (entities.RegistrationClaim, error) {
	logger := application.ResolveLogger(uc.Logger)
	studentID := strings.TrimSpace(cmd.StudentID)
	distributionID := strings.TrimSpace(cmd.DistributionID)
	if studentID == "" {
		logger.Warn("registration missing student identity",
			"event", "registration_missing_identity",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"distribution_id", distributionID,
		)
		return entities.RegistrationClaim{}, domainerrors.ErrUnauthenticated
	}

	student, found, err := uc.Students.FindStudent(ctx, studentID)
	if err != nil {
		logger.Error("registration student lookup failed",
			"event", "registration_student_lookup_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", studentID,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}
	if !found {
		logger.Warn("registration student not found",
			"event", "registration_student_not_found",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", studentID,
		)
		return entities.RegistrationClaim{}, domainerrors.ErrStudentNotFound
	}

	dist, err := uc.Distributions.GetDistribution(ctx, distributionID)
	if err != nil {
		logger.Warn("registration distribution lookup failed",
			"event", "registration_distribution_lookup_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", distributionID,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}

	now := uc.now()
	today := entities.DateOnly(now)
	if entities.DateOnly(dist.Date).Before(today) {
		logger.Warn("registration rejected for past distribution",
			"event", "registration_past_distribution",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"distribution_date", entities.DateOnly(dist.Date).Format(time.DateOnly),
		)
		return entities.RegistrationClaim{}, domainerrors.ErrPastDistribution
	}
	// Same-day registrations must fall inside the serving window.
	// Future distributions may be pre-registered at any time of day.
	if entities.SameDate(dist.Date, today) && !services.IsServingNow(dist, today, entities.ClockTimeOf(now)) {
		logger.Warn("registration rejected outside serving window",
			"event", "registration_outside_serving_window",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"now", entities.ClockTimeOf(now).String(),
		)
		return entities.RegistrationClaim{}, domainerrors.ErrNotServingNow
	}

	maxRounds := dist.MaxRounds()
	if cmd.Round < 1 || cmd.Round > maxRounds {
		logger.Warn("registration invalid round",
			"event", "registration_invalid_round",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"round", cmd.Round,
			"max_rounds", maxRounds,
		)
		return entities.RegistrationClaim{}, domainerrors.ErrInvalidRound
	}

	claimed, err := uc.Ledger.HasClaim(ctx, student.ID, dist.ID, cmd.Round)
	if err != nil {
		logger.Error("registration claim check failed",
			"event", "registration_claim_check_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"round", cmd.Round,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}
	if claimed {
		logger.Warn("registration round already claimed",
			"event", "registration_round_already_claimed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"round", cmd.Round,
		)
		return entities.RegistrationClaim{}, domainerrors.ErrRoundAlreadyClaimed
	}

	registered, err := uc.Ledger.CountClaimedRounds(ctx, student.ID, dist.ID)
	if err != nil {
		logger.Error("registration round count failed",
			"event", "registration_round_count_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}
	if registered >= maxRounds {
		logger.Warn("registration rounds exhausted",
			"event", "registration_rounds_exhausted",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"registered_rounds", registered,
			"max_rounds", maxRounds,
		)
		return entities.RegistrationClaim{}, domainerrors.ErrRoundsExhausted
	}

	claimID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		logger.Error("registration claim id generation failed",
			"event", "registration_claim_id_generation_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}
	claim := entities.RegistrationClaim{
		ID:             claimID,
		StudentID:      student.ID,
		DistributionID: dist.ID,
		Round:          cmd.Round,
		Status:         entities.ClaimStatusRegistered,
		TakenAt:        now,
	}
	if err := uc.Ledger.CommitClaim(ctx, claim, maxRounds); err != nil {
		logger.Warn("registration claim commit rejected",
			"event", "registration_claim_commit_rejected",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"student_id", student.ID,
			"distribution_id", dist.ID,
			"round", cmd.Round,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}

	if err := uc.appendOutbox(ctx, "registration.committed", claim); err != nil {
		logger.Error("registration outbox append failed",
			"event", "registration_outbox_append_failed",
			"module", "meal-operations/distribution-service",
			"layer", "application",
			"claim_id", claim.ID,
			"error", err.Error(),
		)
		return entities.RegistrationClaim{}, err
	}

	logger.Info("registration committed",
		"event", "registration_committed",
		"module", "meal-operations/distribution-service",
		"layer", "application",
		"claim_id", claim.ID,
		"student_id", student.ID,
		"distribution_id", dist.ID,
		"round", cmd.Round,
	)
	return claim, nil
}

func (uc UseCase) appendOutbox(ctx context.Context, eventType string, claim entities.RegistrationClaim) error {
	if uc.Outbox == nil {
		return nil
	}
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(map[string]any{
		"claim_id":        claim.ID,
		"student_id":      claim.StudentID,
		"distribution_id": claim.DistributionID,
		"round":           claim.Round,
	})
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    uc.now(),
		SourceService: "distribution-service",
		PartitionKey:  claim.DistributionID,
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
