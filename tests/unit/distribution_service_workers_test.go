package unit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	distributionservice "mealtrack/contexts/meal-operations/distribution-service"
	"mealtrack/contexts/meal-operations/distribution-service/application/commands"
	"mealtrack/contexts/meal-operations/distribution-service/application/workers"
	"mealtrack/contexts/meal-operations/distribution-service/ports"
)

type capturingPublisher struct {
	published []ports.EventEnvelope
	topics    []string
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, event ports.EventEnvelope) error {
	p.topics = append(p.topics, topic)
	p.published = append(p.published, event)
	return nil
}

func TestRegistrationOutboxRelayPublishesCommittedClaims(t *testing.T) {
	module, _ := newServingModule(t, 2)
	ctx := context.Background()

	claim, err := module.Handler.Commands.Register(ctx, commands.RegisterCommand{
		StudentID:      "student-1",
		DistributionID: "dist-today",
		Round:          1,
	})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     module.Store,
		Topic:     "registration.committed",
		BatchSize: 10,
	}

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.published))
	}
	if publisher.topics[0] != "registration.committed" {
		t.Fatalf("unexpected topic %q", publisher.topics[0])
	}

	event := publisher.published[0]
	if event.EventType != "registration.committed" {
		t.Fatalf("unexpected event type %q", event.EventType)
	}
	var payload map[string]any
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("event payload is not JSON: %v", err)
	}
	if payload["claim_id"] != claim.ID {
		t.Fatalf("expected claim id %q in payload, got %v", claim.ID, payload["claim_id"])
	}

	// A second cycle finds nothing pending.
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published rows must not be relayed twice, got %d events", len(publisher.published))
	}
}

func TestRegistrationOutboxRelayEmptyCycle(t *testing.T) {
	module := distributionservice.NewInMemoryModule(nil, nil)
	module.Store.FixClock(time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC))

	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: &capturingPublisher{},
		Clock:     module.Store,
	}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run on empty outbox failed: %v", err)
	}
}
