package unit

import (
	"context"
	"encoding/json"
	"testing"

	"mealtrack/contexts/meal-operations/delivery-service/application/workers"
	"mealtrack/contexts/meal-operations/delivery-service/domain/entities"
	"mealtrack/contexts/meal-operations/delivery-service/ports"
	httptransport "mealtrack/contexts/meal-operations/delivery-service/transport/http"
)

type capturingDeliveryPublisher struct {
	published []ports.EventEnvelope
}

func (p *capturingDeliveryPublisher) Publish(_ context.Context, _ string, event ports.EventEnvelope) error {
	p.published = append(p.published, event)
	return nil
}

func TestDeliveryOutboxRelayPublishesDeliveredPlans(t *testing.T) {
	module := newVendorModule(t, entities.PlanStatusInProgress)
	ctx := context.Background()

	if _, err := module.Handler.MarkDeliveredHandler(ctx, "vendor-1", "plan-1", httptransport.MarkDeliveredRequest{
		Details: []httptransport.SuppliedDetailDTO{
			{FoodID: "food-rice", SuppliedQuantity: 100},
			{FoodID: "food-chicken", SuppliedQuantity: 50},
		},
	}); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}

	publisher := &capturingDeliveryPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    module.Store,
		Publisher: publisher,
		Clock:     module.Store,
	}
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(publisher.published))
	}

	event := publisher.published[0]
	if event.EventType != "plan.delivered" {
		t.Fatalf("unexpected event type %q", event.EventType)
	}
	var payload map[string]any
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		t.Fatalf("event payload is not JSON: %v", err)
	}
	if payload["plan_id"] != "plan-1" || payload["status"] != string(entities.PlanStatusDelivered) {
		t.Fatalf("unexpected payload %v", payload)
	}

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("second relay run failed: %v", err)
	}
	if len(publisher.published) != 1 {
		t.Fatalf("published rows must not be relayed twice, got %d", len(publisher.published))
	}
}
