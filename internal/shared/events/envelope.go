package events

import "time"

// Envelope is the canonical event shape carried on the bus. Service-local
// envelope types are converted to this shape at the composition root.
type Envelope struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	OccurredAt    time.Time `json:"occurred_at"`
	SourceService string    `json:"source_service"`
	PartitionKey  string    `json:"partition_key"`
	SchemaVersion int       `json:"schema_version"`
	Data          []byte    `json:"data"`
}
