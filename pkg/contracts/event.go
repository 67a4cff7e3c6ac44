package contracts

// EventKind classifies bus events published by the core.
type EventKind string

const (
	EventArtifactFrozen EventKind = "ARTIFACT_FROZEN"
	EventGatePassed     EventKind = "GATE_PASSED"
	EventGateFailed     EventKind = "GATE_FAILED"
)

// Event is one append-only bus record. Seq is assigned by the log at
// publish time and is strictly increasing per log.
type Event struct {
	Seq         int64          `json:"seq"`
	Kind        EventKind      `json:"kind"`
	Payload     map[string]any `json:"payload,omitempty"`
	PublishedAt string         `json:"published_at,omitempty"`
}
