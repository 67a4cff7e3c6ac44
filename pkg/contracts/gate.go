package contracts

// GateStatus is the outcome of a single gate evaluation.
type GateStatus string

const (
	GatePassed GateStatus = "passed"
	GateFailed GateStatus = "failed"
)

// Evidence keys emitted by the entry gate.
const (
	EvidenceWorkItemPath      = "work_item_path"
	EvidenceWorkItemID        = "work_item_id"
	EvidenceWorkItemHash      = "work_item_hash"
	EvidenceWorkItemValidated = "work_item_validated"
	EvidenceExpectedHash      = "expected_hash"
	EvidenceActualHash        = "actual_hash"
	EvidenceViolations        = "violations"
	EvidenceStopCondition     = "stop_condition"
)

// GateResult records one gate evaluation. Results are append-only: once
// written to a results log they are never mutated, only succeeded by later
// entries.
type GateResult struct {
	GateID   string         `json:"gate_id"`
	Status   GateStatus     `json:"status"`
	Reason   string         `json:"reason"`
	Evidence map[string]any `json:"evidence,omitempty"`

	// EvidenceHash is the sha256 of the evidence map in canonical JSON
	// form, so two results over identical evidence hash identically
	// regardless of map ordering.
	EvidenceHash string `json:"evidence_hash,omitempty"`
}

// Passed reports whether the gate evaluation succeeded.
func (r GateResult) Passed() bool {
	return r.Status == GatePassed
}
