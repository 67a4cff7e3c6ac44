// Package gate sequences manifest intent, work item validation, and hash
// integrity into named gates. Every gate invocation appends exactly one
// result to the phase's append-only results log, pass or fail, so the
// audit trail survives repeated attempts. Failures are expected outcomes
// with categorized reasons, never crashes.
package gate

import (
	"context"
	"fmt"
	"os"

	"github.com/tillerworks/tiller/pkg/canonicalize"
	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/policy"
	"github.com/tillerworks/tiller/pkg/store"
	"github.com/tillerworks/tiller/pkg/workitem"
)

// Failure reasons, fixed strings so operators and tooling can match them.
const (
	ReasonNotCommitted    = "not committed"
	ReasonMissingWorkItem = "missing work item"
	ReasonValidationFail  = "validation failed"
	ReasonHashMismatch    = "hash mismatch"
	ReasonStopTriggered   = "stop condition triggered"
	ReasonStopInvalid     = "stop condition invalid"
	ReasonPassed          = "work item verified"
)

// Runner evaluates gates for one target.
type Runner struct {
	validator *workitem.Validator
	baselines *store.BaselineStore
	log       *ResultsLog
	policy    *policy.Evaluator

	// recordedAt stamps new baselines. It is supplied by the caller so
	// nothing in the gate itself derives time.
	recordedAt string
}

// Config wires a Runner's collaborators.
type Config struct {
	Validator  *workitem.Validator
	Baselines  *store.BaselineStore
	Results    *ResultsLog
	Policy     *policy.Evaluator
	RecordedAt string
}

// NewRunner creates a gate runner. Validator defaults to the standard
// work item validator; Policy may be nil to skip expression evaluation.
func NewRunner(cfg Config) *Runner {
	v := cfg.Validator
	if v == nil {
		v = workitem.New()
	}
	return &Runner{
		validator:  v,
		baselines:  cfg.Baselines,
		log:        cfg.Results,
		policy:     cfg.Policy,
		recordedAt: cfg.RecordedAt,
	}
}

// RunEntry evaluates the entry gate for a commit manifest. The returned
// error covers infrastructure trouble only (store or log I/O); a failed
// gate is a normal result with status "failed".
func (r *Runner) RunEntry(ctx context.Context, gateID string, m contracts.CommitManifest) (contracts.GateResult, error) {
	result := r.evaluate(ctx, gateID, m)
	if len(result.Evidence) > 0 {
		hash, err := canonicalize.CanonicalHash(result.Evidence)
		if err != nil {
			return result, fmt.Errorf("gate: hash evidence: %w", err)
		}
		result.EvidenceHash = hash
	}
	if err := r.log.Append(result); err != nil {
		return result, err
	}
	return result, nil
}

func (r *Runner) evaluate(ctx context.Context, gateID string, m contracts.CommitManifest) contracts.GateResult {
	fail := func(reason string, evidence map[string]any) contracts.GateResult {
		return contracts.GateResult{
			GateID:   gateID,
			Status:   contracts.GateFailed,
			Reason:   reason,
			Evidence: evidence,
		}
	}

	// Explore is the safety default: it never advances, no matter how
	// valid the referenced work item is.
	if m.Mode != contracts.ModeCommit {
		return fail(ReasonNotCommitted, map[string]any{"mode": string(m.Mode)})
	}

	path := m.References.WorkItem
	if path == "" {
		return fail(ReasonMissingWorkItem, nil)
	}
	if _, err := os.Stat(path); err != nil {
		return fail(ReasonMissingWorkItem, map[string]any{
			contracts.EvidenceWorkItemPath: path,
		})
	}

	report, err := r.validator.Validate(path)
	if err != nil {
		return fail(ReasonMissingWorkItem, map[string]any{
			contracts.EvidenceWorkItemPath: path,
			"error":                        err.Error(),
		})
	}
	if !report.OK {
		return fail(ReasonValidationFail, map[string]any{
			contracts.EvidenceWorkItemPath: path,
			contracts.EvidenceWorkItemID:   report.ID,
			contracts.EvidenceViolations:   report.Violations,
		})
	}

	hash, err := canonicalize.HashFile(path)
	if err != nil {
		return fail(ReasonMissingWorkItem, map[string]any{
			contracts.EvidenceWorkItemPath: path,
			"error":                        err.Error(),
		})
	}

	baseline, haveBaseline, err := r.baselines.Get(ctx, report.ID)
	if err != nil {
		return fail(ReasonHashMismatch, map[string]any{
			contracts.EvidenceWorkItemID: report.ID,
			"error":                      err.Error(),
		})
	}
	if haveBaseline && baseline.Hash != hash {
		return fail(ReasonHashMismatch, map[string]any{
			contracts.EvidenceWorkItemPath: path,
			contracts.EvidenceWorkItemID:   report.ID,
			contracts.EvidenceExpectedHash: baseline.Hash,
			contracts.EvidenceActualHash:   hash,
		})
	}

	evidence := map[string]any{
		contracts.EvidenceWorkItemPath:      path,
		contracts.EvidenceWorkItemID:        report.ID,
		contracts.EvidenceWorkItemHash:      hash,
		contracts.EvidenceWorkItemValidated: true,
	}

	// Declared stop conditions are checked last so their expressions can
	// see the full evidence. Fail-closed on conditions we cannot evaluate.
	if r.policy != nil {
		for _, condition := range m.StopConditions {
			triggered, err := r.policy.Triggered(condition, evidence)
			if err != nil {
				return fail(ReasonStopInvalid, map[string]any{
					contracts.EvidenceStopCondition: condition,
					"error":                         err.Error(),
				})
			}
			if triggered {
				return fail(ReasonStopTriggered, map[string]any{
					contracts.EvidenceStopCondition: condition,
				})
			}
		}
	}

	if !haveBaseline {
		err := r.baselines.Record(ctx, store.Baseline{
			WorkItemID: report.ID,
			Hash:       hash,
			GateID:     gateID,
			RecordedAt: r.recordedAt,
		})
		if err != nil {
			return fail(ReasonHashMismatch, map[string]any{
				contracts.EvidenceWorkItemID: report.ID,
				"error":                      fmt.Sprintf("baseline record: %v", err),
			})
		}
	}

	return contracts.GateResult{
		GateID:   gateID,
		Status:   contracts.GatePassed,
		Reason:   ReasonPassed,
		Evidence: evidence,
	}
}
