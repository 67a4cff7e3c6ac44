// Package contracts defines the shared data shapes exchanged between the
// shaping and gating subsystems: document models, commit manifests, and
// gate results. Types here carry no behavior beyond simple accessors so
// that every other package can depend on them without cycles.
package contracts

// WorkItemModel is the tactical (L3) document shape. It accumulates fields
// during a shaping session and is rendered into a WORK_ITEM.md artifact.
type WorkItemModel struct {
	// Objective is a single statement; reassignment replaces the prior
	// value while the session is still shaping.
	Objective string `json:"objective"`

	// Scope is the ordered list of path strings the work item may touch.
	Scope []string `json:"scope,omitempty"`

	// Plan is the ordered sequence of imperative implementation steps.
	Plan []string `json:"plan,omitempty"`

	// Acceptance is the ordered sequence of acceptance criteria.
	Acceptance []string `json:"acceptance,omitempty"`
}

// Complete reports whether the model satisfies minimal completeness for
// reveal: the objective must be populated.
func (m WorkItemModel) Complete() bool {
	return m.Objective != ""
}

// SpecModel is the strategic (L4) document shape.
type SpecModel struct {
	Overview string `json:"overview"`
	Problem  string `json:"problem"`

	NonGoals []string `json:"non_goals,omitempty"`
	Phases   []string `json:"phases,omitempty"`

	// PhasesConfirmed is set only by an explicit confirmation action.
	// It is never inferred from reveal or from adding phases.
	PhasesConfirmed bool `json:"phases_confirmed"`

	SuccessCriteria []string `json:"success_criteria,omitempty"`
}

// Complete reports whether the model satisfies minimal completeness for
// reveal: both overview and problem must be populated.
func (m SpecModel) Complete() bool {
	return m.Overview != "" && m.Problem != ""
}
