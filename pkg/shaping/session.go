// Package shaping drives the altitude-aware conversational state machine
// that turns routed input lines into a structured document, enforcing the
// reveal-before-freeze discipline. A session moves Idle → Shaping →
// Revealed → Frozen; every rejected transition leaves both state and model
// untouched and returns a categorized error.
package shaping

import (
	"github.com/tillerworks/tiller/pkg/altitude"
	"github.com/tillerworks/tiller/pkg/contracts"
	"github.com/tillerworks/tiller/pkg/render"
	"github.com/tillerworks/tiller/pkg/safewrite"
)

// State is the lifecycle position of a shaping session.
type State string

const (
	StateIdle     State = "Idle"
	StateShaping  State = "Shaping"
	StateRevealed State = "Revealed"
	StateFrozen   State = "Frozen"
)

// Session holds one conversation's worth of shaping state. It is not safe
// for concurrent use; each invocation owns its session.
type Session struct {
	id    string
	state State
	level altitude.Level

	work *contracts.WorkItemModel
	spec *contracts.SpecModel

	buf          *Buffer
	artifactPath string
}

// NewSession creates an idle session with an unlocked altitude.
func NewSession(id string) *Session {
	return &Session{
		id:    id,
		state: StateIdle,
		level: altitude.Unclear,
		buf:   NewBuffer(DefaultBufferLimit),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return s.state }

// Altitude returns the locked level, or Unclear before the first
// classified ingest.
func (s *Session) Altitude() altitude.Level { return s.level }

// ArtifactPath returns the frozen artifact's path, empty until frozen.
func (s *Session) ArtifactPath() string { return s.artifactPath }

// Buffer exposes the conversation window for rendering and debugging.
func (s *Session) Buffer() *Buffer { return s.buf }

// WorkItem returns a copy of the tactical model, or false for L4/unlocked
// sessions.
func (s *Session) WorkItem() (contracts.WorkItemModel, bool) {
	if s.work == nil {
		return contracts.WorkItemModel{}, false
	}
	return *s.work, true
}

// Spec returns a copy of the strategic model, or false for L3/unlocked
// sessions.
func (s *Session) Spec() (contracts.SpecModel, bool) {
	if s.spec == nil {
		return contracts.SpecModel{}, false
	}
	return *s.spec, true
}

// Ingest routes one input line into the session's model. The first
// classified line locks the session altitude; later lines must match it.
// Valid from Idle and Shaping; a revealed session must go through Edit so
// the stale preview is invalidated explicitly.
func (s *Session) Ingest(line string) error {
	switch s.state {
	case StateFrozen:
		return ErrFrozen
	case StateRevealed:
		return &StateError{Op: "ingest", Have: s.state, Need: StateShaping}
	}

	field, value, ok := altitude.SplitField(line)
	if !ok {
		return &AmbiguityError{Line: line}
	}
	level := altitude.LevelOf(field)

	if s.level == altitude.Unclear {
		s.lock(level)
	} else if level != s.level {
		return &AltitudeMismatchError{Locked: s.level, Got: level, Field: field}
	}

	s.apply(field, value)
	s.buf.Append("user", line)
	s.state = StateShaping
	return nil
}

// Reveal produces a deterministic preview of the current document without
// touching disk. It requires a shaping session whose model meets minimal
// completeness; success moves the session to Revealed.
func (s *Session) Reveal() (string, error) {
	switch s.state {
	case StateFrozen:
		return "", ErrFrozen
	case StateIdle:
		return "", &StateError{Op: "reveal", Have: s.state, Need: StateShaping}
	}

	if missing := s.missingForReveal(); len(missing) > 0 {
		return "", &CompletenessError{Missing: missing}
	}

	preview := s.renderArtifact()
	s.state = StateRevealed
	return string(preview.Content), nil
}

// Edit applies new content to a session. Called while Revealed it first
// drops back to Shaping, so a previewed-but-unfrozen document is never
// assumed final; the ingest then proceeds normally and may itself fail.
func (s *Session) Edit(line string) error {
	if s.state == StateFrozen {
		return ErrFrozen
	}
	if s.state == StateRevealed {
		s.state = StateShaping
	}
	return s.Ingest(line)
}

// ConfirmPhases marks the L4 phase plan as explicitly confirmed. It is a
// no-op for L3 sessions and does not change the lifecycle state.
func (s *Session) ConfirmPhases() error {
	if s.state == StateFrozen {
		return ErrFrozen
	}
	if s.spec != nil {
		s.spec.PhasesConfirmed = true
	}
	return nil
}

// Freeze renders the revealed document and writes it under dir via the
// output safety writer, then seals the session. For L4 the phase plan
// must have been confirmed first. Returns the artifact path.
func (s *Session) Freeze(dir string) (string, error) {
	switch s.state {
	case StateFrozen:
		return "", ErrFrozen
	case StateIdle, StateShaping:
		return "", &StateError{Op: "freeze", Have: s.state, Need: StateRevealed}
	}

	if s.spec != nil && !s.spec.PhasesConfirmed {
		return "", &CompletenessError{Missing: []string{"phases not confirmed"}}
	}

	artifact := s.renderArtifact()
	path, err := safewrite.ResolveAndWrite(dir, artifact.ID, ".md", artifact.Content)
	if err != nil {
		return "", err
	}

	s.artifactPath = path
	s.state = StateFrozen
	return path, nil
}

func (s *Session) lock(level altitude.Level) {
	s.level = level
	switch level {
	case altitude.L3:
		s.work = &contracts.WorkItemModel{}
	case altitude.L4:
		s.spec = &contracts.SpecModel{}
	}
}

// apply mutates the model for an already level-checked field. Single-value
// fields are last-write-wins while shaping; list fields append in order.
func (s *Session) apply(field altitude.Field, value string) {
	switch field {
	case altitude.FieldObjective:
		s.work.Objective = value
	case altitude.FieldScope:
		s.work.Scope = append(s.work.Scope, value)
	case altitude.FieldPlan:
		s.work.Plan = append(s.work.Plan, value)
	case altitude.FieldAcceptance:
		s.work.Acceptance = append(s.work.Acceptance, value)
	case altitude.FieldOverview:
		s.spec.Overview = value
	case altitude.FieldProblem:
		s.spec.Problem = value
	case altitude.FieldNonGoal:
		s.spec.NonGoals = append(s.spec.NonGoals, value)
	case altitude.FieldPhase:
		s.spec.Phases = append(s.spec.Phases, value)
	case altitude.FieldSuccess:
		s.spec.SuccessCriteria = append(s.spec.SuccessCriteria, value)
	}
}

func (s *Session) missingForReveal() []string {
	var missing []string
	switch {
	case s.work != nil:
		if s.work.Complete() {
			return nil
		}
		missing = append(missing, "objective")
	case s.spec != nil:
		if s.spec.Complete() {
			return nil
		}
		if s.spec.Overview == "" {
			missing = append(missing, "overview")
		}
		if s.spec.Problem == "" {
			missing = append(missing, "problem")
		}
	}
	return missing
}

func (s *Session) renderArtifact() render.Artifact {
	if s.work != nil {
		return render.WorkItem(*s.work)
	}
	return render.Spec(*s.spec)
}
