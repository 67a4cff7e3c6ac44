package shaping

import (
	"github.com/tillerworks/tiller/pkg/altitude"
	"github.com/tillerworks/tiller/pkg/contracts"
)

// Snapshot is the serializable form of a session, used to persist state
// between discrete CLI invocations.
type Snapshot struct {
	ID       string         `json:"id"`
	State    State          `json:"state"`
	Altitude altitude.Level `json:"altitude"`

	WorkItem *contracts.WorkItemModel `json:"work_item,omitempty"`
	Spec     *contracts.SpecModel     `json:"spec,omitempty"`

	Turns        []Turn `json:"turns,omitempty"`
	ArtifactPath string `json:"artifact_path,omitempty"`
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:           s.id,
		State:        s.state,
		Altitude:     s.level,
		Turns:        s.buf.Turns(),
		ArtifactPath: s.artifactPath,
	}
	if s.work != nil {
		work := *s.work
		snap.WorkItem = &work
	}
	if s.spec != nil {
		spec := *s.spec
		snap.Spec = &spec
	}
	return snap
}

// FromSnapshot reconstructs a session from its persisted form.
func FromSnapshot(snap Snapshot) *Session {
	s := NewSession(snap.ID)
	s.state = snap.State
	s.level = snap.Altitude
	s.artifactPath = snap.ArtifactPath
	if snap.WorkItem != nil {
		work := *snap.WorkItem
		s.work = &work
	}
	if snap.Spec != nil {
		spec := *snap.Spec
		s.spec = &spec
	}
	for _, turn := range snap.Turns {
		s.buf.Append(turn.Role, turn.Text)
	}
	return s
}
