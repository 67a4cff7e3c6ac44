package contracts

// Mode declares the intent of a commit manifest. Explore is the safety
// default: a manifest that never states Commit must never advance a gate.
type Mode string

const (
	ModeExplore Mode = "Explore"
	ModeCommit  Mode = "Commit"
)

// References anchors a commit manifest to the artifacts it authorizes.
type References struct {
	Goal       string `json:"goal,omitempty"`
	NonGoals   string `json:"non_goals,omitempty"`
	Acceptance string `json:"acceptance,omitempty"`

	// WorkItem is the path to the frozen WORK_ITEM.md this manifest
	// commits to. Optional at parse time; the entry gate requires it.
	WorkItem string `json:"work_item,omitempty"`
}

// CommitManifest is the small hand-authored declaration that authorizes a
// gate to evaluate progression. It is read-only to the pipeline.
type CommitManifest struct {
	Mode           Mode       `json:"mode"`
	Altitude       string     `json:"altitude"`
	References     References `json:"references"`
	StopConditions []string   `json:"stop_conditions,omitempty"`

	// Version is the optional manifest format version, checked against
	// the supported range when present.
	Version string `json:"version,omitempty"`
}
