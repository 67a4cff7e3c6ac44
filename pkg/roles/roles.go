// Package roles is the closed set of agent role variants and their
// capability sets. A caller holds a role because it was assigned one, not
// because it read a markdown file naming it; dispatch is on the variant.
package roles

import "fmt"

// Capability is one permitted kind of action.
type Capability string

const (
	// CapPropose allows suggesting content for a shaping session.
	CapPropose Capability = "propose"
	// CapShape allows driving ingest/reveal/freeze on a session.
	CapShape Capability = "shape"
	// CapImplement allows executing a frozen work item's plan.
	CapImplement Capability = "implement"
	// CapEnforce allows running gates and recording baselines.
	CapEnforce Capability = "enforce"
	// CapValidate allows read-only schema validation of artifacts.
	CapValidate Capability = "validate"
)

// Role is one of the fixed agent roles.
type Role string

const (
	// Navigator sets direction; propose-only.
	Navigator Role = "navigator"
	// Shaper turns intent into frozen artifacts.
	Shaper Role = "shaper"
	// Implementer executes frozen work items.
	Implementer Role = "implementer"
	// Gatekeeper runs gates and holds the integrity baseline.
	Gatekeeper Role = "gatekeeper"
	// Auditor inspects artifacts and results without mutating anything.
	Auditor Role = "auditor"
)

var capabilities = map[Role][]Capability{
	Navigator:   {CapPropose},
	Shaper:      {CapPropose, CapShape},
	Implementer: {CapImplement, CapValidate},
	Gatekeeper:  {CapEnforce, CapValidate},
	Auditor:     {CapValidate},
}

// ParseRole resolves a role name, rejecting anything outside the closed
// set.
func ParseRole(name string) (Role, error) {
	r := Role(name)
	if _, ok := capabilities[r]; !ok {
		return "", fmt.Errorf("roles: unknown role %q", name)
	}
	return r, nil
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	for _, granted := range capabilities[r] {
		if granted == c {
			return true
		}
	}
	return false
}

// Capabilities returns the role's capability set.
func (r Role) Capabilities() []Capability {
	caps := capabilities[r]
	out := make([]Capability, len(caps))
	copy(out, caps)
	return out
}

// Require returns an error naming the missing capability when the role
// cannot perform it.
func Require(r Role, c Capability) error {
	if !r.Can(c) {
		return fmt.Errorf("roles: %s lacks capability %s", r, c)
	}
	return nil
}
