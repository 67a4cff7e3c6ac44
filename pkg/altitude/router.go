// Package altitude classifies raw shaping input as tactical (L3 work item)
// or strategic (L4 spec) based on recognized field prefixes. A session locks
// its altitude on the first classified ingest; the router is the single
// source of truth for which prefix belongs to which level.
package altitude

import "strings"

// Level is the abstraction level of an artifact.
type Level string

const (
	// L3 is tactical: a work item, narrow and near-term.
	L3 Level = "L3"
	// L4 is strategic: a spec, broader and longer-horizon.
	L4 Level = "L4"
	// Unclear means the input matched no known field prefix.
	Unclear Level = "Unclear"
)

// Field identifies a recognized document field.
type Field string

const (
	FieldObjective  Field = "objective"
	FieldScope      Field = "scope"
	FieldPlan       Field = "plan"
	FieldAcceptance Field = "acceptance"

	FieldOverview Field = "overview"
	FieldProblem  Field = "problem"
	FieldNonGoal  Field = "non-goal"
	FieldPhase    Field = "phase"
	FieldSuccess  Field = "success"
)

// fieldLevels maps each recognized prefix to its level. Aliases share an
// entry with their canonical field.
var fieldLevels = map[Field]Level{
	FieldObjective:  L3,
	FieldScope:      L3,
	FieldPlan:       L3,
	FieldAcceptance: L3,

	FieldOverview: L4,
	FieldProblem:  L4,
	FieldNonGoal:  L4,
	FieldPhase:    L4,
	FieldSuccess:  L4,
}

// aliases maps alternate spellings to canonical fields.
var aliases = map[string]Field{
	"non_goal":  FieldNonGoal,
	"nongoal":   FieldNonGoal,
	"non-goals": FieldNonGoal,
	"non_goals": FieldNonGoal,
}

// Classify returns the level implied by line's field prefix, or Unclear
// when no recognized prefix is present.
func Classify(line string) Level {
	field, _, ok := SplitField(line)
	if !ok {
		return Unclear
	}
	return fieldLevels[field]
}

// LevelOf returns the level a recognized field belongs to.
func LevelOf(field Field) Level {
	if lvl, ok := fieldLevels[field]; ok {
		return lvl
	}
	return Unclear
}

// SplitField splits a "field: value" line into its recognized field and
// trimmed value. ok is false when the line carries no recognized prefix
// or an empty value.
func SplitField(line string) (Field, string, bool) {
	name, value, found := strings.Cut(line, ":")
	if !found {
		return "", "", false
	}

	key := strings.ToLower(strings.TrimSpace(name))
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", false
	}

	if canonical, ok := aliases[key]; ok {
		return canonical, value, true
	}
	field := Field(key)
	if _, ok := fieldLevels[field]; !ok {
		return "", "", false
	}
	return field, value, true
}
