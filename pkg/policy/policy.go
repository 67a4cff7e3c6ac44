// Package policy evaluates manifest stop conditions against gate
// evidence. Conditions prefixed with "expr:" are compiled as CEL in a
// restricted deterministic environment; anything involving time or
// randomness is refused at compile time. Plain-prose conditions are
// opaque to the core and never evaluated here.
package policy

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"
)

// ExprPrefix marks a stop condition as an evaluable predicate.
const ExprPrefix = "expr:"

// bannedTokens are identifiers whose presence makes an expression
// non-deterministic. Rejected before compilation.
var bannedTokens = []string{"now", "timestamp", "duration", "random", "uuid"}

// Evaluator compiles and caches stop-condition predicates.
type Evaluator struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewEvaluator creates an evaluator whose expressions see a single
// "evidence" map variable.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("evidence", cel.DynType),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: cel environment: %w", err)
	}
	return &Evaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// IsExpression reports whether a stop condition is an evaluable predicate
// rather than prose.
func IsExpression(condition string) bool {
	return strings.HasPrefix(condition, ExprPrefix)
}

// Triggered evaluates one stop condition against the evidence map. Prose
// conditions never trigger. An expression that fails to compile or does
// not yield a bool is an error, not a silent pass.
func (e *Evaluator) Triggered(condition string, evidence map[string]any) (bool, error) {
	if !IsExpression(condition) {
		return false, nil
	}
	expr := strings.TrimSpace(strings.TrimPrefix(condition, ExprPrefix))

	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{"evidence": evidence})
	if err != nil {
		return false, fmt.Errorf("policy: evaluate %q: %w", expr, err)
	}
	triggered, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("policy: %q does not evaluate to bool", expr)
	}
	return triggered, nil
}

func (e *Evaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	for _, banned := range bannedTokens {
		if containsIdentifier(expr, banned) {
			return nil, fmt.Errorf("policy: %q uses forbidden non-deterministic token %q", expr, banned)
		}
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("policy: compile %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("policy: program %q: %w", expr, err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

// containsIdentifier finds token as a standalone identifier, not as a
// substring of a longer name or a map key access.
func containsIdentifier(expr, token string) bool {
	for i := 0; i+len(token) <= len(expr); i++ {
		j := strings.Index(expr[i:], token)
		if j < 0 {
			return false
		}
		start := i + j
		end := start + len(token)
		beforeOK := start == 0 || !isIdentChar(expr[start-1])
		afterOK := end == len(expr) || !isIdentChar(expr[end])
		// evidence.now or evidence["now"] is data access, not a call.
		if beforeOK && afterOK && (start == 0 || expr[start-1] != '.') &&
			(start == 0 || expr[start-1] != '"') && (end == len(expr) || expr[end] != '"') {
			return true
		}
		i = start
	}
	return false
}

func isIdentChar(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
