package redact

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// Filter wraps a compiled CEL program deciding whether an event is kept.
// When disabled, Keep always returns true.
type Filter struct {
	prog    cel.Program
	enabled bool
}

// NewFilter compiles expr into a Filter. An empty expression yields a
// disabled filter.
func NewFilter(expr string) (Filter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return Filter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("tag", cel.StringType),
		cel.Variable("size", cel.IntType),
		// Parsed event payload (map/list/values) for field filtering
		cel.Variable("json", cel.DynType),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return Filter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return Filter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return Filter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return Filter{}, err
	}
	return Filter{prog: prog, enabled: true}, nil
}

// Keep evaluates the expression against one event. Evaluation errors drop
// the event (false) rather than letting unfiltered data through.
func (f Filter) Keep(tag string, payload any, size int) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"tag":    tag,
		"size":   int64(size),
		"json":   payload,
		"now_ms": time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
