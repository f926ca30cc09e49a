// Package template evaluates condition scripts and {{ }} template tokens
// against a per-request variable scope. Scripts run in the expr expression
// language: a sandboxed evaluator with arithmetic, comparisons, and
// string/array/map builtins, and no filesystem, network, or process
// access. Every evaluation carries a hard wall-clock budget.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/getmocknode/mocknode/pkg/vars"
	"github.com/google/uuid"
)

// EvalBudget is the wall-clock cap on a single script evaluation. A script
// still running at the deadline is reported as a script error; it must not
// stall other connections on the same listener.
const EvalBudget = 1 * time.Second

// tokenRegex matches {{ expression }} tokens with optional whitespace.
var tokenRegex = regexp.MustCompile(`\{\{\s*([^}]+?)\s*\}\}`)

// wholeTokenRegex matches an input that is exactly one token.
var wholeTokenRegex = regexp.MustCompile(`^\s*\{\{\s*([^}]+?)\s*\}\}\s*$`)

// identRegex matches a bare identifier.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// numberRegex matches a pure integer or decimal literal.
var numberRegex = regexp.MustCompile(`^-?\d+(\.\d+)?$`)

// Engine evaluates scripts and substitutes templates. It keeps a compiled
// program cache and is safe for concurrent use.
type Engine struct {
	programs *programCache
	budget   time.Duration
}

// New creates a template engine with the default evaluation budget.
func New() *Engine {
	return &Engine{programs: newProgramCache(), budget: EvalBudget}
}

// EvaluateCondition runs a condition script and reports whether it is
// satisfied. An empty script fails open to true. Evaluation errors are
// returned so the selection loop can mark the response unsatisfied and
// record a diagnostic.
func (e *Engine) EvaluateCondition(script string, scope *vars.Scope) (bool, error) {
	if strings.TrimSpace(script) == "" {
		return true, nil
	}
	result, err := e.eval(script, scope)
	if err != nil {
		return false, err
	}
	return Truthy(result), nil
}

// EvaluateExpression evaluates a single expression and returns its value.
func (e *Engine) EvaluateExpression(expression string, scope *vars.Scope) (any, error) {
	return e.eval(expression, scope)
}

// Substitute replaces every {{ }} token in text. When the entire input is
// exactly one token, the raw typed value is returned instead of a string;
// otherwise all tokens are rendered into a string.
//
// Token classification, in order:
//   - "@..." is the do-not-evaluate escape: the token body minus the "@"
//     is substituted verbatim.
//   - a pure integer/decimal literal is that number, never an expression,
//     even when a variable carries the same name.
//   - a bare identifier naming an existing variable resolves to the
//     variable's value directly, without evaluation.
//   - anything else is evaluated as an expression.
//
// A failing token renders as an empty string; substitution itself never
// returns an error.
func (e *Engine) Substitute(text string, scope *vars.Scope) any {
	if m := wholeTokenRegex.FindStringSubmatch(text); m != nil {
		return e.resolveToken(m[1], scope)
	}
	return tokenRegex.ReplaceAllStringFunc(text, func(match string) string {
		inner := tokenRegex.FindStringSubmatch(match)
		if len(inner) < 2 {
			return match
		}
		return e.renderToken(inner[1], scope)
	})
}

// resolveToken classifies and resolves one token body.
func (e *Engine) resolveToken(token string, scope *vars.Scope) any {
	token = strings.TrimSpace(token)

	if rest, ok := strings.CutPrefix(token, "@"); ok {
		return rest
	}

	if numberRegex.MatchString(token) {
		if i, err := strconv.ParseInt(token, 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(token, 64)
		return f
	}

	if identRegex.MatchString(token) {
		if v, ok := scope.Lookup(token); ok {
			return v
		}
	}

	v, err := e.eval(token, scope)
	if err != nil {
		return nil
	}
	return v
}

// renderToken renders one token body to its string form.
func (e *Engine) renderToken(token string, scope *vars.Scope) string {
	return Stringify(e.resolveToken(token, scope))
}

// env builds the evaluation environment: the variable scope plus a small
// set of helper builtins. The scope is copied so evaluation cannot mutate
// request state.
func (e *Engine) env(scope *vars.Scope) map[string]any {
	env := scope.Env()
	env["jsonpath"] = func(path string) any { return scope.BodyPath(path) }
	env["uuid"] = func() string { return uuid.New().String() }
	env["nowISO"] = func() string { return time.Now().UTC().Format(time.RFC3339) }
	return env
}

// Truthy converts an evaluation result to a boolean the way the condition
// gate expects: false for nil, false, zero numbers, and empty strings.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// Stringify renders a value for embedding in template output.
func Stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		// Integral floats render without a trailing .0 so {{ 1+1 }}
		// embeds as "2".
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
