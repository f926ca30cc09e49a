// Package vars builds the read-only variable scope available to condition
// scripts and response templates: project-level variables plus fields
// derived from the inbound request.
package vars

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"
)

// Scope is an ordered, read-only name->value mapping. Project variables
// come first in declaration order, request-derived fields after.
type Scope struct {
	names  []string
	values map[string]any
}

// New creates an empty scope.
func New() *Scope {
	return &Scope{values: make(map[string]any)}
}

// FromProject creates a scope seeded with project variables, ordered by name.
func FromProject(projectVars map[string]any) *Scope {
	s := New()
	names := make([]string, 0, len(projectVars))
	for name := range projectVars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s.set(name, projectVars[name])
	}
	return s
}

func (s *Scope) set(name string, value any) {
	if _, exists := s.values[name]; !exists {
		s.names = append(s.names, name)
	}
	s.values[name] = value
}

// Lookup returns the value bound to name and whether it exists.
func (s *Scope) Lookup(name string) (any, bool) {
	v, ok := s.values[name]
	return v, ok
}

// Names returns the variable names in scope order.
func (s *Scope) Names() []string {
	return append([]string(nil), s.names...)
}

// Env returns a fresh map copy of the scope for handing to the evaluator.
// The copy keeps the scope itself immutable during evaluation.
func (s *Scope) Env() map[string]any {
	env := make(map[string]any, len(s.values))
	for k, v := range s.values {
		env[k] = v
	}
	return env
}

// WithRequest returns a new scope extending s with request-derived fields:
// method, path, query, headers, cookies, body (raw and parsed), form, and
// timestamps. The receiver is not modified.
func (s *Scope) WithRequest(r *http.Request, body []byte) *Scope {
	out := New()
	for _, name := range s.names {
		out.set(name, s.values[name])
	}

	query := map[string]any{}
	for name, vals := range r.URL.Query() {
		if len(vals) > 0 {
			query[name] = vals[0]
		}
	}
	headers := map[string]any{}
	for name, vals := range r.Header {
		if len(vals) > 0 {
			headers[strings.ToLower(name)] = vals[0]
		}
	}
	cookies := map[string]any{}
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}
	form := map[string]any{}
	if r.Form != nil {
		for name, vals := range r.Form {
			if len(vals) > 0 {
				form[name] = vals[0]
			}
		}
	}

	now := time.Now()
	out.set("method", r.Method)
	out.set("path", r.URL.Path)
	out.set("query", query)
	out.set("headers", headers)
	out.set("cookies", cookies)
	out.set("form", form)
	out.set("body", string(body))
	out.set("bodyJson", parseBody(body))
	out.set("timestamp", now.Unix())
	out.set("timestampMs", now.UnixMilli())
	return out
}

// With returns a new scope extending s with a single binding. The
// receiver is not modified.
func (s *Scope) With(name string, value any) *Scope {
	out := New()
	for _, n := range s.names {
		out.set(n, s.values[n])
	}
	out.set(name, value)
	return out
}

// WithParams returns a new scope extending s with the captured path
// parameters, exposed both as the "params" map and as individual names
// where those names are not already bound. The receiver is not modified.
func (s *Scope) WithParams(params map[string]string) *Scope {
	out := New()
	for _, name := range s.names {
		out.set(name, s.values[name])
	}

	asMap := make(map[string]any, len(params))
	for name, value := range params {
		asMap[name] = value
		if _, bound := out.values[name]; !bound {
			out.set(name, value)
		}
	}
	out.set("params", asMap)
	return out
}

// parseBody returns the body decoded as JSON, or nil when it is not JSON.
func parseBody(body []byte) any {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return nil
	}
	var v any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil
	}
	return v
}

// BodyPath resolves a JSONPath expression against the parsed request body.
// Returns nil when the body is not JSON or the path matches nothing.
// Exposed to scripts as the jsonpath() builtin.
func (s *Scope) BodyPath(path string) any {
	parsed, ok := s.values["bodyJson"]
	if !ok || parsed == nil {
		return nil
	}
	expr, err := jp.ParseString(path)
	if err != nil {
		return nil
	}
	results := expr.Get(parsed)
	switch len(results) {
	case 0:
		return nil
	case 1:
		return results[0]
	default:
		return results
	}
}
