package template

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/getmocknode/mocknode/pkg/vars"
)

// SubstituteJSON parses a JSON document, substitutes template tokens in
// string values, then substitutes keys that literally contain "{{", and
// re-serializes. Values are processed before keys so value substitution
// sees the original structure.
func (e *Engine) SubstituteJSON(payload string, scope *vars.Scope) (string, error) {
	var doc any
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return "", fmt.Errorf("parse json payload: %w", err)
	}

	doc = e.substituteValues(doc, scope)
	doc = e.substituteKeys(doc, scope)

	out, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("serialize json payload: %w", err)
	}
	return string(out), nil
}

// substituteValues walks the document replacing tokens in string values
// only. A string that is exactly one token may become a non-string value.
func (e *Engine) substituteValues(v any, scope *vars.Scope) any {
	switch x := v.(type) {
	case map[string]any:
		for k, child := range x {
			x[k] = e.substituteValues(child, scope)
		}
		return x
	case []any:
		for i, child := range x {
			x[i] = e.substituteValues(child, scope)
		}
		return x
	case string:
		if strings.Contains(x, "{{") {
			return e.Substitute(x, scope)
		}
		return x
	default:
		return v
	}
}

// substituteKeys walks the document replacing tokens in object keys that
// literally contain "{{". Key results are always rendered as strings.
func (e *Engine) substituteKeys(v any, scope *vars.Scope) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, child := range x {
			newKey := k
			if strings.Contains(k, "{{") {
				newKey = Stringify(e.Substitute(k, scope))
			}
			out[newKey] = e.substituteKeys(child, scope)
		}
		return out
	case []any:
		for i, child := range x {
			x[i] = e.substituteKeys(child, scope)
		}
		return x
	default:
		return v
	}
}
