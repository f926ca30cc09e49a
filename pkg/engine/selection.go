package engine

import (
	"strings"

	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

// selectResponse walks the ordered candidate list and returns the first
// response whose condition is satisfied. A disabled condition, an empty
// script, and a condition whose name carries the do-not-evaluate marker
// are all satisfied. A script that fails to evaluate is terminal: the
// walk stops without trying later candidates. When every candidate
// declines, the error lists the scripts that were evaluated.
func selectResponse(eng *template.Engine, responses []*mock.ResponseDefinition, scope *vars.Scope) (*mock.ResponseDefinition, error) {
	scripts := make([]string, 0, len(responses))
	for _, resp := range responses {
		cond := resp.Conditions
		if !cond.Enabled {
			return resp, nil
		}
		if strings.TrimSpace(cond.ScriptCode) == "" {
			return resp, nil
		}
		if strings.HasPrefix(cond.Name, "@") {
			return resp, nil
		}

		scripts = append(scripts, cond.ScriptCode)
		ok, err := eng.EvaluateCondition(cond.ScriptCode, scope)
		if err != nil {
			return nil, &ConditionScriptError{
				Name:   cond.Name,
				Script: cond.ScriptCode,
				Err:    err,
			}
		}
		if ok {
			return resp, nil
		}
	}
	return nil, &ConditionsUnsatisfiedError{Scripts: scripts}
}
