package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

func condResponse(status int, enabled bool, name, script string) *mock.ResponseDefinition {
	return &mock.ResponseDefinition{
		StatusCode: status,
		DataType:   mock.DataTypeJSON,
		JSON:       &mock.JSONConfig{Mode: mock.ModeFixed, Payload: `{}`},
		Conditions: mock.Condition{Enabled: enabled, Name: name, ScriptCode: script},
	}
}

func TestSelectResponse(t *testing.T) {
	t.Parallel()

	eng := template.New()
	scope := vars.FromProject(map[string]any{"tier": "gold", "count": 2})

	t.Run("disabled condition selects", func(t *testing.T) {
		resp, err := selectResponse(eng, []*mock.ResponseDefinition{
			condResponse(201, false, "", `tier == "silver"`),
		}, scope)
		require.NoError(t, err)
		assert.Equal(t, 201, resp.StatusCode)
	})

	t.Run("empty script selects", func(t *testing.T) {
		resp, err := selectResponse(eng, []*mock.ResponseDefinition{
			condResponse(202, true, "", "  "),
		}, scope)
		require.NoError(t, err)
		assert.Equal(t, 202, resp.StatusCode)
	})

	t.Run("first satisfied wins", func(t *testing.T) {
		resp, err := selectResponse(eng, []*mock.ResponseDefinition{
			condResponse(400, true, "silver", `tier == "silver"`),
			condResponse(200, true, "gold", `tier == "gold"`),
			condResponse(203, true, "", ""),
		}, scope)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("marker name skips evaluation", func(t *testing.T) {
		resp, err := selectResponse(eng, []*mock.ResponseDefinition{
			condResponse(204, true, "@disabled-check", "this would not even compile ["),
		}, scope)
		require.NoError(t, err)
		assert.Equal(t, 204, resp.StatusCode)
	})

	t.Run("script error is terminal", func(t *testing.T) {
		_, err := selectResponse(eng, []*mock.ResponseDefinition{
			condResponse(500, true, "broken", "count >"),
			condResponse(200, true, "", ""), // never reached
		}, scope)

		var scriptErr *ConditionScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Equal(t, "broken", scriptErr.Name)
		assert.Equal(t, "count >", scriptErr.Script)
	})

	t.Run("exhausted lists every script", func(t *testing.T) {
		_, err := selectResponse(eng, []*mock.ResponseDefinition{
			condResponse(200, true, "a", `tier == "silver"`),
			condResponse(200, true, "b", `count > 10`),
		}, scope)

		var unsat *ConditionsUnsatisfiedError
		require.ErrorAs(t, err, &unsat)
		assert.Equal(t, []string{`tier == "silver"`, `count > 10`}, unsat.Scripts)
	})
}
