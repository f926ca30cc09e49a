package template

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmocknode/mocknode/pkg/vars"
)

func testScope() *vars.Scope {
	return vars.FromProject(map[string]any{
		"userName": "ada",
		"count":    3,
		"pi":       3.14,
		"flag":     true,
	})
}

func TestEvaluateCondition(t *testing.T) {
	t.Parallel()

	eng := New()
	scope := testScope()

	tests := []struct {
		name    string
		script  string
		want    bool
		wantErr bool
	}{
		{"empty is satisfied", "", true, false},
		{"whitespace is satisfied", "   \n\t", true, false},
		{"true literal", "true", true, false},
		{"false literal", "false", false, false},
		{"comparison", "count > 2", true, false},
		{"failed comparison", "count > 10", false, false},
		{"string equality", `userName == "ada"`, true, false},
		{"truthy non-empty string", `userName`, true, false},
		{"syntax error", "count >", false, true},
		{"unknown identifier", "nosuchvar > 1", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := eng.EvaluateCondition(tt.script, scope)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSubstituteWholeToken(t *testing.T) {
	t.Parallel()

	eng := New()
	scope := testScope()

	t.Run("variable keeps its type", func(t *testing.T) {
		assert.Equal(t, 3, eng.Substitute("{{ count }}", scope))
		assert.Equal(t, true, eng.Substitute("{{ flag }}", scope))
	})

	t.Run("integer literal is a number, not a lookup", func(t *testing.T) {
		assert.Equal(t, int64(42), eng.Substitute("{{ 42 }}", scope))
	})

	t.Run("decimal literal", func(t *testing.T) {
		assert.Equal(t, 2.5, eng.Substitute("{{ 2.5 }}", scope))
	})

	t.Run("expression returns raw value", func(t *testing.T) {
		assert.EqualValues(t, 2, eng.Substitute("{{ 1 + 1 }}", scope))
	})

	t.Run("escape hatch is verbatim", func(t *testing.T) {
		assert.Equal(t, "user.name", eng.Substitute("{{ @user.name }}", scope))
	})

	t.Run("failing token is nil", func(t *testing.T) {
		assert.Nil(t, eng.Substitute("{{ nosuchvar.field }}", scope))
	})
}

func TestSubstituteEmbedded(t *testing.T) {
	t.Parallel()

	eng := New()
	scope := testScope()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no tokens", "plain text", "plain text"},
		{"variable", "hello {{ userName }}!", "hello ada!"},
		{"expression renders without decimal", "x={{ 1 + 1 }}", "x=2"},
		{"number literal", "n={{ 7 }}", "n=7"},
		{"two tokens", "{{ userName }}-{{ count }}", "ada-3"},
		{"failing token renders empty", "v=[{{ nosuchvar.field }}]", "v=[]"},
		{"escape", "path: {{ @a.b }}", "path: a.b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, eng.Substitute(tt.in, scope))
		})
	}
}

func TestSubstituteJSON(t *testing.T) {
	t.Parallel()

	eng := New()
	scope := testScope()

	t.Run("values substitute and keep token types", func(t *testing.T) {
		out, err := eng.SubstituteJSON(`{"name":"{{ userName }}","n":"{{ count }}","label":"user {{ userName }}"}`, scope)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "ada", doc["name"])
		assert.EqualValues(t, 3, doc["n"])
		assert.Equal(t, "user ada", doc["label"])
	})

	t.Run("keys substitute after values", func(t *testing.T) {
		out, err := eng.SubstituteJSON(`{"{{ userName }}":"x"}`, scope)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		assert.Equal(t, "x", doc["ada"])
	})

	t.Run("nested structures", func(t *testing.T) {
		out, err := eng.SubstituteJSON(`{"outer":{"items":["{{ count }}","fixed"]}}`, scope)
		require.NoError(t, err)

		var doc map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &doc))
		outer := doc["outer"].(map[string]any)
		items := outer["items"].([]any)
		assert.EqualValues(t, 3, items[0])
		assert.Equal(t, "fixed", items[1])
	})

	t.Run("invalid document errors", func(t *testing.T) {
		_, err := eng.SubstituteJSON(`{not json`, scope)
		assert.Error(t, err)
	})
}

func TestTruthy(t *testing.T) {
	t.Parallel()

	assert.False(t, Truthy(nil))
	assert.False(t, Truthy(false))
	assert.False(t, Truthy(0))
	assert.False(t, Truthy(int64(0)))
	assert.False(t, Truthy(0.0))
	assert.False(t, Truthy(""))
	assert.True(t, Truthy(true))
	assert.True(t, Truthy(1))
	assert.True(t, Truthy("no"))
	assert.True(t, Truthy([]any{}))
}

func TestStringify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Stringify(nil))
	assert.Equal(t, "abc", Stringify("abc"))
	assert.Equal(t, "2", Stringify(2.0))
	assert.Equal(t, "2.5", Stringify(2.5))
	assert.Equal(t, "7", Stringify(7))
}
