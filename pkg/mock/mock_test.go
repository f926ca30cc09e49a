package mock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHTTPDefinition() *HTTPDefinition {
	return &HTTPDefinition{
		ID:        "m-1",
		ProjectID: "p-1",
		RequestCondition: RequestCondition{
			Port:       8080,
			Methods:    []string{"GET"},
			URLPattern: "/ping",
		},
		Responses: []*ResponseDefinition{
			{
				StatusCode: 200,
				DataType:   DataTypeJSON,
				JSON:       &JSONConfig{Mode: ModeFixed, Payload: `{"ok":true}`},
			},
		},
	}
}

func TestMatchesMethod(t *testing.T) {
	t.Parallel()

	rc := &RequestCondition{Methods: []string{"get", "POST"}}
	assert.True(t, rc.MatchesMethod("GET"))
	assert.True(t, rc.MatchesMethod("post"))
	assert.False(t, rc.MatchesMethod("DELETE"))

	all := &RequestCondition{Methods: []string{MethodAll}}
	assert.True(t, all.MatchesMethod("PATCH"))
}

func TestHeaderSet(t *testing.T) {
	t.Parallel()

	off := false
	hs := HeaderSet{
		Default: []HeaderPair{
			{Name: "Content-Type", Value: "application/json"},
			{Name: "X-Off", Value: "nope", Enabled: &off},
		},
		Custom: []HeaderPair{
			{Name: "X-Custom", Value: "yes"},
		},
	}

	all := hs.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Content-Type", all[0].Name)
	assert.Equal(t, "X-Custom", all[1].Name)

	assert.True(t, hs.Has("content-type"))
	assert.False(t, hs.Has("X-Off"))
}

func TestValidateHTTP(t *testing.T) {
	t.Parallel()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, ValidateHTTP(validHTTPDefinition()))
	})

	tests := []struct {
		name   string
		mutate func(*HTTPDefinition)
		field  string
	}{
		{"missing id", func(d *HTTPDefinition) { d.ID = "" }, "id"},
		{"port too low", func(d *HTTPDefinition) { d.RequestCondition.Port = 0 }, "requestCondition.port"},
		{"port too high", func(d *HTTPDefinition) { d.RequestCondition.Port = 70000 }, "requestCondition.port"},
		{"no methods", func(d *HTTPDefinition) { d.RequestCondition.Methods = nil }, "requestCondition.methods"},
		{"unknown method", func(d *HTTPDefinition) { d.RequestCondition.Methods = []string{"FETCH"} }, "requestCondition.methods[0]"},
		{"relative pattern", func(d *HTTPDefinition) { d.RequestCondition.URLPattern = "ping" }, "requestCondition.urlPattern"},
		{"no responses", func(d *HTTPDefinition) { d.Responses = nil }, "responses"},
		{"json without config", func(d *HTTPDefinition) { d.Responses[0].JSON = nil }, "responses[0].jsonConfig"},
		{"bad status", func(d *HTTPDefinition) { d.Responses[0].StatusCode = 42 }, "responses[0].statusCode"},
		{"bad redirect status", func(d *HTTPDefinition) {
			d.Responses[0].DataType = DataTypeRedirect
			d.Responses[0].Redirect = &RedirectConfig{StatusCode: 200, Location: "/x"}
		}, "responses[0].redirectConfig.statusCode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validHTTPDefinition()
			tt.mutate(d)
			err := ValidateHTTP(d)
			require.Error(t, err)

			var errs ValidationErrors
			require.ErrorAs(t, err, &errs)
			found := false
			for _, e := range errs {
				if e.Field == tt.field {
					found = true
				}
			}
			assert.True(t, found, "expected a %s error, got %v", tt.field, err)
		})
	}
}

func TestValidateWS(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateWS(&WSDefinition{ID: "w-1", Port: 9000, Path: "/ws"}))
	assert.Error(t, ValidateWS(&WSDefinition{ID: "", Port: 9000, Path: "/ws"}))
	assert.Error(t, ValidateWS(&WSDefinition{ID: "w-1", Port: 0, Path: "/ws"}))
	assert.Error(t, ValidateWS(&WSDefinition{ID: "w-1", Port: 9000, Path: "ws"}))
}

func TestParseCollection(t *testing.T) {
	t.Parallel()

	t.Run("yaml", func(t *testing.T) {
		c, err := ParseCollection([]byte(`
name: demo
variables:
  apiKey: k-1
http:
  - id: m-1
    requestCondition:
      port: 8080
      methods: [GET]
      urlPattern: /ping
    responses:
      - statusCode: 200
        dataType: json
        jsonConfig:
          mode: fixed
          payload: '{"ok":true}'
websocket:
  - id: w-1
    port: 9000
    path: /ws
`))
		require.NoError(t, err)
		assert.Equal(t, "demo", c.Name)
		assert.Equal(t, "k-1", c.Variables["apiKey"])
		require.Len(t, c.HTTP, 1)
		assert.Equal(t, DataTypeJSON, c.HTTP[0].Responses[0].DataType)
		require.Len(t, c.WebSocket, 1)
		assert.Equal(t, "/ws", c.WebSocket[0].Path)
	})

	t.Run("json", func(t *testing.T) {
		c, err := ParseCollection([]byte(`{"name":"demo","http":[]}`))
		require.NoError(t, err)
		assert.Equal(t, "demo", c.Name)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseCollection([]byte(`{broken`))
		assert.Error(t, err)
	})
}

func TestHTTPDefinitionClone(t *testing.T) {
	t.Parallel()

	orig := validHTTPDefinition()
	clone := orig.Clone()

	clone.RequestCondition.Methods[0] = "POST"
	clone.Responses[0].StatusCode = 500
	clone.Responses[0].Headers.Custom = append(clone.Responses[0].Headers.Custom,
		HeaderPair{Name: "X", Value: "y"})

	assert.Equal(t, "GET", orig.RequestCondition.Methods[0])
	assert.Equal(t, 200, orig.Responses[0].StatusCode)
	assert.Empty(t, orig.Responses[0].Headers.Custom)
}
