package sse

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
)

func TestFormatEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		id      string
		event   string
		retryMs int
		data    string
		want    string
	}{
		{"data only", "", "", 0, "hello", "data: hello\n\n"},
		{"all fields", "7", "tick", 3000, "hello",
			"event: tick\nid: 7\nretry: 3000\ndata: hello\n\n"},
		{"multiline data", "", "", 0, "a\nb",
			"data: a\ndata: b\n\n"},
		{"empty data still frames", "", "", 0, "", "data: \n\n"},
		{"retry omitted when zero", "1", "", 0, "x", "id: 1\ndata: x\n\n"},
		{"newlines stripped from id", "1\n2", "", 0, "x", "id: 12\ndata: x\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatEvent(tt.id, tt.event, tt.retryMs, tt.data)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSessionEmitsMaxEvents(t *testing.T) {
	t.Parallel()

	c := NewController(template.New(), logging.Nop())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	cfg := &mock.SSEConfig{
		IntervalMs: 10, // floored to MinInterval
		MaxEvents:  3,
		IDEnabled:  true,
		IDPolicy:   mock.SSEIDIncrement,
		Data:       "tick",
	}
	c.Start(rec, req, cfg, vars.New())

	res := rec.Result()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", res.Header.Get("Cache-Control"))

	body := rec.Body.String()
	frames := strings.Split(strings.TrimSuffix(body, "\n\n"), "\n\n")
	require.Len(t, frames, 3)
	assert.Contains(t, frames[0], "id: 1")
	assert.Contains(t, frames[2], "id: 3")
	assert.Equal(t, 3, strings.Count(body, "data: tick"))
}

func TestSessionFloorsMaxEventsToOne(t *testing.T) {
	t.Parallel()

	c := NewController(template.New(), logging.Nop())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	c.Start(rec, req, &mock.SSEConfig{MaxEvents: 0, Data: "once"}, vars.New())
	assert.Equal(t, 1, strings.Count(rec.Body.String(), "data: once"))
}

func TestSessionSubstitutesAndCompactsJSON(t *testing.T) {
	t.Parallel()

	c := NewController(template.New(), logging.Nop())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	scope := vars.FromProject(map[string]any{"user": "ada"})
	cfg := &mock.SSEConfig{
		MaxEvents:  1,
		Data:       "{\"who\":\n  \"{{ user }}\"}",
		DataIsJSON: true,
	}
	c.Start(rec, req, cfg, scope)

	body := rec.Body.String()
	// Compact re-serialization keeps the frame on one data line.
	assert.Contains(t, body, `data: {"who":"ada"}`)
}

func TestSessionDeclaredContentTypeWins(t *testing.T) {
	t.Parallel()

	c := NewController(template.New(), logging.Nop())
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	c.Start(rec, req, &mock.SSEConfig{MaxEvents: 1, Data: "x"}, vars.New())
	assert.Equal(t, "text/event-stream; charset=utf-8", rec.Result().Header.Get("Content-Type"))
}

func TestSessionDeclaredCacheHeadersWin(t *testing.T) {
	t.Parallel()

	c := NewController(template.New(), logging.Nop())
	rec := httptest.NewRecorder()
	rec.Header().Set("Cache-Control", "no-store")
	rec.Header().Set("Connection", "close")
	req := httptest.NewRequest(http.MethodGet, "/stream", nil)

	c.Start(rec, req, &mock.SSEConfig{MaxEvents: 1, Data: "x"}, vars.New())

	header := rec.Result().Header
	assert.Equal(t, "no-store", header.Get("Cache-Control"))
	assert.Equal(t, "close", header.Get("Connection"))
	// Undeclared headers still get the streaming defaults.
	assert.Equal(t, "text/event-stream", header.Get("Content-Type"))
}
