package control

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmocknode/mocknode/pkg/assets"
	"github.com/getmocknode/mocknode/pkg/diag"
	"github.com/getmocknode/mocknode/pkg/engine"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/synth"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
	"github.com/getmocknode/mocknode/pkg/websocket"
)

var nextTestPort int32 = 18630

func testPort() int {
	return int(atomic.AddInt32(&nextTestPort, 1))
}

func newTestService() (*Service, *engine.Registry, *websocket.Registry) {
	eng := template.New()
	store := vars.NewStore()
	httpReg := engine.NewRegistry(eng, store, synth.New(eng, assets.NewResolver()))
	wsReg := websocket.NewRegistry(eng, store)
	return NewService(httpReg, wsReg, store), httpReg, wsReg
}

func validDef(port int) *mock.HTTPDefinition {
	return &mock.HTTPDefinition{
		ID:        "m-1",
		ProjectID: "p-1",
		RequestCondition: mock.RequestCondition{
			Port:       port,
			Methods:    []string{"GET"},
			URLPattern: "/ping",
		},
		Responses: []*mock.ResponseDefinition{
			{
				StatusCode: 200,
				DataType:   mock.DataTypeJSON,
				JSON:       &mock.JSONConfig{Mode: mock.ModeFixed, Payload: `{}`},
			},
		},
	}
}

func TestRegisterHTTPMockEnvelope(t *testing.T) {
	t.Parallel()

	svc, httpReg, _ := newTestService()
	defer httpReg.Shutdown()

	env := svc.RegisterHTTPMock(validDef(testPort()))
	assert.Equal(t, CodeOK, env.Code)
	data := env.Data.(map[string]any)
	assert.Equal(t, "m-1", data["id"])
}

func TestRegisterHTTPMockValidationFailure(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	bad := validDef(testPort())
	bad.Responses = nil

	env := svc.RegisterHTTPMock(bad)
	assert.Equal(t, CodeError, env.Code)
	assert.Contains(t, env.Msg, "responses")

	// The registry was never touched.
	env = svc.ListStates("")
	require.Equal(t, CodeOK, env.Code)
	assert.Empty(t, env.Data.([]diag.Status))
}

func TestUnregisterUnknownHTTPMockSucceeds(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()
	env := svc.UnregisterHTTPMock("ghost")
	assert.Equal(t, CodeOK, env.Code)
}

func TestReplaceHTTPMock(t *testing.T) {
	t.Parallel()

	svc, httpReg, _ := newTestService()
	defer httpReg.Shutdown()

	port := testPort()
	require.Equal(t, CodeOK, svc.RegisterHTTPMock(validDef(port)).Code)

	updated := validDef(port)
	updated.Responses[0].StatusCode = 201
	assert.Equal(t, CodeOK, svc.ReplaceHTTPMock("m-1", updated).Code)

	assert.Equal(t, CodeError, svc.ReplaceHTTPMock("ghost", validDef(port)).Code)
}

func TestRegisterWSMockEnvelope(t *testing.T) {
	t.Parallel()

	svc, _, wsReg := newTestService()
	defer wsReg.Shutdown()

	port := testPort()
	env := svc.RegisterWSMock(&mock.WSDefinition{ID: "w-1", ProjectID: "p-1", Port: port, Path: "/ws"})
	require.Equal(t, CodeOK, env.Code)

	// A duplicate path fails through the same envelope.
	env = svc.RegisterWSMock(&mock.WSDefinition{ID: "w-2", ProjectID: "p-1", Port: port, Path: "/ws"})
	assert.Equal(t, CodeError, env.Code)
	assert.Contains(t, env.Msg, "already registered")

	env = svc.RegisterWSMock(&mock.WSDefinition{ID: "", Port: port, Path: "/x"})
	assert.Equal(t, CodeError, env.Code)
}

func TestListStatesSpansBothRegistries(t *testing.T) {
	t.Parallel()

	svc, httpReg, wsReg := newTestService()
	defer httpReg.Shutdown()
	defer wsReg.Shutdown()

	require.Equal(t, CodeOK, svc.RegisterHTTPMock(validDef(testPort())).Code)
	require.Equal(t, CodeOK, svc.RegisterWSMock(&mock.WSDefinition{
		ID: "w-1", ProjectID: "p-1", Port: testPort(), Path: "/ws",
	}).Code)

	env := svc.ListStates("")
	require.Equal(t, CodeOK, env.Code)
	states := env.Data.([]diag.Status)
	assert.Len(t, states, 2)
	for _, s := range states {
		assert.Equal(t, diag.StateRunning, s.State)
	}
}

func TestListStatesScopedToProject(t *testing.T) {
	t.Parallel()

	svc, httpReg, wsReg := newTestService()
	defer httpReg.Shutdown()
	defer wsReg.Shutdown()

	defA := validDef(testPort())
	defA.ID = "m-a"
	defA.ProjectID = "project-a"
	require.Equal(t, CodeOK, svc.RegisterHTTPMock(defA).Code)

	defB := validDef(testPort())
	defB.ID = "m-b"
	defB.ProjectID = "project-b"
	require.Equal(t, CodeOK, svc.RegisterHTTPMock(defB).Code)

	require.Equal(t, CodeOK, svc.RegisterWSMock(&mock.WSDefinition{
		ID: "w-a", ProjectID: "project-a", Port: testPort(), Path: "/ws",
	}).Code)

	env := svc.ListStates("project-a")
	require.Equal(t, CodeOK, env.Code)
	states := env.Data.([]diag.Status)
	require.Len(t, states, 2)
	for _, s := range states {
		assert.Equal(t, "project-a", s.ProjectID)
	}

	env = svc.ListStates("project-b")
	states = env.Data.([]diag.Status)
	require.Len(t, states, 1)
	assert.Equal(t, "m-b", states[0].NodeID)

	// An empty project id keeps the unscoped view.
	env = svc.ListStates("")
	assert.Len(t, env.Data.([]diag.Status), 3)
}

func TestSyncVariablesReachesTemplates(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService()

	env := svc.SyncVariables("p-1", map[string]any{"apiKey": "k-1"})
	require.Equal(t, CodeOK, env.Code)
	assert.EqualValues(t, 1, env.Data.(map[string]any)["count"])
}
