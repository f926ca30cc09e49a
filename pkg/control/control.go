// Package control is the host-facing command surface. Every operation
// returns a uniform envelope so the embedding shell can route success and
// failure without inspecting transport-level errors.
package control

import (
	"log/slog"

	"github.com/getmocknode/mocknode/pkg/engine"
	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/vars"
	"github.com/getmocknode/mocknode/pkg/websocket"
)

// Envelope codes.
const (
	CodeOK    = 0
	CodeError = 1
)

// Envelope is the uniform operation result.
type Envelope struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data any    `json:"data,omitempty"`
}

func ok(msg string, data any) Envelope {
	return Envelope{Code: CodeOK, Msg: msg, Data: data}
}

func fail(err error) Envelope {
	return Envelope{Code: CodeError, Msg: err.Error()}
}

// Service executes control operations against the HTTP and WebSocket
// registries and the variable store.
type Service struct {
	http  *engine.Registry
	ws    *websocket.Registry
	store *vars.Store
	log   *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithLogger sets the operational logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService creates the control surface over the given registries.
func NewService(http *engine.Registry, ws *websocket.Registry, store *vars.Store, opts ...Option) *Service {
	s := &Service{
		http:  http,
		ws:    ws,
		store: store,
		log:   logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHTTPMock validates and starts serving an HTTP mock.
func (s *Service) RegisterHTTPMock(def *mock.HTTPDefinition) Envelope {
	if err := mock.ValidateHTTP(def); err != nil {
		return fail(err)
	}
	if err := s.http.Register(def); err != nil {
		return fail(err)
	}
	return ok("mock registered", map[string]any{"id": def.ID, "port": def.RequestCondition.Port})
}

// UnregisterHTTPMock stops serving an HTTP mock. Unregistering an unknown
// id succeeds; it reports the mock as already stopped.
func (s *Service) UnregisterHTTPMock(id string) Envelope {
	if err := s.http.Unregister(id); err != nil {
		return fail(err)
	}
	return ok("mock unregistered", map[string]any{"id": id})
}

// ReplaceHTTPMock swaps the definition of a running HTTP mock.
func (s *Service) ReplaceHTTPMock(id string, def *mock.HTTPDefinition) Envelope {
	if err := mock.ValidateHTTP(def); err != nil {
		return fail(err)
	}
	if err := s.http.Replace(id, def); err != nil {
		return fail(err)
	}
	return ok("mock replaced", map[string]any{"id": id})
}

// RegisterWSMock validates and starts serving a WebSocket mock.
func (s *Service) RegisterWSMock(def *mock.WSDefinition) Envelope {
	if err := mock.ValidateWS(def); err != nil {
		return fail(err)
	}
	if err := s.ws.Register(def); err != nil {
		return fail(err)
	}
	return ok("websocket mock registered", map[string]any{
		"id":   def.ID,
		"port": def.Port,
		"path": def.Path,
	})
}

// UnregisterWSMock stops serving a WebSocket mock.
func (s *Service) UnregisterWSMock(id string) Envelope {
	if err := s.ws.Unregister(id); err != nil {
		return fail(err)
	}
	return ok("websocket mock unregistered", map[string]any{"id": id})
}

// ListStates reports the serving state of registered mocks, HTTP and
// WebSocket alike. A non-empty projectID restricts the report to that
// project; empty means all projects.
func (s *Service) ListStates(projectID string) Envelope {
	states := append(s.http.ListStates(projectID), s.ws.ListStates(projectID)...)
	return ok("states", states)
}

// SyncVariables replaces a project's variables wholesale.
func (s *Service) SyncVariables(projectID string, variables map[string]any) Envelope {
	s.store.Sync(projectID, variables)
	s.log.Debug("project variables synced", "project", projectID, "count", len(variables))
	return ok("variables synced", map[string]any{
		"projectId": projectID,
		"count":     len(variables),
	})
}
