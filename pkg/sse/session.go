package sse

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/getmocknode/mocknode/internal/id"
	"github.com/getmocknode/mocknode/pkg/logging"
	"github.com/getmocknode/mocknode/pkg/mock"
	"github.com/getmocknode/mocknode/pkg/template"
	"github.com/getmocknode/mocknode/pkg/vars"
	"github.com/ohler55/ojg/oj"
)

// Session timing floors and ceilings.
const (
	// MinInterval is the floor on the event interval.
	MinInterval = 100 * time.Millisecond

	// MaxSessionDuration is the hard wall-clock ceiling on a session,
	// regardless of event progress.
	MaxSessionDuration = 1 * time.Hour
)

// Controller runs SSE sessions. One Controller serves all sse-type
// responses; sessions themselves are per-connection.
type Controller struct {
	engine *template.Engine
	log    *slog.Logger
}

// NewController creates a session controller.
func NewController(engine *template.Engine, log *slog.Logger) *Controller {
	if log == nil {
		log = logging.Nop()
	}
	return &Controller{engine: engine, log: log}
}

// Start takes over the transport and streams events until the event count
// reaches maxEvents, the client disconnects, or the session ceiling
// expires. It blocks until the session ends. The first event is emitted
// immediately; subsequent events follow on the interval.
func (c *Controller) Start(w http.ResponseWriter, r *http.Request, cfg *mock.SSEConfig, scope *vars.Scope) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The mock's declared headers win when present.
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/event-stream")
	}
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", "no-cache")
	}
	if w.Header().Get("Connection") == "" {
		w.Header().Set("Connection", "keep-alive")
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	interval := time.Duration(cfg.IntervalMs) * time.Millisecond
	if interval < MinInterval {
		interval = MinInterval
	}
	maxEvents := cfg.MaxEvents
	if maxEvents < 1 {
		maxEvents = 1
	}

	session := &session{
		controller: c,
		cfg:        cfg,
		scope:      scope,
		w:          w,
		flusher:    flusher,
	}
	session.run(r, interval, maxEvents)
}

// session is one client's stream. Cleanup must be idempotent: the count
// limit, a disconnect, a write error, and the ceiling can race.
type session struct {
	controller *Controller
	cfg        *mock.SSEConfig
	scope      *vars.Scope
	w          http.ResponseWriter
	flusher    http.Flusher

	counter int
	done    sync.Once
}

func (s *session) run(r *http.Request, interval time.Duration, maxEvents int) {
	ticker := time.NewTicker(interval)
	ceiling := time.NewTimer(MaxSessionDuration)
	finished := make(chan struct{})
	stop := func(reason string) {
		s.done.Do(func() {
			ticker.Stop()
			ceiling.Stop()
			close(finished)
			s.controller.log.Debug("sse session ended", "reason", reason, "events", s.counter)
		})
	}

	// First event fires immediately.
	if !s.emit() {
		stop("write-error")
		return
	}
	if s.counter >= maxEvents {
		stop("max-events")
		return
	}

	for {
		select {
		case <-finished:
			return
		case <-r.Context().Done():
			stop("disconnect")
			return
		case <-ceiling.C:
			stop("ceiling")
			return
		case <-ticker.C:
			if !s.emit() {
				stop("write-error")
				return
			}
			if s.counter >= maxEvents {
				stop("max-events")
				return
			}
		}
	}
}

// emit writes one event frame. Returns false on transport failure.
func (s *session) emit() bool {
	s.counter++

	frame := FormatEvent(s.eventID(), s.eventName(), s.retry(), s.data())
	if _, err := s.w.Write([]byte(frame)); err != nil {
		return false
	}
	s.flusher.Flush()
	return true
}

func (s *session) eventID() string {
	if !s.cfg.IDEnabled {
		return ""
	}
	switch s.cfg.IDPolicy {
	case mock.SSEIDRandom:
		return id.Token(12)
	case mock.SSEIDTimestamp:
		return strconv.FormatInt(time.Now().UnixMilli(), 10)
	default:
		return strconv.Itoa(s.counter)
	}
}

func (s *session) eventName() string {
	if !s.cfg.EventEnabled {
		return ""
	}
	return s.cfg.EventName
}

func (s *session) retry() int {
	if !s.cfg.RetryEnabled {
		return 0
	}
	return s.cfg.RetryMs
}

// data renders the event payload: template substitution over the literal,
// then compact JSON re-serialization when the payload is declared JSON.
func (s *session) data() string {
	rendered := s.controller.engine.Substitute(s.cfg.Data, s.scope)

	if s.cfg.DataIsJSON {
		if str, ok := rendered.(string); ok {
			var doc any
			if err := json.Unmarshal([]byte(str), &doc); err == nil {
				return oj.JSON(doc)
			}
			return str
		}
		return oj.JSON(rendered)
	}
	return template.Stringify(rendered)
}
