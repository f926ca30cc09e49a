package main

import (
	"log/slog"

	"github.com/getmocknode/mocknode/pkg/diag"
)

// logObserver writes diagnostics batches to the process logger. In the
// embedded deployment the host shell supplies its own observer; the CLI
// has only the terminal.
type logObserver struct {
	log *slog.Logger
}

func newLogObserver(log *slog.Logger) *logObserver {
	return &logObserver{log: log}
}

func (o *logObserver) LogsBatch(events []*diag.Event) {
	for _, e := range events {
		o.log.Info("event",
			"type", e.Type,
			"node", e.NodeID,
			"data", e.Data,
		)
	}
}

func (o *logObserver) StatusChanged(status diag.Status) {
	o.log.Info("status",
		"node", status.NodeID,
		"state", status.State,
		"port", status.Port,
		"error", status.Error,
	)
}
