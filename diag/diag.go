// Package diag collects recoverable but notable conditions, such as backend
// validation messages, into a counted log sink.
package diag

import (
	"log/slog"
	"sync/atomic"
)

// Sink logs messages and counts how many were reported. Validation callbacks
// may arrive on driver threads, so a Sink is safe for concurrent use.
type Sink struct {
	logger *slog.Logger
	count  atomic.Int64
}

func NewSink(logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{logger: logger}
}

func (s *Sink) Error(msg string, args ...any) {
	s.count.Add(1)
	s.logger.Error(msg, args...)
}

func (s *Sink) Warn(msg string, args ...any) {
	s.count.Add(1)
	s.logger.Warn(msg, args...)
}

// Count is the number of messages reported so far.
func (s *Sink) Count() int64 {
	return s.count.Load()
}
