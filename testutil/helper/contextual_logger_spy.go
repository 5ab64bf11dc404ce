package helper

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/library-circulation-go/store"
)

// ContextualLoggerSpy is a store.ContextualLogger that records every call together with its context.
type ContextualLoggerSpy struct {
	records []SpyContextualLogRecord
	mu      sync.Mutex
}

// SpyContextualLogRecord represents a recorded contextual log call.
type SpyContextualLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{}
}

func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "debug", msg, args)
}

func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "info", msg, args)
}

func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "warn", msg, args)
}

func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "error", msg, args)
}

func (s *ContextualLoggerSpy) record(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyContextualLogRecord{Level: level, Message: msg, Args: args, Context: ctx})
}

// RecordsWithMessage returns the records logged with msg at the given level.
func (s *ContextualLoggerSpy) RecordsWithMessage(level, msg string) []SpyContextualLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found []SpyContextualLogRecord
	for _, r := range s.records {
		if r.Level == level && r.Message == msg {
			found = append(found, r)
		}
	}

	return found
}

var _ store.ContextualLogger = (*ContextualLoggerSpy)(nil)
