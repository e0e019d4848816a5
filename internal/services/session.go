package services

import (
	"context"
	"fmt"
	"sync"

	"payouts/internal/core"
	"payouts/internal/sheets"
)

// UploadMode decides what a new upload does to the current batch.
type UploadMode string

const (
	ModeReplace UploadMode = "replace"
	ModeAppend  UploadMode = "append"
)

func ParseUploadMode(s string) (UploadMode, error) {
	switch UploadMode(s) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("unknown upload mode %q", s)
	}
}

// Session holds the batch currently on display. Batches themselves are
// never modified; an upload swaps the reference.
type Session struct {
	ingester *Ingester

	mu      sync.RWMutex
	current core.Batch
}

func NewSession(ingester *Ingester) *Session {
	return &Session{ingester: ingester}
}

// Current returns the batch on display.
func (s *Session) Current() core.Batch {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Upload parses readers and either replaces the current batch or appends to
// it. On cancellation the current batch is left untouched.
func (s *Session) Upload(ctx context.Context, readers []sheets.TableReader, mode UploadMode) (core.Batch, error) {
	var taken map[string]int
	if mode == ModeAppend {
		taken = fileNames(s.Current())
	}

	parsed, err := s.ingester.parseBatch(ctx, readers, taken)
	if err != nil {
		return core.Batch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == ModeAppend {
		s.current = s.current.Append(parsed)
	} else {
		s.current = parsed
	}
	return s.current, nil
}

// Clear drops the current batch.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = core.Batch{}
}

func fileNames(b core.Batch) map[string]int {
	out := make(map[string]int, len(b.Files))
	for _, f := range b.Files {
		out[f.File]++
	}
	return out
}
