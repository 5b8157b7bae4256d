// Package sync exports graph snapshots to durable destinations, either on
// demand or on a fixed interval while a task panel is open.
package sync

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"time"
)

// Destination is the interface for an export target (file, S3, ...).
type Destination interface {
	// Write stores the JSONL payload under name.
	Write(ctx context.Context, name string, data []byte) error
}

// ExportFunc renders one snapshot into buf and returns the object name to
// store it under.
type ExportFunc func(ctx context.Context, buf *bytes.Buffer) (string, error)

// Scheduler runs periodic exports to one or more destinations.
type Scheduler struct {
	export       ExportFunc
	destinations []Destination
	interval     time.Duration
	logger       *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a scheduler that writes export's output to the given
// destinations at the specified interval.
func NewScheduler(export ExportFunc, destinations []Destination, interval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		export:       export,
		destinations: destinations,
		interval:     interval,
		logger:       logger,
	}
}

// Start begins periodic export. It runs an initial export immediately, then
// on each tick.
func (s *Scheduler) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
}

// Stop cancels the scheduler and waits for the current export (if any) to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func (s *Scheduler) run(ctx context.Context) {
	s.Once(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Once(ctx)
		}
	}
}

// Once performs a single export to every destination and reports how many
// writes failed.
func (s *Scheduler) Once(ctx context.Context) int {
	var buf bytes.Buffer
	name, err := s.export(ctx, &buf)
	if err != nil {
		s.logger.Error("sync: export failed", "err", err)
		return len(s.destinations)
	}
	data := buf.Bytes()

	failed := 0
	for i, dest := range s.destinations {
		if err := dest.Write(ctx, name, data); err != nil {
			failed++
			s.logger.Error("sync: destination write failed", "destination", i, "name", name, "err", err)
		}
	}

	s.logger.Info("sync: export completed", "name", name, "destinations", len(s.destinations), "bytes", len(data))
	return failed
}
