package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rayhan/aska/internal/observability"
)

// Saver persists store snapshots: synchronously on demand, best-effort
// in the background after mutations, and on a periodic schedule. Save
// failures never affect the in-memory store.
type Saver struct {
	store     *Store
	persister Persister
	logger    zerolog.Logger
	cron      *cron.Cron
	mu        sync.Mutex
}

// NewSaver creates a saver for a store and persister.
func NewSaver(store *Store, persister Persister, logger zerolog.Logger) *Saver {
	return &Saver{
		store:     store,
		persister: persister,
		logger:    logger,
	}
}

// Save persists the current snapshot synchronously. Saves are serialized
// so concurrent triggers cannot interleave partial writes.
func (s *Saver) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	snapshot := s.store.Snapshot()
	if err := s.persister.Save(snapshot); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	observability.RecordSessionSave(time.Since(start))

	s.logger.Debug().Int("sessions", len(snapshot)).Msg("Session snapshot saved")
	return nil
}

// SaveAsync persists in the background. Failures are logged, not returned;
// the in-memory store remains authoritative.
func (s *Saver) SaveAsync() {
	go func() {
		if err := s.Save(); err != nil {
			s.logger.Error().Err(err).Msg("Background session save failed")
		}
	}()
}

// StartAutoSave schedules periodic saves using a cron spec such as
// "@every 5m". It is a no-op if already started.
func (s *Saver) StartAutoSave(spec string) error {
	if s.cron != nil {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if err := s.Save(); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled session save failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule auto-save: %w", err)
	}

	c.Start()
	s.cron = c
	s.logger.Info().Str("schedule", spec).Msg("Session auto-save started")
	return nil
}

// Stop stops the auto-save schedule and performs a final save.
func (s *Saver) Stop() {
	if s.cron != nil {
		s.cron.Stop()
		s.cron = nil
	}

	if err := s.Save(); err != nil {
		s.logger.Error().Err(err).Msg("Final session save failed")
	}
}
