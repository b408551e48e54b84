package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gesturehue/internal/config"
	"github.com/dokzlo13/gesturehue/internal/db"
	"github.com/dokzlo13/gesturehue/internal/eventbus"
	"github.com/dokzlo13/gesturehue/internal/ledger"
)

// HistoryService records controller events in the SQLite ledger.
type HistoryService struct {
	cfg    *config.Config
	DB     *db.DB
	Ledger *ledger.Ledger

	wg sync.WaitGroup
}

// NewHistoryService opens the database when the ledger is enabled.
// A disabled ledger yields a service whose methods are no-ops.
func NewHistoryService(cfg *config.Config) (*HistoryService, error) {
	s := &HistoryService{cfg: cfg}
	if !cfg.Ledger.Enabled {
		return s, nil
	}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database
	s.Ledger = ledger.New(database.DB)

	log.Info().
		Str("path", cfg.Database.Path).
		Str("session", s.Ledger.SessionID()).
		Msg("Light history enabled")
	return s, nil
}

// Subscribe wires ledger recording to the bus.
func (s *HistoryService) Subscribe(bus *eventbus.Bus) {
	if s.Ledger == nil {
		return
	}

	record := func(t ledger.EventType) eventbus.Handler {
		return func(event eventbus.Event) {
			target, _ := event.Data["target"].(string)
			if _, err := s.Ledger.Append(t, target, event.Data); err != nil {
				log.Error().Err(err).Str("event_type", string(t)).Msg("Failed to record light history")
			}
		}
	}

	bus.Subscribe(eventbus.EventTypeHueShifted, record(ledger.EventHueShifted))
	bus.Subscribe(eventbus.EventTypeToggled, record(ledger.EventToggled))
	bus.Subscribe(eventbus.EventTypeTargetMissing, record(ledger.EventTargetMissing))
	bus.Subscribe(eventbus.EventTypeLightError, record(ledger.EventLightError))
}

// Start begins periodic retention cleanup.
func (s *HistoryService) Start(ctx context.Context) {
	if s.Ledger == nil {
		return
	}
	if s.cfg.Ledger.CleanupInterval <= 0 {
		log.Warn().Msg("History cleanup disabled: cleanup interval is not positive")
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runCleanup(ctx)
	}()
}

// runCleanup periodically deletes entries past the retention period.
func (s *HistoryService) runCleanup(ctx context.Context) {
	retention := s.cfg.Ledger.RetentionPeriod.Duration()
	interval := s.cfg.Ledger.CleanupInterval.Duration()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.Ledger.DeleteOlderThan(retention)
			if err != nil {
				log.Error().Err(err).Msg("Failed to cleanup old history entries")
			} else if deleted > 0 {
				log.Info().Int64("deleted", deleted).Dur("retention", retention).Msg("Cleaned up old history entries")
			}
		}
	}
}

// Close waits for the cleanup loop, which exits once the Start context is
// cancelled, then closes the database.
func (s *HistoryService) Close() {
	s.wg.Wait()
	if s.DB != nil {
		s.DB.Close()
	}
}
