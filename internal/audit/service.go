package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/config"
)

// Default configuration values
const (
	DefaultRetentionDays   = 30
	DefaultPruneInterval   = 24 * time.Hour
	DefaultQueryLimit      = 100
	MaxQueryLimit          = 1000
	MaxConsecutiveFailures = 3
)

// Service records and queries the change log.
type Service struct {
	logger              zerolog.Logger
	repo                *Repository
	retentionDays       int
	pruneInterval       time.Duration
	stopCh              chan struct{}
	stopOnce            sync.Once
	wg                  sync.WaitGroup
	healthy             bool
	healthMu            sync.RWMutex
	consecutiveFailures int
}

// NewService creates a change log service.
func NewService(cfg config.Config, dbPair DBPair, logger zerolog.Logger) *Service {
	retention := cfg.ChangeLogRetentionDays
	if retention <= 0 {
		retention = DefaultRetentionDays
	}

	return &Service{
		logger:        logger.With().Str("component", "changelog").Logger(),
		repo:          NewRepository(dbPair),
		retentionDays: retention,
		pruneInterval: DefaultPruneInterval,
		stopCh:        make(chan struct{}),
		healthy:       true,
	}
}

// Record writes a change and tracks health.
func (s *Service) Record(input WriteChangeInput) (*Change, error) {
	s.logger.Debug().
		Str("node", input.Node).
		Str("value", input.Value).
		Str("source", string(input.Source)).
		Msg("recording change")

	change, err := s.repo.Insert(input)
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("failed to record change: %w", err)
	}

	s.recordSuccess()
	return change, nil
}

// Query retrieves changes with filters and pagination.
// Returns: changes, total count, hasMore flag, error.
func (s *Service) Query(filters ChangeQueryFilters) ([]Change, int, bool, error) {
	if filters.Limit <= 0 {
		filters.Limit = DefaultQueryLimit
	}
	if filters.Limit > MaxQueryLimit {
		filters.Limit = MaxQueryLimit
	}

	changes, total, err := s.repo.Query(filters)
	if err != nil {
		s.recordFailure()
		return nil, 0, false, fmt.Errorf("failed to query changes: %w", err)
	}

	s.recordSuccess()
	hasMore := filters.Offset+len(changes) < total
	return changes, total, hasMore, nil
}

// Get retrieves a single change by ID.
func (s *Service) Get(changeID string) (*Change, error) {
	change, err := s.repo.Get(changeID)
	if err != nil {
		s.recordFailure()
		return nil, fmt.Errorf("failed to get change: %w", err)
	}
	s.recordSuccess()

	if change == nil {
		return nil, &ChangeNotFoundError{ChangeID: changeID}
	}
	return change, nil
}

// StartPruneJob starts the background prune job.
// Runs immediately on start, then at pruneInterval.
func (s *Service) StartPruneJob() {
	s.logger.Info().
		Dur("interval", s.pruneInterval).
		Int("retention_days", s.retentionDays).
		Msg("starting change log prune job")

	s.wg.Add(1)
	go s.runPruneLoop()
}

// StopPruneJob stops the background prune job.
func (s *Service) StopPruneJob() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
	s.logger.Info().Msg("change log prune job stopped")
}

func (s *Service) runPruneLoop() {
	defer s.wg.Done()

	s.pruneAndLog()

	ticker := time.NewTicker(s.pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.pruneAndLog()
		}
	}
}

func (s *Service) pruneAndLog() {
	count, err := s.Prune()
	if err != nil {
		s.logger.Error().Err(err).Msg("change log prune failed")
		return
	}
	if count > 0 {
		s.logger.Info().Int64("deleted", count).Msg("pruned change log")
	}
}

// Prune deletes changes older than the retention window.
func (s *Service) Prune() (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -s.retentionDays)
	count, err := s.repo.Prune(cutoff)
	if err != nil {
		s.recordFailure()
		return 0, fmt.Errorf("failed to prune changes: %w", err)
	}

	s.recordSuccess()
	return count, nil
}

// IsHealthy returns current health status.
func (s *Service) IsHealthy() bool {
	s.healthMu.RLock()
	defer s.healthMu.RUnlock()
	return s.healthy
}

func (s *Service) recordSuccess() {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.consecutiveFailures = 0
	s.healthy = true
}

// recordFailure marks the service unhealthy after MaxConsecutiveFailures.
func (s *Service) recordFailure() {
	s.healthMu.Lock()
	defer s.healthMu.Unlock()
	s.consecutiveFailures++
	if s.consecutiveFailures >= MaxConsecutiveFailures {
		s.healthy = false
	}
}
