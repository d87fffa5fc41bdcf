package system

import (
	"context"
	"database/sql"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/scheduler"
)

// Version is the hub version, set at build time or defaulted.
var Version = "1.0.0"

// DeviceStatus reports the device session without touching the network.
type DeviceStatus interface {
	Base() string
	State() fsapi.SessionState
}

// HealthReporter is satisfied by the change log service.
type HealthReporter interface {
	IsHealthy() bool
}

// SubscriberCounter is satisfied by the stream hub.
type SubscriberCounter interface {
	Count() int
}

// ScheduleLister is satisfied by the scheduler runner.
type ScheduleLister interface {
	Jobs() []scheduler.JobStatus
}

// Pinger checks database connectivity.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Deps are the optional components the system service reports on.
type Deps struct {
	DB        Pinger
	Device    DeviceStatus
	ChangeLog HealthReporter
	Stream    SubscriberCounter
	Schedules ScheduleLister
	Watching  bool
}

// Service provides system information.
type Service struct {
	logger    zerolog.Logger
	deps      Deps
	startTime time.Time
}

func NewService(deps Deps, logger zerolog.Logger) *Service {
	return &Service{logger: logger, deps: deps, startTime: time.Now()}
}

// SystemInfo holds system information.
type SystemInfo struct {
	HubVersion        string           `json:"hub_version"`
	Uptime            int64            `json:"uptime_seconds"`
	MemoryUsageMB     float64          `json:"memory_mb"`
	Goroutines        int              `json:"goroutines"`
	SQLiteConnected   bool             `json:"sqlite_connected"`
	ChangeLogHealthy  bool             `json:"change_log_healthy"`
	DeviceBase        string           `json:"device_base"`
	DeviceSession     string           `json:"device_session"`
	Watching          bool             `json:"watching"`
	StreamSubscribers int              `json:"stream_subscribers"`
	Schedules         int              `json:"schedules"`
	NextSchedule      *ScheduleSummary `json:"next_schedule,omitempty"`
	AttentionItems    []AttentionItem  `json:"attention_items"`
}

// ScheduleSummary names the next schedule to fire.
type ScheduleSummary struct {
	Name      string    `json:"name"`
	Operation string    `json:"operation"`
	NextRunAt time.Time `json:"next_run_at"`
}

// AttentionItem represents an item that needs user attention.
type AttentionItem struct {
	Type        string         `json:"type"`
	Severity    string         `json:"severity"`
	Message     string         `json:"message"`
	Details     map[string]any `json:"details,omitempty"`
	ResolveHint string         `json:"resolve_hint,omitempty"`
}

// GetSystemInfo returns current system information.
func (s *Service) GetSystemInfo(ctx context.Context) *SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	info := &SystemInfo{
		HubVersion:       Version,
		Uptime:           int64(time.Since(s.startTime).Seconds()),
		MemoryUsageMB:    float64(memStats.Alloc) / 1024 / 1024,
		Goroutines:       runtime.NumGoroutine(),
		ChangeLogHealthy: true,
		Watching:         s.deps.Watching,
		AttentionItems:   []AttentionItem{},
	}

	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("sqlite ping failed")
		} else {
			info.SQLiteConnected = true
		}
	}
	if s.deps.ChangeLog != nil {
		info.ChangeLogHealthy = s.deps.ChangeLog.IsHealthy()
	}
	if s.deps.Stream != nil {
		info.StreamSubscribers = s.deps.Stream.Count()
	}
	if s.deps.Device != nil {
		info.DeviceBase = s.deps.Device.Base()
		info.DeviceSession = s.deps.Device.State().String()
	}
	if s.deps.Schedules != nil {
		jobs := s.deps.Schedules.Jobs()
		info.Schedules = len(jobs)
		info.NextSchedule = nextSchedule(jobs)
	}

	info.AttentionItems = s.attentionItems(info)
	return info
}

func nextSchedule(jobs []scheduler.JobStatus) *ScheduleSummary {
	var next *ScheduleSummary
	for _, job := range jobs {
		if job.NextRun == nil {
			continue
		}
		if next == nil || job.NextRun.Before(next.NextRunAt) {
			next = &ScheduleSummary{Name: job.Name, Operation: job.Operation, NextRunAt: *job.NextRun}
		}
	}
	return next
}

func (s *Service) attentionItems(info *SystemInfo) []AttentionItem {
	items := []AttentionItem{}

	if s.deps.DB != nil && !info.SQLiteConnected {
		items = append(items, AttentionItem{
			Type:     "sqlite_unavailable",
			Severity: "error",
			Message:  "The change log database is not reachable",
		})
	}
	if !info.ChangeLogHealthy {
		items = append(items, AttentionItem{
			Type:        "change_log_failing",
			Severity:    "warning",
			Message:     "Recent change log writes failed",
			ResolveHint: "Check disk space and SQLITE_DB_PATH permissions",
		})
	}
	if s.deps.Device != nil && s.deps.Device.State() == fsapi.SessionExpired {
		items = append(items, AttentionItem{
			Type:     "device_session_expired",
			Severity: "warning",
			Message:  "The device session expired and will be renewed on the next call",
			Details:  map[string]any{"device_base": info.DeviceBase},
		})
	}
	for _, job := range s.scheduleFailures() {
		items = append(items, AttentionItem{
			Type:     "schedule_failed",
			Severity: "warning",
			Message:  "The last run of a schedule did not apply",
			Details: map[string]any{
				"schedule": job.Name,
				"status":   string(job.LastRun.Status),
				"error":    job.LastRun.Error,
			},
		})
	}
	return items
}

func (s *Service) scheduleFailures() []scheduler.JobStatus {
	if s.deps.Schedules == nil {
		return nil
	}
	var failed []scheduler.JobStatus
	for _, job := range s.deps.Schedules.Jobs() {
		if job.LastRun != nil && !job.LastRun.Accepted {
			failed = append(failed, job)
		}
	}
	return failed
}

var _ Pinger = (*sql.DB)(nil)
