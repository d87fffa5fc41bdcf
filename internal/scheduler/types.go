package scheduler

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// ErrJobNotFound is returned by Run for an unknown schedule name.
var ErrJobNotFound = errors.New("schedule not found")

// Job is a validated schedule ready to be registered with cron.
type Job struct {
	Name       string
	Expression string
	Operation  fsapi.Operation
	Node       string
	Value      wire.Value

	schedule cron.Schedule
}

// Next returns the first firing time after t.
func (j Job) Next(t time.Time) time.Time {
	return j.schedule.Next(t)
}

// RunResult describes one execution of a job.
type RunResult struct {
	Job        string       `json:"job"`
	RanAt      time.Time    `json:"ran_at"`
	Accepted   bool         `json:"accepted"`
	Status     audit.Status `json:"status"`
	Error      string       `json:"error,omitempty"`
	DurationMs int64        `json:"duration_ms"`
}

// JobStatus is the externally visible state of a job.
type JobStatus struct {
	Name      string     `json:"name"`
	Cron      string     `json:"cron"`
	Operation string     `json:"operation"`
	Value     string     `json:"value"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *RunResult `json:"last_run,omitempty"`
}
