package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/strefethen/fsapi-hub-go/internal/audit"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi/wire"
)

// DefaultJobTimeout bounds a single scheduled SET including its settle delay.
const DefaultJobTimeout = 30 * time.Second

// Setter is the slice of the FSAPI client the runner needs. Apply keeps the
// guards of the typed setters.
type Setter interface {
	Apply(ctx context.Context, op fsapi.Operation, value wire.Value) (bool, error)
}

// ChangeRecorder stores the outcome of each run.
type ChangeRecorder interface {
	Record(input audit.WriteChangeInput) (*audit.Change, error)
}

// Runner fires jobs on their cron schedules.
type Runner struct {
	logger   zerolog.Logger
	setter   Setter
	recorder ChangeRecorder
	timeout  time.Duration

	cron    *cron.Cron
	jobs    map[string]Job
	order   []string
	entries map[string]cron.EntryID

	mu   sync.Mutex
	last map[string]RunResult
}

// NewRunner registers jobs with a cron instance. recorder may be nil.
func NewRunner(logger zerolog.Logger, setter Setter, recorder ChangeRecorder, jobs []Job, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	logger = logger.With().Str("component", "scheduler").Logger()

	r := &Runner{
		logger:   logger,
		setter:   setter,
		recorder: recorder,
		timeout:  timeout,
		jobs:     make(map[string]Job, len(jobs)),
		entries:  make(map[string]cron.EntryID, len(jobs)),
		last:     make(map[string]RunResult),
	}

	cl := cronLogger{logger: logger}
	r.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	for _, job := range jobs {
		job := job
		r.jobs[job.Name] = job
		r.order = append(r.order, job.Name)
		r.entries[job.Name] = r.cron.Schedule(job.schedule, cron.FuncJob(func() {
			r.run(context.Background(), job)
		}))
	}
	return r
}

// Start begins firing jobs.
func (r *Runner) Start() {
	r.logger.Info().Int("jobs", len(r.jobs)).Msg("scheduler starting")
	r.cron.Start()
}

// Stop stops the cron loop and waits for running jobs.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info().Msg("scheduler stopped")
}

// Run executes a job immediately, outside its schedule.
func (r *Runner) Run(ctx context.Context, name string) (RunResult, error) {
	job, ok := r.jobs[name]
	if !ok {
		return RunResult{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return r.run(ctx, job), nil
}

// Jobs lists jobs in configuration order.
func (r *Runner) Jobs() []JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]JobStatus, 0, len(r.order))
	for _, name := range r.order {
		job := r.jobs[name]
		status := JobStatus{
			Name:      job.Name,
			Cron:      job.Expression,
			Operation: string(job.Operation),
			Value:     job.Value.String(),
		}
		next := r.cron.Entry(r.entries[name]).Next
		if next.IsZero() {
			next = job.Next(time.Now())
		}
		if !next.IsZero() {
			status.NextRun = &next
		}
		if last, ok := r.last[name]; ok {
			status.LastRun = &last
		}
		statuses = append(statuses, status)
	}
	return statuses
}

func (r *Runner) run(ctx context.Context, job Job) RunResult {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	accepted, err := r.setter.Apply(ctx, job.Operation, job.Value)

	result := RunResult{
		Job:        job.Name,
		RanAt:      start.UTC(),
		Accepted:   accepted,
		DurationMs: time.Since(start).Milliseconds(),
	}
	switch {
	case err != nil:
		result.Status = audit.StatusFailed
		result.Error = err.Error()
		r.logger.Error().Err(err).Str("job", job.Name).Str("operation", string(job.Operation)).Msg("scheduled set failed")
	case !accepted:
		result.Status = audit.StatusRejected
		r.logger.Warn().Str("job", job.Name).Str("operation", string(job.Operation)).Msg("device rejected scheduled set")
	default:
		result.Status = audit.StatusOK
		r.logger.Info().Str("job", job.Name).Str("operation", string(job.Operation)).Str("value", job.Value.String()).Msg("scheduled set applied")
	}

	r.mu.Lock()
	r.last[job.Name] = result
	r.mu.Unlock()

	r.record(job, result)
	return result
}

func (r *Runner) record(job Job, result RunResult) {
	if r.recorder == nil {
		return
	}
	op := string(job.Operation)
	name := job.Name
	input := audit.WriteChangeInput{
		Node:      job.Node,
		Operation: &op,
		Value:     job.Value.String(),
		Kind:      job.Value.Kind().String(),
		Label:     &name,
		Source:    audit.SourceSchedule,
		Status:    result.Status,
	}
	if result.Error != "" {
		msg := result.Error
		input.Message = &msg
	}
	if _, err := r.recorder.Record(input); err != nil {
		r.logger.Error().Err(err).Str("job", job.Name).Msg("failed to record scheduled change")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
