package scheduler

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/strefethen/fsapi-hub-go/internal/config"
	"github.com/strefethen/fsapi-hub-go/internal/fsapi"
)

// cronParser accepts standard 5-field expressions (minute, hour,
// day-of-month, month, day-of-week) plus descriptors like @daily.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseCron validates a cron expression.
func ParseCron(expression string) (cron.Schedule, error) {
	schedule, err := cronParser.Parse(strings.TrimSpace(expression))
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule, nil
}

// ParseSchedules turns configured schedules into jobs. Every schedule must name
// a writable operation and a value that parses for it.
func ParseSchedules(schedules []config.Schedule) ([]Job, error) {
	jobs := make([]Job, 0, len(schedules))
	seen := make(map[string]struct{}, len(schedules))

	for _, s := range schedules {
		if _, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("schedule %q: duplicate name", s.Name)
		}
		seen[s.Name] = struct{}{}

		job, err := parseSchedule(s)
		if err != nil {
			return nil, fmt.Errorf("schedule %q: %w", s.Name, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func parseSchedule(s config.Schedule) (Job, error) {
	schedule, err := ParseCron(s.Cron)
	if err != nil {
		return Job{}, err
	}

	op := fsapi.Operation(strings.TrimSpace(s.Operation))
	capability, ok := fsapi.Lookup(op)
	if !ok {
		return Job{}, fmt.Errorf("unknown operation %q", s.Operation)
	}
	if capability.List || !capability.Access.Writable() {
		return Job{}, fmt.Errorf("operation %q cannot be set", op)
	}

	value, err := fsapi.ParseValue(op, s.Value)
	if err != nil {
		return Job{}, err
	}

	return Job{
		Name:       s.Name,
		Expression: s.Cron,
		Operation:  op,
		Node:       capability.Node,
		Value:      value,
		schedule:   schedule,
	}, nil
}
