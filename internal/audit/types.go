package audit

import (
	"fmt"
	"time"
)

// Source identifies what produced a change.
type Source string

const (
	// SourceNotify is a value change reported by the device.
	SourceNotify Source = "NOTIFY"
	// SourceSet is a write issued through the bridge API.
	SourceSet Source = "SET"
	// SourceSchedule is a write issued by a configured schedule.
	SourceSchedule Source = "SCHEDULE"
)

// Status is the outcome of a recorded change.
type Status string

const (
	StatusOK Status = "OK"
	// StatusRejected means the device answered FS_FAIL.
	StatusRejected Status = "REJECTED"
	StatusFailed   Status = "FAILED"
)

// Change is one row of the change log.
type Change struct {
	ChangeID  string    `json:"change_id"`
	Timestamp time.Time `json:"timestamp"`
	Node      string    `json:"node"`
	Operation *string   `json:"operation,omitempty"`
	Value     string    `json:"value"`
	Kind      string    `json:"kind"`
	Label     *string   `json:"label,omitempty"`
	Source    Source    `json:"source"`
	Status    Status    `json:"status"`
	Message   *string   `json:"message,omitempty"`
}

// WriteChangeInput contains the fields for recording a change.
type WriteChangeInput struct {
	Node      string
	Operation *string
	Value     string
	Kind      string
	Label     *string
	Source    Source
	Status    Status
	Message   *string
}

// ChangeQueryFilters contains optional filters for querying changes.
type ChangeQueryFilters struct {
	Node      *string
	Source    *Source
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
	Offset    int
}

// ChangeNotFoundError is returned when a change ID does not exist.
type ChangeNotFoundError struct {
	ChangeID string
}

func (e *ChangeNotFoundError) Error() string {
	return fmt.Sprintf("change not found: %s", e.ChangeID)
}

// ParseSource accepts a source name in any case.
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceNotify, SourceSet, SourceSchedule:
		return Source(s), true
	}
	switch s {
	case "notify":
		return SourceNotify, true
	case "set":
		return SourceSet, true
	case "schedule":
		return SourceSchedule, true
	}
	return "", false
}
