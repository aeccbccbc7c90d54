package pipeline

import (
	"encoding/json"
	"fmt"
	"time"
)

type Status uint32

const (
	StatusMissing         = 0
	StatusStarting Status = iota + 1
	StatusRunning
	StatusComplete
	StatusCompleteWithError
	StatusSkipped
	StatusShutdown
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusComplete:
		return "complete"
	case StatusCompleteWithError:
		return "complete with error"
	case StatusSkipped:
		return "skipped"
	case StatusShutdown:
		return "shutdown by user"
	}
	return ""
}

func (s Status) MarshalJSON() ([]byte, error) {
	if s != StatusMissing && s.String() == "" {
		return nil, fmt.Errorf("unhandled Status value %v in custom MarshalJSON() conversion", uint32(s))
	}
	return json.Marshal(s.String())
}

// TaskStatus is the state of one task in a run.
type TaskStatus struct {
	Task      string    `json:"task"`
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
}

func (t *TaskStatus) IsFinished() bool {
	return t.Status != StatusStarting && t.Status != StatusRunning
}
