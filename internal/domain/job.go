package domain

import "time"

// JobStatus is the lifecycle state of an export job.
type JobStatus string

// Job lifecycle states. Transitions are strictly
// queued -> started -> finished or queued -> started -> failed.
const (
	JobQueued   JobStatus = "queued"
	JobStarted  JobStatus = "started"
	JobFinished JobStatus = "finished"
	JobFailed   JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobFinished || s == JobFailed
}

// CanTransitionTo reports whether the transition s -> next is legal.
func (s JobStatus) CanTransitionTo(next JobStatus) bool {
	switch s {
	case JobQueued:
		return next == JobStarted
	case JobStarted:
		return next == JobFinished || next == JobFailed
	default:
		return false
	}
}

// ExportRequest holds the parameters of an export submission.
type ExportRequest struct {
	RouteID      string
	RadiusMeters float64
	Filters      []string
	POIIDs       []string
}

// ExportJob tracks one asynchronous export. Exactly one worker mutates a
// given job; FileURL is meaningful only when finished, ErrorDetail only
// when failed.
type ExportJob struct {
	ID          string
	Request     ExportRequest
	Status      JobStatus
	FileURL     string
	ErrorDetail string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
}
