// Package jobs tracks asynchronous pipeline runs for the API collaborator.
// The API never runs a crawl synchronously; it starts a job and polls its
// record by id.
package jobs

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aluiziolira/go-book-pipeline/models"
)

// Status is the lifecycle state of one job record.
type Status string

const (
	StatusStarted   Status = "started"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Progress tells a polling client where the run currently is.
type Progress struct {
	CurrentStep string `json:"current_step"`
}

// Job is one pipeline run's status record. Records returned by Get are
// snapshots; completed and failed jobs never change again.
type Job struct {
	ID          string               `json:"job_id"`
	Status      Status               `json:"status"`
	Progress    Progress             `json:"progress"`
	Parameters  models.RunParameters `json:"parameters"`
	StartedAt   time.Time            `json:"started_at"`
	CompletedAt time.Time            `json:"completed_at,omitempty"`
	Result      *models.PipelineRun  `json:"result,omitempty"`
	Error       string               `json:"error,omitempty"`
}

// Runner executes one pipeline run. The progress callback reports the
// current step back into the job record.
type Runner func(ctx context.Context, params models.RunParameters, progress func(step string)) *models.PipelineRun

// Store owns the job records behind a mutex. A single store is shared by
// the API layer; each job's pipeline run holds its own fetcher and
// accumulators, so jobs share nothing but the output directory.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

// NewStore builds an empty job store.
func NewStore() *Store {
	return &Store{jobs: make(map[string]*Job)}
}

// Start registers a new job and launches the runner on its own goroutine.
// The returned id is immediately pollable.
func (s *Store) Start(ctx context.Context, params models.RunParameters, run Runner) string {
	id := uuid.NewString()
	job := &Job{
		ID:         id,
		Status:     StatusStarted,
		Progress:   Progress{CurrentStep: "queued"},
		Parameters: params,
		StartedAt:  time.Now(),
	}

	s.mu.Lock()
	s.jobs[id] = job
	s.mu.Unlock()

	go func() {
		s.update(id, func(j *Job) {
			j.Status = StatusRunning
			j.Progress.CurrentStep = "running"
		})

		result := run(ctx, params, func(step string) {
			s.update(id, func(j *Job) {
				j.Progress.CurrentStep = step
			})
		})

		s.update(id, func(j *Job) {
			j.CompletedAt = time.Now()
			j.Result = result
			switch {
			case result == nil:
				j.Status = StatusFailed
				j.Error = "pipeline returned no result"
				j.Progress.CurrentStep = "failed"
			case result.Success:
				j.Status = StatusCompleted
				j.Progress.CurrentStep = "done"
			default:
				j.Status = StatusFailed
				j.Error = result.Error
				j.Progress.CurrentStep = "failed"
			}
		})
	}()

	return id
}

// Get returns a snapshot of one job record.
func (s *Store) Get(id string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns snapshots of all job records, newest first.
func (s *Store) List() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out
}

func (s *Store) update(id string, apply func(*Job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[id]; ok {
		apply(job)
	}
}
