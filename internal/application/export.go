package application

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/waypost/internal/domain"
	"github.com/jobrunner/waypost/internal/ports/output"
)

// ExportManager runs asynchronous track exports. Submitted jobs move through
// queued, started and a terminal finished or failed state; a panic inside a
// worker fails that job only.
type ExportManager struct {
	store   output.SpatialStore
	files   output.FileStore
	codec   output.TrackCodec
	metrics output.MetricsCollector
	logger  *slog.Logger

	workers    int
	jobTimeout time.Duration

	mu    sync.RWMutex
	jobs  map[string]*domain.ExportJob
	queue chan string

	wg  sync.WaitGroup
	now func() time.Time
}

// ExportManagerConfig holds configuration for the export manager.
type ExportManagerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// NewExportManager creates an export manager. Start must be called before
// submitted jobs make progress.
func NewExportManager(
	store output.SpatialStore,
	files output.FileStore,
	codec output.TrackCodec,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	cfg ExportManagerConfig,
) *ExportManager {
	if cfg.Workers < 1 {
		cfg.Workers = 2
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = 64
	}
	if cfg.JobTimeout == 0 {
		cfg.JobTimeout = 5 * time.Minute
	}

	return &ExportManager{
		store:      store,
		files:      files,
		codec:      codec,
		metrics:    metrics,
		logger:     logger,
		workers:    cfg.Workers,
		jobTimeout: cfg.JobTimeout,
		jobs:       make(map[string]*domain.ExportJob),
		queue:      make(chan string, cfg.QueueSize),
		now:        time.Now,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled.
func (m *ExportManager) Start(ctx context.Context) {
	for i := 0; i < m.workers; i++ {
		m.wg.Add(1)
		go m.worker(ctx, i)
	}
}

// Wait blocks until all workers have exited.
func (m *ExportManager) Wait() {
	m.wg.Wait()
}

// Submit validates the request, creates a queued job and returns its ID.
// Identical requests always create independent jobs. Validation failures
// create no job at all.
func (m *ExportManager) Submit(ctx context.Context, req domain.ExportRequest) (string, error) {
	if req.RadiusMeters <= 0 || req.RadiusMeters > domain.MaxSearchRadiusMeters {
		return "", domain.ErrRadiusOutOfRange
	}

	// Reject unknown routes before a job exists.
	if _, err := m.store.GetRoute(ctx, req.RouteID); err != nil {
		return "", err
	}

	req.Filters = CanonicalFilters(req.Filters)

	job := &domain.ExportJob{
		ID:         uuid.New().String(),
		Request:    req,
		Status:     domain.JobQueued,
		EnqueuedAt: m.now().UTC(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	select {
	case m.queue <- job.ID:
	default:
		m.mu.Lock()
		delete(m.jobs, job.ID)
		m.mu.Unlock()
		return "", domain.ErrQueueFull
	}

	m.metrics.IncJob(string(domain.JobQueued))
	m.metrics.SetQueueDepth(len(m.queue))
	m.logger.Info("export job queued", "job_id", job.ID, "route_id", req.RouteID)
	return job.ID, nil
}

// Status returns a snapshot of the job.
func (m *ExportManager) Status(_ context.Context, jobID string) (*domain.ExportJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	snapshot := *job
	return &snapshot, nil
}

// worker consumes the queue until ctx is cancelled.
func (m *ExportManager) worker(ctx context.Context, id int) {
	defer m.wg.Done()

	m.logger.Debug("export worker started", "worker", id)
	for {
		select {
		case <-ctx.Done():
			return
		case jobID := <-m.queue:
			m.metrics.SetQueueDepth(len(m.queue))
			m.runJob(ctx, jobID)
		}
	}
}

// runJob executes one job with panic isolation and a per-job timeout.
func (m *ExportManager) runJob(ctx context.Context, jobID string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("export worker panic", "job_id", jobID, "panic", r)
			m.fail(jobID, fmt.Errorf("internal error: %v", r))
		}
	}()

	if !m.transition(jobID, domain.JobStarted) {
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, m.jobTimeout)
	defer cancel()

	url, err := m.execute(jobCtx, jobID)
	if err != nil {
		m.fail(jobID, err)
		return
	}
	m.finish(jobID, url)
}

// execute produces and stores the track file, returning its download URL.
func (m *ExportManager) execute(ctx context.Context, jobID string) (string, error) {
	m.mu.RLock()
	job, ok := m.jobs[jobID]
	if !ok {
		m.mu.RUnlock()
		return "", domain.ErrJobNotFound
	}
	req := job.Request
	m.mu.RUnlock()

	route, err := m.store.GetRoute(ctx, req.RouteID)
	if err != nil {
		return "", &domain.JobError{JobID: jobID, Stage: "load_route", Err: err}
	}

	items, err := m.store.AmenitiesNearRoute(ctx, route, req.RadiusMeters, req.Filters)
	if err != nil {
		return "", &domain.JobError{JobID: jobID, Stage: "search", Err: err}
	}

	if len(req.POIIDs) > 0 {
		items = filterByID(items, req.POIIDs)
	}

	data, err := m.codec.Encode(route, items)
	if err != nil {
		return "", &domain.JobError{JobID: jobID, Stage: "encode", Err: err}
	}

	key := jobID + ".gpx"
	if err := m.files.Put(ctx, key, bytes.NewReader(data)); err != nil {
		m.metrics.IncStorageOperations("put", false)
		return "", &domain.JobError{JobID: jobID, Stage: "store", Err: err}
	}
	m.metrics.IncStorageOperations("put", true)

	return "/files/" + key, nil
}

// filterByID keeps only amenities whose ID is in the allow list, preserving
// distance order.
func filterByID(items []domain.SearchResult, ids []string) []domain.SearchResult {
	allowed := make(map[string]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}

	var out []domain.SearchResult
	for _, item := range items {
		if allowed[item.Amenity.ID] {
			out = append(out, item)
		}
	}
	return out
}

// transition moves a job to the given state if the state machine allows it.
func (m *ExportManager) transition(jobID string, to domain.JobStatus) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok || !job.Status.CanTransitionTo(to) {
		return false
	}

	job.Status = to
	now := m.now().UTC()
	switch to {
	case domain.JobStarted:
		job.StartedAt = &now
	case domain.JobFinished, domain.JobFailed:
		job.CompletedAt = &now
	}

	m.metrics.IncJob(string(to))
	return true
}

func (m *ExportManager) finish(jobID, url string) {
	m.mu.Lock()
	if job, ok := m.jobs[jobID]; ok && job.Status.CanTransitionTo(domain.JobFinished) {
		job.Status = domain.JobFinished
		job.FileURL = url
		now := m.now().UTC()
		job.CompletedAt = &now
		m.mu.Unlock()
		m.metrics.IncJob(string(domain.JobFinished))
		m.logger.Info("export job finished", "job_id", jobID, "file_url", url)
		return
	}
	m.mu.Unlock()
}

func (m *ExportManager) fail(jobID string, cause error) {
	m.mu.Lock()
	if job, ok := m.jobs[jobID]; ok && job.Status.CanTransitionTo(domain.JobFailed) {
		job.Status = domain.JobFailed
		job.ErrorDetail = cause.Error()
		now := m.now().UTC()
		job.CompletedAt = &now
		m.mu.Unlock()
		m.metrics.IncJob(string(domain.JobFailed))
		m.logger.Warn("export job failed", "job_id", jobID, "error", cause)
		return
	}
	m.mu.Unlock()
}
