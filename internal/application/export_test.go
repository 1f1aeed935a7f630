package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jobrunner/waypost/internal/domain"
	"github.com/jobrunner/waypost/internal/ports/output"
)

func newExportManager(store *mockSpatialStore, files *mockFileStore, codec *mockCodec, cfg ExportManagerConfig) *ExportManager {
	return NewExportManager(store, files, codec, &output.NoOpMetrics{}, testLogger(), cfg)
}

// waitForTerminal polls until the job reaches a terminal state.
func waitForTerminal(t *testing.T, m *ExportManager, jobID string) *domain.ExportJob {
	t.Helper()

	deadline := time.After(3 * time.Second)
	for {
		job, err := m.Status(context.Background(), jobID)
		if err != nil {
			t.Fatalf("Status() error = %v", err)
		}
		if job.Status.Terminal() {
			return job
		}
		select {
		case <-deadline:
			t.Fatalf("job %s stuck in state %s", jobID, job.Status)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestExportLifecycle(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	store.results = []domain.SearchResult{
		{Amenity: domain.Amenity{ID: "a1", Category: "cafe"}, DistanceMeters: 12},
	}
	files := newMockFileStore()
	codec := &mockCodec{}

	m := newExportManager(store, files, codec, ExportManagerConfig{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	jobID, err := m.Submit(ctx, domain.ExportRequest{RouteID: "route-1", RadiusMeters: 1000})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	job := waitForTerminal(t, m, jobID)
	if job.Status != domain.JobFinished {
		t.Fatalf("job status = %s, want finished (error: %s)", job.Status, job.ErrorDetail)
	}
	if job.FileURL != "/files/"+jobID+".gpx" {
		t.Errorf("file URL = %q, want /files/%s.gpx", job.FileURL, jobID)
	}
	if job.StartedAt == nil || job.CompletedAt == nil {
		t.Error("timestamps not recorded for finished job")
	}

	if _, ok := files.get(jobID + ".gpx"); !ok {
		t.Error("exported file not written to storage")
	}
}

func TestExportSubmitUnknownRouteCreatesNoJob(t *testing.T) {
	m := newExportManager(newMockStore(), newMockFileStore(), &mockCodec{}, ExportManagerConfig{})

	jobID, err := m.Submit(context.Background(), domain.ExportRequest{RouteID: "missing", RadiusMeters: 1000})
	if !errors.Is(err, domain.ErrRouteNotFound) {
		t.Fatalf("Submit() error = %v, want ErrRouteNotFound", err)
	}
	if jobID != "" {
		t.Errorf("Submit() returned job ID %q for failed validation", jobID)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.jobs) != 0 {
		t.Errorf("jobs map has %d entries, want 0", len(m.jobs))
	}
}

func TestExportSubmitRadiusValidation(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	m := newExportManager(store, newMockFileStore(), &mockCodec{}, ExportManagerConfig{})

	for _, radius := range []float64{0, -10, 60000} {
		if _, err := m.Submit(context.Background(), domain.ExportRequest{RouteID: "route-1", RadiusMeters: radius}); !errors.Is(err, domain.ErrRadiusOutOfRange) {
			t.Errorf("radius %v: error = %v, want ErrRadiusOutOfRange", radius, err)
		}
	}
}

func TestExportQueueFull(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)

	// Workers never started, so the queue only drains on overflow.
	m := newExportManager(store, newMockFileStore(), &mockCodec{}, ExportManagerConfig{Workers: 1, QueueSize: 1})

	ctx := context.Background()
	if _, err := m.Submit(ctx, domain.ExportRequest{RouteID: "route-1", RadiusMeters: 100}); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}

	_, err := m.Submit(ctx, domain.ExportRequest{RouteID: "route-1", RadiusMeters: 100})
	if !errors.Is(err, domain.ErrQueueFull) {
		t.Fatalf("second Submit() error = %v, want ErrQueueFull", err)
	}

	// The rejected submission must not leave a phantom job behind.
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.jobs) != 1 {
		t.Errorf("jobs map has %d entries, want 1", len(m.jobs))
	}
}

func TestExportIdenticalRequestsCreateIndependentJobs(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	files := newMockFileStore()

	m := newExportManager(store, files, &mockCodec{}, ExportManagerConfig{Workers: 1, QueueSize: 8})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	req := domain.ExportRequest{RouteID: "route-1", RadiusMeters: 500}
	first, err := m.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	second, err := m.Submit(ctx, req)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if first == second {
		t.Fatal("identical requests shared a job ID")
	}

	waitForTerminal(t, m, first)
	waitForTerminal(t, m, second)
}

func TestExportWorkerPanicFailsOnlyThatJob(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	codec := &mockCodec{panicMsg: "codec exploded"}

	m := newExportManager(store, newMockFileStore(), codec, ExportManagerConfig{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	failed, err := m.Submit(ctx, domain.ExportRequest{RouteID: "route-1", RadiusMeters: 500})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	job := waitForTerminal(t, m, failed)
	if job.Status != domain.JobFailed {
		t.Fatalf("job status = %s, want failed", job.Status)
	}
	if job.ErrorDetail == "" {
		t.Error("failed job has no error detail")
	}

	// The worker survived the panic and still serves new jobs.
	codec.panicMsg = ""
	ok, err := m.Submit(ctx, domain.ExportRequest{RouteID: "route-1", RadiusMeters: 500})
	if err != nil {
		t.Fatalf("Submit() after panic error = %v", err)
	}
	recovered := waitForTerminal(t, m, ok)
	if recovered.Status != domain.JobFinished {
		t.Errorf("job after panic status = %s, want finished", recovered.Status)
	}
}

func TestExportPOIFilter(t *testing.T) {
	store := newMockStore()
	storedRoute(t, store)
	store.results = []domain.SearchResult{
		{Amenity: domain.Amenity{ID: "keep", Category: "cafe"}, DistanceMeters: 5},
		{Amenity: domain.Amenity{ID: "drop", Category: "cafe"}, DistanceMeters: 8},
	}
	codec := &mockCodec{}

	m := newExportManager(store, newMockFileStore(), codec, ExportManagerConfig{Workers: 1, QueueSize: 4})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)

	jobID, err := m.Submit(ctx, domain.ExportRequest{
		RouteID:      "route-1",
		RadiusMeters: 500,
		POIIDs:       []string{"keep"},
	})
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	waitForTerminal(t, m, jobID)

	codec.mu.Lock()
	defer codec.mu.Unlock()
	if len(codec.encoded) != 1 || codec.encoded[0] != 1 {
		t.Errorf("codec encoded %v items, want one call with 1 item", codec.encoded)
	}
}

func TestExportStatusUnknownJob(t *testing.T) {
	m := newExportManager(newMockStore(), newMockFileStore(), &mockCodec{}, ExportManagerConfig{})

	if _, err := m.Status(context.Background(), "nope"); !errors.Is(err, domain.ErrJobNotFound) {
		t.Errorf("Status() error = %v, want ErrJobNotFound", err)
	}
}
