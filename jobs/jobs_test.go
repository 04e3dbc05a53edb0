package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/odyssey-erp/bizops/internal/jobs"
)

type fakePurger struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (f *fakePurger) PurgeProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.rows, f.err
}

type fakeArchiver struct {
	tenants []string
	err     error
}

func (f *fakeArchiver) Archive(_ context.Context, tenantID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.tenants = append(f.tenants, tenantID)
	return "exports/" + tenantID + "/x.json", nil
}

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{Type: task.Type()}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestWebhookRetentionJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	purger := &fakePurger{rows: 7}
	job := NewWebhookRetentionJob(purger, nil, metrics)
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	job.clock = func() time.Time { return now }

	task, err := NewWebhookRetentionTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, now.Add(-48*time.Hour), purger.cutoff)

	count, err := testutil.GatherAndCount(reg, "bizops_job_items_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	purger.err = errors.New("db down")
	assert.Error(t, job.Handle(context.Background(), task))

	err = job.Handle(context.Background(), asynq.NewTask(TaskWebhookRetention, []byte(`{"retention":0}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewWebhookRetentionTask(0)
	assert.Error(t, err)
}

func TestExportArchiveJob(t *testing.T) {
	archiver := &fakeArchiver{}
	job := NewExportArchiveJob(archiver, nil, nil)

	task, err := NewExportArchiveTask(" t1 ")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"t1"}, archiver.tenants)

	err = job.Handle(context.Background(), asynq.NewTask(TaskExportArchive, []byte(`{}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	archiver.err = errors.New("s3 down")
	assert.Error(t, job.Handle(context.Background(), task))

	_, err = NewExportArchiveTask("")
	assert.Error(t, err)
}

func TestClientEnqueuesArchiveTask(t *testing.T) {
	enq := &fakeEnqueuer{}
	client := NewClientWith(enq)

	require.NoError(t, client.EnqueueExportArchive(context.Background(), "t9"))
	require.Len(t, enq.tasks, 1)
	assert.Equal(t, TaskExportArchive, enq.tasks[0].Type())
	var payload ExportArchivePayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, "t9", payload.TenantID)

	assert.Error(t, client.EnqueueExportArchive(context.Background(), ""))
	enq.err = errors.New("redis down")
	assert.Error(t, client.EnqueueExportArchive(context.Background(), "t9"))
}

func TestHealthHandler(t *testing.T) {
	cases := []struct {
		name      string
		inspector QueueInspector
		status    int
		body      string
	}{
		{"no queue", nil, http.StatusOK, `{"queue":"default","pending":0,"active":0,"retry":0}`},
		{"queue info", fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Active: 1}}, http.StatusOK, `{"queue":"default","pending":3,"active":1,"retry":0}`},
		{"redis down", fakeInspector{err: errors.New("dial")}, http.StatusServiceUnavailable, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := chi.NewRouter()
			NewHandler(tc.inspector, nil).MountRoutes(router)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.JSONEq(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestServeMuxRoutesRegisteredTypes(t *testing.T) {
	archiver := &fakeArchiver{}
	mux := newServeMux([]TaskHandler{
		{Type: TaskExportArchive, Handler: NewExportArchiveJob(archiver, nil, nil).Handle},
		{Type: "", Handler: nil},
	})
	task, err := NewExportArchiveTask("t1")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"t1"}, archiver.tenants)
}
