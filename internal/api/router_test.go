package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/jobs"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/jobs/inmemory"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/metrics"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/pipeline"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/query"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

type stubSyncer struct{}

func (stubSyncer) Sync(context.Context, pipeline.SyncOptions) (*domain.SyncReport, error) {
	return &domain.SyncReport{ErrorDetails: []domain.RecordError{}}, nil
}

func (stubSyncer) CompareCounts(context.Context, string) (domain.Counts, error) {
	return domain.Counts{}, nil
}

type stubQuerier struct{}

func (stubQuerier) Find(context.Context, query.Params) ([]domain.NormalizedCategory, error) {
	return []domain.NormalizedCategory{}, nil
}

func (stubQuerier) GetBySourceID(_ context.Context, id int64) (*domain.NormalizedCategory, error) {
	if id == 7 {
		return &domain.NormalizedCategory{SourceID: 7}, nil
	}
	return nil, store.ErrNotFound
}

func newTestRouter(t *testing.T, token string) (http.Handler, *inmemory.Store) {
	t.Helper()
	jobStore := inmemory.NewStore()
	require.NoError(t, jobStore.SaveJob(context.Background(), &jobs.SyncJob{
		JobID: "job-1", Status: jobs.JobStatusCompleted, CreatedAt: time.Now(),
	}))

	reg := metrics.NewRegistry()
	metrics.New(reg).ObserveQuery(query.OpAll)

	return NewRouter(Deps{
		Syncer:   stubSyncer{},
		Query:    stubQuerier{},
		Jobs:     jobStore,
		Metrics:  metrics.Handler(reg),
		APIToken: token,
		Log:      zerolog.Nop(),
	}), jobStore
}

func TestRouter_Routes(t *testing.T) {
	h, _ := newTestRouter(t, "")

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/sync", http.StatusOK},
		{http.MethodDelete, "/api/sync", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/categories", http.StatusOK},
		{http.MethodPost, "/api/categories", http.StatusMethodNotAllowed},
		{http.MethodGet, "/api/categories/7", http.StatusOK},
		{http.MethodGet, "/api/categories/8", http.StatusNotFound},
		{http.MethodGet, "/api/categories/", http.StatusBadRequest},
		{http.MethodGet, "/api/jobs", http.StatusOK},
		{http.MethodGet, "/api/jobs/job-1", http.StatusOK},
		{http.MethodGet, "/api/jobs/missing", http.StatusNotFound},
		{http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_MetricsExposed(t *testing.T) {
	h, _ := newTestRouter(t, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), `category_query_requests_total{operation="all"} 1`)
}

func TestRouter_Auth(t *testing.T) {
	h, _ := newTestRouter(t, "secret")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/categories", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/categories", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
