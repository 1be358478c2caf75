package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/api/middleware"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/jobs"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/pipeline"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/query"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// Syncer runs category syncs and source/destination counts.
type Syncer interface {
	Sync(ctx context.Context, opts pipeline.SyncOptions) (*domain.SyncReport, error)
	CompareCounts(ctx context.Context, source string) (domain.Counts, error)
}

// Querier serves category reads.
type Querier interface {
	Find(ctx context.Context, p query.Params) ([]domain.NormalizedCategory, error)
	GetBySourceID(ctx context.Context, id int64) (*domain.NormalizedCategory, error)
}

// Sync trigger actions.
const (
	ActionSync  = "sync"
	ActionCount = "count"
)

// SyncRequest is the POST /api/sync body.
type SyncRequest struct {
	Action          string `json:"action" validate:"required,oneof=sync count"`
	Source          string `json:"source,omitempty"`
	Async           bool   `json:"async,omitempty"`
	DryRun          bool   `json:"dry_run,omitempty"`
	DeactivateStale bool   `json:"deactivate_stale,omitempty"`
}

var validate = validator.New()

// SyncHandler serves /api/sync.
type SyncHandler struct {
	syncer    Syncer
	query     Querier
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewSyncHandler creates a new sync handler. publisher may be nil, in which
// case async requests are rejected.
func NewSyncHandler(syncer Syncer, q Querier, publisher jobs.Publisher, log zerolog.Logger) *SyncHandler {
	return &SyncHandler{
		syncer:    syncer,
		query:     q,
		publisher: publisher,
		log:       log,
	}
}

// Trigger handles POST /api/sync
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req SyncRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, `action must be "sync" or "count"`)
		return
	}

	if req.Action == ActionCount {
		counts, err := h.syncer.CompareCounts(ctx, req.Source)
		if err != nil {
			h.log.Error().Err(err).Msg("Failed to compare counts")
			middleware.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"counts":  counts,
		})
		return
	}

	opts := pipeline.SyncOptions{
		Source:          req.Source,
		DryRun:          req.DryRun,
		DeactivateStale: req.DeactivateStale,
	}

	if req.Async {
		h.enqueue(w, r, opts)
		return
	}

	// A started run completes even if the client goes away; Syncer.Timeout bounds it.
	report, err := h.syncer.Sync(context.WithoutCancel(ctx), opts)
	if errors.Is(err, pipeline.ErrSyncInProgress) {
		middleware.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Category sync failed")
		if report == nil {
			middleware.WriteError(w, http.StatusInternalServerError, err.Error())
			return
		}
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
			"stats":   report,
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   report,
	})
}

func (h *SyncHandler) enqueue(w http.ResponseWriter, r *http.Request, opts pipeline.SyncOptions) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Async sync is not available")
		return
	}

	job := &jobs.SyncJob{
		Source:          opts.Source,
		DryRun:          opts.DryRun,
		DeactivateStale: opts.DeactivateStale,
	}
	if err := h.publisher.PublishSync(r.Context(), job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusServiceUnavailable, "Failed to enqueue sync job")
		return
	}

	middleware.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"job_id":  job.JobID,
		"status":  jobs.JobStatusPending,
	})
}

// Query handles GET /api/sync?main=&sub1=&id=
func (h *SyncHandler) Query(w http.ResponseWriter, r *http.Request) {
	listCategories(w, r, h.query, h.log)
}

// CategoriesHandler serves /api/categories.
type CategoriesHandler struct {
	query Querier
	log   zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(q Querier, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		query: q,
		log:   log,
	}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	listCategories(w, r, h.query, h.log)
}

// GetCategory handles GET /api/categories/{id}
func (h *CategoriesHandler) GetCategory(w http.ResponseWriter, r *http.Request, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		middleware.WriteError(w, http.StatusBadRequest, "Category ID must be a positive integer")
		return
	}

	category, err := h.query.GetBySourceID(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Category not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("source_id", id).Msg("Failed to get category")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get category")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    category,
	})
}

func listCategories(w http.ResponseWriter, r *http.Request, q Querier, log zerolog.Logger) {
	params, err := parseParams(r)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	categories, err := q.Find(r.Context(), params)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    categories,
		"count":   len(categories),
	})
}

var errBadID = errors.New("id must be a positive integer")

func parseParams(r *http.Request) (query.Params, error) {
	values := r.URL.Query()
	p := query.Params{
		Main: strings.TrimSpace(values.Get("main")),
		Sub1: strings.TrimSpace(values.Get("sub1")),
	}

	if raw := values.Get("id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return query.Params{}, errBadID
		}
		p.ID = id
	}
	if raw := values.Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			p.Limit = limit
		}
	}
	return p, nil
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err != nil {
		if !errors.Is(err, jobs.ErrJobNotFound) {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		}
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	filter := jobs.JobFilter{
		Status: jobs.JobStatus(values.Get("status")),
	}

	if limitStr := values.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := values.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// SyncJobHandler runs queued sync jobs through s.
func SyncJobHandler(s Syncer) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.SyncJob) (*domain.SyncReport, error) {
		return s.Sync(ctx, pipeline.SyncOptions{
			Source:          job.Source,
			DryRun:          job.DryRun,
			DeactivateStale: job.DeactivateStale,
		})
	}
}
