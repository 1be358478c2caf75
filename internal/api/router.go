// Package api assembles the HTTP surface: routes, handlers and the
// middleware chain.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/api/handlers"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/api/middleware"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/jobs"
)

// Deps are the collaborators the router needs. Publisher, Jobs and Metrics
// are optional.
type Deps struct {
	Syncer    handlers.Syncer
	Query     handlers.Querier
	Publisher jobs.Publisher
	Jobs      jobs.JobStore
	Metrics   http.Handler
	APIToken  string
	Log       zerolog.Logger
}

// NewRouter returns the full handler including middleware.
func NewRouter(d Deps) http.Handler {
	syncHandler := handlers.NewSyncHandler(d.Syncer, d.Query, d.Publisher, d.Log)
	categoriesHandler := handlers.NewCategoriesHandler(d.Query, d.Log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/sync", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			syncHandler.Trigger(w, r)
		case http.MethodGet:
			syncHandler.Query(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			categoriesHandler.ListCategories(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/categories/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		id := strings.TrimPrefix(r.URL.Path, "/api/categories/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Category ID is required")
			return
		}
		categoriesHandler.GetCategory(w, r, id)
	})

	if d.Jobs != nil {
		jobsHandler := handlers.NewJobsHandler(d.Jobs, d.Log)

		mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				jobsHandler.ListJobs(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})

		mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
				return
			}
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		})
	}

	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(d.Log)(
		middleware.RequestID(
			middleware.Logger(d.Log)(
				middleware.CORS(
					middleware.Auth(d.APIToken)(mux),
				),
			),
		),
	)
}
