// Package api assembles the HTTP surface of the ledger.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/api/handlers"
	"github.com/dvloznov/garden-ledger/internal/api/middleware"
	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/ledger"
	"github.com/dvloznov/garden-ledger/internal/store"
)

// Deps are the components the router serves. Summaries and Webhook may be nil.
type Deps struct {
	Parser    ledger.ExpenseParser
	Recorder  handlers.Recorder
	Repo      store.Repository
	Jobs      jobs.JobStore
	Summaries handlers.SummarySender
	Webhook   http.Handler
	Location  *time.Location

	// Reported by /health.
	StorageBackend string
	QueueBackend   string
	Semantic       bool
	Line           bool
}

// NewRouter returns the routed handler wrapped in the middleware chain.
func NewRouter(deps Deps, log zerolog.Logger) http.Handler {
	expensesHandler := handlers.NewExpensesHandler(deps.Parser, deps.Recorder, deps.Repo, log)
	summaryHandler := handlers.NewSummaryHandler(deps.Repo, deps.Location, log)
	categoriesHandler := handlers.NewCategoriesHandler()
	jobsHandler := handlers.NewJobsHandler(deps.Jobs, log)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/parse", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			expensesHandler.Parse(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/expenses", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			expensesHandler.ListExpenses(w, r)
		case http.MethodPost:
			expensesHandler.CreateExpense(w, r)
		default:
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/summary", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			summaryHandler.GetSummary(w, r)
		} else {
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

	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobsHandler.ListJobs(w, r)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			jobsHandler.GetJob(w, r, jobID)
		} else {
			middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	})

	if deps.Summaries != nil {
		lineHandler := handlers.NewLineSummaryHandler(deps.Summaries, log)

		mux.HandleFunc("/api/line/daily-summary", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				lineHandler.SendDaily(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})

		mux.HandleFunc("/api/line/monthly-summary", func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost {
				lineHandler.SendMonthly(w, r)
			} else {
				middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
			}
		})
	}

	if deps.Webhook != nil {
		mux.Handle("/webhook/line", deps.Webhook)
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"storage":   deps.StorageBackend,
			"queue":     deps.QueueBackend,
			"semantic":  deps.Semantic,
			"line":      deps.Line,
		})
	})

	return middleware.Chain(log, mux)
}
