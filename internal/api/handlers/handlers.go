package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/api/middleware"
	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/ledger"
	"github.com/dvloznov/garden-ledger/internal/store"
)

const maxBodyBytes = 64 << 10

// Recorder parses and stores one message as an expense.
type Recorder interface {
	Record(ctx context.Context, msg ledger.Message) (*store.Expense, error)
}

// ExpensesHandler handles parsing and expense endpoints.
type ExpensesHandler struct {
	parser   ledger.ExpenseParser
	recorder Recorder
	repo     store.Repository
	log      zerolog.Logger
	now      func() time.Time
}

// NewExpensesHandler creates a new expenses handler.
func NewExpensesHandler(parser ledger.ExpenseParser, recorder Recorder, repo store.Repository, log zerolog.Logger) *ExpensesHandler {
	return &ExpensesHandler{
		parser:   parser,
		recorder: recorder,
		repo:     repo,
		log:      log,
		now:      time.Now,
	}
}

type textRequest struct {
	Text       string    `json:"text"`
	UserID     string    `json:"user_id"`
	UserName   string    `json:"user_name"`
	ReceivedAt time.Time `json:"received_at"`
}

func decodeTextRequest(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	var req textRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		middleware.WriteError(w, http.StatusBadRequest, "text is required")
		return req, false
	}
	return req, true
}

// Parse handles POST /api/parse. Nothing is stored.
func (h *ExpensesHandler) Parse(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}

	receivedAt := req.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = h.now()
	}

	rec, err := h.parser.Parse(r.Context(), req.Text, receivedAt)
	if errors.Is(err, expense.ErrUnparsable) {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "No amount found in message")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to parse message")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to parse message")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"record": rec,
		"date":   rec.DateString(),
		"source": rec.Source,
	})
}

// CreateExpense handles POST /api/expenses
func (h *ExpensesHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTextRequest(w, r)
	if !ok {
		return
	}
	if req.UserID == "" {
		req.UserID = "api"
	}

	saved, err := h.recorder.Record(r.Context(), ledger.Message{
		UserID:     req.UserID,
		UserName:   req.UserName,
		Text:       req.Text,
		ReceivedAt: req.ReceivedAt,
	})
	if errors.Is(err, expense.ErrUnparsable) {
		middleware.WriteError(w, http.StatusUnprocessableEntity, "No amount found in message")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to record expense")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to record expense")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, saved)
}

// ListExpenses handles GET /api/expenses
func (h *ExpensesHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, to, err := parseDateRange(query)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := store.Filter{
		From:   from,
		To:     to,
		UserID: query.Get("user_id"),
		Limit:  parseIntParam(query, "limit"),
	}
	if raw := query.Get("category_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid category_id")
			return
		}
		filter.CategoryID = expense.CategoryID(id)
	}

	expenses, err := h.repo.ListExpenses(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list expenses")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list expenses")
		return
	}

	if expenses == nil {
		expenses = []*store.Expense{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"expenses": expenses,
		"count":    len(expenses),
	})
}

// SummaryHandler handles the summary endpoint.
type SummaryHandler struct {
	repo store.Repository
	loc  *time.Location
	log  zerolog.Logger
	now  func() time.Time
}

// NewSummaryHandler creates a new summary handler.
func NewSummaryHandler(repo store.Repository, loc *time.Location, log zerolog.Logger) *SummaryHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &SummaryHandler{repo: repo, loc: loc, log: log, now: time.Now}
}

// GetSummary handles GET /api/summary. Missing dates default to today.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	from, to, err := parseDateRange(query)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	today := civil.DateOf(h.now().In(h.loc))
	if store.IsZeroDate(from) {
		from = today
	}
	if store.IsZeroDate(to) {
		to = today
	}
	if to.Before(from) {
		middleware.WriteError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	sum, err := h.repo.Summary(r.Context(), store.SummaryQuery{
		From:   from,
		To:     to,
		UserID: query.Get("user_id"),
		Limit:  parseIntParam(query, "limit"),
	})
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to compute summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":       sum,
		"days":          sum.Days(),
		"daily_average": sum.DailyAverage().Round(2),
	})
}

// CategoriesHandler handles category-related endpoints.
type CategoriesHandler struct{}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler() *CategoriesHandler {
	return &CategoriesHandler{}
}

// ListCategories handles GET /api/categories
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := expense.Categories()
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
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
	if errors.Is(err, jobs.ErrJobNotFound) {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to get job")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		UserID: query.Get("user_id"),
		Status: jobs.JobStatus(query.Get("status")),
		Limit:  parseIntParam(query, "limit"),
		Offset: parseIntParam(query, "offset"),
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	if jobsList == nil {
		jobsList = []*jobs.MessageJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// parseDateRange reads optional from/to query parameters (YYYY-MM-DD).
func parseDateRange(query url.Values) (from, to civil.Date, err error) {
	if raw := query.Get("from"); raw != "" {
		if from, err = civil.ParseDate(raw); err != nil {
			return from, to, fmt.Errorf("Invalid from date %q", raw)
		}
	}
	if raw := query.Get("to"); raw != "" {
		if to, err = civil.ParseDate(raw); err != nil {
			return from, to, fmt.Errorf("Invalid to date %q", raw)
		}
	}
	return from, to, nil
}

func parseIntParam(query url.Values, key string) int {
	if raw := query.Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return 0
}
