package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/api/middleware"
	"github.com/dvloznov/garden-ledger/internal/scheduler"
)

// SummarySender pushes group summaries to LINE.
type SummarySender interface {
	SendDaily(ctx context.Context, day civil.Date) (bool, error)
	SendMonthly(ctx context.Context, year int, month time.Month) (bool, error)
	Today() civil.Date
}

// LineSummaryHandler triggers the scheduled summaries on demand.
type LineSummaryHandler struct {
	sender SummarySender
	log    zerolog.Logger
}

// NewLineSummaryHandler creates a new summary trigger handler.
func NewLineSummaryHandler(sender SummarySender, log zerolog.Logger) *LineSummaryHandler {
	return &LineSummaryHandler{sender: sender, log: log}
}

type summaryRequest struct {
	Date  string `json:"date"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
}

// decodeOptional reads an optional JSON body; an empty body is not an error.
func decodeOptional(w http.ResponseWriter, r *http.Request, v interface{}) error {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// SendDaily handles POST /api/line/daily-summary. The body may name a date;
// it defaults to today.
func (h *LineSummaryHandler) SendDaily(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeOptional(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	day := h.sender.Today()
	if req.Date != "" {
		d, err := civil.ParseDate(req.Date)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		day = d
	}

	sent, err := h.sender.SendDaily(r.Context(), day)
	h.respond(w, "daily", sent, err)
}

// SendMonthly handles POST /api/line/monthly-summary. The body may name a
// year and month; it defaults to the current month.
func (h *LineSummaryHandler) SendMonthly(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeOptional(w, r, &req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	today := h.sender.Today()
	year, month := today.Year, today.Month
	if req.Year != 0 || req.Month != 0 {
		if req.Year < 1 || req.Month < 1 || req.Month > 12 {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid year or month")
			return
		}
		year, month = req.Year, time.Month(req.Month)
	}

	sent, err := h.sender.SendMonthly(r.Context(), year, month)
	h.respond(w, "monthly", sent, err)
}

func (h *LineSummaryHandler) respond(w http.ResponseWriter, kind string, sent bool, err error) {
	switch {
	case errors.Is(err, scheduler.ErrNotConfigured):
		middleware.WriteError(w, http.StatusBadRequest, "LINE summary target not configured")
	case err != nil:
		h.log.Error().Err(err).Str("kind", kind).Msg("Failed to send summary")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to send summary")
	case !sent:
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"sent":    false,
			"message": "No expenses to summarize",
		})
	default:
		middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"sent":    true,
		})
	}
}
