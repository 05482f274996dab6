package linebot

import (
	"encoding/json"
	"errors"
	"net/http"

	sdk "github.com/line/line-bot-sdk-go/v7/linebot"

	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

// WebhookHandler accepts LINE webhook calls. Text messages are queued as
// message jobs and the request is acknowledged without waiting for them.
type WebhookHandler struct {
	parser    EventParser
	publisher jobs.Publisher
}

// NewWebhookHandler creates the handler. A nil parser answers POSTs with 400.
func NewWebhookHandler(parser EventParser, publisher jobs.Publisher) *WebhookHandler {
	return &WebhookHandler{parser: parser, publisher: publisher}
}

type webhookStatus struct {
	Status     string `json:"status"`
	Configured bool   `json:"configured"`
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, webhookStatus{Status: "LINE Bot webhook is ready", Configured: h.parser != nil})
	case http.MethodPost:
		h.handleEvents(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (h *WebhookHandler) handleEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	if h.parser == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "LINE Bot not configured"})
		return
	}

	events, err := h.parser.ParseRequest(r)
	if err != nil {
		if errors.Is(err, sdk.ErrInvalidSignature) {
			log.Warn().Msg("Rejected LINE webhook with invalid signature")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid signature"})
			return
		}
		log.Error().Err(err).Msg("Failed to parse LINE webhook")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to parse webhook"})
		return
	}

	queued := 0
	for _, event := range events {
		job, ok := JobFromEvent(event)
		if !ok {
			continue
		}
		if err := h.publisher.PublishMessage(ctx, job); err != nil {
			log.Error().Err(err).Str("user_id", job.UserID).Msg("Failed to queue LINE message")
			continue
		}
		queued++
	}

	log.Debug().Int("events", len(events)).Int("queued", queued).Msg("LINE webhook handled")
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// JobFromEvent converts a text-message event into a message job. Other events
// are ignored.
func JobFromEvent(event *sdk.Event) (*jobs.MessageJob, bool) {
	if event == nil || event.Type != sdk.EventTypeMessage || event.Source == nil {
		return nil, false
	}
	msg, ok := event.Message.(*sdk.TextMessage)
	if !ok {
		return nil, false
	}
	return &jobs.MessageJob{
		UserID:     event.Source.UserID,
		ReplyToken: event.ReplyToken,
		Text:       msg.Text,
		ReceivedAt: event.Timestamp,
	}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
