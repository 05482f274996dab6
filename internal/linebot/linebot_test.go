package linebot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdk "github.com/line/line-bot-sdk-go/v7/linebot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/ledger"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

// MockEventParser implements EventParser.
type MockEventParser struct {
	ParseRequestFunc func(r *http.Request) ([]*sdk.Event, error)
}

func (m *MockEventParser) ParseRequest(r *http.Request) ([]*sdk.Event, error) {
	return m.ParseRequestFunc(r)
}

// MockPublisher implements jobs.Publisher.
type MockPublisher struct {
	Published []*jobs.MessageJob
	Err       error
}

func (m *MockPublisher) PublishMessage(ctx context.Context, job *jobs.MessageJob) error {
	if m.Err != nil {
		return m.Err
	}
	m.Published = append(m.Published, job)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

// MockMessenger implements Messenger.
type MockMessenger struct {
	DisplayNameFunc func(ctx context.Context, userID string) (string, error)
	ReplyErr        error

	Replies map[string]string
	Pushes  map[string]string
}

func (m *MockMessenger) Reply(ctx context.Context, replyToken, text string) error {
	if m.Replies == nil {
		m.Replies = map[string]string{}
	}
	m.Replies[replyToken] = text
	return m.ReplyErr
}

func (m *MockMessenger) Push(ctx context.Context, to, text string) error {
	if m.Pushes == nil {
		m.Pushes = map[string]string{}
	}
	m.Pushes[to] = text
	return nil
}

func (m *MockMessenger) DisplayName(ctx context.Context, userID string) (string, error) {
	if m.DisplayNameFunc != nil {
		return m.DisplayNameFunc(ctx, userID)
	}
	return "", nil
}

// MockTextHandler implements TextHandler.
type MockTextHandler struct {
	HandleTextFunc func(ctx context.Context, msg ledger.Message) (string, error)
	Got            []ledger.Message
}

func (m *MockTextHandler) HandleText(ctx context.Context, msg ledger.Message) (string, error) {
	m.Got = append(m.Got, msg)
	return m.HandleTextFunc(ctx, msg)
}

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.NewWithWriter(io.Discard))
}

func textEvent(userID, token, text string) *sdk.Event {
	return &sdk.Event{
		Type:       sdk.EventTypeMessage,
		ReplyToken: token,
		Source:     &sdk.EventSource{Type: sdk.EventSourceTypeUser, UserID: userID},
		Timestamp:  time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC),
		Message:    &sdk.TextMessage{Text: text},
	}
}

func TestWebhook_QueuesTextMessages(t *testing.T) {
	parser := &MockEventParser{ParseRequestFunc: func(r *http.Request) ([]*sdk.Event, error) {
		return []*sdk.Event{
			textEvent("U1", "rt-1", "ปุ๋ย 800"),
			{Type: sdk.EventTypeFollow, Source: &sdk.EventSource{UserID: "U2"}},
			{Type: sdk.EventTypeMessage, Source: &sdk.EventSource{UserID: "U3"}, Message: &sdk.StickerMessage{}},
		}, nil
	}}
	pub := &MockPublisher{}

	req := httptest.NewRequest(http.MethodPost, "/webhook/line", strings.NewReader("{}")).WithContext(quietContext())
	rec := httptest.NewRecorder()
	NewWebhookHandler(parser, pub).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, pub.Published, 1)
	job := pub.Published[0]
	assert.Equal(t, "U1", job.UserID)
	assert.Equal(t, "rt-1", job.ReplyToken)
	assert.Equal(t, "ปุ๋ย 800", job.Text)
	assert.Equal(t, time.Date(2025, 3, 10, 5, 0, 0, 0, time.UTC), job.ReceivedAt)
}

func TestWebhook_Errors(t *testing.T) {
	tests := []struct {
		name     string
		parser   EventParser
		method   string
		wantCode int
	}{
		{
			name:     "invalid signature",
			parser:   &MockEventParser{ParseRequestFunc: func(r *http.Request) ([]*sdk.Event, error) { return nil, sdk.ErrInvalidSignature }},
			method:   http.MethodPost,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "malformed body",
			parser:   &MockEventParser{ParseRequestFunc: func(r *http.Request) ([]*sdk.Event, error) { return nil, errors.New("unexpected EOF") }},
			method:   http.MethodPost,
			wantCode: http.StatusInternalServerError,
		},
		{
			name:     "not configured",
			method:   http.MethodPost,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "wrong method",
			method:   http.MethodDelete,
			wantCode: http.StatusMethodNotAllowed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &MockPublisher{}
			req := httptest.NewRequest(tt.method, "/webhook/line", nil).WithContext(quietContext())
			rec := httptest.NewRecorder()

			NewWebhookHandler(tt.parser, pub).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Empty(t, pub.Published)
		})
	}
}

func TestWebhook_GetReportsReadiness(t *testing.T) {
	rec := httptest.NewRecorder()
	NewWebhookHandler(nil, &MockPublisher{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook/line", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"LINE Bot webhook is ready","configured":false}`, rec.Body.String())
}

func TestJobHandler_RepliesWithLedgerText(t *testing.T) {
	messenger := &MockMessenger{DisplayNameFunc: func(ctx context.Context, userID string) (string, error) {
		return "สมชาย", nil
	}}
	svc := &MockTextHandler{HandleTextFunc: func(ctx context.Context, msg ledger.Message) (string, error) {
		return "✅ บันทึกแล้ว!", nil
	}}

	err := NewJobHandler(svc, messenger)(quietContext(), &jobs.MessageJob{UserID: "U1", ReplyToken: "rt", Text: "ปุ๋ย 800"})
	require.NoError(t, err)

	require.Len(t, svc.Got, 1)
	assert.Equal(t, "สมชาย", svc.Got[0].UserName)
	assert.Equal(t, "✅ บันทึกแล้ว!", messenger.Replies["rt"])
}

func TestJobHandler_DefaultNameAndPush(t *testing.T) {
	messenger := &MockMessenger{DisplayNameFunc: func(ctx context.Context, userID string) (string, error) {
		return "", errors.New("profile not found")
	}}
	svc := &MockTextHandler{HandleTextFunc: func(ctx context.Context, msg ledger.Message) (string, error) {
		return "ok", nil
	}}

	err := NewJobHandler(svc, messenger)(quietContext(), &jobs.MessageJob{UserID: "U1", Text: "help"})
	require.NoError(t, err)

	assert.Equal(t, ledger.DefaultUserName, svc.Got[0].UserName)
	assert.Equal(t, "ok", messenger.Pushes["U1"])
}

func TestJobHandler_LedgerErrorStillReplies(t *testing.T) {
	messenger := &MockMessenger{}
	svc := &MockTextHandler{HandleTextFunc: func(ctx context.Context, msg ledger.Message) (string, error) {
		return "❌ เกิดข้อผิดพลาด", errors.New("db locked")
	}}

	err := NewJobHandler(svc, messenger)(quietContext(), &jobs.MessageJob{UserID: "U1", ReplyToken: "rt", Text: "ปุ๋ย 800"})
	assert.ErrorContains(t, err, "db locked")
	assert.Equal(t, "❌ เกิดข้อผิดพลาด", messenger.Replies["rt"])
}

func TestJobHandler_ReplyFailure(t *testing.T) {
	messenger := &MockMessenger{ReplyErr: errors.New("invalid reply token")}
	svc := &MockTextHandler{HandleTextFunc: func(ctx context.Context, msg ledger.Message) (string, error) {
		return "ok", nil
	}}

	err := NewJobHandler(svc, messenger)(quietContext(), &jobs.MessageJob{UserID: "U1", ReplyToken: "rt", Text: "x"})
	assert.ErrorContains(t, err, "invalid reply token")
}
