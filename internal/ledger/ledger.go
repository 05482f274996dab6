// Package ledger turns incoming chat text into stored expenses and replies.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/logger"
	"github.com/dvloznov/garden-ledger/internal/reply"
	"github.com/dvloznov/garden-ledger/internal/store"
)

// DefaultUserName is used when the sender's display name is unknown.
const DefaultUserName = "ผู้ใช้"

var (
	summaryCommands = map[string]bool{"สรุปวันนี้": true, "สรุป": true, "summary": true}
	helpCommands    = map[string]bool{"help": true, "ช่วย": true, "ช่วยเหลือ": true, "วิธีใช้": true}
)

// Message is one chat message from a user.
type Message struct {
	UserID     string
	UserName   string
	Text       string
	ReceivedAt time.Time
}

// ExpenseParser turns raw text into an expense record.
type ExpenseParser interface {
	Parse(ctx context.Context, raw string, receivedAt time.Time) (*expense.ExpenseRecord, error)
}

// Mirror copies saved expenses to a secondary destination.
type Mirror interface {
	MirrorExpense(ctx context.Context, e *store.Expense) error
}

// Service answers chat messages: commands, or expenses to record.
type Service struct {
	parser ExpenseParser
	repo   store.Repository
	mirror Mirror
	loc    *time.Location
	now    func() time.Time
}

// NewService wires the ledger. mirror may be nil; a nil loc means Asia/Bangkok.
func NewService(parser ExpenseParser, repo store.Repository, mirror Mirror, loc *time.Location) *Service {
	if loc == nil {
		loc = expense.LoadLocation(expense.DefaultLocation)
	}
	return &Service{parser: parser, repo: repo, mirror: mirror, loc: loc, now: time.Now}
}

// HandleText returns the reply for msg. The reply is always usable; a non-nil
// error is returned alongside the generic error reply for logging.
func (s *Service) HandleText(ctx context.Context, msg Message) (string, error) {
	command := strings.ToLower(strings.TrimSpace(msg.Text))

	switch {
	case summaryCommands[command]:
		return s.todaySummary(ctx, msg)
	case helpCommands[command]:
		return reply.Help(), nil
	}

	saved, err := s.Record(ctx, msg)
	switch {
	case errors.Is(err, expense.ErrUnparsable):
		return reply.Unparsable, nil
	case err != nil:
		return reply.GenericError, err
	}
	return reply.Saved(saved), nil
}

// Record parses msg, stores the expense and mirrors it. Mirror failures are
// logged and do not fail the call.
func (s *Service) Record(ctx context.Context, msg Message) (*store.Expense, error) {
	log := logger.FromContext(ctx)

	receivedAt := msg.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = s.now()
	}

	raw := strings.TrimSpace(msg.Text)
	rec, err := s.parser.Parse(ctx, raw, receivedAt)
	if err != nil {
		return nil, err
	}

	userName := msg.UserName
	if userName == "" {
		userName = DefaultUserName
	}

	saved, err := s.repo.SaveExpense(ctx, store.FromRecord(rec, msg.UserID, userName, raw))
	if err != nil {
		return nil, fmt.Errorf("Record: save expense: %w", err)
	}

	log.Info().
		Str("expense_id", saved.ID).
		Str("user_id", saved.UserID).
		Str("category", saved.CategoryName).
		Str("amount", saved.Amount.String()).
		Str("source", string(saved.Source)).
		Msg("Expense recorded")

	if s.mirror != nil {
		if err := s.mirror.MirrorExpense(ctx, saved); err != nil {
			log.Warn().Err(err).Str("expense_id", saved.ID).Msg("Failed to mirror expense")
		}
	}

	return saved, nil
}

func (s *Service) todaySummary(ctx context.Context, msg Message) (string, error) {
	at := msg.ReceivedAt
	if at.IsZero() {
		at = s.now()
	}
	today := civil.DateOf(at.In(s.loc))

	sum, err := s.repo.Summary(ctx, store.SummaryQuery{
		From:   today,
		To:     today,
		UserID: msg.UserID,
		Limit:  reply.PersonalSummaryLimit,
	})
	if err != nil {
		return reply.GenericError, fmt.Errorf("todaySummary: %w", err)
	}
	if sum.Count == 0 {
		return reply.NoExpensesToday, nil
	}
	return reply.PersonalSummary(sum, today), nil
}
