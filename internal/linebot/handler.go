package linebot

import (
	"context"
	"fmt"

	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/ledger"
	"github.com/dvloznov/garden-ledger/internal/logger"
)

// TextHandler answers one chat message.
type TextHandler interface {
	HandleText(ctx context.Context, msg ledger.Message) (string, error)
}

// NewJobHandler returns the worker function for message jobs: resolve the
// sender's name, run the ledger and send its reply. Jobs without a reply token
// are answered with a push to the sender.
func NewJobHandler(ledgerSvc TextHandler, messenger Messenger) jobs.JobHandler {
	return func(ctx context.Context, job *jobs.MessageJob) error {
		log := logger.FromContext(ctx)

		name := ledger.DefaultUserName
		if job.UserID != "" {
			if dn, err := messenger.DisplayName(ctx, job.UserID); err != nil {
				log.Warn().Err(err).Str("user_id", job.UserID).Msg("Failed to get LINE profile")
			} else if dn != "" {
				name = dn
			}
		}

		text, herr := ledgerSvc.HandleText(ctx, ledger.Message{
			UserID:     job.UserID,
			UserName:   name,
			Text:       job.Text,
			ReceivedAt: job.ReceivedAt,
		})
		if herr != nil {
			log.Error().Err(herr).Str("job_id", job.JobID).Msg("Failed to handle LINE message")
		}

		var serr error
		if job.ReplyToken != "" {
			serr = messenger.Reply(ctx, job.ReplyToken, text)
		} else {
			serr = messenger.Push(ctx, job.UserID, text)
		}

		switch {
		case herr != nil:
			return fmt.Errorf("handle message: %w", herr)
		case serr != nil:
			return fmt.Errorf("send reply: %w", serr)
		}
		return nil
	}
}
