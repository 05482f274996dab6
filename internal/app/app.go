// Package app builds the ledger's components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/config"
	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/gcsuploader"
	infraBQ "github.com/dvloznov/garden-ledger/internal/infra/bigquery"
	"github.com/dvloznov/garden-ledger/internal/jobs"
	"github.com/dvloznov/garden-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/garden-ledger/internal/jobs/rabbitmq"
	"github.com/dvloznov/garden-ledger/internal/ledger"
	"github.com/dvloznov/garden-ledger/internal/linebot"
	"github.com/dvloznov/garden-ledger/internal/notionsync"
	"github.com/dvloznov/garden-ledger/internal/store"
	"github.com/dvloznov/garden-ledger/internal/store/memory"
	"github.com/dvloznov/garden-ledger/internal/store/sqlite"
)

// Dependencies holds the components shared by the binaries.
type Dependencies struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Location *time.Location

	Repo     store.Repository
	Archive  expense.ModelOutputSink // nil when no archive is configured
	Parser   *expense.Parser
	Mirror   *notionsync.Mirror // nil when Notion is not configured
	Ledger   *ledger.Service
	Line     *linebot.Client // nil when LINE is not configured
	JobStore *inmemory.Store

	closers []io.Closer
}

// Init builds every dependency. On error, anything already opened is closed.
func Init(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	d := &Dependencies{
		Config:   cfg,
		Logger:   log,
		JobStore: inmemory.NewStore(),
	}

	if err := d.init(ctx); err != nil {
		d.Cleanup()
		return nil, err
	}

	log.Info().
		Str("storage", cfg.StorageBackend).
		Str("queue", cfg.QueueBackend).
		Bool("semantic", cfg.SemanticEnabled()).
		Bool("line", d.Line != nil).
		Bool("notion", d.Mirror != nil).
		Bool("archive", d.Archive != nil).
		Msg("All dependencies initialized")
	return d, nil
}

func (d *Dependencies) init(ctx context.Context) error {
	loc, err := d.Config.Location()
	if err != nil {
		return fmt.Errorf("Init: %w", err)
	}
	d.Location = loc

	repo, err := NewRepository(ctx, d.Config)
	if err != nil {
		return fmt.Errorf("Init: %w", err)
	}
	d.Repo = repo
	d.closers = append(d.closers, repo)

	if err := d.initArchive(ctx); err != nil {
		return fmt.Errorf("Init: %w", err)
	}

	if err := d.initParser(ctx); err != nil {
		return fmt.Errorf("Init: %w", err)
	}

	if d.Config.NotionEnabled() {
		d.Mirror = notionsync.NewMirror(notionsync.NewClient(d.Config.NotionToken, 10*time.Second), d.Config.NotionExpensesDB)
	}

	if d.Mirror != nil {
		d.Ledger = ledger.NewService(d.Parser, d.Repo, d.Mirror, d.Location)
	} else {
		d.Ledger = ledger.NewService(d.Parser, d.Repo, nil, d.Location)
	}

	if d.Config.LineEnabled() {
		line, err := linebot.NewClient(d.Config.LineChannelSecret, d.Config.LineChannelAccessToken)
		if err != nil {
			return fmt.Errorf("Init: %w", err)
		}
		d.Line = line
	}

	return nil
}

// NewRepository opens the configured storage backend.
func NewRepository(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	switch cfg.StorageBackend {
	case config.StorageMemory, "":
		return memory.NewRepository(), nil
	case config.StorageSQLite:
		repo, err := sqlite.NewRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("NewRepository: %w", err)
		}
		return repo, nil
	case config.StorageBigQuery:
		repo, err := infraBQ.NewExpenseRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("NewRepository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("NewRepository: unknown storage backend %q", cfg.StorageBackend)
	}
}

// initArchive collects the model output sinks: the GCS bucket when set and
// the BigQuery repository when it is the storage backend.
func (d *Dependencies) initArchive(ctx context.Context) error {
	var sinks MultiSink

	if d.Config.ModelOutputBucket != "" {
		archive, err := gcsuploader.NewModelOutputArchive(ctx, d.Config.ModelOutputBucket)
		if err != nil {
			return err
		}
		d.closers = append(d.closers, archive)
		sinks = append(sinks, archive)
	}
	if sink, ok := d.Repo.(expense.ModelOutputSink); ok {
		sinks = append(sinks, sink)
	}

	switch len(sinks) {
	case 0:
	case 1:
		d.Archive = sinks[0]
	default:
		d.Archive = sinks
	}
	return nil
}

func (d *Dependencies) initParser(ctx context.Context) error {
	var interp expense.Interpreter
	if d.Config.SemanticEnabled() {
		completer, err := expense.NewGeminiCompleter(ctx, d.Config.GeminiAPIKey, d.Config.GeminiModel)
		if err != nil {
			return err
		}
		interp = expense.NewSemanticInterpreter(completer, expense.SemanticConfig{
			Model:   completer.Model(),
			Timeout: d.Config.GeminiTimeout,
			Archive: d.Archive,
		})
	} else {
		d.Logger.Warn().Msg("GEMINI_API_KEY not set, every message uses the fallback parser")
	}

	d.Parser = expense.NewParser(interp, d.Location)
	return nil
}

// Messenger returns the LINE client as a Messenger, or nil.
func (d *Dependencies) Messenger() linebot.Messenger {
	if d.Line == nil {
		return nil
	}
	return d.Line
}

// EventParser returns the LINE client as an EventParser, or nil.
func (d *Dependencies) EventParser() linebot.EventParser {
	if d.Line == nil {
		return nil
	}
	return d.Line
}

// Queue is a job publisher that may also consume.
type Queue interface {
	jobs.Publisher
	jobs.Consumer
}

// NewQueue opens the configured job queue. Jobs are recorded in d.JobStore.
func (d *Dependencies) NewQueue() (Queue, error) {
	switch d.Config.QueueBackend {
	case config.QueueMemory, "":
		return inmemory.NewQueue(d.Config.QueueSize, d.Config.WorkerCount, d.JobStore), nil
	case config.QueueAMQP:
		q, err := rabbitmq.Dial(d.Config.AMQPURL, d.Config.AMQPExchange, d.Config.AMQPQueue, d.Config.WorkerCount, d.JobStore)
		if err != nil {
			return nil, fmt.Errorf("NewQueue: %w", err)
		}
		return q, nil
	default:
		return nil, fmt.Errorf("NewQueue: unknown queue backend %q", d.Config.QueueBackend)
	}
}

// Cleanup closes all resources in reverse order of creation.
func (d *Dependencies) Cleanup() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.Logger.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	d.closers = nil
}

// MultiSink saves a model output to every sink and joins their errors.
type MultiSink []expense.ModelOutputSink

// SaveModelOutput implements expense.ModelOutputSink.
func (m MultiSink) SaveModelOutput(ctx context.Context, out *expense.ModelOutput) error {
	var errs []error
	for _, sink := range m {
		if err := sink.SaveModelOutput(ctx, out); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
