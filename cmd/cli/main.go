package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"
	_ "time/tzdata"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/dvloznov/garden-ledger/internal/app"
	"github.com/dvloznov/garden-ledger/internal/config"
	"github.com/dvloznov/garden-ledger/internal/expense"
	"github.com/dvloznov/garden-ledger/internal/gcsuploader"
	"github.com/dvloznov/garden-ledger/internal/logger"
	"github.com/dvloznov/garden-ledger/internal/reply"
	"github.com/dvloznov/garden-ledger/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.NewWithLevel(cfg.LogLevel)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "parse":
		runParse(cfg, log)
	case "summary":
		runSummary(cfg, log)
	case "categories":
		writeCategories(os.Stdout)
	case "inspect-output":
		runInspectOutput(cfg, log)
	case "sync-notion":
		runSyncNotion(cfg, log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Garden Ledger CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  parse           Parse a message and print the expense record")
	fmt.Println("  summary         Print spending per category for a date range")
	fmt.Println("  categories      List the expense categories")
	fmt.Println("  inspect-output  Print an archived model exchange from GCS")
	fmt.Println("  sync-notion     Backfill stored expenses into the Notion database")
	fmt.Println("  help            Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func initDeps(cfg *config.Config, log zerolog.Logger) (context.Context, context.CancelFunc, *app.Dependencies) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	ctx = logger.WithContext(ctx, log)

	deps, err := app.Init(ctx, cfg, log)
	if err != nil {
		cancel()
		log.Fatal().Err(err).Msg("Failed to initialize dependencies")
	}
	return ctx, func() {
		deps.Cleanup()
		cancel()
	}, deps
}

func runParse(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	text := fs.String("text", "", "Message text (or pass it as the argument)")
	at := fs.String("at", "", "Receive time in RFC3339 (defaults to now)")
	fs.Parse(os.Args[2:])

	if *text == "" {
		*text = strings.Join(fs.Args(), " ")
	}
	if strings.TrimSpace(*text) == "" {
		log.Fatal().Msg(`Usage: cli parse "<message>"`)
	}

	receivedAt := time.Now()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid -at, expected RFC3339")
		}
		receivedAt = t
	}

	ctx, done, deps := initDeps(cfg, log)
	defer done()

	rec, err := deps.Parser.Parse(ctx, *text, receivedAt)
	if err != nil {
		log.Fatal().Err(err).Msg("Parse failed")
	}

	out, err := json.MarshalIndent(map[string]interface{}{
		"record": rec,
		"date":   rec.DateString(),
		"source": rec.Source,
	}, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode record")
	}
	fmt.Println(string(out))
}

func runSummary(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	fromStr := fs.String("from", "", "Start date in YYYY-MM-DD format (defaults to today)")
	toStr := fs.String("to", "", "End date in YYYY-MM-DD format (defaults to from)")
	userID := fs.String("user", "", "Only this user's expenses")
	fs.Parse(os.Args[2:])

	ctx, done, deps := initDeps(cfg, log)
	defer done()

	today := civil.DateOf(time.Now().In(deps.Location))
	from, to, err := dateRange(*fromStr, *toStr, today)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}

	sum, err := deps.Repo.Summary(ctx, store.SummaryQuery{From: from, To: to, UserID: *userID})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to compute summary")
	}
	writeSummary(os.Stdout, sum)
}

func runInspectOutput(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("inspect-output", flag.ExitOnError)
	bucket := fs.String("bucket", cfg.ModelOutputBucket, "Archive bucket (or set MODEL_OUTPUT_BUCKET)")
	ref := fs.String("ref", "", "Object name in the bucket or gs://bucket/object URI")
	fs.Parse(os.Args[2:])

	if *ref == "" {
		log.Fatal().Msg("Error: -ref is required")
	}
	if *bucket == "" && !strings.HasPrefix(*ref, "gs://") {
		log.Fatal().Msg("Error: -bucket is required unless -ref is a gs:// URI")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	archive, err := gcsuploader.NewModelOutputArchive(ctx, *bucket)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create storage client")
	}
	defer archive.Close()

	out, err := archive.FetchModelOutput(ctx, *ref)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch model output")
	}
	writeModelOutput(os.Stdout, out)
}

func runSyncNotion(cfg *config.Config, log zerolog.Logger) {
	fs := flag.NewFlagSet("sync-notion", flag.ExitOnError)
	fromStr := fs.String("from", "", "Start date in YYYY-MM-DD format (required)")
	toStr := fs.String("to", "", "End date in YYYY-MM-DD format (defaults to from)")
	userID := fs.String("user", "", "Only this user's expenses")
	dryRun := fs.Bool("dry-run", false, "Dry run mode - preview changes without syncing")
	fs.Parse(os.Args[2:])

	if *fromStr == "" {
		log.Fatal().Msg("Error: -from is required")
	}
	if !cfg.NotionEnabled() {
		log.Fatal().Msg("Error: NOTION_TOKEN and NOTION_EXPENSES_DB must be set")
	}

	ctx, done, deps := initDeps(cfg, log)
	defer done()

	from, to, err := dateRange(*fromStr, *toStr, civil.Date{})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid date range")
	}

	res, err := deps.Mirror.SyncExpenses(ctx, deps.Repo, store.Filter{From: from, To: to, UserID: *userID}, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Sync failed")
	}

	fmt.Printf("Sync completed: %d created, %d skipped, %d failed.\n", res.Created, res.Skipped, res.Failed)
}

// dateRange parses the -from/-to flags. An empty from means fallback, an
// empty to means from.
func dateRange(fromStr, toStr string, fallback civil.Date) (civil.Date, civil.Date, error) {
	from := fallback
	if fromStr != "" {
		d, err := civil.ParseDate(fromStr)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid from date %q: %w", fromStr, err)
		}
		from = d
	}

	to := from
	if toStr != "" {
		d, err := civil.ParseDate(toStr)
		if err != nil {
			return civil.Date{}, civil.Date{}, fmt.Errorf("invalid to date %q: %w", toStr, err)
		}
		to = d
	}

	if to.Before(from) {
		return civil.Date{}, civil.Date{}, fmt.Errorf("to date %s is before from date %s", to, from)
	}
	return from, to, nil
}

func writeSummary(w io.Writer, sum *store.Summary) {
	fmt.Fprintf(w, "Period:  %s .. %s (%d days)\n", sum.From, sum.To, sum.Days())
	fmt.Fprintf(w, "Total:   %s THB in %d expenses\n", reply.Money(sum.Total), sum.Count)
	fmt.Fprintf(w, "Per day: %s THB\n\n", reply.Money(sum.DailyAverage()))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCATEGORY\tCOUNT\tTOTAL")
	for _, ct := range sum.Categories {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", ct.CategoryID, ct.Name, ct.Count, reply.Money(ct.Total))
	}
	tw.Flush()
}

func writeCategories(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSLUG")
	for _, c := range expense.Categories() {
		fmt.Fprintf(tw, "%d\t%s\t%s\n", c.ID, c.Name, c.Slug)
	}
	tw.Flush()
}

func writeModelOutput(w io.Writer, out *expense.ModelOutput) {
	fmt.Fprintln(w, "=== Model Output ===")
	fmt.Fprintf(w, "ID:       %s\n", out.ID)
	fmt.Fprintf(w, "Model:    %s\n", out.Model)
	fmt.Fprintf(w, "Created:  %s\n", out.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Message:  %s\n", out.Message)
	if out.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", out.Error)
	}
	fmt.Fprintf(w, "\n--- Prompt ---\n%s\n", out.Prompt)
	fmt.Fprintf(w, "\n--- Response ---\n%s\n", out.Response)
}
