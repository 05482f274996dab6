package bigquery

import (
	"context"
	"crypto/sha256"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/garden-ledger/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const schemaMigrationsTable = "schema_migrations"

// migrationPattern matches migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// Migration is a single schema migration file.
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// ParseMigrationFilename splits "0001_name.sql" into its version and name.
func ParseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationPattern.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	version, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return version, matches[2], true
}

// EmbeddedMigrations returns the migrations shipped with the binary.
func EmbeddedMigrations(ds Dataset) ([]Migration, error) {
	return ReadMigrations(migrationsFS, "migrations", ds)
}

// ReadMigrations loads the migration files in dir, ordered by version, with
// the {{PROJECT_ID}} and {{DATASET_ID}} placeholders substituted. Checksums
// are taken before substitution so they do not depend on the target dataset.
func ReadMigrations(fsys fs.FS, dir string, ds Dataset) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("ReadMigrations: reading %s: %w", dir, err)
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, name, ok := ParseMigrationFilename(entry.Name())
		if !ok {
			continue
		}
		if prev, dup := seen[version]; dup {
			return nil, fmt.Errorf("ReadMigrations: version %04d used by %s and %s", version, prev, entry.Name())
		}
		seen[version] = entry.Name()

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("ReadMigrations: reading %s: %w", entry.Name(), err)
		}

		sql := strings.ReplaceAll(string(content), "{{PROJECT_ID}}", ds.ProjectID)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", ds.DatasetID)

		migrations = append(migrations, Migration{
			Version:  version,
			Name:     name,
			Filename: entry.Name(),
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// PendingMigrations returns the migrations whose version is not yet applied.
func PendingMigrations(all []Migration, applied []AppliedMigration) []Migration {
	done := make(map[int]bool, len(applied))
	for _, am := range applied {
		done[am.Version] = true
	}

	var pending []Migration
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// MigrateWithClient applies every pending embedded migration and records it
// in schema_migrations. It returns the number applied.
func MigrateWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, appliedBy string) (int, error) {
	log := logger.FromContext(ctx)

	if err := ensureSchemaMigrationsTable(ctx, client, ds); err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	migrations, err := EmbeddedMigrations(ds)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	applied, err := appliedMigrationsWithClient(ctx, client, ds)
	if err != nil {
		return 0, fmt.Errorf("Migrate: %w", err)
	}

	pending := PendingMigrations(migrations, applied)
	log.Info().
		Int("found", len(migrations)).
		Int("applied", len(applied)).
		Int("pending", len(pending)).
		Msg("Checked schema migrations")

	for _, m := range pending {
		if err := runDDL(ctx, client, m.SQL); err != nil {
			return 0, fmt.Errorf("Migrate: %s: %w", m.Filename, err)
		}
		if err := recordMigration(ctx, client, ds, m, appliedBy); err != nil {
			return 0, fmt.Errorf("Migrate: record %s: %w", m.Filename, err)
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("Applied migration")
	}

	return len(pending), nil
}

func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client, ds Dataset) error {
	return runDDL(ctx, client, `
		CREATE TABLE IF NOT EXISTS `+ds.table(schemaMigrationsTable)+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`)
}

func appliedMigrationsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset) ([]AppliedMigration, error) {
	q := client.Query(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM ` + ds.table(schemaMigrationsTable) + `
		ORDER BY version ASC
	`)

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating applied migrations: %w", err)
		}

		applied = append(applied, AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		})
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, ds Dataset, m Migration, appliedBy string) error {
	q := client.Query(`
		INSERT INTO ` + ds.table(schemaMigrationsTable) + `
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`)
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}

	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	return status.Err()
}

func runDDL(ctx context.Context, client *bigquery.Client, sql string) error {
	job, err := client.Query(sql).Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}
	return nil
}
