package main

import (
	"context"
	"crypto/sha256"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"

	"github.com/dvloznov/spend-anomaly/internal/config"
	"github.com/dvloznov/spend-anomaly/internal/infra/postgres"
	"github.com/dvloznov/spend-anomaly/internal/logger"
)

//go:embed migrations/bigquery/*.sql
var bigqueryMigrations embed.FS

// Migration represents a single migration file
type Migration struct {
	Version  int
	Name     string
	Filename string
	SQL      string
	Checksum string
}

// AppliedMigration represents a migration that has already been applied
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
	Checksum  string
	AppliedBy string
}

// Pattern to match migration files: 0001_name.sql
var migrationPattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

var (
	configPath = flag.String("config", "", "Path to config file (default ./config.yaml)")
	backend    = flag.String("backend", "", "Store backend to migrate: bigquery or postgres (default from config)")
	projectID  = flag.String("project", "", "GCP project ID (default bigquery.project)")
	datasetID  = flag.String("dataset", "", "BigQuery dataset ID (default bigquery.dataset)")
	appliedBy  = flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
)

func main() {
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *backend == "" {
		*backend = cfg.Store.Backend
	}
	if *projectID == "" {
		*projectID = cfg.BigQuery.Project
	}
	if *datasetID == "" {
		*datasetID = cfg.BigQuery.Dataset
	}

	switch *backend {
	case config.BackendBigQuery:
		if err := migrateBigQuery(ctx, log); err != nil {
			log.Fatal().Err(err).Msg("BigQuery migration failed")
		}
	case config.BackendPostgres:
		if err := migratePostgres(ctx, cfg.Postgres.DSN); err != nil {
			log.Fatal().Err(err).Msg("Postgres migration failed")
		}
		log.Info().Msg("Postgres schema is up to date")
	default:
		log.Error().Str("backend", *backend).Msg("Nothing to migrate: backend must be bigquery or postgres")
		os.Exit(1)
	}
}

func migratePostgres(ctx context.Context, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	s, err := postgres.New(ctx, dsn)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.EnsureSchema(ctx)
}

func migrateBigQuery(ctx context.Context, log zerolog.Logger) error {
	if *projectID == "" || *datasetID == "" {
		return fmt.Errorf("-project and -dataset (or bigquery.project and bigquery.dataset) are required")
	}

	client, err := bigquery.NewClient(ctx, *projectID)
	if err != nil {
		return fmt.Errorf("failed to create BigQuery client: %w", err)
	}
	defer client.Close()

	log.Info().Str("project", *projectID).Str("dataset", *datasetID).Msg("Connected to BigQuery")

	if err := ensureSchemaMigrationsTable(ctx, client); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	migrations, err := readMigrations(bigqueryMigrations, "migrations/bigquery", *projectID, *datasetID)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	log.Info().Int("count", len(migrations)).Msg("Found migration files")

	appliedMigrations, err := getAppliedMigrations(ctx, client)
	if err != nil {
		return fmt.Errorf("failed to get applied migrations: %w", err)
	}
	log.Info().Int("count", len(appliedMigrations)).Msg("Found already applied migrations")

	pending, err := pendingMigrations(migrations, appliedMigrations)
	if err != nil {
		return err
	}

	for _, migration := range pending {
		mlog := log.With().Int("version", migration.Version).Str("name", migration.Name).Logger()
		mlog.Info().Msg("Applying migration")

		if err := runQuery(ctx, client.Query(migration.SQL)); err != nil {
			return fmt.Errorf("failed to execute migration %04d_%s: %w", migration.Version, migration.Name, err)
		}

		if err := recordMigration(ctx, client, migration); err != nil {
			return fmt.Errorf("failed to record migration %04d_%s: %w", migration.Version, migration.Name, err)
		}

		mlog.Info().Msg("Migration applied")
	}

	if len(pending) == 0 {
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	} else {
		log.Info().Int("applied", len(pending)).Msg("Successfully applied migrations")
	}
	return nil
}

// ensureSchemaMigrationsTable creates the schema_migrations table if it doesn't exist
func ensureSchemaMigrationsTable(ctx context.Context, client *bigquery.Client) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, *projectID, *datasetID)

	return runQuery(ctx, client.Query(sql))
}

// readMigrations reads all migration files under dir and fills in the
// project and dataset placeholders.
func readMigrations(fsys fs.FS, dir, project, dataset string) ([]Migration, error) {
	files, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []Migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		matches := migrationPattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}

		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}

		content, err := fs.ReadFile(fsys, dir+"/"+file.Name())
		if err != nil {
			return nil, fmt.Errorf("reading file %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		// Checksum the file before substitution so it is stable across datasets.
		migrations = append(migrations, Migration{
			Version:  version,
			Name:     matches[2],
			Filename: file.Name(),
			SQL:      sql,
			Checksum: checksum(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

func checksum(content []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(content))
}

// pendingMigrations returns the migrations not yet applied. An applied
// migration whose file changed since is an error.
func pendingMigrations(migrations []Migration, applied []AppliedMigration) ([]Migration, error) {
	appliedByVersion := make(map[int]AppliedMigration, len(applied))
	for _, am := range applied {
		appliedByVersion[am.Version] = am
	}

	var pending []Migration
	for _, m := range migrations {
		am, ok := appliedByVersion[m.Version]
		if !ok {
			pending = append(pending, m)
			continue
		}
		if am.Checksum != "" && am.Checksum != m.Checksum {
			return nil, fmt.Errorf("migration %04d_%s changed after it was applied", m.Version, m.Name)
		}
	}
	return pending, nil
}

// getAppliedMigrations retrieves the list of already applied migrations
func getAppliedMigrations(ctx context.Context, client *bigquery.Client) ([]AppliedMigration, error) {
	sql := fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM `+"`%s.%s.schema_migrations`"+`
		ORDER BY version ASC
	`, *projectID, *datasetID)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		// If table doesn't exist yet, return empty list
		if strings.Contains(err.Error(), "Not found") {
			return []AppliedMigration{}, nil
		}
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	var applied []AppliedMigration
	for {
		var row struct {
			Version   int64
			Name      string
			AppliedAt time.Time
			Checksum  bigquery.NullString
			AppliedBy bigquery.NullString
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		am := AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
		}
		if row.Checksum.Valid {
			am.Checksum = row.Checksum.StringVal
		}
		if row.AppliedBy.Valid {
			am.AppliedBy = row.AppliedBy.StringVal
		}

		applied = append(applied, am)
	}

	return applied, nil
}

// recordMigration records a successfully applied migration in schema_migrations
func recordMigration(ctx context.Context, client *bigquery.Client, migration Migration) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, *projectID, *datasetID)

	query := client.Query(sql)
	query.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: migration.Version},
		{Name: "name", Value: migration.Name},
		{Name: "checksum", Value: migration.Checksum},
		{Name: "applied_by", Value: *appliedBy},
	}

	return runQuery(ctx, query)
}

func runQuery(ctx context.Context, query *bigquery.Query) error {
	job, err := query.Run(ctx)
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
