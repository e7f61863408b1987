// Command migrate applies the BigQuery schema migrations for the
// export tables. Applied versions are tracked in a schema_migrations
// table so re-running is safe.
package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/davivargas/f-migration/internal/config"
	"github.com/davivargas/f-migration/internal/logger"
)

type migration struct {
	Version  int
	Name     string
	SQL      string
	Checksum string
}

func main() {
	projectFlag := flag.String("project", "", "GCP project ID (or FMIGRATION_GCP_PROJECT)")
	datasetFlag := flag.String("dataset", "", "BigQuery dataset ID (or FMIGRATION_BQ_DATASET)")
	dirFlag := flag.String("migrations", "migrations/bigquery", "path to migrations directory")
	appliedBy := flag.String("applied-by", "migrate-cli", "name recorded against applied migrations")
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	project, err := cfg.RequireProject(*projectFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving GCP project")
	}
	dataset := cfg.Dataset
	if *datasetFlag != "" {
		dataset = *datasetFlag
	}

	client, err := bigquery.NewClient(ctx, project)
	if err != nil {
		log.Fatal().Err(err).Msg("creating BigQuery client")
	}
	defer client.Close()

	log.Info().Str("project", project).Str("dataset", dataset).Msg("connected to BigQuery")

	if err := ensureMigrationsTable(ctx, client, project, dataset); err != nil {
		log.Fatal().Err(err).Msg("ensuring schema_migrations table")
	}

	migrations, err := readMigrations(*dirFlag, project, dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("reading migration files")
	}

	applied, err := appliedVersions(ctx, client, project, dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("reading applied migrations")
	}

	appliedCount := 0
	for _, m := range migrations {
		if applied[m.Version] {
			log.Info().Int("version", m.Version).Str("name", m.Name).Msg("already applied, skipping")
			continue
		}
		log.Info().Int("version", m.Version).Str("name", m.Name).Msg("applying migration")
		if err := runStatement(ctx, client, m.SQL, nil); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Msg("migration failed")
		}
		if err := recordMigration(ctx, client, project, dataset, m, *appliedBy); err != nil {
			log.Fatal().Err(err).Int("version", m.Version).Msg("recording migration failed")
		}
		appliedCount++
	}

	if appliedCount == 0 {
		log.Info().Msg("no new migrations, schema is up to date")
	} else {
		log.Info().Int("applied", appliedCount).Msg("migrations applied")
	}
}

var migrationFilePattern = regexp.MustCompile(`^(\d{4})_(.+)\.sql$`)

// readMigrations loads NNNN_name.sql files in version order, resolving
// the project/dataset placeholders. Checksums are computed over the
// original content so the same migration applied to another dataset
// keeps its identity.
func readMigrations(dir, project, dataset string) ([]migration, error) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, fmt.Errorf("migrations directory not found: %s", dir)
	}
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	var migrations []migration
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		matches := migrationFilePattern.FindStringSubmatch(file.Name())
		if matches == nil {
			continue
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, file.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file.Name(), err)
		}

		sql := string(content)
		sql = strings.ReplaceAll(sql, "{{PROJECT_ID}}", project)
		sql = strings.ReplaceAll(sql, "{{DATASET_ID}}", dataset)

		migrations = append(migrations, migration{
			Version:  version,
			Name:     matches[2],
			SQL:      sql,
			Checksum: fmt.Sprintf("%x", sha256.Sum256(content)),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

func ensureMigrationsTable(ctx context.Context, client *bigquery.Client, project, dataset string) error {
	sql := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS `+"`%s.%s.schema_migrations`"+` (
			version    INT64 NOT NULL,
			name       STRING NOT NULL,
			applied_at TIMESTAMP NOT NULL,
			checksum   STRING,
			applied_by STRING
		)
	`, project, dataset)
	return runStatement(ctx, client, sql, nil)
}

func appliedVersions(ctx context.Context, client *bigquery.Client, project, dataset string) (map[int]bool, error) {
	sql := fmt.Sprintf(`
		SELECT version FROM `+"`%s.%s.schema_migrations`"+` ORDER BY version ASC
	`, project, dataset)

	it, err := client.Query(sql).Read(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "Not found") {
			return map[int]bool{}, nil
		}
		return nil, fmt.Errorf("querying schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	for {
		var row struct {
			Version int64 `bigquery:"version"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating schema_migrations: %w", err)
		}
		applied[int(row.Version)] = true
	}
	return applied, nil
}

func recordMigration(ctx context.Context, client *bigquery.Client, project, dataset string, m migration, appliedBy string) error {
	sql := fmt.Sprintf(`
		INSERT INTO `+"`%s.%s.schema_migrations`"+`
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, project, dataset)

	params := []bigquery.QueryParameter{
		{Name: "version", Value: m.Version},
		{Name: "name", Value: m.Name},
		{Name: "checksum", Value: m.Checksum},
		{Name: "applied_by", Value: appliedBy},
	}
	return runStatement(ctx, client, sql, params)
}

func runStatement(ctx context.Context, client *bigquery.Client, sql string, params []bigquery.QueryParameter) error {
	query := client.Query(sql)
	query.Parameters = params

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
