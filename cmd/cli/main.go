// Command cli is the migration-readiness evaluator: it loads an
// accounting export through a format adapter, validates the canonical
// tables, flags anomalous amounts and prints the risk report.
//
// Exit codes from evaluate: 0 LOW risk, 2 MEDIUM, 3 HIGH; 1 for fatal
// errors. CI relies on the three-way distinction.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/davivargas/f-migration/internal/adapters"
	"github.com/davivargas/f-migration/internal/anomaly"
	"github.com/davivargas/f-migration/internal/config"
	"github.com/davivargas/f-migration/internal/gcstore"
	infra "github.com/davivargas/f-migration/internal/infra/bigquery"
	"github.com/davivargas/f-migration/internal/logger"
	"github.com/davivargas/f-migration/internal/report"
	"github.com/davivargas/f-migration/internal/run"
	"github.com/davivargas/f-migration/internal/tabular"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "evaluate":
		os.Exit(runEvaluate(log, os.Args[2:]))
	case "upload":
		runUpload(log, os.Args[2:])
	case "runs":
		runRuns(log, os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Migration-Readiness Evaluator")
	fmt.Println("\nUsage:")
	fmt.Println("  f-migration <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  evaluate  Load, validate and score an accounting export")
	fmt.Println("  upload    Upload a report or data file to GCS")
	fmt.Println("  runs      List recent evaluation runs from BigQuery")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'f-migration <command> -h' for command options.")
}

func runEvaluate(log zerolog.Logger, args []string) int {
	fs := flag.NewFlagSet("evaluate", flag.ExitOnError)
	format := fs.String("format", "simple", "input format: simple, kaggle or govgl")
	input := fs.String("input", "data", "input path: folder for simple, CSV file or gs:// URI otherwise")
	currency := fs.String("currency", "", "currency stamped on rows for sources without one")
	zThreshold := fs.Float64("z", anomaly.DefaultZThreshold, "modified z-score threshold for amount anomalies")
	topN := fs.Int("top-n", 0, "use top-N inspection mode instead of the statistical test (0 = disabled)")
	withStress := fs.Bool("stress", false, "inject deterministic defects before validation")
	keepBadRows := fs.Bool("keep-bad-rows", false, "retain rows with unparsable dates/amounts instead of dropping them")
	dropMissingAccounts := fs.Bool("drop-missing-accounts", false, "drop rows missing grouping-key fields instead of bucketing them as UNKNOWN")
	jsonPath := fs.String("json", "", "write the JSON report to this path")
	outDir := fs.String("out-dir", "", "write the canonical tables as CSV into this directory")
	uploadURI := fs.String("upload", "", "upload the JSON report to this gs:// URI")
	export := fs.Bool("export", false, "export the run and canonical tables to BigQuery")
	project := fs.String("project", "", "GCP project for --export (or FMIGRATION_GCP_PROJECT)")
	fs.Parse(args)

	ctx := logger.WithContext(context.Background(), log)
	startedAt := time.Now()
	runID := uuid.NewString()
	log = log.With().Str("run_id", runID).Logger()
	ctx = logger.WithContext(ctx, log)

	adapter, err := adapterFor(*format, *currency, !*keepBadRows, !*dropMissingAccounts)
	if err != nil {
		log.Error().Err(err).Msg("invalid arguments")
		return 1
	}

	state := &run.State{RunID: runID, Input: *input}
	pipeline := run.NewEvaluationPipeline(adapter, *withStress, *zThreshold, *topN)
	if err := pipeline.Execute(ctx, state); err != nil {
		logFatalLoad(log, err)
		return 1
	}

	fmt.Println(report.Format(state.Summary))

	document := report.BuildDocument(state.Summary, state.Stats, runID)
	if err := writeOutputs(ctx, document, state, *jsonPath, *outDir, *uploadURI); err != nil {
		log.Error().Err(err).Msg("writing outputs")
		return 1
	}

	if *export {
		if err := exportRun(ctx, *project, *format, *input, state, startedAt); err != nil {
			log.Error().Err(err).Msg("exporting run to BigQuery")
			return 1
		}
	}

	return state.Summary.Risk.ExitCode()
}

// adapterFor builds the format adapter from the evaluate flags.
func adapterFor(format, currency string, dropBadRows, bucketMissingAccounts bool) (adapters.Adapter, error) {
	switch format {
	case "simple":
		return adapters.NewSimpleCSVAdapter(), nil
	case "kaggle":
		return adapters.NewKaggleAdapter(adapters.KaggleOptions{
			DefaultCurrency: currency,
			DropBadRows:     dropBadRows,
		}), nil
	case "govgl":
		return adapters.NewGovGLAdapter(adapters.GovGLOptions{
			Currency:              currency,
			DropBadRows:           dropBadRows,
			BucketMissingAccounts: bucketMissingAccounts,
		}), nil
	default:
		return nil, fmt.Errorf("unknown format %q (want simple, kaggle or govgl)", format)
	}
}

// logFatalLoad gives schema and file errors a clearer message than a
// generic pipeline failure.
func logFatalLoad(log zerolog.Logger, err error) {
	var schemaErr *adapters.SchemaError
	var fileErr *tabular.MissingFileError
	switch {
	case errors.As(err, &schemaErr):
		log.Error().Strs("missing_columns", schemaErr.Missing).Str("source", schemaErr.Source).Msg("input schema mismatch")
	case errors.As(err, &fileErr):
		log.Error().Str("path", fileErr.Path).Bool("empty", fileErr.Empty).Msg("required file missing or empty")
	default:
		log.Error().Err(err).Msg("evaluation failed")
	}
}

func writeOutputs(ctx context.Context, document report.Document, state *run.State, jsonPath, outDir, uploadURI string) error {
	var encoded []byte
	if jsonPath != "" || uploadURI != "" {
		var err error
		encoded, err = json.MarshalIndent(document, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding JSON report: %w", err)
		}
	}

	if jsonPath != "" {
		if err := os.WriteFile(jsonPath, encoded, 0o644); err != nil {
			return fmt.Errorf("writing JSON report: %w", err)
		}
	}
	if uploadURI != "" {
		if err := gcstore.Upload(ctx, uploadURI, encoded); err != nil {
			return err
		}
		log := logger.FromContext(ctx)
		log.Info().
			Str("object", gcstore.ObjectName(uploadURI)).
			Msg("report uploaded")
	}

	if outDir != "" {
		accounts := state.Loaded.Accounts.Project(adapters.AccountColumns)
		if err := tabular.WriteCSV(accounts, filepath.Join(outDir, "accounts.csv")); err != nil {
			return err
		}
		transactions := state.Loaded.Transactions.Project(adapters.TransactionColumns)
		if err := tabular.WriteCSV(transactions, filepath.Join(outDir, "transactions.csv")); err != nil {
			return err
		}
		if state.Loaded.Vendors != nil {
			vendors := state.Loaded.Vendors.Project(adapters.VendorColumns)
			if err := tabular.WriteCSV(vendors, filepath.Join(outDir, "vendors.csv")); err != nil {
				return err
			}
		}
	}
	return nil
}

func exportRun(ctx context.Context, projectFlag, format, input string, state *run.State, startedAt time.Time) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	project, err := cfg.RequireProject(projectFlag)
	if err != nil {
		return err
	}

	exporter, err := infra.NewExporter(ctx, project, cfg.Dataset)
	if err != nil {
		return err
	}
	defer exporter.Close()

	return exporter.ExportRun(ctx, state.RunID, format, input, state.Loaded, state.Summary, startedAt)
}

func runUpload(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	file := fs.String("file", "", "local file to upload")
	bucket := fs.String("bucket", "", "destination bucket (or FMIGRATION_GCS_BUCKET)")
	object := fs.String("object", "", "destination object name (default: file basename)")
	fs.Parse(args)

	if *file == "" {
		log.Fatal().Msg("-file is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	bucketName := *bucket
	if bucketName == "" {
		bucketName = cfg.Bucket
	}
	if bucketName == "" {
		log.Fatal().Msg("bucket not set: pass -bucket or set FMIGRATION_GCS_BUCKET")
	}

	objectName := *object
	if objectName == "" {
		objectName = filepath.Base(*file)
	}

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("reading file")
	}

	ctx := logger.WithContext(context.Background(), log)
	if err := gcstore.UploadFile(ctx, bucketName, objectName, data); err != nil {
		log.Fatal().Err(err).Msg("uploading file")
	}
	log.Info().Str("bucket", bucketName).Str("object", objectName).Msg("uploaded")
}

func runRuns(log zerolog.Logger, args []string) {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	limit := fs.Int("limit", 20, "number of runs to list")
	project := fs.String("project", "", "GCP project (or FMIGRATION_GCP_PROJECT)")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("loading configuration")
	}
	projectID, err := cfg.RequireProject(*project)
	if err != nil {
		log.Fatal().Err(err).Msg("resolving GCP project")
	}

	ctx := logger.WithContext(context.Background(), log)
	exporter, err := infra.NewExporter(ctx, projectID, cfg.Dataset)
	if err != nil {
		log.Fatal().Err(err).Msg("creating BigQuery client")
	}
	defer exporter.Close()

	rows, err := exporter.ListRecentRuns(ctx, *limit)
	if err != nil {
		log.Fatal().Err(err).Msg("listing runs")
	}

	for _, row := range rows {
		fmt.Printf("%s  %-7s %-6s accounts=%d transactions=%d issues=%d anomalies=%d  %s\n",
			row.StartedAt.Format(time.RFC3339), row.Format, row.Risk,
			row.AccountsCount, row.TransactionsCount, row.IssueCount, row.AnomalyCount,
			row.Input)
	}
}
