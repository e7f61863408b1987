package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/davivargas/f-migration/internal/adapters"
	"github.com/davivargas/f-migration/internal/clean"
	"github.com/davivargas/f-migration/internal/report"
	"github.com/davivargas/f-migration/internal/tabular"
)

// Exporter writes evaluation results through a shared BigQuery client.
type Exporter struct {
	client  *bigquery.Client
	dataset string
}

// NewExporter creates an Exporter for the given project and dataset.
func NewExporter(ctx context.Context, projectID, dataset string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: creating client: %w", err)
	}
	return &Exporter{client: client, dataset: dataset}, nil
}

// NewExporterWithClient wraps an existing client, mainly for tests.
func NewExporterWithClient(client *bigquery.Client, dataset string) *Exporter {
	return &Exporter{client: client, dataset: dataset}
}

// Close releases the underlying client.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}

// ExportRun persists the run record plus both canonical tables.
func (e *Exporter) ExportRun(ctx context.Context, runID, format, input string,
	loaded *adapters.LoadedData, summary report.Summary, startedAt time.Time) error {

	if err := e.insertRun(ctx, runID, format, input, summary, startedAt); err != nil {
		return err
	}
	if err := e.insertAccounts(ctx, runID, loaded.Accounts); err != nil {
		return err
	}
	return e.insertTransactions(ctx, runID, loaded.Transactions)
}

func (e *Exporter) insertRun(ctx context.Context, runID, format, input string,
	summary report.Summary, startedAt time.Time) error {

	issueCount := 0
	for _, issue := range summary.Issues {
		issueCount += issue.Count
	}
	anomalyCount := 0
	if summary.Anomaly != nil {
		anomalyCount = summary.Anomaly.Count
	}
	vendors := bigquery.NullInt64{}
	if summary.VendorsCount != nil {
		vendors = bigquery.NullInt64{Int64: int64(*summary.VendorsCount), Valid: true}
	}

	row := &RunRow{
		RunID:             runID,
		Format:            format,
		Input:             input,
		AccountsCount:     int64(summary.AccountsCount),
		TransactionsCount: int64(summary.TransactionsCount),
		VendorsCount:      vendors,
		IssueCount:        int64(issueCount),
		AnomalyCount:      int64(anomalyCount),
		Risk:              string(summary.Risk),
		StartedAt:         startedAt,
		FinishedAt:        time.Now(),
	}

	inserter := e.client.Dataset(e.dataset).Table(runsTable).Inserter()
	if err := inserter.Put(ctx, row); err != nil {
		return fmt.Errorf("insertRun: %w", err)
	}
	return nil
}

func (e *Exporter) insertAccounts(ctx context.Context, runID string, accounts *tabular.Table) error {
	rows := make([]*AccountRow, 0, accounts.NumRows())
	for i := 0; i < accounts.NumRows(); i++ {
		record := accounts.Row(i)
		rows = append(rows, &AccountRow{
			RunID:       runID,
			AccountID:   record["account_id"],
			AccountName: record["account_name"],
			Type:        record["type"],
			Currency:    record["currency"],
		})
	}
	if len(rows) == 0 {
		return nil
	}
	inserter := e.client.Dataset(e.dataset).Table(accountsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("insertAccounts: %w", err)
	}
	return nil
}

func (e *Exporter) insertTransactions(ctx context.Context, runID string, transactions *tabular.Table) error {
	rows := make([]*TransactionRow, 0, transactions.NumRows())
	for i := 0; i < transactions.NumRows(); i++ {
		record := transactions.Row(i)

		amount := bigquery.NullFloat64{}
		if v, ok := clean.ParseFloat(record["amount"]); ok {
			amount = bigquery.NullFloat64{Float64: v, Valid: true}
		}
		date := bigquery.NullDate{}
		if d, ok := clean.ParseDate(record["date"]); ok {
			date = bigquery.NullDate{Date: d, Valid: true}
		}

		rows = append(rows, &TransactionRow{
			RunID:         runID,
			TransactionID: record["transaction_id"],
			AccountID:     record["account_id"],
			Amount:        amount,
			Currency:      record["currency"],
			Date:          date,
			Description:   record["description"],
		})
	}
	if len(rows) == 0 {
		return nil
	}
	inserter := e.client.Dataset(e.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("insertTransactions: %w", err)
	}
	return nil
}
