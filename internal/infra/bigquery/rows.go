// Package bigquery persists evaluation runs and their canonical tables
// to BigQuery for trend analysis across migration rehearsals.
package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

const (
	accountsTable     = "accounts"
	transactionsTable = "transactions"
	runsTable         = "evaluation_runs"
)

// AccountRow is one canonical account as stored in the accounts table.
type AccountRow struct {
	RunID       string `bigquery:"run_id"`
	AccountID   string `bigquery:"account_id"`
	AccountName string `bigquery:"account_name"`
	Type        string `bigquery:"type"`
	Currency    string `bigquery:"currency"`
}

// TransactionRow is one canonical transaction. Amount and Date are
// nullable: unresolved values survive cleaning as nulls when bad-row
// dropping is disabled.
type TransactionRow struct {
	RunID         string               `bigquery:"run_id"`
	TransactionID string               `bigquery:"transaction_id"`
	AccountID     string               `bigquery:"account_id"`
	Amount        bigquery.NullFloat64 `bigquery:"amount"`
	Currency      string               `bigquery:"currency"`
	Date          bigquery.NullDate    `bigquery:"date"`
	Description   string               `bigquery:"description"`
}

// RunRow records one evaluation run and its verdict.
type RunRow struct {
	RunID             string             `bigquery:"run_id"`
	Format            string             `bigquery:"format"`
	Input             string             `bigquery:"input"`
	AccountsCount     int64              `bigquery:"accounts_count"`
	TransactionsCount int64              `bigquery:"transactions_count"`
	VendorsCount      bigquery.NullInt64 `bigquery:"vendors_count"`
	IssueCount        int64              `bigquery:"issue_count"`
	AnomalyCount      int64              `bigquery:"anomaly_count"`
	Risk              string             `bigquery:"risk"`
	StartedAt         time.Time          `bigquery:"started_ts"`
	FinishedAt        time.Time          `bigquery:"finished_ts"`
}
