package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

// ListRecentRuns returns the most recent evaluation runs, newest first.
func (e *Exporter) ListRecentRuns(ctx context.Context, limit int) ([]*RunRow, error) {
	if limit <= 0 {
		limit = 20
	}

	q := e.client.Query(fmt.Sprintf(`
		SELECT
			run_id, format, input,
			accounts_count, transactions_count, vendors_count,
			issue_count, anomaly_count, risk,
			started_ts, finished_ts
		FROM %s.%s
		ORDER BY started_ts DESC
		LIMIT @limit
	`, e.dataset, runsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecentRuns: running query: %w", err)
	}

	var rows []*RunRow
	for {
		var row RunRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecentRuns: reading row: %w", err)
		}
		rows = append(rows, &row)
	}
	return rows, nil
}
