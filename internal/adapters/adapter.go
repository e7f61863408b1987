// Package adapters maps raw source formats into the canonical
// accounts/transactions/vendors tables consumed by the validator.
// Each adapter is a fixed, hand-written mapping; there is no
// configurable schema DSL.
package adapters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/davivargas/f-migration/internal/gcstore"
	"github.com/davivargas/f-migration/internal/tabular"
)

// Canonical column sets. Adapters produce exactly these; callers may
// not assume any extra columns.
var (
	AccountColumns     = []string{"account_id", "account_name", "type", "currency"}
	TransactionColumns = []string{"transaction_id", "account_id", "amount", "currency", "date", "description"}
	VendorColumns      = []string{"vendor_id", "name", "country"}
)

// LoadedData holds the canonical tables after normalization. Vendors is
// nil when the source format has no counterparty concept; that is
// distinct from an empty vendor table.
type LoadedData struct {
	Accounts     *tabular.Table
	Transactions *tabular.Table
	Vendors      *tabular.Table
}

// CleanStats is the diagnostics side channel of an adapter run. It is
// not part of the canonical tables; callers surface it in the report's
// cleaning section. Counters that do not apply to a format stay zero
// and are omitted from JSON.
type CleanStats struct {
	RowsIn  int `json:"rows_in"`
	RowsOut int `json:"rows_out"`

	BadDate          int `json:"bad_date,omitempty"`
	BadAmount        int `json:"bad_amount,omitempty"`
	BadCreditDebit   int `json:"bad_cd_code,omitempty"`
	MissingGroupKey  int `json:"missing_account_key,omitempty"`
	DroppedBadDate   int `json:"dropped_bad_date,omitempty"`
	DroppedBadAmount int `json:"dropped_bad_amount,omitempty"`
	FallbackIDs      int `json:"fallback_ids,omitempty"`
}

// Adapter loads a dataset from input (a file path, a folder for the
// pass-through format, or a gs:// URI) and returns canonical tables
// ready for validation, plus cleaning diagnostics. Stats is nil for
// adapters that do no cleaning.
type Adapter interface {
	Load(ctx context.Context, input string) (*LoadedData, *CleanStats, error)
}

// SchemaError reports required raw columns absent from the input. It is
// fatal and lists every missing column, not just the first.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

// requireColumns returns a SchemaError naming all absent columns.
func requireColumns(t *tabular.Table, required []string, source string) error {
	missing := t.MissingIn(required)
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &SchemaError{Source: source, Missing: missing}
}

// assignAccountIDs gives each unique grouping key a synthetic numeric id:
// keys sorted lexicographically, ids sequential from 1001. Identical
// input always yields identical ids; stability, not minimality, is the
// contract.
func assignAccountIDs(keys map[string]bool) ([]string, map[string]int) {
	ordered := make([]string, 0, len(keys))
	for k := range keys {
		ordered = append(ordered, k)
	}
	sort.Strings(ordered)

	ids := make(map[string]int, len(ordered))
	for i, k := range ordered {
		ids[k] = 1000 + i + 1
	}
	return ordered, ids
}

// readInput loads a single raw CSV from a local path or a gs:// URI.
func readInput(ctx context.Context, input string) (*tabular.Table, error) {
	if strings.HasPrefix(input, "gs://") {
		data, err := gcstore.Fetch(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("readInput: %w", err)
		}
		return tabular.ParseCSV(data, input)
	}
	return tabular.ReadCSV(input)
}
