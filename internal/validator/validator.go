// Package validator runs the fixed battery of data-quality checks over
// the canonical tables. Rules never fail on bad data; they report it.
package validator

import (
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/davivargas/f-migration/internal/clean"
	"github.com/davivargas/f-migration/internal/tabular"
)

// maxExamples caps the sample of offending records attached to a
// finding.
const maxExamples = 5

// Issue is a single validation finding. Count semantics vary per rule:
// distinct duplicated values for the duplicate-id rules, missing column
// count for the schema rules, offending row count for the rest.
type Issue struct {
	Category string              `json:"category"`
	Message  string              `json:"message"`
	Count    int                 `json:"count"`
	Examples []map[string]string `json:"examples"`
}

// Validate runs every rule unconditionally and returns the flat
// concatenation of their findings, in rule order. A table missing a
// column a rule needs makes that rule contribute nothing; only the two
// required-columns checks report absence itself.
//
// Null handling (blank cells): blanks are excluded from the duplicate,
// foreign-key, currency, zero-amount and date rules but still count in
// table row totals; the missing-transaction-id rule is the one that
// reports them.
func Validate(accounts, transactions, vendors *tabular.Table) []Issue {
	var issues []Issue

	issues = append(issues, requireColumns(accounts, []string{"account_id", "account_name", "type", "currency"}, "accounts")...)
	issues = append(issues, requireColumns(transactions, []string{"transaction_id", "account_id", "amount", "currency", "date"}, "transactions")...)

	issues = append(issues, duplicateIDs(accounts, "account_id", "accounts")...)
	issues = append(issues, duplicateIDs(transactions, "transaction_id", "transactions")...)

	issues = append(issues, missingAccountRefs(transactions, accounts)...)
	issues = append(issues, currencyMismatches(transactions, accounts)...)
	issues = append(issues, futureDated(transactions)...)
	issues = append(issues, zeroAmounts(transactions)...)
	issues = append(issues, missingTransactionIDs(transactions)...)

	_ = vendors // vendors currently carry no rules of their own
	return issues
}

// requireColumns reports every canonical column absent from the table.
func requireColumns(t *tabular.Table, required []string, label string) []Issue {
	missing := t.MissingIn(required)
	if len(missing) == 0 {
		return nil
	}
	return []Issue{{
		Category: "schema",
		Message:  fmt.Sprintf("%s missing required columns: %s", label, strings.Join(missing, ", ")),
		Count:    len(missing),
		Examples: []map[string]string{},
	}}
}

// duplicateIDs counts distinct id values appearing on more than one
// row, never the number of duplicated rows.
func duplicateIDs(t *tabular.Table, idCol, label string) []Issue {
	if !t.HasColumn(idCol) {
		return nil
	}

	seen := make(map[string]int)
	var order []string
	for i := 0; i < t.NumRows(); i++ {
		v, _ := t.Cell(i, idCol)
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if seen[v] == 0 {
			order = append(order, v)
		}
		seen[v]++
	}

	var examples []map[string]string
	count := 0
	for _, v := range order {
		if seen[v] < 2 {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, map[string]string{idCol: v})
		}
	}
	if count == 0 {
		return nil
	}
	return []Issue{{
		Category: "integrity",
		Message:  fmt.Sprintf("%s has duplicate %s values", label, idCol),
		Count:    count,
		Examples: examples,
	}}
}

// missingAccountRefs flags transactions whose account id, compared as
// text, has no match in the accounts table.
func missingAccountRefs(transactions, accounts *tabular.Table) []Issue {
	if !transactions.HasColumn("account_id") || !accounts.HasColumn("account_id") {
		return nil
	}

	known := make(map[string]bool, accounts.NumRows())
	for i := 0; i < accounts.NumRows(); i++ {
		v, _ := accounts.Cell(i, "account_id")
		if v = strings.TrimSpace(v); v != "" {
			known[v] = true
		}
	}

	var examples []map[string]string
	count := 0
	for i := 0; i < transactions.NumRows(); i++ {
		accountID, _ := transactions.Cell(i, "account_id")
		accountID = strings.TrimSpace(accountID)
		txID := cellOrEmpty(transactions, i, "transaction_id")
		if accountID == "" || txID == "" || known[accountID] {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, map[string]string{
				"transaction_id": txID,
				"account_id":     accountID,
			})
		}
	}
	if count == 0 {
		return nil
	}
	return []Issue{{
		Category: "integrity",
		Message:  "Transactions reference missing accounts",
		Count:    count,
		Examples: examples,
	}}
}

// currencyMismatches flags transactions whose currency differs from the
// referenced account's, when both sides carry one.
func currencyMismatches(transactions, accounts *tabular.Table) []Issue {
	if !transactions.HasColumns("account_id", "currency", "transaction_id") ||
		!accounts.HasColumns("account_id", "currency") {
		return nil
	}

	// first occurrence wins on duplicated account ids
	accountCurrency := make(map[string]string, accounts.NumRows())
	for i := 0; i < accounts.NumRows(); i++ {
		id := strings.TrimSpace(cellOrEmpty(accounts, i, "account_id"))
		if id == "" {
			continue
		}
		if _, ok := accountCurrency[id]; !ok {
			accountCurrency[id] = strings.TrimSpace(cellOrEmpty(accounts, i, "currency"))
		}
	}

	var examples []map[string]string
	count := 0
	for i := 0; i < transactions.NumRows(); i++ {
		accountID := strings.TrimSpace(cellOrEmpty(transactions, i, "account_id"))
		txCurrency := strings.TrimSpace(cellOrEmpty(transactions, i, "currency"))
		acCurrency, ok := accountCurrency[accountID]
		if !ok || txCurrency == "" || acCurrency == "" || txCurrency == acCurrency {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, map[string]string{
				"transaction_id": cellOrEmpty(transactions, i, "transaction_id"),
				"account_id":     accountID,
				"currency_tx":    txCurrency,
				"currency_ac":    acCurrency,
			})
		}
	}
	if count == 0 {
		return nil
	}
	return []Issue{{
		Category: "sanity",
		Message:  "Currency mismatch between transaction and account",
		Count:    count,
		Examples: examples,
	}}
}

// futureDated flags transactions whose parsed date is strictly after
// the current calendar date. Unparsable dates are not this rule's
// concern.
func futureDated(transactions *tabular.Table) []Issue {
	if !transactions.HasColumn("date") {
		return nil
	}
	today := civil.DateOf(time.Now())

	var examples []map[string]string
	count := 0
	for i := 0; i < transactions.NumRows(); i++ {
		raw := cellOrEmpty(transactions, i, "date")
		d, ok := clean.ParseDate(raw)
		if !ok || !d.After(today) {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, map[string]string{
				"transaction_id": cellOrEmpty(transactions, i, "transaction_id"),
				"date":           raw,
			})
		}
	}
	if count == 0 {
		return nil
	}
	return []Issue{{
		Category: "sanity",
		Message:  "Transactions dated in the future",
		Count:    count,
		Examples: examples,
	}}
}

// zeroAmounts flags transactions whose amount parses to exactly zero.
// Unparsable (null) amounts are excluded here; they surface through the
// adapter's cleaning stats instead.
func zeroAmounts(transactions *tabular.Table) []Issue {
	if !transactions.HasColumn("amount") {
		return nil
	}

	var examples []map[string]string
	count := 0
	for i := 0; i < transactions.NumRows(); i++ {
		raw := cellOrEmpty(transactions, i, "amount")
		v, ok := clean.ParseFloat(raw)
		if !ok || v != 0 {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, map[string]string{
				"transaction_id": cellOrEmpty(transactions, i, "transaction_id"),
				"amount":         raw,
			})
		}
	}
	if count == 0 {
		return nil
	}
	return []Issue{{
		Category: "sanity",
		Message:  "Zero-amount transactions",
		Count:    count,
		Examples: examples,
	}}
}

// missingTransactionIDs flags blank, whitespace-only and
// stringified-null transaction ids.
func missingTransactionIDs(transactions *tabular.Table) []Issue {
	if !transactions.HasColumn("transaction_id") {
		return nil
	}

	var examples []map[string]string
	count := 0
	for i := 0; i < transactions.NumRows(); i++ {
		raw := cellOrEmpty(transactions, i, "transaction_id")
		switch strings.TrimSpace(raw) {
		case "", "nan", "None", "null", "NULL":
		default:
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, map[string]string{"transaction_id": raw})
		}
	}
	if count == 0 {
		return nil
	}
	return []Issue{{
		Category: "schema",
		Message:  "Missing or invalid transaction_id values",
		Count:    count,
		Examples: examples,
	}}
}

func cellOrEmpty(t *tabular.Table, row int, col string) string {
	v, _ := t.Cell(row, col)
	return v
}
