package validator

import (
	"strings"
	"testing"
	"time"

	"github.com/davivargas/f-migration/internal/tabular"
)

func accountsTable(rows ...map[string]string) *tabular.Table {
	t := tabular.NewTable([]string{"account_id", "account_name", "type", "currency"})
	for _, r := range rows {
		t.AppendRecord(r)
	}
	return t
}

func transactionsTable(rows ...map[string]string) *tabular.Table {
	t := tabular.NewTable([]string{"transaction_id", "account_id", "amount", "currency", "date", "description"})
	for _, r := range rows {
		t.AppendRecord(r)
	}
	return t
}

func findIssue(issues []Issue, needle string) *Issue {
	for i := range issues {
		if strings.Contains(strings.ToLower(issues[i].Message), strings.ToLower(needle)) {
			return &issues[i]
		}
	}
	return nil
}

// TestValidateBrokenDataset engineers one instance of each defect class
// and checks the validator reports exactly those findings.
func TestValidateBrokenDataset(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	future := time.Now().AddDate(0, 0, 7).Format("2006-01-02")

	accounts := accountsTable(
		map[string]string{"account_id": "10", "account_name": "Cash", "type": "asset", "currency": "USD"},
		map[string]string{"account_id": "11", "account_name": "Revenue", "type": "revenue", "currency": "USD"},
	)
	transactions := transactionsTable(
		map[string]string{"transaction_id": "dup", "account_id": "10", "amount": "100.00", "currency": "USD", "date": today},
		map[string]string{"transaction_id": "dup", "account_id": "10", "amount": "120.00", "currency": "USD", "date": today},
		map[string]string{"transaction_id": "missing_acc", "account_id": "999", "amount": "10.00", "currency": "USD", "date": today},
		map[string]string{"transaction_id": "future", "account_id": "10", "amount": "10.00", "currency": "USD", "date": future},
		map[string]string{"transaction_id": "zero", "account_id": "10", "amount": "0.00", "currency": "USD", "date": today},
		map[string]string{"transaction_id": "cur_mismatch", "account_id": "11", "amount": "1.00", "currency": "EUR", "date": today},
	)

	issues := Validate(accounts, transactions, nil)

	if len(issues) != 5 {
		for _, issue := range issues {
			t.Logf("issue: %s (%d)", issue.Message, issue.Count)
		}
		t.Fatalf("got %d issues, want 5", len(issues))
	}
	for _, needle := range []string{
		"duplicate transaction_id",
		"reference missing accounts",
		"dated in the future",
		"Zero-amount",
		"Currency mismatch",
	} {
		issue := findIssue(issues, needle)
		if issue == nil {
			t.Errorf("missing expected issue %q", needle)
			continue
		}
		if issue.Count != 1 {
			t.Errorf("issue %q count = %d, want 1", needle, issue.Count)
		}
	}
}

// TestDuplicateIDsCountsDistinctValues checks the duplicate rule counts
// duplicated values, not duplicated rows.
func TestDuplicateIDsCountsDistinctValues(t *testing.T) {
	transactions := transactionsTable(
		map[string]string{"transaction_id": "a"},
		map[string]string{"transaction_id": "a"},
		map[string]string{"transaction_id": "a"},
		map[string]string{"transaction_id": "b"},
		map[string]string{"transaction_id": "b"},
		map[string]string{"transaction_id": "c"},
	)

	issues := duplicateIDs(transactions, "transaction_id", "transactions")
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Count != 2 {
		t.Errorf("count = %d, want 2 (values a and b)", issues[0].Count)
	}
	if len(issues[0].Examples) != 2 {
		t.Errorf("examples = %d, want 2", len(issues[0].Examples))
	}
	if issues[0].Examples[0]["transaction_id"] != "a" {
		t.Errorf("first example = %v, want a", issues[0].Examples[0])
	}
}

func TestDuplicateIDsIgnoresBlanks(t *testing.T) {
	transactions := transactionsTable(
		map[string]string{"transaction_id": ""},
		map[string]string{"transaction_id": ""},
		map[string]string{"transaction_id": "x"},
	)
	if issues := duplicateIDs(transactions, "transaction_id", "transactions"); len(issues) != 0 {
		t.Errorf("blank ids should not count as duplicates, got %v", issues)
	}
}

func TestRequiredColumnsListsEveryMissing(t *testing.T) {
	accounts := tabular.NewTable([]string{"account_id"})
	accounts.AppendRecord(map[string]string{"account_id": "1"})

	issues := Validate(accounts, transactionsTable(), nil)
	issue := findIssue(issues, "accounts missing required columns")
	if issue == nil {
		t.Fatal("expected accounts schema issue")
	}
	if issue.Count != 3 {
		t.Errorf("count = %d, want 3 (account_name, type, currency)", issue.Count)
	}
	for _, col := range []string{"account_name", "type", "currency"} {
		if !strings.Contains(issue.Message, col) {
			t.Errorf("message %q should name %s", issue.Message, col)
		}
	}
}

// TestRulesSkipGracefullyWithoutColumns verifies a table missing a
// needed column contributes nothing except the schema findings.
func TestRulesSkipGracefullyWithoutColumns(t *testing.T) {
	accounts := tabular.NewTable([]string{"account_id"})
	accounts.AppendRecord(map[string]string{"account_id": "1"})
	transactions := tabular.NewTable([]string{"transaction_id"})
	transactions.AppendRecord(map[string]string{"transaction_id": "t1"})

	issues := Validate(accounts, transactions, nil)
	for _, issue := range issues {
		if issue.Category != "schema" {
			t.Errorf("unexpected non-schema issue: %s", issue.Message)
		}
	}
}

func TestMissingTransactionIDs(t *testing.T) {
	transactions := transactionsTable(
		map[string]string{"transaction_id": "", "account_id": "1"},
		map[string]string{"transaction_id": "   ", "account_id": "1"},
		map[string]string{"transaction_id": "nan", "account_id": "1"},
		map[string]string{"transaction_id": "None", "account_id": "1"},
		map[string]string{"transaction_id": "ok", "account_id": "1"},
	)

	issues := missingTransactionIDs(transactions)
	if len(issues) != 1 {
		t.Fatalf("got %d issues, want 1", len(issues))
	}
	if issues[0].Count != 4 {
		t.Errorf("count = %d, want 4", issues[0].Count)
	}
	if issues[0].Category != "schema" {
		t.Errorf("category = %s, want schema", issues[0].Category)
	}
}

func TestCurrencyMismatchNeedsBothSides(t *testing.T) {
	accounts := accountsTable(
		map[string]string{"account_id": "1", "account_name": "Cash", "type": "asset", "currency": "USD"},
		map[string]string{"account_id": "2", "account_name": "Fees", "type": "expense", "currency": ""},
	)
	transactions := transactionsTable(
		map[string]string{"transaction_id": "t1", "account_id": "1", "currency": ""},
		map[string]string{"transaction_id": "t2", "account_id": "2", "currency": "EUR"},
		map[string]string{"transaction_id": "t3", "account_id": "1", "currency": "USD"},
	)

	if issues := currencyMismatches(transactions, accounts); len(issues) != 0 {
		t.Errorf("missing currencies should not mismatch, got %v", issues)
	}
}

func TestFutureDatedIgnoresUnparsable(t *testing.T) {
	transactions := transactionsTable(
		map[string]string{"transaction_id": "t1", "date": "not-a-date"},
		map[string]string{"transaction_id": "t2", "date": ""},
		map[string]string{"transaction_id": "t3", "date": "2035-01-01"},
	)

	issues := futureDated(transactions)
	if len(issues) != 1 || issues[0].Count != 1 {
		t.Fatalf("expected one future-dated row, got %v", issues)
	}
	if issues[0].Examples[0]["transaction_id"] != "t3" {
		t.Errorf("example = %v, want t3", issues[0].Examples[0])
	}
}
