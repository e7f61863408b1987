package adapters

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/davivargas/f-migration/internal/clean"
	"github.com/davivargas/f-migration/internal/tabular"
)

// kaggleRequired are the raw columns the Kaggle-style export must carry.
var kaggleRequired = []string{
	"Date", "Account", "Debit", "Category", "Transaction_Type",
	"Description", "Customer_Vendor",
}

// KaggleAdapter normalizes the Kaggle-style financial accounting export:
// one CSV with free-text account, category and counterparty columns and
// an unsigned Debit amount whose sign is carried by Transaction_Type.
type KaggleAdapter struct {
	defaultCurrency string
	dropBadRows     bool
}

// KaggleOptions configure the adapter explicitly; there are no implicit
// defaults beyond the zero currency falling back to USD.
type KaggleOptions struct {
	DefaultCurrency string
	DropBadRows     bool
}

func NewKaggleAdapter(opts KaggleOptions) *KaggleAdapter {
	currency := opts.DefaultCurrency
	if currency == "" {
		currency = "USD"
	}
	return &KaggleAdapter{defaultCurrency: currency, dropBadRows: opts.DropBadRows}
}

type kaggleRow struct {
	account     string
	category    string
	txType      string
	description string
	vendor      string
	reference   string
	dateISO     string // empty when unparsable
	debit       decimal.Decimal
	debitOK     bool
}

// Load reads the raw CSV, cleans it and builds the canonical tables.
func (a *KaggleAdapter) Load(ctx context.Context, input string) (*LoadedData, *CleanStats, error) {
	raw, err := readInput(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	rows, stats, err := a.cleanRows(raw)
	if err != nil {
		return nil, nil, err
	}

	accounts, accountIDs := a.buildAccounts(rows)
	transactions := a.buildTransactions(rows, accountIDs, raw.HasColumn("Reference"))
	vendors := a.buildVendors(rows, raw.HasColumn("Customer_Vendor"))

	return &LoadedData{Accounts: accounts, Transactions: transactions, Vendors: vendors}, stats, nil
}

func (a *KaggleAdapter) cleanRows(raw *tabular.Table) ([]kaggleRow, *CleanStats, error) {
	if err := requireColumns(raw, kaggleRequired, "kaggle"); err != nil {
		return nil, nil, err
	}

	stats := &CleanStats{RowsIn: raw.NumRows()}
	rows := make([]kaggleRow, 0, raw.NumRows())

	for i := 0; i < raw.NumRows(); i++ {
		cell := func(col string) string {
			v, _ := raw.Cell(i, col)
			return strings.TrimSpace(v)
		}

		row := kaggleRow{
			account:     cell("Account"),
			category:    cell("Category"),
			txType:      cell("Transaction_Type"),
			description: cell("Description"),
			vendor:      cell("Customer_Vendor"),
			reference:   cell("Reference"),
		}

		if d, ok := clean.ParseDate(cell("Date")); ok {
			row.dateISO = d.String()
		} else {
			stats.BadDate++
		}
		row.debit, row.debitOK = clean.ParsePlain(cell("Debit"))
		if !row.debitOK {
			stats.BadAmount++
		}

		if a.dropBadRows {
			if row.dateISO == "" {
				stats.DroppedBadDate++
				continue
			}
			if !row.debitOK {
				stats.DroppedBadAmount++
				continue
			}
		}
		rows = append(rows, row)
	}

	stats.RowsOut = len(rows)
	return rows, stats, nil
}

// mapAccountType infers the canonical account type from a free-text
// category by keyword containment.
func mapAccountType(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	switch c {
	case "asset", "liability", "revenue", "expense", "equity":
		return c
	}
	switch {
	case strings.Contains(c, "asset"):
		return "asset"
	case strings.Contains(c, "liabil"):
		return "liability"
	case strings.Contains(c, "reven"), strings.Contains(c, "income"):
		return "revenue"
	case strings.Contains(c, "expens"), strings.Contains(c, "cost"):
		return "expense"
	}
	return "unknown"
}

func (a *KaggleAdapter) buildAccounts(rows []kaggleRow) (*tabular.Table, map[string]int) {
	keys := make(map[string]bool, len(rows))
	// per-account category frequencies, with first-encounter order for
	// deterministic tie-breaks
	counts := make(map[string]map[string]int)
	order := make(map[string][]string)
	for _, r := range rows {
		if r.account == "" {
			continue
		}
		keys[r.account] = true
		if counts[r.account] == nil {
			counts[r.account] = make(map[string]int)
		}
		if counts[r.account][r.category] == 0 {
			order[r.account] = append(order[r.account], r.category)
		}
		counts[r.account][r.category]++
	}

	ordered, ids := assignAccountIDs(keys)

	accounts := tabular.NewTable(AccountColumns)
	for _, name := range ordered {
		topCategory := "unknown"
		best := 0
		for _, cat := range order[name] {
			if counts[name][cat] > best {
				best = counts[name][cat]
				topCategory = cat
			}
		}
		accounts.AppendRecord(map[string]string{
			"account_id":   fmt.Sprintf("%d", ids[name]),
			"account_name": name,
			"type":         mapAccountType(topCategory),
			"currency":     a.defaultCurrency,
		})
	}
	return accounts, ids
}

func (a *KaggleAdapter) buildTransactions(rows []kaggleRow, accountIDs map[string]int, hasReference bool) *tabular.Table {
	transactions := tabular.NewTable(TransactionColumns)
	for i, r := range rows {
		accountID := ""
		if id, ok := accountIDs[r.account]; ok {
			accountID = fmt.Sprintf("%d", id)
		}

		amount := ""
		if r.debitOK {
			signed := r.debit
			switch strings.ToLower(r.txType) {
			case "purchase", "expense":
				signed = signed.Neg()
			}
			amount = clean.FormatAmount(signed)
		}

		description := r.description
		if hasReference {
			description += " | ref=" + r.reference
		}

		transactions.AppendRecord(map[string]string{
			"transaction_id": fmt.Sprintf("kfa_%06d", i+1),
			"account_id":     accountID,
			"amount":         amount,
			"currency":       a.defaultCurrency,
			"date":           r.dateISO,
			"description":    description,
		})
	}
	return transactions
}

// buildVendors derives a synthetic vendor table from the counterparty
// column. Returns nil, not an empty table, when the column is absent or
// holds no usable values.
func (a *KaggleAdapter) buildVendors(rows []kaggleRow, hasColumn bool) *tabular.Table {
	if !hasColumn {
		return nil
	}
	names := make(map[string]bool)
	for _, r := range rows {
		if r.vendor != "" {
			names[r.vendor] = true
		}
	}
	if len(names) == 0 {
		return nil
	}

	ordered := make([]string, 0, len(names))
	for n := range names {
		ordered = append(ordered, n)
	}
	sort.Strings(ordered)

	vendors := tabular.NewTable(VendorColumns)
	for i, name := range ordered {
		vendors.AppendRecord(map[string]string{
			"vendor_id": fmt.Sprintf("v%05d", i+1),
			"name":      name,
			"country":   "",
		})
	}
	return vendors
}
