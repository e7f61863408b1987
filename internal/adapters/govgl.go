package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/davivargas/f-migration/internal/clean"
	"github.com/davivargas/f-migration/internal/tabular"
)

// Raw column names of the government general-ledger export. The source
// publishes bilingual headers; they are matched verbatim after trimming.
const (
	govColVoucher = "Journal-Voucher-Identifier-Identificateur-de-la-pièce-de-journal"
	govColItem    = "Journal-Voucher-Item-Identifier-Identificateur-de-l'item-de-la-pièce-de-journal"
	govColDate    = "Accounting-Effective-Date-Date-d'entrée-en-vigueur-comptable"
	govColDept    = "DepartmentNumber-Numéro-de-Ministère"
	govColGL      = "General-Ledger-Account-Code-Code-du-compte-du-grand-livre-général"
	govColCD      = "Credit/Debit-Code-Code-Crédit/Débit"
	govColAmount  = "Journal-Voucher-Item-Amount-Montant-de-l'item-de-la-pièce-de-journal"
	govColCtrl    = "Accounting-Control-Number-Numéro-contrôle-comptable"
	govColFY      = "Fiscal-Year-Année-Fiscale"
	govColFM      = "Fiscal-Month-Mois-Fiscal"
)

var govRequired = []string{
	govColVoucher, govColItem, govColDate, govColDept, govColGL, govColCD, govColAmount,
}

// GovGLAdapter normalizes the government general-ledger export. Account
// identity is synthesized from the department and ledger codes, amounts
// are locale-ambiguous magnitudes signed by a credit/debit code, and
// transaction ids fall back to the row's position when the natural
// voucher/item identifiers are blank.
type GovGLAdapter struct {
	currency              string
	dropBadRows           bool
	bucketMissingAccounts bool
}

// GovGLOptions configure the adapter. Currency defaults to CAD, the
// source's implicit currency, when left empty.
type GovGLOptions struct {
	Currency              string
	DropBadRows           bool
	BucketMissingAccounts bool
}

func NewGovGLAdapter(opts GovGLOptions) *GovGLAdapter {
	currency := opts.Currency
	if currency == "" {
		currency = "CAD"
	}
	return &GovGLAdapter{
		currency:              currency,
		dropBadRows:           opts.DropBadRows,
		bucketMissingAccounts: opts.BucketMissingAccounts,
	}
}

type govRow struct {
	voucher string
	item    string
	dept    string
	gl      string
	ctrl    string
	fy      string
	fm      string
	dateISO string // empty when unparsable
	amount  decimal.Decimal
	// amountOK means both the magnitude parsed and the credit/debit
	// code resolved; an invalid code never defaults to a sign.
	amountOK bool
}

func (r govRow) accountKey() string {
	return r.dept + "-" + r.gl
}

// Load reads the raw CSV, cleans it and builds the canonical tables.
// The format carries no counterparty identity, so Vendors is always nil.
func (a *GovGLAdapter) Load(ctx context.Context, input string) (*LoadedData, *CleanStats, error) {
	raw, err := readInput(ctx, input)
	if err != nil {
		return nil, nil, err
	}

	rows, stats, err := a.cleanRows(raw)
	if err != nil {
		return nil, nil, err
	}

	accounts, accountIDs := a.buildAccounts(rows)
	transactions, fallbackIDs := a.buildTransactions(rows, accountIDs, raw)
	stats.FallbackIDs = fallbackIDs

	return &LoadedData{Accounts: accounts, Transactions: transactions, Vendors: nil}, stats, nil
}

func (a *GovGLAdapter) cleanRows(raw *tabular.Table) ([]govRow, *CleanStats, error) {
	if err := requireColumns(raw, govRequired, "govgl"); err != nil {
		return nil, nil, err
	}

	stats := &CleanStats{RowsIn: raw.NumRows()}
	rows := make([]govRow, 0, raw.NumRows())

	for i := 0; i < raw.NumRows(); i++ {
		cell := func(col string) string {
			v, _ := raw.Cell(i, col)
			return strings.TrimSpace(v)
		}

		row := govRow{
			voucher: cell(govColVoucher),
			item:    cell(govColItem),
			dept:    cell(govColDept),
			gl:      cell(govColGL),
			ctrl:    cell(govColCtrl),
			fy:      cell(govColFY),
			fm:      cell(govColFM),
		}

		if row.dept == "" {
			stats.MissingGroupKey++
		}
		if row.gl == "" {
			stats.MissingGroupKey++
		}
		if row.dept == "" || row.gl == "" {
			if !a.bucketMissingAccounts {
				continue
			}
			if row.dept == "" {
				row.dept = "UNKNOWN"
			}
			if row.gl == "" {
				row.gl = "UNKNOWN"
			}
		}

		if d, ok := clean.ParseDate(cell(govColDate)); ok {
			row.dateISO = d.String()
		} else {
			stats.BadDate++
		}

		code, codeOK := clean.NormalizeCreditDebit(cell(govColCD))
		if !codeOK {
			stats.BadCreditDebit++
		}
		magnitude, magnitudeOK := clean.ParseAmount(cell(govColAmount))
		if !magnitudeOK {
			stats.BadAmount++
		}
		if codeOK && magnitudeOK {
			row.amount = clean.SignedAmount(code, magnitude)
			row.amountOK = true
		}

		if a.dropBadRows && (row.dateISO == "" || !row.amountOK) {
			continue
		}
		rows = append(rows, row)
	}

	stats.RowsOut = len(rows)
	return rows, stats, nil
}

func (a *GovGLAdapter) buildAccounts(rows []govRow) (*tabular.Table, map[string]int) {
	keys := make(map[string]bool, len(rows))
	for _, r := range rows {
		keys[r.accountKey()] = true
	}
	ordered, ids := assignAccountIDs(keys)

	accounts := tabular.NewTable(AccountColumns)
	for _, key := range ordered {
		accounts.AppendRecord(map[string]string{
			"account_id":   fmt.Sprintf("%d", ids[key]),
			"account_name": "Dept/GL " + key,
			"type":         "unknown",
			"currency":     a.currency,
		})
	}
	return accounts, ids
}

func (a *GovGLAdapter) buildTransactions(rows []govRow, accountIDs map[string]int, raw *tabular.Table) (*tabular.Table, int) {
	transactions := tabular.NewTable(TransactionColumns)
	fallbackIDs := 0

	for i, r := range rows {
		id := ""
		if r.voucher != "" && r.item != "" {
			id = "gov_" + r.voucher + "_" + r.item
		} else {
			id = fmt.Sprintf("gov_row_%d", i)
			fallbackIDs++
		}

		amount := ""
		if r.amountOK {
			amount = clean.FormatAmount(r.amount)
		}

		description := "JV " + r.voucher + " | Item " + r.item
		if raw.HasColumn(govColCtrl) {
			description += " | Ctrl " + r.ctrl
		}
		if raw.HasColumn(govColFY) {
			description += " | FY " + r.fy
		}
		if raw.HasColumn(govColFM) {
			description += " | FM " + r.fm
		}

		transactions.AppendRecord(map[string]string{
			"transaction_id": id,
			"account_id":     fmt.Sprintf("%d", accountIDs[r.accountKey()]),
			"amount":         amount,
			"currency":       a.currency,
			"date":           r.dateISO,
			"description":    description,
		})
	}
	return transactions, fallbackIDs
}
