package adapters

import (
	"context"
	"errors"
	"strings"
	"testing"
)

const kaggleHeader = "Date,Account,Debit,Category,Transaction_Type,Description,Customer_Vendor"

func kaggleCSV(rows ...string) string {
	return kaggleHeader + "\n" + strings.Join(rows, "\n") + "\n"
}

func TestKaggleAdapterBasic(t *testing.T) {
	input := writeTempCSV(t, kaggleCSV(
		`2024-01-05,Cash,100.50,Current Assets,Sale,Invoice 1,Acme Corp`,
		`2024-01-06,Cash,40.00,Current Assets,Purchase,Office chairs,Desks Inc`,
		`2024-01-07,Payroll,2000.00,Operating Expenses,Expense,January wages,`,
	))

	adapter := NewKaggleAdapter(KaggleOptions{})
	data, stats, err := adapter.Load(context.Background(), input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if stats.RowsIn != 3 || stats.RowsOut != 3 {
		t.Errorf("stats = %+v, want 3 in / 3 out", stats)
	}

	if data.Accounts.NumRows() != 2 {
		t.Fatalf("accounts = %d, want 2", data.Accounts.NumRows())
	}
	// sorted account names: Cash before Payroll
	cash := data.Accounts.Row(0)
	if cash["account_id"] != "1001" || cash["account_name"] != "Cash" || cash["type"] != "asset" {
		t.Errorf("cash account = %v", cash)
	}
	payroll := data.Accounts.Row(1)
	if payroll["account_id"] != "1002" || payroll["type"] != "expense" {
		t.Errorf("payroll account = %v", payroll)
	}
	if cash["currency"] != "USD" {
		t.Errorf("default currency = %q", cash["currency"])
	}

	tx := data.Transactions.Row(0)
	if tx["transaction_id"] != "kfa_000001" || tx["account_id"] != "1001" {
		t.Errorf("first transaction = %v", tx)
	}
	if tx["amount"] != "100.50" {
		t.Errorf("sale amount = %q, want positive", tx["amount"])
	}
	// purchase and expense types negate the unsigned debit
	if got := data.Transactions.Row(1)["amount"]; got != "-40.00" {
		t.Errorf("purchase amount = %q, want -40.00", got)
	}
	if got := data.Transactions.Row(2)["amount"]; got != "-2000.00" {
		t.Errorf("expense amount = %q, want -2000.00", got)
	}

	if data.Vendors == nil {
		t.Fatal("vendors should be present")
	}
	if data.Vendors.NumRows() != 2 {
		t.Fatalf("vendors = %d, want 2", data.Vendors.NumRows())
	}
	acme := data.Vendors.Row(0)
	if acme["vendor_id"] != "v00001" || acme["name"] != "Acme Corp" || acme["country"] != "" {
		t.Errorf("first vendor = %v", acme)
	}
}

func TestKaggleAdapterMissingColumns(t *testing.T) {
	input := writeTempCSV(t, "Date,Account,Debit\n2024-01-01,Cash,1.00\n")

	adapter := NewKaggleAdapter(KaggleOptions{})
	_, _, err := adapter.Load(context.Background(), input)

	var schemaErr *SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if len(schemaErr.Missing) != 4 {
		t.Errorf("missing = %v, want the 4 absent columns", schemaErr.Missing)
	}
}

func TestKaggleAdapterTypeInferenceUsesModalCategory(t *testing.T) {
	input := writeTempCSV(t, kaggleCSV(
		`2024-01-01,Cash,1.00,Expense,Sale,a,`,
		`2024-01-02,Cash,1.00,Fixed Assets,Sale,b,`,
		`2024-01-03,Cash,1.00,Fixed Assets,Sale,c,`,
	))

	adapter := NewKaggleAdapter(KaggleOptions{})
	data, _, err := adapter.Load(context.Background(), input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := data.Accounts.Row(0)["type"]; got != "asset" {
		t.Errorf("type = %q, want asset from the modal category", got)
	}
}

func TestKaggleAdapterTypeInferenceTieBreaksOnFirstSeen(t *testing.T) {
	input := writeTempCSV(t, kaggleCSV(
		`2024-01-01,Cash,1.00,Revenue,Sale,a,`,
		`2024-01-02,Cash,1.00,Expense,Sale,b,`,
	))

	adapter := NewKaggleAdapter(KaggleOptions{})
	data, _, err := adapter.Load(context.Background(), input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := data.Accounts.Row(0)["type"]; got != "revenue" {
		t.Errorf("type = %q, want revenue (first seen wins a tie)", got)
	}
}

func TestKaggleAdapterKeepVsDropBadRows(t *testing.T) {
	rows := kaggleCSV(
		`2024-01-01,Cash,1.00,Assets,Sale,ok,`,
		`not-a-date,Cash,1.00,Assets,Sale,bad date,`,
		`2024-01-03,Cash,oops,Assets,Sale,bad amount,`,
	)

	t.Run("keep", func(t *testing.T) {
		input := writeTempCSV(t, rows)
		adapter := NewKaggleAdapter(KaggleOptions{})
		data, stats, err := adapter.Load(context.Background(), input)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if stats.BadDate != 1 || stats.BadAmount != 1 || stats.RowsOut != 3 {
			t.Errorf("stats = %+v", stats)
		}
		// bad cells become nulls, rows survive
		if got := data.Transactions.Row(1)["date"]; got != "" {
			t.Errorf("bad date = %q, want empty", got)
		}
		if got := data.Transactions.Row(2)["amount"]; got != "" {
			t.Errorf("bad amount = %q, want empty", got)
		}
	})

	t.Run("drop", func(t *testing.T) {
		input := writeTempCSV(t, rows)
		adapter := NewKaggleAdapter(KaggleOptions{DropBadRows: true})
		data, stats, err := adapter.Load(context.Background(), input)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if stats.DroppedBadDate != 1 || stats.DroppedBadAmount != 1 || stats.RowsOut != 1 {
			t.Errorf("stats = %+v", stats)
		}
		if data.Transactions.NumRows() != 1 {
			t.Errorf("transactions = %d, want 1", data.Transactions.NumRows())
		}
		// ids number the surviving rows, so they stay dense
		if got := data.Transactions.Row(0)["transaction_id"]; got != "kfa_000001" {
			t.Errorf("transaction_id = %q", got)
		}
	})
}

func TestKaggleAdapterNoVendorValues(t *testing.T) {
	input := writeTempCSV(t, kaggleCSV(
		`2024-01-01,Cash,1.00,Assets,Sale,a,`,
		`2024-01-02,Cash,1.00,Assets,Sale,b, `,
	))

	adapter := NewKaggleAdapter(KaggleOptions{})
	data, _, err := adapter.Load(context.Background(), input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if data.Vendors != nil {
		t.Errorf("vendors = %v, want nil when the column holds no values", data.Vendors)
	}
}

func TestKaggleAdapterReferenceColumn(t *testing.T) {
	input := writeTempCSV(t, kaggleHeader+",Reference\n"+
		`2024-01-01,Cash,1.00,Assets,Sale,Invoice,Acme,INV-7`+"\n")

	adapter := NewKaggleAdapter(KaggleOptions{})
	data, _, err := adapter.Load(context.Background(), input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := data.Transactions.Row(0)["description"]; got != "Invoice | ref=INV-7" {
		t.Errorf("description = %q", got)
	}
}

func TestKaggleAdapterCurrencyOverride(t *testing.T) {
	input := writeTempCSV(t, kaggleCSV(`2024-01-01,Cash,1.00,Assets,Sale,a,`))

	adapter := NewKaggleAdapter(KaggleOptions{DefaultCurrency: "EUR"})
	data, _, err := adapter.Load(context.Background(), input)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := data.Transactions.Row(0)["currency"]; got != "EUR" {
		t.Errorf("currency = %q", got)
	}
}
