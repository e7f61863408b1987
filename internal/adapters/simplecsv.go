package adapters

import (
	"context"
	"os"
	"path/filepath"

	"github.com/davivargas/f-migration/internal/tabular"
)

// SimpleCSVAdapter reads a folder of already-canonical CSV files:
// accounts.csv and transactions.csv are required, vendors.csv is
// optional and its absence means the dataset has no vendor concept.
type SimpleCSVAdapter struct{}

func NewSimpleCSVAdapter() *SimpleCSVAdapter {
	return &SimpleCSVAdapter{}
}

// Load returns the canonical tables as-is. A missing or empty required
// file is a tabular.MissingFileError. No cleaning happens, so stats is
// nil.
func (a *SimpleCSVAdapter) Load(_ context.Context, input string) (*LoadedData, *CleanStats, error) {
	accounts, err := tabular.ReadCSV(filepath.Join(input, "accounts.csv"))
	if err != nil {
		return nil, nil, err
	}
	transactions, err := tabular.ReadCSV(filepath.Join(input, "transactions.csv"))
	if err != nil {
		return nil, nil, err
	}

	var vendors *tabular.Table
	vendorsPath := filepath.Join(input, "vendors.csv")
	if _, statErr := os.Stat(vendorsPath); statErr == nil {
		vendors, err = tabular.ReadCSV(vendorsPath)
		if err != nil {
			return nil, nil, err
		}
	}

	return &LoadedData{Accounts: accounts, Transactions: transactions, Vendors: vendors}, nil, nil
}
