// Package anomaly flags suspicious transaction amounts, either by a
// robust statistical test or by a deterministic top-N inspection
// ranking.
package anomaly

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/davivargas/f-migration/internal/clean"
	"github.com/davivargas/f-migration/internal/tabular"
)

const (
	// minSampleSize is the smallest population the modified z-score is
	// computed over; anything smaller has no meaningful distribution.
	minSampleSize = 8

	// maxExamples caps the sample retained for human inspection.
	maxExamples = 5

	// DefaultZThreshold is the conventional cutoff for the modified
	// z-score.
	DefaultZThreshold = 3.5

	// topPrefix marks inspection-mode results; the report builder
	// special-cases messages carrying it.
	topPrefix = "Top "
)

// Result is a detector finding. At most one is produced per run; nil
// means no anomaly condition applied.
type Result struct {
	Message  string              `json:"message"`
	Count    int                 `json:"count"`
	Examples []map[string]string `json:"examples"`
}

// IsInspection reports whether the result came from the top-N
// inspection mode rather than statistical inference.
func (r *Result) IsInspection() bool {
	return r != nil && strings.HasPrefix(r.Message, topPrefix)
}

type amountRow struct {
	row   int
	value float64
}

// parsableAmounts collects the numerically-parsable amounts in row
// order. Null amounts are excluded from both detector modes.
func parsableAmounts(transactions *tabular.Table) []amountRow {
	var out []amountRow
	for i := 0; i < transactions.NumRows(); i++ {
		raw, _ := transactions.Cell(i, "amount")
		if v, ok := clean.ParseFloat(raw); ok {
			out = append(out, amountRow{row: i, value: v})
		}
	}
	return out
}

// DetectAmountOutliers runs the robust outlier mode: modified z-score
// 0.6745*(x-median)/MAD against the given threshold. It returns nil
// when fewer than 8 amounts parse, when the MAD is exactly zero, or
// when no row qualifies.
func DetectAmountOutliers(transactions *tabular.Table, zThreshold float64) *Result {
	if !transactions.HasColumns("amount", "transaction_id") {
		return nil
	}

	amounts := parsableAmounts(transactions)
	if len(amounts) < minSampleSize {
		return nil
	}

	values := make([]float64, len(amounts))
	for i, a := range amounts {
		values[i] = a.value
	}
	med := median(values)

	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		return nil
	}

	var examples []map[string]string
	count := 0
	for _, a := range amounts {
		z := 0.6745 * (a.value - med) / mad
		if math.Abs(z) <= zThreshold {
			continue
		}
		count++
		if len(examples) < maxExamples {
			examples = append(examples, exampleFor(transactions, a.row))
		}
	}
	if count == 0 {
		return nil
	}
	return &Result{
		Message:  fmt.Sprintf("Anomalous transaction amounts (modified z-score > %v)", zThreshold),
		Count:    count,
		Examples: examples,
	}
}

// TopAbsoluteAmounts runs the deterministic inspection mode: the n
// largest amounts by absolute value, ties broken by original row order.
// It is a manual-review aid, not statistical inference, and its message
// carries the "Top " prefix so risk mapping can treat it as advisory.
func TopAbsoluteAmounts(transactions *tabular.Table, n int) *Result {
	if n <= 0 || !transactions.HasColumns("amount", "transaction_id") {
		return nil
	}

	amounts := parsableAmounts(transactions)
	if len(amounts) == 0 {
		return nil
	}

	sort.SliceStable(amounts, func(i, j int) bool {
		return math.Abs(amounts[i].value) > math.Abs(amounts[j].value)
	})
	if n < len(amounts) {
		amounts = amounts[:n]
	}

	var examples []map[string]string
	for _, a := range amounts {
		if len(examples) == maxExamples {
			break
		}
		examples = append(examples, exampleFor(transactions, a.row))
	}

	return &Result{
		Message:  fmt.Sprintf("%s%d largest absolute transaction amounts", topPrefix, len(amounts)),
		Count:    len(amounts),
		Examples: examples,
	}
}

func exampleFor(transactions *tabular.Table, row int) map[string]string {
	txID, _ := transactions.Cell(row, "transaction_id")
	amount, _ := transactions.Cell(row, "amount")
	return map[string]string{"transaction_id": txID, "amount": amount}
}

// median over a non-empty slice; the input is not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
