// Package stress injects controlled data defects into a transaction
// table to exercise the validation and anomaly logic end to end. The
// injection is seeded, so repeated runs corrupt the same rows.
package stress

import (
	"math/rand"

	"github.com/davivargas/f-migration/internal/tabular"
)

const seed = 42

// Fractions of rows receiving each defect class.
const (
	badAccountRefPct    = 0.005
	currencyFlipPct     = 0.005
	futureDatePct       = 0.002
	zeroAmountPct       = 0.001
	extremeAmountRows   = 10
	extremeAmountValue  = "99900000.00" // 9.99e7
	futureDateValue     = "2035-01-01"
	badAccountRefValue  = "999999"
	flippedCurrencyCode = "EUR"
)

// Apply mutates transactions in place with a deterministic set of
// defects: dangling account references, currency flips, future dates,
// zero amounts, and a handful of extreme amounts to trip the outlier
// detector.
func Apply(transactions *tabular.Table) {
	n := transactions.NumRows()
	if n == 0 {
		return
	}
	rng := rand.New(rand.NewSource(seed))

	for _, i := range sample(rng, n, int(float64(n)*badAccountRefPct)) {
		_ = transactions.SetCell(i, "account_id", badAccountRefValue)
	}
	for _, i := range sample(rng, n, int(float64(n)*currencyFlipPct)) {
		_ = transactions.SetCell(i, "currency", flippedCurrencyCode)
	}
	for _, i := range sample(rng, n, int(float64(n)*futureDatePct)) {
		_ = transactions.SetCell(i, "date", futureDateValue)
	}
	for _, i := range sample(rng, n, int(float64(n)*zeroAmountPct)) {
		_ = transactions.SetCell(i, "amount", "0.00")
	}

	extremes := extremeAmountRows
	if extremes > n {
		extremes = n
	}
	for _, i := range sample(rng, n, extremes) {
		_ = transactions.SetCell(i, "amount", extremeAmountValue)
	}
}

// sample draws k distinct row indices.
func sample(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	return rng.Perm(n)[:k]
}
