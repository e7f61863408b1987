// Package report aggregates validation and anomaly findings into the
// final summary, its coarse risk verdict, and the rendered outputs.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davivargas/f-migration/internal/adapters"
	"github.com/davivargas/f-migration/internal/anomaly"
	"github.com/davivargas/f-migration/internal/validator"
)

// RiskLevel is the coarse migration decision derived from the findings.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ExitCode maps the verdict to the process exit convention callers
// (CI in particular) rely on: LOW 0, MEDIUM 2, HIGH 3. Code 1 is
// reserved for fatal errors.
func (r RiskLevel) ExitCode() int {
	switch r {
	case RiskMedium:
		return 2
	case RiskHigh:
		return 3
	default:
		return 0
	}
}

// Summary is the aggregated result of one evaluation run. It is a pure
// function of its inputs; nothing here is mutated after construction.
type Summary struct {
	AccountsCount     int
	TransactionsCount int
	// VendorsCount is nil when the source has no vendor concept, which
	// is distinct from zero vendors.
	VendorsCount *int
	Issues       []validator.Issue
	Anomaly      *anomaly.Result
	Risk         RiskLevel
}

// riskFromCounts maps total findings to a risk level: zero is LOW, one
// through ten MEDIUM, more is HIGH.
func riskFromCounts(issueCount, anomalyCount int) RiskLevel {
	total := issueCount + anomalyCount
	switch {
	case total == 0:
		return RiskLow
	case total <= 10:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// BuildSummary derives the risk verdict from the findings. A top-N
// inspection result with no rule issues is advisory: it forces MEDIUM
// regardless of its count, never LOW and never HIGH on count alone.
func BuildSummary(accountsCount, transactionsCount int, vendorsCount *int,
	issues []validator.Issue, anomalyResult *anomaly.Result) Summary {

	issueCount := 0
	for _, issue := range issues {
		issueCount += issue.Count
	}
	anomalyCount := 0
	if anomalyResult != nil {
		anomalyCount = anomalyResult.Count
	}

	risk := riskFromCounts(issueCount, anomalyCount)
	if len(issues) == 0 && anomalyResult.IsInspection() {
		risk = RiskMedium
	}

	return Summary{
		AccountsCount:     accountsCount,
		TransactionsCount: transactionsCount,
		VendorsCount:      vendorsCount,
		Issues:            issues,
		Anomaly:           anomalyResult,
		Risk:              risk,
	}
}

// Format renders the human-readable report: counts, each finding with
// up to two examples, and the trailing risk line.
func Format(s Summary) string {
	var lines []string
	lines = append(lines, "Migration Summary")
	lines = append(lines, "-----------------")
	lines = append(lines, fmt.Sprintf("Accounts processed: %d", s.AccountsCount))
	lines = append(lines, fmt.Sprintf("Transactions processed: %d", s.TransactionsCount))
	if s.VendorsCount != nil {
		lines = append(lines, fmt.Sprintf("Vendors processed: %d", *s.VendorsCount))
	}
	lines = append(lines, "")
	lines = append(lines, "Issues detected:")

	if len(s.Issues) == 0 && s.Anomaly == nil {
		lines = append(lines, "- none")
	} else {
		for _, issue := range s.Issues {
			lines = append(lines, fmt.Sprintf("- %s (%d)", issue.Message, issue.Count))
			lines = append(lines, exampleLines(issue.Examples)...)
		}
		if s.Anomaly != nil {
			lines = append(lines, fmt.Sprintf("- %s (%d)", s.Anomaly.Message, s.Anomaly.Count))
			lines = append(lines, exampleLines(s.Anomaly.Examples)...)
		}
	}

	lines = append(lines, "")
	lines = append(lines, fmt.Sprintf("Migration risk level: %s", s.Risk))
	return strings.Join(lines, "\n")
}

// exampleLines renders at most two examples per finding, with keys in
// sorted order for stable output.
func exampleLines(examples []map[string]string) []string {
	var lines []string
	for i, example := range examples {
		if i == 2 {
			break
		}
		keys := make([]string, 0, len(example))
		for k := range example {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, k := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, example[k]))
		}
		lines = append(lines, "    example: "+strings.Join(pairs, ", "))
	}
	return lines
}

// Document is the machine-readable report for automation (CI,
// dashboards, regression baselines).
type Document struct {
	RunID    string               `json:"run_id,omitempty"`
	Counts   Counts               `json:"counts"`
	Cleaning *adapters.CleanStats `json:"cleaning,omitempty"`
	Issues   []validator.Issue    `json:"issues"`
	Anomaly  *anomaly.Result      `json:"anomaly"`
	Risk     RiskLevel            `json:"risk"`
}

type Counts struct {
	Accounts     int  `json:"accounts"`
	Transactions int  `json:"transactions"`
	Vendors      *int `json:"vendors"`
}

// BuildDocument assembles the JSON report. stats may be nil (the
// pass-through adapter does no cleaning) and is then absent from the
// output.
func BuildDocument(s Summary, stats *adapters.CleanStats, runID string) Document {
	issues := s.Issues
	if issues == nil {
		issues = []validator.Issue{}
	}
	return Document{
		RunID: runID,
		Counts: Counts{
			Accounts:     s.AccountsCount,
			Transactions: s.TransactionsCount,
			Vendors:      s.VendorsCount,
		},
		Cleaning: stats,
		Issues:   issues,
		Anomaly:  s.Anomaly,
		Risk:     s.Risk,
	}
}
