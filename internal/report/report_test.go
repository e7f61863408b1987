package report

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/davivargas/f-migration/internal/anomaly"
	"github.com/davivargas/f-migration/internal/validator"
)

func TestRiskFromCounts(t *testing.T) {
	tests := []struct {
		issues    int
		anomalies int
		want      RiskLevel
	}{
		{0, 0, RiskLow},
		{1, 0, RiskMedium},
		{0, 1, RiskMedium},
		{5, 5, RiskMedium},
		{10, 0, RiskMedium},
		{11, 0, RiskHigh},
		{6, 5, RiskHigh},
		{0, 200, RiskHigh},
	}
	for _, tt := range tests {
		if got := riskFromCounts(tt.issues, tt.anomalies); got != tt.want {
			t.Errorf("riskFromCounts(%d, %d) = %s, want %s", tt.issues, tt.anomalies, got, tt.want)
		}
	}
}

func TestExitCodes(t *testing.T) {
	if got := RiskLow.ExitCode(); got != 0 {
		t.Errorf("LOW exit code = %d, want 0", got)
	}
	if got := RiskMedium.ExitCode(); got != 2 {
		t.Errorf("MEDIUM exit code = %d, want 2", got)
	}
	if got := RiskHigh.ExitCode(); got != 3 {
		t.Errorf("HIGH exit code = %d, want 3", got)
	}
}

func TestBuildSummaryCleanRun(t *testing.T) {
	s := BuildSummary(3, 100, nil, nil, nil)
	if s.Risk != RiskLow {
		t.Errorf("risk = %s, want LOW", s.Risk)
	}
	if s.VendorsCount != nil {
		t.Error("vendors count should stay nil")
	}
}

// TestBuildSummaryInspectionForcesMedium covers the advisory nature of
// the top-N ranking: even 50 flagged rows with no rule issues must not
// escalate past MEDIUM, and must never read as LOW.
func TestBuildSummaryInspectionForcesMedium(t *testing.T) {
	top := &anomaly.Result{
		Message: "Top 50 largest absolute transaction amounts",
		Count:   50,
	}
	s := BuildSummary(3, 300, nil, nil, top)
	if s.Risk != RiskMedium {
		t.Errorf("risk = %s, want MEDIUM", s.Risk)
	}
}

func TestBuildSummaryInspectionWithIssuesUsesCounts(t *testing.T) {
	top := &anomaly.Result{
		Message: "Top 50 largest absolute transaction amounts",
		Count:   50,
	}
	issues := []validator.Issue{{Category: "referential", Message: "x", Count: 1}}
	s := BuildSummary(3, 300, nil, issues, top)
	if s.Risk != RiskHigh {
		t.Errorf("risk = %s, want HIGH", s.Risk)
	}
}

func TestBuildSummaryStatisticalCountsTowardRisk(t *testing.T) {
	robust := &anomaly.Result{
		Message: "Anomalous transaction amounts (modified z-score > 3.5)",
		Count:   12,
	}
	s := BuildSummary(3, 300, nil, nil, robust)
	if s.Risk != RiskHigh {
		t.Errorf("risk = %s, want HIGH", s.Risk)
	}
}

func TestFormatCleanRun(t *testing.T) {
	vendors := 7
	s := BuildSummary(3, 100, &vendors, nil, nil)

	got := Format(s)
	for _, want := range []string{
		"Migration Summary",
		"Accounts processed: 3",
		"Transactions processed: 100",
		"Vendors processed: 7",
		"- none",
		"Migration risk level: LOW",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatFindings(t *testing.T) {
	issues := []validator.Issue{
		{
			Category: "integrity",
			Message:  "Zero-amount transactions",
			Count:    2,
			Examples: []map[string]string{
				{"transaction_id": "t1", "amount": "0.00"},
				{"transaction_id": "t2", "amount": "0.00"},
				{"transaction_id": "t3", "amount": "0.00"},
			},
		},
	}
	s := BuildSummary(3, 100, nil, issues, nil)

	got := Format(s)
	if !strings.Contains(got, "- Zero-amount transactions (2)") {
		t.Errorf("missing finding line:\n%s", got)
	}
	if !strings.Contains(got, "    example: amount=0.00, transaction_id=t1") {
		t.Errorf("missing sorted-key example line:\n%s", got)
	}
	// at most two example lines per finding
	if strings.Contains(got, "t3") {
		t.Errorf("third example should not be rendered:\n%s", got)
	}
	if strings.Contains(got, "Vendors processed") {
		t.Errorf("vendor line should be absent without a vendor concept:\n%s", got)
	}
	if !strings.Contains(got, "Migration risk level: MEDIUM") {
		t.Errorf("missing risk line:\n%s", got)
	}
}

func TestBuildDocumentShape(t *testing.T) {
	vendors := 0
	s := BuildSummary(3, 100, &vendors, nil, nil)

	doc := BuildDocument(s, nil, "run-1")
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("run_id = %v", decoded["run_id"])
	}
	if _, ok := decoded["cleaning"]; ok {
		t.Error("cleaning should be omitted when stats are nil")
	}
	issues, ok := decoded["issues"].([]any)
	if !ok || issues == nil {
		t.Errorf("issues must be an empty array, got %v", decoded["issues"])
	}
	counts := decoded["counts"].(map[string]any)
	if counts["vendors"] != float64(0) {
		t.Errorf("vendors = %v, want 0 (explicit, not null)", counts["vendors"])
	}
	if decoded["risk"] != "LOW" {
		t.Errorf("risk = %v", decoded["risk"])
	}
}
