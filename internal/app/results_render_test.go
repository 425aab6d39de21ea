package app

import (
	"strings"
	"testing"

	"github.com/projects-hacks/clear-clause/internal/types"
)

func TestSortClausesBySeverityThenPage(t *testing.T) {
	clauses := []types.Clause{
		{ClauseID: "c1", Severity: types.SeveritySafe, PageNumber: 1},
		{ClauseID: "c2", Severity: types.SeverityCritical, PageNumber: 4},
		{ClauseID: "c3", Severity: types.SeverityWarning, PageNumber: 2},
		{ClauseID: "c4", Severity: types.SeverityCritical, PageNumber: 2},
	}
	sorted := sortClauses(clauses)

	var order []string
	for _, clause := range sorted {
		order = append(order, clause.ClauseID)
	}
	want := []string{"c4", "c2", "c3", "c1"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
	// The input slice is left alone.
	if clauses[0].ClauseID != "c1" {
		t.Fatalf("sortClauses mutated its input")
	}
}

func TestRenderResultShowsCountsAndConcerns(t *testing.T) {
	out := renderResult(&types.AnalysisResult{
		DocumentName:   "lease.pdf",
		TotalClauses:   12,
		FlaggedClauses: 3,
		TopConcerns:    []string{"Unlimited liability in clause 7"},
		Clauses: []types.Clause{
			{Text: "Tenant waives all claims", Severity: types.SeverityCritical, PageNumber: 3, PlainLanguage: "You give up the right to sue."},
		},
	}, 100)

	for _, want := range []string{"lease.pdf", "12 clauses", "3 flagged", "Unlimited liability", "[CRITICAL]", "p.3", "right to sue"} {
		if !strings.Contains(out, want) {
			t.Fatalf("rendered result missing %q:\n%s", want, out)
		}
	}
}

func TestRenderResultNilIsEmpty(t *testing.T) {
	if out := renderResult(nil, 80); out != "" {
		t.Fatalf("nil result rendered %q", out)
	}
}

func TestTruncateLine(t *testing.T) {
	cases := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"multi\nline", 20, "multi line"},
		{"somewhat longer text", 10, "somewhat …"},
		{"anything", 0, ""},
	}
	for _, tc := range cases {
		if got := truncateLine(tc.in, tc.width); got != tc.want {
			t.Fatalf("truncateLine(%q, %d) = %q, want %q", tc.in, tc.width, got, tc.want)
		}
	}
}
