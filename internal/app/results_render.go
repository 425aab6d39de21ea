package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/projects-hacks/clear-clause/internal/types"
)

func severityStyleFor(severity types.ClauseSeverity) lipgloss.Style {
	switch severity {
	case types.SeverityCritical:
		return severityCriticalStyle
	case types.SeverityWarning:
		return severityWarningStyle
	case types.SeverityInfo:
		return severityInfoStyle
	default:
		return severitySafeStyle
	}
}

// sortClauses orders by severity, highest first, then by page so the reading
// order stays stable within a severity band.
func sortClauses(clauses []types.Clause) []types.Clause {
	out := append([]types.Clause{}, clauses...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		return out[i].PageNumber < out[j].PageNumber
	})
	return out
}

// renderResult lays out the clause breakdown for the results screen.
func renderResult(result *types.AnalysisResult, width int) string {
	if result == nil {
		return ""
	}
	if width <= 0 {
		width = 80
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%s — %d clauses, %d flagged", result.DocumentName, result.TotalClauses, result.FlaggedClauses)))
	b.WriteString("\n\n")

	if result.Summary != "" {
		b.WriteString(summaryStyle.Render(renderMarkdown(result.Summary, width)))
		b.WriteString("\n\n")
	}
	if len(result.TopConcerns) > 0 {
		b.WriteString(headerStyle.Render("Top concerns"))
		b.WriteString("\n")
		for _, concern := range result.TopConcerns {
			b.WriteString(concernStyle.Render("  ! " + truncateLine(concern, width-4)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	for _, clause := range sortClauses(result.Clauses) {
		style := severityStyleFor(clause.Severity)
		b.WriteString(style.Render(fmt.Sprintf("[%s]", strings.ToUpper(string(clause.Severity)))))
		b.WriteString(fmt.Sprintf(" p.%d %s\n", clause.PageNumber, truncateLine(clause.Text, width-12)))
		if clause.PlainLanguage != "" {
			b.WriteString("  " + truncateLine(clause.PlainLanguage, width-2) + "\n")
		}
		if clause.Suggestion != "" {
			b.WriteString(helpStyle.Render("  suggestion: "+truncateLine(clause.Suggestion, width-14)) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// truncateLine keeps a single display row, honoring wide runes.
func truncateLine(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
