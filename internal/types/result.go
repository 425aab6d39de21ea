package types

type ClauseCategory string

const (
	CategoryRightsGivenUp     ClauseCategory = "rights_given_up"
	CategoryOneSided          ClauseCategory = "one_sided"
	CategoryFinancialImpact   ClauseCategory = "financial_impact"
	CategoryMissingProtection ClauseCategory = "missing_protection"
	CategoryStandard          ClauseCategory = "standard"
)

type ClauseSeverity string

const (
	SeverityCritical ClauseSeverity = "critical"
	SeverityWarning  ClauseSeverity = "warning"
	SeverityInfo     ClauseSeverity = "info"
	SeveritySafe     ClauseSeverity = "safe"
)

// Rank orders severities for sorting, highest first.
func (s ClauseSeverity) Rank() int {
	switch s {
	case SeverityCritical:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	case SeveritySafe:
		return 0
	default:
		return -1
	}
}

// ClausePosition is a bounding box in PDF coordinates.
type ClausePosition struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

type Clause struct {
	ClauseID          string          `json:"clause_id"`
	Text              string          `json:"text"`
	PlainLanguage     string          `json:"plain_language"`
	Category          ClauseCategory  `json:"category"`
	Severity          ClauseSeverity  `json:"severity"`
	TypicalComparison string          `json:"typical_comparison,omitempty"`
	Suggestion        string          `json:"suggestion,omitempty"`
	PageNumber        int             `json:"page_number"`
	Position          *ClausePosition `json:"position,omitempty"`
}

// AnalysisResult is the backend's complete clause breakdown for one document.
type AnalysisResult struct {
	DocumentName   string         `json:"document_name"`
	DocumentType   string         `json:"document_type"`
	TotalClauses   int            `json:"total_clauses"`
	FlaggedClauses int            `json:"flagged_clauses"`
	Clauses        []Clause       `json:"clauses"`
	Summary        string         `json:"summary"`
	TopConcerns    []string       `json:"top_concerns"`
	CategoryCounts map[string]int `json:"category_counts"`
}

func CloneAnalysisResult(r *AnalysisResult) *AnalysisResult {
	if r == nil {
		return nil
	}
	out := *r
	if r.Clauses != nil {
		out.Clauses = make([]Clause, len(r.Clauses))
		for i, clause := range r.Clauses {
			copied := clause
			if clause.Position != nil {
				pos := *clause.Position
				copied.Position = &pos
			}
			out.Clauses[i] = copied
		}
	}
	if r.TopConcerns != nil {
		out.TopConcerns = append([]string{}, r.TopConcerns...)
	}
	if r.CategoryCounts != nil {
		out.CategoryCounts = make(map[string]int, len(r.CategoryCounts))
		for k, v := range r.CategoryCounts {
			out.CategoryCounts[k] = v
		}
	}
	return &out
}
