package view

import "github.com/projects-hacks/clear-clause/internal/types"

// Phase is the fixed set of screens the UI can be in for one session. The
// mapping from session state is total: every snapshot resolves to exactly
// one phase.
type Phase int

const (
	// PhaseEmpty renders the upload drop zone; there is nothing to show.
	PhaseEmpty Phase = iota
	// PhaseProcessing renders staged progress while the pipeline runs.
	PhaseProcessing
	// PhaseResults renders the clause breakdown and the assistant.
	PhaseResults
	// PhaseError renders the failure and the retry affordance.
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhaseProcessing:
		return "processing"
	case PhaseResults:
		return "results"
	case PhaseError:
		return "error"
	default:
		return "unknown"
	}
}

// Resolve maps one session snapshot to its phase. A session reported
// complete whose result payload has not arrived yet still renders as
// processing rather than an empty results screen.
func Resolve(s *types.Session) Phase {
	switch {
	case s == nil:
		return PhaseEmpty
	case s.Status == types.StatusError:
		return PhaseError
	case s.Status == types.StatusComplete && s.Result != nil:
		return PhaseResults
	default:
		return PhaseProcessing
	}
}

// StageLabel is the short human name for a pipeline stage.
func StageLabel(status types.SessionStatus) string {
	switch status {
	case types.StatusUploading:
		return "Uploading"
	case types.StatusExtracting:
		return "Extracting text"
	case types.StatusRedacting:
		return "Redacting personal data"
	case types.StatusAnalyzing:
		return "Analyzing clauses"
	case types.StatusComplete:
		return "Complete"
	case types.StatusError:
		return "Failed"
	default:
		return string(status)
	}
}
