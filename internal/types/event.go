package types

// ProgressEvent is the one canonical shape every transport's progress update
// is normalized into at the network boundary. Downstream logic never sees a
// raw payload.
type ProgressEvent struct {
	SessionID string
	Stage     SessionStatus
	Progress  int
	Message   string
	Result    *AnalysisResult
	Err       string
}

// Terminal reports whether no further events follow this one.
func (e ProgressEvent) Terminal() bool {
	return e.Err != "" || e.Stage.Terminal()
}
