package app

import (
	"strings"
	"testing"

	"github.com/projects-hacks/clear-clause/internal/types"
)

func TestRenderTranscriptEmptyShowsHint(t *testing.T) {
	out := renderTranscript(nil, 80)
	if !strings.Contains(out, "Ask a question") {
		t.Fatalf("empty transcript hint missing: %q", out)
	}
}

func TestRenderTranscriptMarksUnsealedAnswer(t *testing.T) {
	messages := []*types.ChatMessage{
		{ID: "u1", Role: types.RoleUser, Content: "Is clause 3 fair?", IsComplete: true},
		{ID: "a1", Role: types.RoleAssistant, Content: "Clause 3 limits", IsComplete: false},
	}
	out := renderTranscript(messages, 80)
	if !strings.Contains(out, "…") {
		t.Fatalf("streaming answer should carry a typing marker:\n%s", out)
	}
}

func TestRenderTranscriptShowsSourcesOnlyWhenSealed(t *testing.T) {
	sealed := []*types.ChatMessage{
		{ID: "a1", Role: types.RoleAssistant, Content: "Done.", Sources: []string{"Clause 2"}, IsComplete: true},
	}
	if out := renderTranscript(sealed, 80); !strings.Contains(out, "Clause 2") {
		t.Fatalf("sealed answer should list sources:\n%s", out)
	}

	streaming := []*types.ChatMessage{
		{ID: "a2", Role: types.RoleAssistant, Content: "Working", Sources: []string{"Clause 9"}, IsComplete: false},
	}
	if out := renderTranscript(streaming, 80); strings.Contains(out, "Clause 9") {
		t.Fatalf("streaming answer must not list sources yet:\n%s", out)
	}
}
