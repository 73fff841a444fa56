package retrieval

import (
	"testing"

	"github.com/mindorah/interviewd/internal/session"
)

func TestQueryFromTranscriptDropsScriptedTurns(t *testing.T) {
	transcript := []session.Turn{
		{Role: session.RoleSystem, Content: "interview prompt"},
		{Role: session.RoleAssistant, Content: "hi"},
		{Role: session.RoleAssistant, Content: "intro"},
		{Role: session.RoleUser, Content: "<-START->"},
		{Role: session.RoleUser, Content: "real answer"},
		{Role: session.RoleAssistant, Content: "reply"},
	}
	got := QueryFromTranscript(transcript)
	want := "real answer\nreply"
	if got != want {
		t.Fatalf("query = %q, want %q", got, want)
	}
}

func TestQueryFromTranscriptEmptyCases(t *testing.T) {
	if got := QueryFromTranscript(nil); got != "" {
		t.Fatalf("nil transcript query = %q, want empty", got)
	}

	onlyOpeners := []session.Turn{
		{Role: session.RoleSystem, Content: "prompt"},
		{Role: session.RoleAssistant, Content: "hello"},
		{Role: session.RoleUser, Content: "<-START->"},
	}
	if got := QueryFromTranscript(onlyOpeners); got != "" {
		t.Fatalf("opener-only transcript query = %q, want empty", got)
	}
}

func TestQueryFromTranscriptDoesNotMutateInput(t *testing.T) {
	transcript := []session.Turn{
		{Role: session.RoleSystem, Content: "prompt"},
		{Role: session.RoleUser, Content: "<-START->"},
		{Role: session.RoleUser, Content: "answer"},
	}
	_ = QueryFromTranscript(transcript)
	if len(transcript) != 3 || transcript[0].Role != session.RoleSystem {
		t.Fatalf("input transcript was mutated: %+v", transcript)
	}
}
