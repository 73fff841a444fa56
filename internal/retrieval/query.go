package retrieval

import (
	"strings"

	"github.com/mindorah/interviewd/internal/session"
)

// QueryFromTranscript derives the similarity-search query for a transcript.
//
// The leading system turn, the agent's scripted opening assistant turns and
// the first user turn (the generic start trigger) carry no semantic content
// and would pollute the search, so they are dropped before the remaining turn
// texts are concatenated.
func QueryFromTranscript(transcript []session.Turn) string {
	turns := make([]session.Turn, len(transcript))
	copy(turns, transcript)

	for i, turn := range turns {
		if turn.Role == session.RoleSystem {
			turns = append(turns[:i], turns[i+1:]...)
			break
		}
	}

	for len(turns) > 0 && turns[0].Role == session.RoleAssistant {
		turns = turns[1:]
	}

	for i, turn := range turns {
		if turn.Role == session.RoleUser {
			turns = append(turns[:i], turns[i+1:]...)
			break
		}
	}

	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
