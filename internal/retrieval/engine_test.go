package retrieval

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mindorah/interviewd/internal/session"
)

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	s.calls++
	return s.vector, s.err
}

type stubIndex struct {
	chunks []Chunk
	err    error
}

func (s *stubIndex) Search(_ context.Context, _ []float32, _ int) ([]Chunk, error) {
	return s.chunks, s.err
}

func sampleTranscript() []session.Turn {
	return []session.Turn{
		{Role: session.RoleSystem, Content: "prompt"},
		{Role: session.RoleAssistant, Content: "hi"},
		{Role: session.RoleUser, Content: "<-START->"},
		{Role: session.RoleUser, Content: "tell me about goroutines"},
	}
}

func TestAugmentInjectsAfterLeadingSystemTurn(t *testing.T) {
	engine := NewEngine(
		&stubEmbedder{vector: []float32{0.1, 0.2}},
		&stubIndex{chunks: []Chunk{{ID: "c1", Score: 0.9, Text: "snippet one"}, {ID: "c2", Score: 0.8, Text: "snippet two"}}},
		nil,
	)

	transcript := sampleTranscript()
	outbound := engine.Augment(context.Background(), transcript)

	if len(outbound) != len(transcript)+1 {
		t.Fatalf("outbound length = %d, want %d", len(outbound), len(transcript)+1)
	}
	if outbound[0].Role != session.RoleSystem || outbound[0].Content != "prompt" {
		t.Fatalf("leading system turn displaced: %+v", outbound[0])
	}
	injected := outbound[1]
	if injected.Role != session.RoleSystem {
		t.Fatalf("injected turn role = %q, want system", injected.Role)
	}
	if !strings.Contains(injected.Content, "Retrieved Document Snippet 1") ||
		!strings.Contains(injected.Content, "snippet two") {
		t.Fatalf("injected content missing snippets: %q", injected.Content)
	}
	// Persisted transcript stays untouched.
	if len(transcript) != 4 {
		t.Fatalf("input transcript mutated: %+v", transcript)
	}
}

func TestAugmentInjectsAtHeadWithoutSystemTurn(t *testing.T) {
	engine := NewEngine(
		&stubEmbedder{vector: []float32{0.1}},
		&stubIndex{chunks: []Chunk{{ID: "c1", Text: "snippet"}}},
		nil,
	)
	transcript := []session.Turn{
		{Role: session.RoleUser, Content: "<-START->"},
		{Role: session.RoleUser, Content: "question"},
	}
	outbound := engine.Augment(context.Background(), transcript)
	if outbound[0].Role != session.RoleSystem {
		t.Fatalf("context turn should lead when no system turn exists: %+v", outbound[0])
	}
}

func TestAugmentFailsSoftOnEmbeddingError(t *testing.T) {
	engine := NewEngine(
		&stubEmbedder{err: errors.New("embedding down")},
		&stubIndex{chunks: []Chunk{{ID: "c1", Text: "snippet"}}},
		nil,
	)
	transcript := sampleTranscript()
	outbound := engine.Augment(context.Background(), transcript)
	if len(outbound) != len(transcript) {
		t.Fatalf("embedding failure must skip injection, got %d turns", len(outbound))
	}
}

func TestAugmentFailsSoftOnSearchError(t *testing.T) {
	engine := NewEngine(
		&stubEmbedder{vector: []float32{0.5}},
		&stubIndex{err: errors.New("index down")},
		nil,
	)
	transcript := sampleTranscript()
	outbound := engine.Augment(context.Background(), transcript)
	if len(outbound) != len(transcript) {
		t.Fatalf("search failure must skip injection, got %d turns", len(outbound))
	}
}

func TestAugmentSkipsEmbeddingForEmptyQuery(t *testing.T) {
	emb := &stubEmbedder{vector: []float32{0.5}}
	engine := NewEngine(emb, &stubIndex{}, nil)

	transcript := []session.Turn{
		{Role: session.RoleSystem, Content: "prompt"},
		{Role: session.RoleUser, Content: "<-START->"},
	}
	_ = engine.Augment(context.Background(), transcript)
	if emb.calls != 0 {
		t.Fatalf("empty derived query must not be embedded, got %d calls", emb.calls)
	}
}
