package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mindorah/interviewd/internal/session"
)

// Chunk is one retrieved reference snippet. Ephemeral: it feeds a single
// augmented outbound message list and is never persisted.
type Chunk struct {
	ID     string
	Score  float64
	Text   string
	Source string
}

// Embedder computes vector embeddings for query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index answers nearest-neighbour queries over the reference corpus.
type Index interface {
	Search(ctx context.Context, vector []float32, k int) ([]Chunk, error)
}

const defaultTopK = 5

const contextPreamble = "System note: The following information has been retrieved from relevant reference documents, and you can use as context where appropriate:"

// Engine augments an outbound transcript with retrieved context. Every
// failure inside the engine is soft: the model call proceeds unaugmented.
type Engine struct {
	embedder Embedder
	index    Index
	topK     int
	logger   *slog.Logger

	observeChunks func(count int)
}

func NewEngine(embedder Embedder, index Index, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{embedder: embedder, index: index, topK: defaultTopK, logger: logger}
}

// SetTopK overrides how many chunks each query retrieves.
func (e *Engine) SetTopK(k int) {
	if k > 0 {
		e.topK = k
	}
}

// SetChunkObserver registers a callback invoked with the snippet count of
// every successful search, including empty results.
func (e *Engine) SetChunkObserver(fn func(count int)) {
	e.observeChunks = fn
}

// Augment returns the message list to send to the model. The returned slice
// is always a copy: the synthetic context turn must never reach the
// persisted transcript.
func (e *Engine) Augment(ctx context.Context, transcript []session.Turn) []session.Turn {
	outbound := make([]session.Turn, len(transcript))
	copy(outbound, transcript)

	if e == nil || e.embedder == nil || e.index == nil {
		return outbound
	}

	query := QueryFromTranscript(transcript)
	if query == "" {
		return outbound
	}

	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		e.logger.Warn("context retrieval: embedding failed, skipping", "error", err)
		return outbound
	}

	chunks, err := e.index.Search(ctx, vector, e.topK)
	if err != nil {
		e.logger.Warn("context retrieval: search failed, skipping", "error", err)
		return outbound
	}
	if e.observeChunks != nil {
		e.observeChunks(len(chunks))
	}
	if len(chunks) == 0 {
		return outbound
	}

	contextTurn := session.Turn{Role: session.RoleSystem, Content: buildContextMessage(chunks)}
	if len(outbound) > 0 && outbound[0].Role == session.RoleSystem {
		outbound = append(outbound[:1], append([]session.Turn{contextTurn}, outbound[1:]...)...)
	} else {
		outbound = append([]session.Turn{contextTurn}, outbound...)
	}
	e.logger.Debug("context retrieval: injected snippets", "count", len(chunks))
	return outbound
}

func buildContextMessage(chunks []Chunk) string {
	parts := make([]string, 0, len(chunks)+1)
	parts = append(parts, contextPreamble)
	for i, chunk := range chunks {
		parts = append(parts, fmt.Sprintf("\n--- Retrieved Document Snippet %d ---\n%s", i+1, chunk.Text))
	}
	return strings.Join(parts, "\n")
}
