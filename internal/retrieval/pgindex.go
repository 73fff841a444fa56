package retrieval

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGIndex serves nearest-neighbour snippet lookups from a pgvector table.
type PGIndex struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPGIndex(ctx context.Context, databaseURL string, embeddingDim int) (*PGIndex, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if embeddingDim <= 0 {
		embeddingDim = 1536
	}

	idx := &PGIndex{pool: pool, dim: embeddingDim}
	if err := idx.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return idx, nil
}

func (x *PGIndex) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector;`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS reference_chunks (
			id TEXT PRIMARY KEY,
			text_chunk TEXT NOT NULL,
			source_txt TEXT NOT NULL DEFAULT '',
			embedding vector(%d)
		);`, x.dim),
	}
	for _, stmt := range stmts {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema failed on %q: %w", stmt, err)
		}
	}
	return nil
}

// Search returns the k nearest snippets by cosine distance, best first.
func (x *PGIndex) Search(ctx context.Context, vector []float32, k int) ([]Chunk, error) {
	if k <= 0 {
		k = defaultTopK
	}
	rows, err := x.pool.Query(ctx,
		`SELECT id, text_chunk, source_txt, 1 - (embedding <=> $1::vector) AS score
		 FROM reference_chunks
		 WHERE embedding IS NOT NULL
		 ORDER BY embedding <=> $1::vector
		 LIMIT $2`,
		vectorLiteral(vector), k,
	)
	if err != nil {
		return nil, fmt.Errorf("search reference chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]Chunk, 0, k)
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.Text, &c.Source, &c.Score); err != nil {
			return nil, fmt.Errorf("scan chunk row: %w", err)
		}
		chunks = append(chunks, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk rows: %w", err)
	}
	return chunks, nil
}

func (x *PGIndex) Close() error {
	x.pool.Close()
	return nil
}

func vectorLiteral(vector []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vector {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
