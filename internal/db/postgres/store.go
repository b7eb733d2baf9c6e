package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"confluencekb/internal/domain/kb"
	applog "confluencekb/internal/platform/log"
)

// Store is the pgvector-backed corpus store: Confluence pages, document
// chunks with their embeddings, and the append-only query log.
type Store struct {
	db   *sql.DB
	dims int
}

func NewStore(db *sql.DB, dims int) *Store {
	if dims <= 0 {
		dims = 384
	}
	return &Store{db: db, dims: dims}
}

// EnsureSchema creates the extension, tables and vector indexes. Missing
// pgvector or index support is logged, not fatal: search then degrades to the
// exact in-process tier.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE EXTENSION IF NOT EXISTS vector`); err != nil {
		applog.Warn("[Storage] pgvector extension unavailable, native search disabled", "error", err)
	}

	ddl := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS confluence_pages (
		id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		page_id       VARCHAR(255) NOT NULL UNIQUE,
		title         VARCHAR(500) NOT NULL,
		space_key     VARCHAR(100) NOT NULL,
		content       TEXT NOT NULL,
		url           VARCHAR(500),
		last_modified TIMESTAMPTZ,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS document_chunks (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		page_id     UUID NOT NULL,
		chunk_text  TEXT NOT NULL,
		chunk_index INTEGER NOT NULL,
		embedding   vector(%d),
		metadata    JSONB,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_document_chunks_page ON document_chunks(page_id);

	CREATE TABLE IF NOT EXISTS query_logs (
		id              UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		query           TEXT NOT NULL,
		response        TEXT,
		relevance_score DOUBLE PRECISION,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);
	`, s.dims)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}

	s.ensureVectorIndex(ctx)
	return nil
}

// ensureVectorIndex prefers HNSW and falls back to IVFFlat. Both failing
// leaves sequential-scan vector search, which is still correct.
func (s *Store) ensureVectorIndex(ctx context.Context) {
	_, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding_hnsw
		ON document_chunks USING hnsw (embedding vector_cosine_ops)`)
	if err == nil {
		applog.Info("[Storage] HNSW vector index ready")
		return
	}
	applog.Warn("[Storage] HNSW index unavailable, trying IVFFlat", "error", err)

	_, err = s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding_ivfflat
		ON document_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`)
	if err != nil {
		applog.Warn("[Storage] IVFFlat index unavailable, vector search will scan", "error", err)
		return
	}
	applog.Info("[Storage] IVFFlat vector index ready")
}

// ── Pages ────────────────────────────────────────────────────

func (s *Store) UpsertPage(ctx context.Context, page *kb.Page) error {
	if page.ID == "" {
		page.ID = uuid.New().String()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO confluence_pages (id, page_id, title, space_key, content, url, last_modified, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (page_id) DO UPDATE SET
			title = EXCLUDED.title,
			space_key = EXCLUDED.space_key,
			content = EXCLUDED.content,
			url = EXCLUDED.url,
			last_modified = EXCLUDED.last_modified,
			updated_at = NOW()`,
		page.ID, page.PageID, page.Title, page.SpaceKey, page.Content, page.URL, nullTime(page.LastModified))
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", page.PageID, err)
	}
	return nil
}

func (s *Store) ListPages(ctx context.Context) ([]kb.Page, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, title, space_key, content, COALESCE(url, ''),
		       COALESCE(last_modified, created_at), created_at, updated_at
		FROM confluence_pages
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []kb.Page
	for rows.Next() {
		var p kb.Page
		if err := rows.Scan(&p.ID, &p.PageID, &p.Title, &p.SpaceKey, &p.Content,
			&p.URL, &p.LastModified, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// ── Chunks ───────────────────────────────────────────────────

// ReplaceChunks swaps all chunks of a page in one transaction: full replace,
// not merge.
func (s *Store) ReplaceChunks(ctx context.Context, pageID string, chunks []kb.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_chunks WHERE page_id = $1`, pageID); err != nil {
		return fmt.Errorf("delete old chunks: %w", err)
	}

	for _, c := range chunks {
		meta, err := json.Marshal(c.Metadata)
		if err != nil {
			return fmt.Errorf("marshal chunk metadata: %w", err)
		}

		var embedding any
		if len(c.Embedding) > 0 {
			embedding = FormatVector(c.Embedding)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO document_chunks (id, page_id, chunk_text, chunk_index, embedding, metadata)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			c.ID, c.PageID, c.Text, c.Index, embedding, meta); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Index, err)
		}
	}

	return tx.Commit()
}

func (s *Store) CountChunks(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_chunks`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

func (s *Store) ListChunksWithEmbeddings(ctx context.Context, limit int) ([]kb.Chunk, error) {
	return s.listChunks(ctx, limit, true)
}

func (s *Store) ListChunks(ctx context.Context, limit int) ([]kb.Chunk, error) {
	return s.listChunks(ctx, limit, false)
}

func (s *Store) listChunks(ctx context.Context, limit int, embeddedOnly bool) ([]kb.Chunk, error) {
	where := ""
	if embeddedOnly {
		where = "WHERE embedding IS NOT NULL"
	}

	query := fmt.Sprintf(`
		SELECT id, page_id, chunk_text, chunk_index, COALESCE(embedding::text, ''), COALESCE(metadata::text, '{}'), created_at
		FROM document_chunks %s
		ORDER BY created_at
		LIMIT $1`, where)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	var chunks []kb.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SearchNearest runs the native cosine-distance query. Distance, not
// similarity, crosses this boundary; callers convert.
func (s *Store) SearchNearest(ctx context.Context, vector []float32, limit int) ([]kb.NearestChunk, error) {
	literal := FormatVector(vector)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, page_id, chunk_text, chunk_index, COALESCE(embedding::text, ''), COALESCE(metadata::text, '{}'), created_at,
		       embedding <=> $1 AS distance
		FROM document_chunks
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, literal, limit)
	if err != nil {
		return nil, fmt.Errorf("nearest search: %w", err)
	}
	defer rows.Close()

	var results []kb.NearestChunk
	for rows.Next() {
		var (
			c        kb.Chunk
			rawVec   string
			rawMeta  string
			distance float64
		)
		if err := rows.Scan(&c.ID, &c.PageID, &c.Text, &c.Index, &rawVec, &rawMeta, &c.CreatedAt, &distance); err != nil {
			return nil, fmt.Errorf("scan nearest chunk: %w", err)
		}
		fillChunk(&c, rawVec, rawMeta)
		results = append(results, kb.NearestChunk{Chunk: c, Distance: distance})
	}
	return results, rows.Err()
}

// ── Query log ────────────────────────────────────────────────

func (s *Store) InsertQueryLog(ctx context.Context, entry *kb.QueryLogEntry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_logs (id, query, response, relevance_score)
		VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), entry.Query, entry.Response, entry.RelevanceScore)
	if err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

// ── Helpers ──────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChunk(row rowScanner) (kb.Chunk, error) {
	var (
		c       kb.Chunk
		rawVec  string
		rawMeta string
	)
	if err := row.Scan(&c.ID, &c.PageID, &c.Text, &c.Index, &rawVec, &rawMeta, &c.CreatedAt); err != nil {
		return kb.Chunk{}, fmt.Errorf("scan chunk: %w", err)
	}
	fillChunk(&c, rawVec, rawMeta)
	return c, nil
}

func fillChunk(c *kb.Chunk, rawVec, rawMeta string) {
	if rawVec != "" {
		if vec, err := ParseVector(rawVec); err == nil {
			c.Embedding = vec
		} else {
			applog.Warn("[Storage] Malformed embedding, leaving nil", "chunk", c.ID, "error", err)
		}
	}
	if rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &c.Metadata); err != nil {
			applog.Warn("[Storage] Malformed chunk metadata", "chunk", c.ID, "error", err)
		}
	}
}

// FormatVector renders the pgvector wire literal: [f1,f2,...].
func FormatVector(vec []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}

// ParseVector reads the pgvector wire literal back into a slice.
func ParseVector(raw string) ([]float32, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "[") || !strings.HasSuffix(raw, "]") {
		return nil, fmt.Errorf("not a vector literal: %q", raw)
	}
	inner := strings.TrimSpace(raw[1 : len(raw)-1])
	if inner == "" {
		return nil, nil
	}

	parts := strings.Split(inner, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("parse vector element %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
