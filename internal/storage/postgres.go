package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bespokepunks/traitsampler/internal/config"
	"github.com/bespokepunks/traitsampler/internal/embeddings"
	"github.com/bespokepunks/traitsampler/internal/models"
)

// PostgresStorage upserts results into the caption_reviews table, keyed by
// filename.
type PostgresStorage struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage connection
func NewPostgresStorage(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStorage{pool: pool, logger: logger}, nil
}

// Close closes the database connection
func (s *PostgresStorage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

const upsertReview = `
INSERT INTO caption_reviews
    (filename, final_caption_txt, eyes, hair, skin, background, pattern, uncertain, review_note, features, updated_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, now())
ON CONFLICT (filename) DO UPDATE SET
    final_caption_txt = COALESCE(EXCLUDED.final_caption_txt, caption_reviews.final_caption_txt),
    eyes              = EXCLUDED.eyes,
    hair              = EXCLUDED.hair,
    skin              = EXCLUDED.skin,
    background        = EXCLUDED.background,
    pattern           = EXCLUDED.pattern,
    uncertain         = EXCLUDED.uncertain,
    review_note       = COALESCE(EXCLUDED.review_note, caption_reviews.review_note),
    features          = COALESCE(EXCLUDED.features, caption_reviews.features),
    updated_at        = now()`

// AddResult upserts a sprite result. The caption is only written when the
// run produced one, so trait-only runs leave reviewed captions alone.
func (s *PostgresStorage) AddResult(ctx context.Context, result models.SpriteResult) error {
	var features *pgvector.Vector
	if len(result.Features) == embeddings.Dim {
		v := pgvector.NewVector(result.Features)
		features = &v
	} else if len(result.Features) > 0 {
		s.logger.Warn("skipping feature vector with unexpected length",
			"filename", result.Filename, "len", len(result.Features))
	}

	uncertain := result.Uncertain
	if uncertain == nil {
		uncertain = []string{}
	}

	t := result.Traits
	_, err := s.pool.Exec(ctx, upsertReview,
		result.Filename, result.Caption,
		t.Eyes.Text, t.Hair.Text, t.Skin.Text, t.Background.Text, t.Pattern.Text,
		uncertain, result.ReviewNote, features)
	if err != nil {
		return fmt.Errorf("failed to store result for '%s': %w", result.Filename, err)
	}
	return nil
}

// Flush implements the Storage interface - no-op for Postgres as we save immediately
func (s *PostgresStorage) Flush() error {
	return nil
}

// SearchSimilar finds the sprites whose color features are closest to
// filename's, excluding filename itself.
func (s *PostgresStorage) SearchSimilar(ctx context.Context, filename string, limit int) ([]models.SimilarSprite, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT features IS NOT NULL FROM caption_reviews WHERE filename = $1",
		filename).Scan(&exists)
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("no record for '%s'", filename)
	} else if err != nil {
		return nil, fmt.Errorf("error looking up '%s': %w", filename, err)
	}
	if !exists {
		return nil, fmt.Errorf("no feature vector stored for '%s'", filename)
	}

	rows, err := s.pool.Query(ctx,
		`WITH q AS (SELECT features FROM caption_reviews WHERE filename = $1)
        SELECT r.filename, r.eyes, r.background, COALESCE(r.final_caption_txt, ''),
            1 - (r.features <=> q.features) AS similarity
        FROM caption_reviews r, q
        WHERE r.filename <> $1 AND r.features IS NOT NULL
        ORDER BY r.features <=> q.features
        LIMIT $2`,
		filename, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar sprites: %w", err)
	}
	defer rows.Close()

	var results []models.SimilarSprite
	for rows.Next() {
		var r models.SimilarSprite
		if err := rows.Scan(&r.Filename, &r.Eyes, &r.Background, &r.Caption, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		results = append(results, r)
	}

	return results, rows.Err()
}

// InitSchema creates the vector extension and the caption_reviews table if
// they don't exist.
func InitSchema(ctx context.Context, cfg config.PostgresConfig) error {
	conn, err := pgx.Connect(ctx, cfg.ConnString())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	_, err = conn.Exec(ctx, fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS caption_reviews (
            filename          TEXT PRIMARY KEY,
            final_caption_txt TEXT,
            eyes              TEXT NOT NULL DEFAULT '',
            hair              TEXT NOT NULL DEFAULT '',
            skin              TEXT NOT NULL DEFAULT '',
            background        TEXT NOT NULL DEFAULT '',
            pattern           TEXT NOT NULL DEFAULT '',
            uncertain         TEXT[] NOT NULL DEFAULT '{}',
            review_note       TEXT,
            features          vector(%d),
            updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
        );
    `, embeddings.Dim))
	if err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}

	_, err = conn.Exec(ctx, `
        CREATE INDEX IF NOT EXISTS idx_caption_reviews_eyes ON caption_reviews(eyes);
        CREATE INDEX IF NOT EXISTS idx_caption_reviews_features ON caption_reviews USING hnsw (features vector_cosine_ops);
    `)
	if err != nil {
		return fmt.Errorf("failed to create database indexes: %w", err)
	}

	return nil
}
