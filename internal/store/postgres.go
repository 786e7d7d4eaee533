package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/suvichaar/storygen/internal/models"
)

// PostgresStore keeps the story lookup index in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the stories_index table if it doesn't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stories_index (
			id           UUID PRIMARY KEY,
			mode         VARCHAR(16)  NOT NULL,
			category     VARCHAR(64)  NOT NULL DEFAULT '',
			language     VARCHAR(16)  NOT NULL DEFAULT '',
			slide_count  INTEGER      NOT NULL,
			template_key VARCHAR(128) NOT NULL,
			canurl       TEXT UNIQUE  NOT NULL,
			canurl1      TEXT         NOT NULL,
			document_url TEXT         NOT NULL DEFAULT '',
			created_at   TIMESTAMPTZ  DEFAULT NOW()
		)
	`)
	return err
}

// Upsert indexes a story by id.
func (s *PostgresStore) Upsert(ctx context.Context, rec *models.StoryRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stories_index (id, mode, category, language, slide_count, template_key, canurl, canurl1, document_url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
			canurl = EXCLUDED.canurl,
			canurl1 = EXCLUDED.canurl1,
			document_url = EXCLUDED.document_url`,
		rec.ID, string(rec.Mode), rec.Category, rec.InputLanguage, rec.SlideCount, rec.TemplateKey,
		rec.CanURL, rec.CanURL1, rec.DocumentURL, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("index story: %w", err)
	}
	return nil
}

// IDByCanURL resolves either canonical URL form to a record id.
func (s *PostgresStore) IDByCanURL(ctx context.Context, canurl string) (string, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`SELECT id::text FROM stories_index WHERE canurl = $1 OR canurl1 = $1`, canurl,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return id, nil
}
