package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/netip"

	"github.com/jackc/pgx/v5"
	"github.com/nettrail/ipstory/cmd/ipstory/models"
	"github.com/nettrail/ipstory/common/db"
)

// PostgresStoryStore keeps each story as one JSONB row keyed by the
// address string. Storage stays at whole-story blob granularity; the
// database only contributes the primary key index.
type PostgresStoryStore struct {
	db *db.DB
}

// NewPostgresStoryStore creates a Postgres-backed story store.
func NewPostgresStoryStore(db *db.DB) *PostgresStoryStore {
	return &PostgresStoryStore{db: db}
}

// EnsureSchema creates the story table. Run as a bootstrap init hook.
func EnsureSchema(db *db.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS ip_story (
			ip    TEXT PRIMARY KEY,
			story JSONB NOT NULL
		)
	`
	if _, err := db.Exec(context.Background(), query); err != nil {
		return fmt.Errorf("create ip_story table: %w", err)
	}
	return nil
}

func (s *PostgresStoryStore) Exists(ctx context.Context, ip netip.Addr) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM ip_story WHERE ip = $1)`

	var exists bool
	if err := s.db.QueryRow(ctx, query, ip.String()).Scan(&exists); err != nil {
		return false, &StorageError{Op: "exists", IP: ip.String(), Err: err}
	}
	return exists, nil
}

func (s *PostgresStoryStore) Load(ctx context.Context, ip netip.Addr) (models.IpStory, error) {
	query := `SELECT story FROM ip_story WHERE ip = $1`

	var blob []byte
	err := s.db.QueryRow(ctx, query, ip.String()).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.IpStory{}, ErrNoStory
	}
	if err != nil {
		return models.IpStory{}, &StorageError{Op: "load", IP: ip.String(), Err: err}
	}
	var story models.IpStory
	if err := json.Unmarshal(blob, &story); err != nil {
		return models.IpStory{}, &StorageError{Op: "load", IP: ip.String(), Err: err}
	}
	return story, nil
}

func (s *PostgresStoryStore) Save(ctx context.Context, story models.IpStory) error {
	query := `
		INSERT INTO ip_story (ip, story)
		VALUES ($1, $2)
		ON CONFLICT (ip) DO UPDATE SET story = EXCLUDED.story
	`

	blob, err := json.Marshal(story)
	if err != nil {
		return &StorageError{Op: "save", IP: story.IP.String(), Err: err}
	}
	if _, err := s.db.Exec(ctx, query, story.IP.String(), blob); err != nil {
		return &StorageError{Op: "save", IP: story.IP.String(), Err: err}
	}
	return nil
}
