// Package storage archives fetched schedule snapshots in Postgres so a
// restart can serve the last known schedule while the remote source is
// unreachable.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/slotfinder/internal/db"
)

// ErrNoSnapshot is returned when no snapshot has ever been archived.
var ErrNoSnapshot = errors.New("no schedule snapshot archived")

type Snapshot struct {
	ID        int64
	Payload   []byte
	SourceURL string
	FetchedAt time.Time
}

type SnapshotRepository struct {
	pool *db.Pool
}

func NewSnapshotRepository(pool *db.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

// EnsureSchema creates the snapshot table when it does not exist yet.
func (r *SnapshotRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schedule_snapshots (
			id BIGSERIAL PRIMARY KEY,
			payload JSONB NOT NULL,
			source_url TEXT NOT NULL,
			fetched_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	return err
}

func (r *SnapshotRepository) Save(ctx context.Context, payload []byte, sourceURL string, fetchedAt time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_snapshots (payload, source_url, fetched_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`, payload, sourceURL, fetchedAt).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Latest returns the most recently fetched snapshot.
func (r *SnapshotRepository) Latest(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.pool.QueryRow(ctx, `
		SELECT id, payload, source_url, fetched_at
		FROM schedule_snapshots
		ORDER BY fetched_at DESC, id DESC
		LIMIT 1
	`).Scan(&snap.ID, &snap.Payload, &snap.SourceURL, &snap.FetchedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Prune deletes archived snapshots beyond the newest keep entries.
func (r *SnapshotRepository) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = 1
	}
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM schedule_snapshots
		WHERE id NOT IN (
			SELECT id FROM schedule_snapshots
			ORDER BY fetched_at DESC, id DESC
			LIMIT $1
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
