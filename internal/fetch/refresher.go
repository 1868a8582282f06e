package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/slotfinder/internal/events"
	"github.com/md-rashed-zaman/slotfinder/internal/metrics"
	"github.com/md-rashed-zaman/slotfinder/internal/model"
	"github.com/md-rashed-zaman/slotfinder/internal/schedule"
	"github.com/md-rashed-zaman/slotfinder/internal/storage"
)

// Refresher keeps the holder's snapshot current: it refetches the remote
// document on an interval, builds a fresh immutable store, and swaps it
// in. Queries running against the previous store are unaffected.
type Refresher struct {
	client    *Client
	holder    *schedule.Holder
	logger    *slog.Logger
	snapshots *storage.SnapshotRepository // optional
	publisher *events.Publisher           // nil drops events
	interval  time.Duration
	keep      int
}

type RefresherConfig struct {
	Interval      time.Duration
	KeepSnapshots int
	Snapshots     *storage.SnapshotRepository
	Publisher     *events.Publisher
}

func NewRefresher(client *Client, holder *schedule.Holder, logger *slog.Logger, cfg RefresherConfig) *Refresher {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.KeepSnapshots <= 0 {
		cfg.KeepSnapshots = 20
	}
	return &Refresher{
		client:    client,
		holder:    holder,
		logger:    logger,
		snapshots: cfg.Snapshots,
		publisher: cfg.Publisher,
		interval:  cfg.Interval,
		keep:      cfg.KeepSnapshots,
	}
}

// Bootstrap loads the first snapshot. When the remote source is down and
// an archive is configured, the most recent archived snapshot is served
// instead, so a restart does not take availability queries down with the
// source.
func (r *Refresher) Bootstrap(ctx context.Context) error {
	err := r.Refresh(ctx)
	if err == nil {
		return nil
	}
	if r.snapshots == nil {
		return err
	}

	snap, archiveErr := r.snapshots.Latest(ctx)
	if archiveErr != nil {
		if errors.Is(archiveErr, storage.ErrNoSnapshot) {
			return err
		}
		return fmt.Errorf("fetch failed (%v); archive fallback failed: %w", err, archiveErr)
	}

	var doc model.Document
	if decodeErr := json.Unmarshal(snap.Payload, &doc); decodeErr != nil {
		return fmt.Errorf("fetch failed (%v); archived snapshot %d is unreadable: %w", err, snap.ID, decodeErr)
	}

	r.swapIn(doc)
	r.logger.Warn("serving archived schedule snapshot",
		"err", err,
		"snapshot_id", snap.ID,
		"fetched_at", snap.FetchedAt,
	)
	return nil
}

// Run refreshes on the configured interval until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.Error("schedule refresh failed; keeping previous snapshot", "err", err)
			}
		}
	}
}

// Refresh fetches once and swaps the result in. On failure the previous
// snapshot stays in place.
func (r *Refresher) Refresh(ctx context.Context) error {
	start := time.Now()
	doc, raw, err := r.client.Fetch(ctx)
	metrics.ObserveFetch(start, err)
	if err != nil {
		return err
	}

	if issues := schedule.ValidateDocument(doc); len(issues) > 0 {
		r.logger.Warn("schedule document has issues; serving as-is",
			"issues", len(issues),
			"first", issues[0].String(),
		)
	}

	fetchedAt := time.Now().UTC()
	r.swapIn(doc)
	r.logger.Info("schedule snapshot refreshed",
		"days", len(doc.Days),
		"timeslots", len(doc.Timeslots),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	r.archive(ctx, raw, fetchedAt)
	r.publisher.Publish(ctx, events.TopicSnapshotRefreshed, map[string]any{
		"source_url": r.client.URL(),
		"days":       len(doc.Days),
		"timeslots":  len(doc.Timeslots),
		"fetched_at": fetchedAt.Format(time.RFC3339),
	})
	return nil
}

func (r *Refresher) swapIn(doc model.Document) {
	r.holder.Swap(schedule.FromDocument(doc))
	metrics.ScheduleDays.Set(float64(len(doc.Days)))
}

func (r *Refresher) archive(ctx context.Context, raw []byte, fetchedAt time.Time) {
	if r.snapshots == nil {
		return
	}
	id, err := r.snapshots.Save(ctx, raw, r.client.URL(), fetchedAt)
	if err != nil {
		r.logger.Error("snapshot archive failed", "err", err)
		return
	}
	if _, err := r.snapshots.Prune(ctx, r.keep); err != nil {
		r.logger.Warn("snapshot prune failed", "err", err, "snapshot_id", id)
	}
}
