package fetch

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/md-rashed-zaman/slotfinder/internal/schedule"
)

func TestRefresher_SwapsSnapshot(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{
			"days": [{"id": 1, "date": "2024-10-10", "start": "09:00", "end": "18:00"}],
			"timeslots": []
		}`))
	}))
	defer srv.Close()

	holder := schedule.NewHolder(nil)
	r := NewRefresher(NewClient(srv.URL, fastConfig()), holder, slog.Default(), RefresherConfig{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if _, ok := holder.Current().DayByDate("2024-10-10"); !ok {
		t.Fatal("refreshed snapshot not visible through holder")
	}
}

func TestRefresher_KeepsPreviousSnapshotOnFailure(t *testing.T) {
	var broken atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if broken.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{
			"days": [{"id": 1, "date": "2024-10-10", "start": "09:00", "end": "18:00"}],
			"timeslots": []
		}`))
	}))
	defer srv.Close()

	holder := schedule.NewHolder(nil)
	r := NewRefresher(NewClient(srv.URL, fastConfig()), holder, slog.Default(), RefresherConfig{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	before := holder.Current()

	broken.Store(true)
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh failure")
	}
	if holder.Current() != before {
		t.Fatal("failed refresh must not replace the served snapshot")
	}
}

func TestRefresher_BootstrapWithoutArchivePropagatesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	holder := schedule.NewHolder(nil)
	r := NewRefresher(NewClient(srv.URL, fastConfig()), holder, slog.Default(), RefresherConfig{})

	if err := r.Bootstrap(context.Background()); err == nil {
		t.Fatal("expected bootstrap error when source is down and no archive exists")
	}
}
