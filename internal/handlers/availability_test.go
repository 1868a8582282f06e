package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/md-rashed-zaman/slotfinder/internal/model"
	"github.com/md-rashed-zaman/slotfinder/internal/schedule"
)

func testHolder() *schedule.Holder {
	return schedule.NewHolder(schedule.FromDocument(model.Document{
		Days: []model.Day{
			{ID: 1, Date: "2024-10-10", Start: "09:00", End: "18:00"},
			{ID: 2, Date: "2024-10-11", Start: "08:00", End: "17:00"},
		},
		Timeslots: []model.BusySlot{
			{ID: 1, DayID: 1, Start: "11:00", End: "12:00"},
			{ID: 2, DayID: 2, Start: "09:30", End: "16:00"},
		},
	}))
}

type fakeRefresher struct {
	calls int
	err   error
}

func (f *fakeRefresher) Refresh(_ context.Context) error {
	f.calls++
	return f.err
}

func testHandler(holder *schedule.Holder, refresher RefreshTrigger) *AvailabilityHandler {
	return NewAvailabilityHandler(holder, refresher, slog.Default())
}

func get(t *testing.T, h http.HandlerFunc, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rw := httptest.NewRecorder()
	h(rw, req)
	return rw
}

func TestBusy(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Busy, "/api/v1/availability/busy?date=2024-10-10")
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	var resp slotsResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 1 || resp.Slots[0].Start != "11:00" || resp.Slots[0].End != "12:00" {
		t.Fatalf("unexpected slots: %+v", resp.Slots)
	}
}

func TestBusy_UnknownDateIsEmptyOK(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Busy, "/api/v1/availability/busy?date=2024-10-12")
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	var resp slotsResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Slots) != 0 {
		t.Fatalf("expected empty slots, got %+v", resp.Slots)
	}
}

func TestBusy_BadDate(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Busy, "/api/v1/availability/busy?date=10-10-2024")
	if rw.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rw.Code)
	}
}

func TestFree(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Free, "/api/v1/availability/free?date=2024-10-10")
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	var resp slotsResponse
	if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []model.Interval{{Start: "09:00", End: "11:00"}, {Start: "12:00", End: "18:00"}}
	if len(resp.Slots) != 2 || resp.Slots[0] != want[0] || resp.Slots[1] != want[1] {
		t.Fatalf("unexpected slots: %+v", resp.Slots)
	}
}

func TestFree_UnknownDateIs404(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Free, "/api/v1/availability/free?date=2024-10-12")
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rw.Code)
	}
}

// Corrupt source data (a stored time the engine cannot parse) is a server
// fault, not a client one: 500, not 400 or 404.
func TestFree_MalformedStoredTimeIs500(t *testing.T) {
	holder := schedule.NewHolder(schedule.FromDocument(model.Document{
		Days: []model.Day{{ID: 1, Date: "2024-10-10", Start: "9am", End: "18:00"}},
	}))
	h := testHandler(holder, nil)

	rw := get(t, h.Free, "/api/v1/availability/free?date=2024-10-10")
	if rw.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d: %s", rw.Code, rw.Body.String())
	}
}

func TestCheck(t *testing.T) {
	h := testHandler(testHolder(), nil)

	cases := []struct {
		name   string
		target string
		status int
		avail  bool
	}{
		{"free interval", "/check?date=2024-10-10&start=10:00&end=10:30", http.StatusOK, true},
		{"conflicting interval", "/check?date=2024-10-10&start=11:30&end=12:30", http.StatusOK, false},
		{"boundary touch is not conflict", "/check?date=2024-10-10&start=10:00&end=11:00", http.StatusOK, true},
		{"unknown date", "/check?date=2024-10-12&start=10:00&end=10:30", http.StatusNotFound, false},
		{"bad start", "/check?date=2024-10-10&start=25:99&end=10:30", http.StatusBadRequest, false},
		{"missing end", "/check?date=2024-10-10&start=10:00", http.StatusBadRequest, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rw := get(t, h.Check, tc.target)
			if rw.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rw.Code, rw.Body.String())
			}
			if tc.status != http.StatusOK {
				return
			}
			var resp checkResponse
			if err := json.Unmarshal(rw.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Available != tc.avail {
				t.Fatalf("expected available=%v, got %v", tc.avail, resp.Available)
			}
		})
	}
}

func TestNext(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Next, "/next?duration_minutes=60")
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rw.Code, rw.Body.String())
	}
	var slot model.Slot
	if err := json.Unmarshal(rw.Body.Bytes(), &slot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := model.Slot{Date: "2024-10-10", Start: "09:00", End: "10:00"}
	if slot != want {
		t.Fatalf("got %+v, want %+v", slot, want)
	}
}

func TestNext_Validation(t *testing.T) {
	h := testHandler(testHolder(), nil)

	for _, target := range []string{"/next", "/next?duration_minutes=0", "/next?duration_minutes=-30", "/next?duration_minutes=abc"} {
		rw := get(t, h.Next, target)
		if rw.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rw.Code)
		}
	}
}

func TestNext_NoSlot(t *testing.T) {
	h := testHandler(testHolder(), nil)

	rw := get(t, h.Next, "/next?duration_minutes=600")
	if rw.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rw.Code)
	}
}

func TestNext_EmptySchedule(t *testing.T) {
	h := testHandler(schedule.NewHolder(nil), nil)

	rw := get(t, h.Next, "/next?duration_minutes=30")
	if rw.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rw.Code)
	}
}

func TestRefresh(t *testing.T) {
	fake := &fakeRefresher{}
	h := testHandler(testHolder(), fake)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/refresh", nil)
	rw := httptest.NewRecorder()
	h.Refresh(rw, req)
	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if fake.calls != 1 {
		t.Fatalf("expected 1 refresh call, got %d", fake.calls)
	}

	rwGet := get(t, h.Refresh, "/api/v1/schedule/refresh")
	if rwGet.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405 for GET, got %d", rwGet.Code)
	}
}

func TestRefresh_SourceDown(t *testing.T) {
	fake := &fakeRefresher{err: errors.New("connection refused")}
	h := testHandler(testHolder(), fake)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/schedule/refresh", nil)
	rw := httptest.NewRecorder()
	h.Refresh(rw, req)
	if rw.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rw.Code)
	}
}
