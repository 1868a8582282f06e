package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/slotfinder/internal/availability"
	"github.com/md-rashed-zaman/slotfinder/internal/metrics"
	"github.com/md-rashed-zaman/slotfinder/internal/model"
	"github.com/md-rashed-zaman/slotfinder/internal/schedule"
)

// RefreshTrigger forces an immediate refetch of the schedule snapshot.
type RefreshTrigger interface {
	Refresh(ctx context.Context) error
}

type AvailabilityHandler struct {
	holder    *schedule.Holder
	refresher RefreshTrigger
	logger    *slog.Logger
}

func NewAvailabilityHandler(holder *schedule.Holder, refresher RefreshTrigger, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{holder: holder, refresher: refresher, logger: logger}
}

type slotsResponse struct {
	Date  string           `json:"date"`
	Slots []model.Interval `json:"slots"`
}

type checkResponse struct {
	Date      string `json:"date"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Available bool   `json:"available"`
}

// engine builds a fresh engine over the current snapshot, so a refresh
// swap between two requests never mixes datasets within one request.
func (h *AvailabilityHandler) engine() *availability.Engine {
	return availability.NewEngine(h.holder.Current())
}

func (h *AvailabilityHandler) Busy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	metrics.QueriesServed.WithLabelValues("busy").Inc()
	writeJSON(w, http.StatusOK, slotsResponse{Date: date, Slots: h.engine().BusySlots(date)})
}

func (h *AvailabilityHandler) Free(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, ok := requireDate(w, r)
	if !ok {
		return
	}

	metrics.QueriesServed.WithLabelValues("free").Inc()
	slots, err := h.engine().FreeSlots(date)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slotsResponse{Date: date, Slots: slots})
}

func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	date, ok := requireDate(w, r)
	if !ok {
		return
	}
	start, ok := requireClock(w, r, "start")
	if !ok {
		return
	}
	end, ok := requireClock(w, r, "end")
	if !ok {
		return
	}

	metrics.QueriesServed.WithLabelValues("check").Inc()
	available, err := h.engine().IsAvailable(date, start, end)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkResponse{Date: date, Start: start, End: end, Available: available})
}

func (h *AvailabilityHandler) Next(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	raw := strings.TrimSpace(r.URL.Query().Get("duration_minutes"))
	minutes, err := strconv.Atoi(raw)
	if err != nil || minutes <= 0 {
		http.Error(w, "duration_minutes must be a positive integer", http.StatusBadRequest)
		return
	}

	metrics.QueriesServed.WithLabelValues("next").Inc()
	slot, err := h.engine().FindSlot(minutes)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *AvailabilityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.refresher == nil {
		http.Error(w, "refresh not configured", http.StatusNotImplemented)
		return
	}
	if err := h.refresher.Refresh(r.Context()); err != nil {
		h.logger.Error("forced refresh failed", "err", err)
		http.Error(w, "schedule source unavailable", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "refreshed"})
}

func (h *AvailabilityHandler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrDateNotFound):
		http.Error(w, "date not found in schedule", http.StatusNotFound)
	case errors.Is(err, availability.ErrNoScheduleData):
		http.Error(w, "no schedule data loaded", http.StatusServiceUnavailable)
	case errors.Is(err, availability.ErrNoSlotFound):
		http.Error(w, "no slot available for requested duration", http.StatusNotFound)
	default:
		h.logger.Error("availability query failed", "err", err)
		http.Error(w, "availability query failed", http.StatusInternalServerError)
	}
}

func requireDate(w http.ResponseWriter, r *http.Request) (string, bool) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if _, err := time.Parse("2006-01-02", date); err != nil {
		http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
		return "", false
	}
	return date, true
}

func requireClock(w http.ResponseWriter, r *http.Request, param string) (string, bool) {
	v := strings.TrimSpace(r.URL.Query().Get(param))
	if _, err := time.Parse("15:04", v); err != nil {
		http.Error(w, param+" must be HH:MM", http.StatusBadRequest)
		return "", false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
