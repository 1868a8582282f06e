package httpx

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func corsHandler(origins ...string) http.Handler {
	return Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), WithCORS(CORSPolicy{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))
}

func TestWithCORS_Preflight(t *testing.T) {
	h := corsHandler("https://app.example.com")

	req := httptest.NewRequest(http.MethodOptions, "http://svc/api/v1/availability/free", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rw.Code)
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin: %q", got)
	}

	// Caches must key preflight responses on the full request triple.
	vary := rw.Header().Values("Vary")
	for _, want := range []string{"Origin", "Access-Control-Request-Method", "Access-Control-Request-Headers"} {
		if !slices.Contains(vary, want) {
			t.Fatalf("Vary missing %q, got %v", want, vary)
		}
	}
}

func TestWithCORS_DisallowedOriginPassesThrough(t *testing.T) {
	h := corsHandler("https://app.example.com")

	req := httptest.NewRequest(http.MethodGet, "http://svc/", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)

	if rw.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rw.Code)
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header, got %q", got)
	}
}
