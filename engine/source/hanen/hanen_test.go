package hanen

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const hanenPayload = `[
  {"id": "a0w1", "name": "Fjellgården", "latitude": 61.1, "longitude": 8.9,
   "introduction": "Seterdrift med ysteri og gardsbutikk.",
   "image_url": "v123/fjellgarden.jpg",
   "website": "https://fjellgarden.no", "phone": "+47 61 00 00 00",
   "shipping_street": "Fjellvegen 1", "shipping_postal_code": "2900",
   "shipping_city": "Fagernes", "county": "Innlandet",
   "category": ["Ost", "Gårdsbutikk"]},
  {"id": "a0w2", "name": "Kystbruket", "latitude": 63.4, "longitude": 10.4,
   "html": "<p>Fersk <b>laks</b> og sild rett fra båten.</p>",
   "logo": "v456/kystbruket-logo.png",
   "county": "Trøndelag",
   "category": ["Fisk"]},
  {"id": "a0w3", "name": "Uten Koordinater", "latitude": 0, "longitude": 0,
   "category": ["Honning"]}
]`

func newTestAdapter(url string) *Adapter {
	return New(Config{URL: url, Logger: discard()})
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Error("expected JSON accept header")
		}
		io.WriteString(w, hanenPayload)
	}))
	defer srv.Close()

	producers, err := newTestAdapter(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(producers) != 2 {
		t.Fatalf("zero-coordinate features are skipped, expected 2, got %d", len(producers))
	}

	p := producers[0]
	if p.ID != "hanen-a0w1" {
		t.Errorf("got id %q", p.ID)
	}
	if p.Precision != domain.PrecisionExact {
		t.Error("member coordinates are authoritative")
	}
	if p.Description != "Seterdrift med ysteri og gardsbutikk." {
		t.Errorf("introduction should win, got %q", p.Description)
	}
	if p.Address != "Fjellvegen 1, 2900, Fagernes" {
		t.Errorf("got address %q", p.Address)
	}
	if p.Images[0] != cloudinaryBase+"v123/fjellgarden.jpg" {
		t.Errorf("got image %q", p.Images[0])
	}
	if len(p.Products) == 0 || p.Products[0] != domain.Cheese {
		t.Errorf("category taxonomy should map to cheese, got %v", p.Products)
	}

	q := producers[1]
	if q.Description != "Fersk laks og sild rett fra båten." {
		t.Errorf("html should sanitize into a description, got %q", q.Description)
	}
	if q.Address != "Trøndelag" {
		t.Errorf("county is the address fallback, got %q", q.Address)
	}
	if q.Images[0] != cloudinaryBase+"v456/kystbruket-logo.png" {
		t.Errorf("logo is the image fallback, got %q", q.Images[0])
	}
}

func TestFetchCaches(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		io.WriteString(w, hanenPayload)
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	ctx := context.Background()
	a.Fetch(ctx)
	a.Fetch(ctx)
	if calls.Load() != 1 {
		t.Fatalf("second fetch should hit the cache, got %d calls", calls.Load())
	}
}

func TestFetchFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nede", http.StatusBadGateway)
	}))
	defer srv.Close()

	producers, err := newTestAdapter(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("upstream failure must not fail the fetch: %v", err)
	}
	if producers != nil {
		t.Fatalf("expected nil, got %v", producers)
	}
}

func TestFetchBadJSONDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>ikke json</html>")
	}))
	defer srv.Close()

	producers, err := newTestAdapter(srv.URL).Fetch(context.Background())
	if err != nil || producers != nil {
		t.Fatalf("parse failure should degrade to empty, got %v, %v", producers, err)
	}
}

func TestBuildDescription(t *testing.T) {
	long := feature{Introduction: strings.Repeat("a", 600)}
	if got := buildDescription(long); len([]rune(got)) != maxDescription {
		t.Fatalf("description should be bounded to %d, got %d", maxDescription, len([]rune(got)))
	}
	if buildDescription(feature{}) != fallbackDescription {
		t.Fatal("empty features get the fallback sentence")
	}
}

func TestBuildAddressFallbacks(t *testing.T) {
	if got := buildAddress(feature{}); got != "Norge" {
		t.Fatalf("got %q", got)
	}
	if got := buildAddress(feature{ShippingCity: "Bergen"}); got != "Bergen" {
		t.Fatalf("got %q", got)
	}
	if got := buildAddress(feature{County: "Vestland"}); got != "Vestland" {
		t.Fatalf("got %q", got)
	}
}
