package bondensmarked

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer serves the listing fixture for /produsenter and a detail page
// for /produsent/ paths, counting detail hits.
func newTestServer(t *testing.T, detailHits *atomic.Int32) *httptest.Server {
	fixture := loadFixture(t)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/produsenter":
			io.WriteString(w, fixture)
		case strings.HasPrefix(r.URL.Path, "/produsent/"):
			if detailHits != nil {
				detailHits.Add(1)
			}
			io.WriteString(w, detailPage)
		default:
			http.NotFound(w, r)
		}
	}))
}

func newTestAdapter(srvURL string) *Adapter {
	a := New(Config{
		BaseURL:         srvURL,
		LokallagIDs:     []int{4},
		RequestInterval: time.Nanosecond,
		Logger:          discard(),
	})
	a.jitter = func() float64 { return 0.5 }
	return a
}

func TestFetch(t *testing.T) {
	var detailHits atomic.Int32
	srv := newTestServer(t, &detailHits)
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	producers, err := a.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(producers) != 3 {
		t.Fatalf("expected 3 producers, got %d", len(producers))
	}

	p := producers[0]
	if p.ID != "bondensmarked-nordmanns-gaard" {
		t.Errorf("id should be the namespaced slug, got %q", p.ID)
	}
	if p.Precision != domain.PrecisionApproximate {
		t.Error("scraped coordinates are synthetic and must say so")
	}
	// jitter pinned to 0.5 puts every producer exactly on the city center
	if p.Location != (domain.Location{Lat: 59.9139, Lng: 10.7522}) {
		t.Errorf("got location %+v", p.Location)
	}
	if len(p.Products) == 0 || p.Products[0] != domain.Honey {
		t.Errorf("expected honey inferred from the card text, got %v", p.Products)
	}

	// the card with its own image never triggers a detail fetch; the two
	// without one do
	if detailHits.Load() != 2 {
		t.Errorf("expected 2 detail fetches, got %d", detailHits.Load())
	}

	for _, p := range producers[1:] {
		if !p.HasImage() {
			continue
		}
		if !strings.Contains(p.Images[0], "/BM/") {
			t.Errorf("backfilled image should come from the detail page, got %q", p.Images[0])
		}
	}
}

func TestFetchDedupsAcrossPages(t *testing.T) {
	// both the unfiltered page and the lokallag page return the same cards
	srv := newTestServer(t, nil)
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	producers, _ := a.Fetch(context.Background())
	if len(producers) != 3 {
		t.Fatalf("duplicate cards across pages should collapse, got %d", len(producers))
	}
}

func TestFetchCaches(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		io.WriteString(w, `<a href="/produsent/en-gaard"><h3>En Gård</h3></a>`)
	}))
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	ctx := context.Background()
	a.Fetch(ctx)
	before := hits.Load()
	a.Fetch(ctx)
	if hits.Load() != before {
		t.Fatal("second fetch should be served from cache")
	}
}

func TestFetchPageFailureDegrades(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "ned for vedlikehold", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	producers, err := newTestAdapter(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("page failure must not fail the fetch: %v", err)
	}
	if len(producers) != 0 {
		t.Fatalf("expected empty result, got %d", len(producers))
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	a := newTestAdapter(srv.URL)
	p := a.normalize(context.Background(), card{
		Name: "Ukjent Gård",
		URL:  srv.URL + "/produsent/ukjent-gaard",
	})

	if p.Description != fallbackDescription {
		t.Errorf("got description %q", p.Description)
	}
	if p.Address != "Oslo-området" {
		t.Errorf("got address %q", p.Address)
	}
	if len(p.Images) != 1 || p.Images[0] != domain.PlaceholderFarmImage {
		t.Errorf("got images %v", p.Images)
	}
	if p.HasImage() {
		t.Error("placeholder must not count as an image")
	}
}

func TestPageURLs(t *testing.T) {
	a := New(Config{BaseURL: "https://example.test", LokallagIDs: []int{4, 7}, Logger: discard()})
	urls := a.pageURLs()
	want := []string{
		"https://example.test/produsenter",
		"https://example.test/produsenter?lokallag=4",
		"https://example.test/produsenter?lokallag=7",
	}
	if len(urls) != len(want) {
		t.Fatalf("got %v", urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Errorf("got %q, want %q", urls[i], want[i])
		}
	}
}
