package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/andyarntsen-alt/kortreist/engine/aggregate"
	"github.com/andyarntsen-alt/kortreist/engine/analyze"
	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/query"
	"github.com/andyarntsen-alt/kortreist/engine/snapshot"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// producersResponse is the merged listing payload.
type producersResponse struct {
	Producers []domain.Producer     `json:"producers"`
	Count     int                   `json:"count"`
	Source    aggregate.Origin      `json:"source"`
	Sources   map[domain.Source]int `json:"sources,omitempty"`
	HasMore   bool                  `json:"hasMore"`
}

// handleProducers serves the merged listing with optional query-layer
// processing: q (text search), products (comma-separated categories),
// lat/lng + radius (km), sort (distance|name|products), page.
func handleProducers(agg *aggregate.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := agg.Producers(r.Context())
		producers := res.Producers

		q := r.URL.Query()
		producers = query.Search(producers, q.Get("q"))
		producers = query.FilterByProducts(producers, parseCategories(q.Get("products")))

		loc, hasLoc := parseLocation(q)
		if hasLoc {
			if radius, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil && radius > 0 {
				producers = query.FilterByRadius(producers, loc, radius)
			}
		}

		switch q.Get("sort") {
		case "distance":
			if hasLoc {
				producers = query.SortByDistance(producers, loc)
			}
		case "name":
			producers = query.SortByName(producers)
		case "products":
			producers = query.SortByProductCount(producers)
		default:
			if hasLoc {
				producers = query.WithDistance(producers, loc)
			}
		}

		page, _ := strconv.Atoi(q.Get("page"))
		producers, hasMore := query.LoadMore(producers, page, query.DefaultPageSize)

		ttl := int(agg.TTLWindow().Seconds())
		w.Header().Set("Cache-Control",
			fmt.Sprintf("public, s-maxage=%d, stale-while-revalidate=%d", ttl, ttl*24))

		writeJSON(w, http.StatusOK, producersResponse{
			Producers: producers,
			Count:     len(producers),
			Source:    res.Origin,
			Sources:   res.Sources,
			HasMore:   hasMore,
		})
	}
}

// categoryEntry pairs a category id with its Norwegian display label.
type categoryEntry struct {
	ID    domain.ProductCategory `json:"id"`
	Label string                 `json:"label"`
}

func handleCategories(w http.ResponseWriter, _ *http.Request) {
	cats := domain.AllCategories()
	out := make([]categoryEntry, len(cats))
	for i, c := range cats {
		out[i] = categoryEntry{ID: c, Label: c.Label()}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleProducer resolves a single producer id through the fallback chain:
// bundled snapshot, then the live merged list, else 404.
func handleProducer(agg *aggregate.Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		p, err := snapshot.Lookup(r.Context(), id, func(ctx context.Context) []domain.Producer {
			return agg.Producers(ctx).Producers
		})
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "producer not found"})
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// analyzeRequest is the JSON body for POST /api/analyze.
type analyzeRequest struct {
	URL  string `json:"url,omitempty"`
	Text string `json:"text,omitempty"`
}

func handleAnalyze(client *analyze.Client, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if client == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analyze not configured"})
			return
		}

		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
			return
		}

		var (
			a   analyze.Analysis
			err error
		)
		switch {
		case req.URL != "":
			a, err = client.AnalyzeURL(r.Context(), req.URL)
		case req.Text != "":
			a, err = client.AnalyzeText(r.Context(), req.Text)
		default:
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url or text required"})
			return
		}
		if err != nil {
			logger.Error("analyze failed", "err", err)
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to analyze"})
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func parseCategories(raw string) []domain.ProductCategory {
	if raw == "" {
		return nil
	}
	var cats []domain.ProductCategory
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			cats = append(cats, domain.ProductCategory(part))
		}
	}
	return cats
}

func parseLocation(q url.Values) (domain.Location, bool) {
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(q.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		return domain.Location{}, false
	}
	return domain.Location{Lat: lat, Lng: lng}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
