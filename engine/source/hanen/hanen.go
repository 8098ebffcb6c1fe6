// Package hanen implements the structured-API source adapter. HANEN exposes
// its member map as one JSON endpoint; this adapter maps its taxonomy onto
// the common product vocabulary and templates image URLs from Cloudinary
// public ids.
package hanen

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/source"
	"github.com/andyarntsen-alt/kortreist/pkg/cache"
)

// DefaultURL is the HANEN map data endpoint.
const DefaultURL = "https://kart.hanen.no/api/kart/data"

// DefaultTTL keeps HANEN results for 24 hours; the data changes rarely.
const DefaultTTL = 24 * time.Hour

// cloudinaryBase templates stored image ids into fetchable URLs.
const cloudinaryBase = "https://res.cloudinary.com/hanen/image/upload/c_fill,h_400,w_600/"

// maxDescription bounds descriptions to protect downstream rendering.
const maxDescription = 500

// fallbackDescription is used when a feature has no usable text.
const fallbackDescription = "Lokal produsent med kvalitetsvarer."

// Config configures the adapter.
type Config struct {
	URL    string
	TTL    time.Duration
	Client *http.Client
	Logger *slog.Logger
}

// Adapter fetches the HANEN member list.
type Adapter struct {
	url    string
	client *http.Client
	cache  *cache.TTL[[]domain.Producer]
	log    *slog.Logger
}

// New creates the adapter, filling defaults for anything unset.
func New(cfg Config) *Adapter {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		url:    cfg.URL,
		client: cfg.Client,
		cache:  cache.New[[]domain.Producer](cfg.TTL),
		log:    cfg.Logger,
	}
}

func (a *Adapter) Name() domain.Source { return domain.SourceHanen }

// feature is one entry in the HANEN map payload.
type feature struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Latitude           float64  `json:"latitude"`
	Longitude          float64  `json:"longitude"`
	Introduction       string   `json:"introduction"`
	HTML               string   `json:"html"`
	ImageURL           string   `json:"image_url"`
	Logo               string   `json:"logo"`
	Website            string   `json:"website"`
	Email              string   `json:"email"`
	Phone              string   `json:"phone"`
	ShippingStreet     string   `json:"shipping_street"`
	ShippingCity       string   `json:"shipping_city"`
	ShippingPostalCode string   `json:"shipping_postal_code"`
	County             string   `json:"county"`
	Category           []string `json:"category"`
	Slug               string   `json:"slug"`
}

// Fetch calls the endpoint once and normalizes every feature that carries
// coordinates. This source's coordinates are presumed authoritative, so
// entries without them are skipped rather than synthesized. A non-2xx
// response or parse failure degrades to an empty list; Fetch never fails.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Producer, error) {
	if cached, ok := a.cache.Get(); ok {
		return cached, nil
	}

	raw, err := source.Get(ctx, a.client, a.url, map[string]string{"Accept": "application/json"}).Unwrap()
	if err != nil {
		a.log.Warn("hanen fetch failed", "err", err)
		return nil, nil
	}

	var features []feature
	if err := json.Unmarshal(raw, &features); err != nil {
		a.log.Warn("hanen parse failed", "err", err)
		return nil, nil
	}

	producers := make([]domain.Producer, 0, len(features))
	for _, f := range features {
		if f.Latitude == 0 || f.Longitude == 0 {
			continue
		}
		producers = append(producers, normalize(f))
	}

	a.log.Info("hanen fetched", "features", len(features), "producers", len(producers))
	a.cache.Set(producers)
	return producers, nil
}

func normalize(f feature) domain.Producer {
	return domain.Producer{
		ID:          domain.SourceHanen.IDPrefix() + f.ID,
		Name:        f.Name,
		Description: buildDescription(f),
		Products:    domain.InferCategories(strings.Join(f.Category, " ")),
		Location:    domain.Location{Lat: f.Latitude, Lng: f.Longitude},
		Precision:   domain.PrecisionExact,
		Address:     buildAddress(f),
		Images:      buildImages(f),
		Website:     f.Website,
		Phone:       f.Phone,
	}
}

// buildAddress joins the structured shipping components, falling back to the
// county, then to a generic country label.
func buildAddress(f feature) string {
	var parts []string
	for _, p := range []string{f.ShippingStreet, f.ShippingPostalCode, firstNonEmpty(f.ShippingCity, f.County)} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, ", ")
	}
	if f.County != "" {
		return f.County
	}
	return "Norge"
}

// buildDescription prefers the short intro, then the sanitized long-form
// HTML, then the generic fallback sentence. Always bounded.
func buildDescription(f feature) string {
	description := f.Introduction
	if description == "" {
		description = domain.StripHTML(f.HTML)
	}
	if description == "" {
		description = fallbackDescription
	}
	return domain.Truncate(description, maxDescription)
}

// buildImages templates the stored image id, preferring the main image over
// the logo, with the placeholder sentinel last.
func buildImages(f feature) []string {
	switch {
	case f.ImageURL != "":
		return []string{cloudinaryBase + f.ImageURL}
	case f.Logo != "":
		return []string{cloudinaryBase + f.Logo}
	default:
		return []string{domain.PlaceholderImage}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
