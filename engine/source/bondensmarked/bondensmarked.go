// Package bondensmarked implements the directory-scrape source adapter. It
// crawls the Bondens Marked producer directory, one page per lokallag plus
// the unfiltered page, and extracts producer cards out of the markup.
//
// The markup conventions here are undocumented and owned by a third party;
// everything fragile about them is contained in this package. A saved HTML
// snapshot under testdata keeps the card extraction honest.
package bondensmarked

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/source"
	"github.com/andyarntsen-alt/kortreist/pkg/cache"
	"github.com/andyarntsen-alt/kortreist/pkg/fn"
)

// DefaultBaseURL is the directory site root.
const DefaultBaseURL = "https://bondensmarked.no"

// DefaultTTL keeps scraped results for 12 hours.
const DefaultTTL = 12 * time.Hour

// DefaultLokallagIDs are the sub-region query ids around Oslo.
var DefaultLokallagIDs = []int{4, 1, 2, 3, 5, 6, 7, 8}

// osloCenter anchors the synthetic coordinates assigned to scraped records.
var osloCenter = domain.Location{Lat: 59.9139, Lng: 10.7522}

// jitterSpread is the synthetic coordinate spread in degrees, ± half of it.
const jitterSpread = 0.1

// fallbackDescription is used when neither the card nor the detail page
// yields one.
const fallbackDescription = "Lokal produsent fra Bondens Marked. Kvalitetsprodukter direkte fra gården."

// Config configures the adapter.
type Config struct {
	BaseURL     string
	LokallagIDs []int
	TTL         time.Duration
	// RequestInterval is the minimum spacing between requests to the host,
	// shared by listing and detail fetches.
	RequestInterval time.Duration
	PageWorkers     int
	Client          *http.Client
	Logger          *slog.Logger
}

// Adapter scrapes the producer directory.
type Adapter struct {
	baseURL     string
	lokallagIDs []int
	pageWorkers int
	client      *http.Client
	limiter     *rate.Limiter
	cache       *cache.TTL[[]domain.Producer]
	log         *slog.Logger
	jitter      func() float64 // returns [0,1), swappable in tests
}

// New creates the adapter, filling defaults for anything unset.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if len(cfg.LokallagIDs) == 0 {
		cfg.LokallagIDs = DefaultLokallagIDs
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = 300 * time.Millisecond
	}
	if cfg.PageWorkers <= 0 {
		cfg.PageWorkers = 3
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		lokallagIDs: cfg.LokallagIDs,
		pageWorkers: cfg.PageWorkers,
		client:      cfg.Client,
		limiter:     rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		cache:       cache.New[[]domain.Producer](cfg.TTL),
		log:         cfg.Logger,
		jitter:      rand.Float64,
	}
}

func (a *Adapter) Name() domain.Source { return domain.SourceBondensMarked }

// card is one producer link extracted from a listing page.
type card struct {
	Name        string
	URL         string
	Description string
	Image       string
}

// Fetch crawls every listing page, dedups cards by detail URL, backfills
// missing images from detail pages, and normalizes. A failed page yields an
// empty page result; Fetch itself never fails.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Producer, error) {
	if cached, ok := a.cache.Get(); ok {
		return cached, nil
	}

	urls := a.pageURLs()
	perPage := fn.ParMap(urls, a.pageWorkers, func(u string) []card {
		return a.fetchPage(ctx, u)
	})
	cards := fn.UniqueBy(
		fn.FlatMap(perPage, func(cs []card) []card { return cs }),
		func(c card) string { return c.URL },
	)
	a.log.Info("bondensmarked cards collected", "pages", len(urls), "unique", len(cards))

	producers := make([]domain.Producer, 0, len(cards))
	for _, c := range cards {
		producers = append(producers, a.normalize(ctx, c))
	}

	a.cache.Set(producers)
	return producers, nil
}

func (a *Adapter) pageURLs() []string {
	urls := []string{a.baseURL + "/produsenter"}
	for _, id := range a.lokallagIDs {
		urls = append(urls, a.baseURL+"/produsenter?lokallag="+strconv.Itoa(id))
	}
	return urls
}

func (a *Adapter) fetchPage(ctx context.Context, url string) []card {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil
	}
	html, err := source.Get(ctx, a.client, url, nil).Unwrap()
	if err != nil {
		a.log.Warn("bondensmarked page failed", "url", url, "err", err)
		return nil
	}
	cards := ParseCards(string(html))
	for i := range cards {
		cards[i].URL = a.baseURL + cards[i].URL
	}
	return cards
}

// normalize converts a card into a Producer, fetching the detail page only
// when the card had no image. Coordinates are synthetic: jittered around the
// Oslo center so markers do not collapse onto one pixel. They are an explicit
// approximation, marked as such.
func (a *Adapter) normalize(ctx context.Context, c card) domain.Producer {
	image := c.Image
	detailDescription := ""
	address := ""

	if image == "" {
		d := a.fetchDetails(ctx, c.URL)
		image = d.Image
		detailDescription = d.Description
		address = d.Address
	}

	description := detailDescription
	if description == "" {
		description = c.Description
	}
	if description == "" {
		description = fallbackDescription
	}
	if address == "" {
		address = "Oslo-området"
	}
	images := []string{domain.PlaceholderFarmImage}
	if image != "" {
		images = []string{image}
	}

	slug := c.URL[strings.LastIndex(c.URL, "/")+1:]

	return domain.Producer{
		ID:          domain.SourceBondensMarked.IDPrefix() + slug,
		Name:        domain.CleanName(c.Name),
		Description: description,
		Products:    domain.InferCategories(c.Name + " " + c.Description + " " + detailDescription),
		Location: domain.Location{
			Lat: osloCenter.Lat + (a.jitter()-0.5)*jitterSpread,
			Lng: osloCenter.Lng + (a.jitter()-0.5)*jitterSpread,
		},
		Precision: domain.PrecisionApproximate,
		Address:   address,
		Images:    images,
	}
}

// details holds the optional fields a detail page can backfill.
type details struct {
	Image       string
	Description string
	Address     string
}

// fetchDetails fetches a producer detail page behind the shared host limiter.
// Any failure yields empty fields, never a dropped record.
func (a *Adapter) fetchDetails(ctx context.Context, url string) details {
	if err := a.limiter.Wait(ctx); err != nil {
		return details{}
	}
	html, err := source.Get(ctx, a.client, url, nil).Unwrap()
	if err != nil {
		a.log.Warn("bondensmarked detail failed", "url", url, "err", err)
		return details{}
	}
	return ParseDetails(string(html))
}
