// Package overpass implements the geo-tag source adapter. It queries the
// Overpass API for food-related points inside fixed regional bounding boxes
// and classifies each point into product categories from its OSM tags.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/source"
	"github.com/andyarntsen-alt/kortreist/pkg/cache"
	"github.com/andyarntsen-alt/kortreist/pkg/fn"
)

// DefaultURL is the public Overpass interpreter endpoint.
const DefaultURL = "https://overpass-api.de/api/interpreter"

// DefaultTTL keeps OSM results for an hour.
const DefaultTTL = time.Hour

// DefaultRegionTimeout bounds a single region query.
const DefaultRegionTimeout = 20 * time.Second

// BBox is a bounding box in Overpass literal order: south, west, north, east.
type BBox struct {
	South, West, North, East float64
}

func (b BBox) String() string {
	return fmt.Sprintf("(%g,%g,%g,%g)", b.South, b.West, b.North, b.East)
}

// Region names a bounding box. Name doubles as the address fallback when a
// node has no structured address tags.
type Region struct {
	Name string
	City string // fallback for addr:city
	BBox BBox
}

// DefaultRegions covers the greater Oslo area.
var DefaultRegions = []Region{
	{Name: "Oslo-området", City: "Oslo", BBox: BBox{59.6, 10.4, 60.15, 11.2}},
	{Name: "Østfold", City: "Fredrikstad", BBox: BBox{59.1, 10.7, 59.7, 11.9}},
	{Name: "Vestfold", City: "Tønsberg", BBox: BBox{59.0, 9.8, 59.7, 10.6}},
	{Name: "Buskerud", City: "Drammen", BBox: BBox{59.4, 9.5, 60.4, 10.5}},
}

// shopTypes are the shop tag values treated as food-related.
var shopTypes = []string{
	"farm", "dairy", "butcher", "greengrocer", "honey",
	"cheese", "fish", "seafood", "bakery", "deli",
}

// Config configures the adapter.
type Config struct {
	URL           string
	Regions       []Region
	TTL           time.Duration
	RegionTimeout time.Duration
	Client        *http.Client
	Logger        *slog.Logger
}

// Adapter queries Overpass per region, in parallel.
type Adapter struct {
	url           string
	regions       []Region
	regionTimeout time.Duration
	client        *http.Client
	cache         *cache.TTL[[]domain.Producer]
	log           *slog.Logger
}

// New creates the adapter, filling defaults for anything unset.
func New(cfg Config) *Adapter {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if len(cfg.Regions) == 0 {
		cfg.Regions = DefaultRegions
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.RegionTimeout <= 0 {
		cfg.RegionTimeout = DefaultRegionTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Adapter{
		url:           cfg.URL,
		regions:       cfg.Regions,
		regionTimeout: cfg.RegionTimeout,
		client:        cfg.Client,
		cache:         cache.New[[]domain.Producer](cfg.TTL),
		log:           cfg.Logger,
	}
}

func (a *Adapter) Name() domain.Source { return domain.SourceOSM }

// Fetch queries all regions in parallel and returns the node-id-deduplicated
// union. A failed region contributes an empty list; Fetch itself never fails.
func (a *Adapter) Fetch(ctx context.Context) ([]domain.Producer, error) {
	if cached, ok := a.cache.Get(); ok {
		return cached, nil
	}

	perRegion := fn.ParMap(a.regions, 0, func(r Region) []domain.Producer {
		return a.fetchRegion(ctx, r)
	})
	producers := fn.UniqueBy(
		fn.FlatMap(perRegion, func(ps []domain.Producer) []domain.Producer { return ps }),
		func(p domain.Producer) string { return p.ID },
	)

	a.cache.Set(producers)
	return producers, nil
}

// overpassResponse is the Overpass JSON envelope.
type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  float64           `json:"lat"`
	Lon  float64           `json:"lon"`
	Tags map[string]string `json:"tags"`
}

// fetchRegion queries one bounding box. Every failure mode degrades to an
// empty list so the other regions are unaffected.
func (a *Adapter) fetchRegion(ctx context.Context, region Region) []domain.Producer {
	rctx, cancel := context.WithTimeout(ctx, a.regionTimeout)
	defer cancel()

	body := "data=" + url.QueryEscape(buildQuery(region.BBox))
	raw, err := source.PostForm(rctx, a.client, a.url, body).Unwrap()
	if err != nil {
		a.log.Warn("overpass region failed", "region", region.Name, "err", err)
		return nil
	}

	var resp overpassResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		a.log.Warn("overpass parse failed", "region", region.Name, "err", err)
		return nil
	}

	var producers []domain.Producer
	for _, el := range resp.Elements {
		if el.Type != "node" || el.Tags == nil {
			continue
		}
		producers = append(producers, normalizeNode(el, region))
	}

	a.log.Info("overpass region fetched", "region", region.Name, "count", len(producers))
	return producers
}

// buildQuery renders the Overpass QL statement for one bounding box.
func buildQuery(b BBox) string {
	var sb strings.Builder
	sb.WriteString("[out:json][timeout:25];(")
	for _, shop := range shopTypes {
		fmt.Fprintf(&sb, "node[\"shop\"=%q]%s;", shop, b)
	}
	fmt.Fprintf(&sb, "node[\"craft\"=\"beekeeper\"]%s;", b)
	fmt.Fprintf(&sb, "node[\"amenity\"=\"marketplace\"]%s;", b)
	sb.WriteString(");out body;")
	return sb.String()
}

func normalizeNode(el overpassElement, region Region) domain.Producer {
	tags := el.Tags

	name := tags["name"]
	if name == "" {
		name = "Lokal Gård"
	}

	description := tags["description"]
	if description == "" {
		description = tags["note"]
	}
	if description == "" {
		description = "Lokal gård med ferske varer."
	}

	return domain.Producer{
		ID:          fmt.Sprintf("%s%d", domain.SourceOSM.IDPrefix(), el.ID),
		Name:        name,
		Description: description,
		Products:    Classify(tags),
		Location:    domain.Location{Lat: el.Lat, Lng: el.Lon},
		Precision:   domain.PrecisionExact,
		Address:     buildAddress(tags, region),
		Images:      []string{domain.PlaceholderImage},
		Website:     tags["website"],
		Phone:       tags["phone"],
	}
}

// produceCategories maps substrings of the free-text produce tag.
var produceCategories = []struct {
	substr   string
	category domain.ProductCategory
}{
	{"honey", domain.Honey},
	{"eggs", domain.Eggs},
	{"meat", domain.Meat},
	{"milk", domain.Milk},
	{"vegetables", domain.Vegetables},
}

// shopCategories maps shop tag values to categories.
var shopCategories = map[string]domain.ProductCategory{
	"butcher":     domain.Meat,
	"dairy":       domain.Milk,
	"greengrocer": domain.Vegetables,
	"honey":       domain.Honey,
	"cheese":      domain.Cheese,
	"fish":        domain.Fish,
	"seafood":     domain.Fish,
	"bakery":      domain.Bread,
}

// Classify maps OSM tags to product categories: the free-text produce tag
// first, then type-specific fallback rules, then Seasonal.
func Classify(tags map[string]string) []domain.ProductCategory {
	var cats []domain.ProductCategory

	if produce := tags["produce"]; produce != "" {
		for _, pc := range produceCategories {
			if strings.Contains(produce, pc.substr) {
				cats = append(cats, pc.category)
			}
		}
	}

	if tags["craft"] == "beekeeper" {
		cats = append(cats, domain.Honey)
	}
	if c, ok := shopCategories[tags["shop"]]; ok {
		cats = append(cats, c)
	}

	return domain.UniqueCategories(cats)
}

func buildAddress(tags map[string]string, region Region) string {
	street := tags["addr:street"]
	if street == "" {
		return region.Name
	}
	city := tags["addr:city"]
	if city == "" {
		city = region.City
	}
	line := strings.TrimSpace(street + " " + tags["addr:housenumber"])
	return line + ", " + city
}
