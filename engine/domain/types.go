// Package domain defines the normalized producer model shared by every
// source adapter, the aggregator, and the query layer.
package domain

// Source identifies which upstream a producer record came from.
type Source string

const (
	SourceHanen         Source = "hanen"
	SourceBondensMarked Source = "bondensmarked"
	SourceOSM           Source = "osm"
)

// IDPrefix returns the namespace prefix used when building producer IDs.
func (s Source) IDPrefix() string { return string(s) + "-" }

// Precision records whether a location is authoritative or synthesized.
type Precision string

const (
	PrecisionExact       Precision = "exact"
	PrecisionApproximate Precision = "approximate"
)

// Location is a WGS84 coordinate pair.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Producer is one local food producer, normalized from any source.
//
// Distance is derived data: it is only populated by the query layer once a
// user location is known and is never part of the canonical record.
type Producer struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Products    []ProductCategory `json:"products"`
	Location    Location          `json:"location"`
	Precision   Precision         `json:"locationPrecision"`
	Address     string            `json:"address"`
	Images      []string          `json:"images"`
	Website     string            `json:"website,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Distance    *float64          `json:"distance,omitempty"`
}

// Placeholder image sentinels. Consumers treat these as "no image".
const (
	PlaceholderImage     = "/placeholder.jpg"
	PlaceholderFarmImage = "/placeholder-farm.jpg"
)

// HasImage reports whether the producer carries a real (non-placeholder) image.
func (p Producer) HasImage() bool {
	if len(p.Images) == 0 {
		return false
	}
	first := p.Images[0]
	return first != "" && first != PlaceholderImage && first != PlaceholderFarmImage
}
