// Package query provides pure, stateless functions over an in-memory
// producer list: text search, category and radius filtering, sorting, and
// load-more pagination. Nothing here touches the network or mutates its
// input.
package query

import (
	"sort"
	"strings"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/pkg/fn"
)

// DefaultPageSize is the fixed page size for load-more pagination.
const DefaultPageSize = 12

// Search keeps producers where every whitespace-delimited query token appears
// as a substring somewhere in the searchable text: name, description,
// address, category ids and their Norwegian labels. Case-insensitive with
// Norwegian lowercasing.
func Search(producers []domain.Producer, q string) []domain.Producer {
	q = strings.TrimSpace(q)
	if q == "" {
		return producers
	}
	tokens := strings.Fields(domain.LowerNO(q))

	return fn.Filter(producers, func(p domain.Producer) bool {
		text := searchableText(p)
		for _, tok := range tokens {
			if !strings.Contains(text, tok) {
				return false
			}
		}
		return true
	})
}

func searchableText(p domain.Producer) string {
	parts := []string{p.Name, p.Description, p.Address}
	for _, c := range p.Products {
		parts = append(parts, string(c), c.Label())
	}
	return domain.LowerNO(strings.Join(parts, " "))
}

// FilterByProducts keeps producers whose category set intersects the
// requested set. An empty requested set filters nothing.
func FilterByProducts(producers []domain.Producer, categories []domain.ProductCategory) []domain.Producer {
	if len(categories) == 0 {
		return producers
	}
	want := make(map[domain.ProductCategory]struct{}, len(categories))
	for _, c := range categories {
		want[c] = struct{}{}
	}
	return fn.Filter(producers, func(p domain.Producer) bool {
		for _, c := range p.Products {
			if _, ok := want[c]; ok {
				return true
			}
		}
		return false
	})
}

// WithDistance returns a copy of the list with Distance populated relative to
// the given location.
func WithDistance(producers []domain.Producer, from domain.Location) []domain.Producer {
	return fn.Map(producers, func(p domain.Producer) domain.Producer {
		d := Haversine(from, p.Location)
		p.Distance = &d
		return p
	})
}

// FilterByRadius keeps producers within radiusKm of the given location.
func FilterByRadius(producers []domain.Producer, from domain.Location, radiusKm float64) []domain.Producer {
	return fn.Filter(producers, func(p domain.Producer) bool {
		return Haversine(from, p.Location) <= radiusKm
	})
}

// SortByDistance returns a copy sorted by distance from the given location,
// ascending. Distance is attached as a side benefit.
func SortByDistance(producers []domain.Producer, from domain.Location) []domain.Producer {
	out := WithDistance(producers, from)
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].Distance < *out[j].Distance
	})
	return out
}

// SortByName returns a copy sorted lexicographically by lowered name.
func SortByName(producers []domain.Producer) []domain.Producer {
	out := make([]domain.Producer, len(producers))
	copy(out, producers)
	sort.SliceStable(out, func(i, j int) bool {
		return domain.LowerNO(out[i].Name) < domain.LowerNO(out[j].Name)
	})
	return out
}

// SortByProductCount returns a copy sorted by category count, descending.
func SortByProductCount(producers []domain.Producer) []domain.Producer {
	out := make([]domain.Producer, len(producers))
	copy(out, producers)
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Products) > len(out[j].Products)
	})
	return out
}

// LoadMore implements load-more pagination: page 1 returns the first
// pageSize items, page 2 the first 2*pageSize, and so on. The second return
// says whether more items remain.
func LoadMore(producers []domain.Producer, page, pageSize int) ([]domain.Producer, bool) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if page < 1 {
		page = 1
	}
	visible := page * pageSize
	if visible >= len(producers) {
		return producers, false
	}
	return producers[:visible], true
}
