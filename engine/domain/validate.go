package domain

import "strings"

// ValidateProducer checks the invariants every adapter must uphold before a
// record enters the merged set.
func ValidateProducer(p Producer) error {
	if p.ID == "" {
		return &ValidationError{Field: "id", Wrapped: ErrMissingID}
	}
	if !hasKnownPrefix(p.ID) {
		return &ValidationError{Field: "id", Value: p.ID, Wrapped: ErrInvalidProducer}
	}
	if strings.TrimSpace(p.Name) == "" {
		return &ValidationError{Field: "name", Wrapped: ErrMissingName}
	}
	if len(p.Products) == 0 {
		return &ValidationError{Field: "products", Value: p.Name, Wrapped: ErrNoProducts}
	}
	if p.Location.Lat < -90 || p.Location.Lat > 90 || p.Location.Lng < -180 || p.Location.Lng > 180 {
		return &ValidationError{Field: "location", Value: p.Name, Wrapped: ErrBadCoordinates}
	}
	return nil
}

func hasKnownPrefix(id string) bool {
	for _, s := range []Source{SourceHanen, SourceBondensMarked, SourceOSM} {
		if strings.HasPrefix(id, s.IDPrefix()) {
			return true
		}
	}
	return false
}
