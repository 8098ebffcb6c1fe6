package query

import (
	"fmt"
	"math"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
)

// earthRadiusKm is the mean Earth radius.
const earthRadiusKm = 6371

// Haversine returns the great-circle distance between two points in
// kilometers.
func Haversine(a, b domain.Location) float64 {
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// FormatDistance renders a distance for display: meters under one kilometer,
// otherwise kilometers with one decimal.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}
