package delivery

import (
	"math"

	"github.com/example/bakery/pkg/models"
)

const earthRadiusKm = 6371.0

// DistanceKm is the great-circle distance between two points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(lat2 - lat1)
	dLng := rad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(lat1))*math.Cos(rad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Covering returns the closest available area whose radius reaches the point.
func Covering(areas []models.Location, lat, lng float64) (*models.Location, float64, bool) {
	var best *models.Location
	bestDist := math.Inf(1)
	for i := range areas {
		a := &areas[i]
		if !a.Available {
			continue
		}
		d := DistanceKm(a.Coordinates.Lat(), a.Coordinates.Lng(), lat, lng)
		if d <= a.Radius && d < bestDist {
			best, bestDist = a, d
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestDist, true
}
