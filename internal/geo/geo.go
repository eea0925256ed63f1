// Package geo holds the pure geometry helpers used by the venue cache:
// coordinate rounding for cache keys, great-circle distance, and the
// proximity sort applied to store results.
package geo

import (
	"math"
	"sort"

	"venuechat/internal/models"
)

// EarthRadiusMeters is the mean earth radius used by Distance.
const EarthRadiusMeters = 6371008.8

// RoundToPrecision rounds value to the given number of decimal digits,
// half away from zero.
func RoundToPrecision(value float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(value*p) / p
}

// Distance returns the haversine distance in meters between two points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Min(1, math.Sqrt(a)))
}

// SortByDistance returns venues ordered by ascending distance from the
// reference point, ties broken by ExternalID. The input slice is not
// modified.
func SortByDistance(lat, lng float64, venues []models.Venue) []models.Venue {
	type ranked struct {
		venue    models.Venue
		distance float64
	}

	items := make([]ranked, len(venues))
	for i, v := range venues {
		items[i] = ranked{venue: v, distance: Distance(lat, lng, v.Lat(), v.Lng())}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].distance != items[j].distance {
			return items[i].distance < items[j].distance
		}
		return items[i].venue.ExternalID < items[j].venue.ExternalID
	})

	out := make([]models.Venue, len(items))
	for i := range items {
		out[i] = items[i].venue
	}
	return out
}
