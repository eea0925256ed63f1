package models

import "time"

// DefaultSearchMaxAge is how long a logged search counts as fresh.
const DefaultSearchMaxAge = 24 * time.Hour

// SearchKey is the composite cache key of a proximity search. Lng and Lat
// are already rounded and Query is nil when the search had no filter.
type SearchKey struct {
	Lng   float64
	Lat   float64
	Query *string
}

// QueryText returns the normalized filter or "" for unfiltered searches.
func (k SearchKey) QueryText() string {
	if k.Query == nil {
		return ""
	}
	return *k.Query
}

// SearchLogEntry witnesses that a search with this key ran recently.
type SearchLogEntry struct {
	Lng       float64
	Lat       float64
	Query     *string
	Results   int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IsFresh reports whether the entry is younger than maxAge at now.
func (e *SearchLogEntry) IsFresh(now time.Time, maxAge time.Duration) bool {
	return now.Sub(e.UpdatedAt) < maxAge
}

// CacheStats are store-side gauges exported as metrics.
type CacheStats struct {
	Venues          int64
	VenuesWithRooms int64
	SearchEntries   int64
}
