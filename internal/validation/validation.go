package validation

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// DefaultMeters is the search radius when the caller gives none.
	DefaultMeters = 1000
	// MaxMeters bounds the search radius.
	MaxMeters = 100000
	// MaxQueryLength bounds the name filter, in characters.
	MaxQueryLength = 100
	// MaxIDs bounds a batch venue lookup.
	MaxIDs = 100
)

// ValidateCoordinate checks that lat and lng are finite and in range.
func ValidateCoordinate(lat, lng float64) (bool, string) {
	if lat != lat || lng != lng {
		return false, "lat and lng must be numbers"
	}
	if lat < -90 || lat > 90 {
		return false, "lat must be between -90 and 90"
	}
	if lng < -180 || lng > 180 {
		return false, "lng must be between -180 and 180"
	}
	return true, ""
}

// ValidateMeters checks the search radius.
func ValidateMeters(meters int) (bool, string) {
	if meters < 1 || meters > MaxMeters {
		return false, "meters must be between 1 and 100000"
	}
	return true, ""
}

// ValidateQuery checks the optional name filter.
func ValidateQuery(q string) (bool, string) {
	if !utf8.ValidString(q) {
		return false, "q must be valid UTF-8"
	}
	if utf8.RuneCountInString(q) > MaxQueryLength {
		return false, "q must be at most 100 characters"
	}
	return true, ""
}

// ParseIDs parses a comma-separated list of venue IDs. Blank entries are
// skipped and duplicates collapsed.
func ParseIDs(raw string) ([]uuid.UUID, string) {
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, "invalid venue id: " + part
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, "ids is required"
	}
	if len(ids) > MaxIDs {
		return nil, "at most 100 ids per request"
	}
	return ids, ""
}
