package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedCandidate marks a provider venue that cannot be stored.
var ErrMalformedCandidate = errors.New("malformed venue candidate")

// Location is the structured address of a venue.
type Location struct {
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	CC      string  `json:"cc,omitempty"`
	City    string  `json:"city,omitempty"`
	State   string  `json:"state,omitempty"`
	Country string  `json:"country,omitempty"`
}

// CategoryIcon references a category icon hosted by the directory.
type CategoryIcon struct {
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// Category is a venue category keyed by its store-local ID.
type Category struct {
	ID         uuid.UUID     `json:"id"`
	ExternalID string        `json:"external_id"`
	Name       string        `json:"name"`
	PluralName string        `json:"plural_name,omitempty"`
	ShortName  string        `json:"short_name,omitempty"`
	Icon       *CategoryIcon `json:"icon,omitempty"`
}

// Venue is a physical place that chat rooms can be attached to.
// Coord is always [longitude, latitude].
type Venue struct {
	ID           uuid.UUID  `json:"id"`
	ExternalID   string     `json:"external_id"`
	Name         string     `json:"name"`
	Coord        [2]float64 `json:"coord"`
	Location     Location   `json:"location"`
	Categories   []Category `json:"categories"`
	Verified     bool       `json:"verified"`
	ReferralID   string     `json:"referral_id,omitempty"`
	RoomCount    int64      `json:"room_count"`
	UserCount    int64      `json:"user_count"`
	MessageCount int64      `json:"message_count"`
	LastMessage  *time.Time `json:"last_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Lng returns the venue longitude.
func (v *Venue) Lng() float64 { return v.Coord[0] }

// Lat returns the venue latitude.
func (v *Venue) Lat() float64 { return v.Coord[1] }

// ExternalLocation is the provider's location block. Lat and Lng are
// pointers so a missing coordinate can be told apart from 0,0.
type ExternalLocation struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
	CC      string   `json:"cc"`
	City    string   `json:"city"`
	State   string   `json:"state"`
	Country string   `json:"country"`
}

// ExternalCategory is a category as described by the provider.
type ExternalCategory struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	PluralName string        `json:"pluralName"`
	ShortName  string        `json:"shortName"`
	Icon       *CategoryIcon `json:"icon"`
}

// ExternalVenue is a raw venue candidate returned by the venue directory.
type ExternalVenue struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Location   ExternalLocation   `json:"location"`
	Categories []ExternalCategory `json:"categories"`
	Verified   bool               `json:"verified"`
	ReferralID string             `json:"referralId"`
}

// Validate reports whether the candidate carries the fields required to
// store it.
func (e *ExternalVenue) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing id", ErrMalformedCandidate)
	}
	if e.Location.Lat == nil || e.Location.Lng == nil {
		return fmt.Errorf("%w: venue %s has no coordinate", ErrMalformedCandidate, e.ID)
	}
	lat, lng := *e.Location.Lat, *e.Location.Lng
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: venue %s has coordinate out of range", ErrMalformedCandidate, e.ID)
	}
	return nil
}

// Coord returns the candidate coordinate in [lng, lat] order.
// Only valid after Validate succeeds.
func (e *ExternalVenue) Coord() [2]float64 {
	return [2]float64{*e.Location.Lng, *e.Location.Lat}
}

// StoredLocation converts the provider location into the stored form.
func (e *ExternalVenue) StoredLocation() Location {
	loc := Location{
		Address: e.Location.Address,
		CC:      e.Location.CC,
		City:    e.Location.City,
		State:   e.Location.State,
		Country: e.Location.Country,
	}
	if e.Location.Lat != nil {
		loc.Lat = *e.Location.Lat
	}
	if e.Location.Lng != nil {
		loc.Lng = *e.Location.Lng
	}
	return loc
}

// UpsertFailure records a candidate that could not be reconciled.
type UpsertFailure struct {
	ExternalID string
	Err        error
}

// UpsertResult is the outcome of reconciling a batch of candidates.
// Venues are in candidate order; failed candidates are omitted.
type UpsertResult struct {
	Venues   []Venue
	Failures []UpsertFailure
}

// RadiusQuery describes a store-local proximity search.
type RadiusQuery struct {
	Lng       float64
	Lat       float64
	Meters    int
	Filter    string
	RoomsOnly bool
	Limit     int
}

// ProviderQuery is a search request against the venue directory.
type ProviderQuery struct {
	Lat    float64
	Lng    float64
	Meters int
	Filter string
	Limit  int
}
