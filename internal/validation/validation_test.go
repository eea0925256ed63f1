package validation

import (
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestValidateCoordinate(t *testing.T) {
	tests := []struct {
		name string
		lat  float64
		lng  float64
		want bool
	}{
		{"origin", 0, 0, true},
		{"new york", 40.7536, -73.9832, true},
		{"north pole", 90, 0, true},
		{"south pole", -90, 0, true},
		{"antimeridian east", 0, 180, true},
		{"antimeridian west", 0, -180, true},
		{"lat too high", 90.0001, 0, false},
		{"lat too low", -91, 0, false},
		{"lng too high", 0, 180.5, false},
		{"lng too low", 0, -181, false},
		{"swapped order", -73.9832, 140.7536, true},
		{"lat NaN", math.NaN(), 0, false},
		{"lng NaN", 0, math.NaN(), false},
		{"lat infinite", math.Inf(1), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := ValidateCoordinate(tt.lat, tt.lng)
			if got != tt.want {
				t.Errorf("ValidateCoordinate(%v, %v) = %v (%s), want %v", tt.lat, tt.lng, got, msg, tt.want)
			}
			if !got && msg == "" {
				t.Error("rejected coordinate without a message")
			}
		})
	}
}

func TestValidateMeters(t *testing.T) {
	tests := []struct {
		meters int
		want   bool
	}{
		{1, true},
		{DefaultMeters, true},
		{MaxMeters, true},
		{0, false},
		{-5, false},
		{MaxMeters + 1, false},
	}

	for _, tt := range tests {
		if got, _ := ValidateMeters(tt.meters); got != tt.want {
			t.Errorf("ValidateMeters(%d) = %v, want %v", tt.meters, got, tt.want)
		}
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name string
		q    string
		want bool
	}{
		{"empty", "", true},
		{"simple", "coffee", true},
		{"max length", strings.Repeat("a", MaxQueryLength), true},
		{"too long", strings.Repeat("a", MaxQueryLength+1), false},
		{"multibyte at max", strings.Repeat("é", MaxQueryLength), true},
		{"invalid utf8", "caf\xff", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, _ := ValidateQuery(tt.q); got != tt.want {
				t.Errorf("ValidateQuery(%q) = %v, want %v", tt.q, got, tt.want)
			}
		})
	}
}

func TestParseIDs(t *testing.T) {
	a := uuid.New()
	b := uuid.New()

	tests := []struct {
		name    string
		raw     string
		want    []uuid.UUID
		wantErr bool
	}{
		{"single", a.String(), []uuid.UUID{a}, false},
		{"two", a.String() + "," + b.String(), []uuid.UUID{a, b}, false},
		{"spaces and blanks", " " + a.String() + " ,, " + b.String(), []uuid.UUID{a, b}, false},
		{"duplicates collapse", a.String() + "," + a.String(), []uuid.UUID{a}, false},
		{"empty", "", nil, true},
		{"only commas", ",,", nil, true},
		{"not a uuid", a.String() + ",nope", nil, true},
		{"too many", manyIDs(MaxIDs + 1), nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, msg := ParseIDs(tt.raw)
			if tt.wantErr {
				if msg == "" || got != nil {
					t.Errorf("ParseIDs(%q) = %v, %q, want error", tt.raw, got, msg)
				}
				return
			}
			if msg != "" {
				t.Fatalf("ParseIDs(%q) error = %s", tt.raw, msg)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ParseIDs(%q) = %v, want %v", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ParseIDs(%q)[%d] = %v, want %v", tt.raw, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func manyIDs(n int) string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	return strings.Join(ids, ",")
}
