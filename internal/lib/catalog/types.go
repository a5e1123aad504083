package catalog

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dpup/trailplanner/server/internal/lib/geo"
)

// Accessibility describes how far an accommodation sits from the trail
type Accessibility string

const (
	OnTrail   Accessibility = "On-trail"
	NearTrail Accessibility = "Near-trail"
	OffTrail  Accessibility = "Off-trail"
	Unknown   Accessibility = ""
)

// ParseAccessibility accepts the catalog's location_type spellings
// ("On-trail", "on_trail", "ON TRAIL", ...). Unrecognized values map to Unknown.
func ParseAccessibility(s string) Accessibility {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)

	switch normalized {
	case "on-trail", "ontrail":
		return OnTrail
	case "near-trail", "neartrail":
		return NearTrail
	case "off-trail", "offtrail":
		return OffTrail
	}
	return Unknown
}

// String returns the display label, or "Unknown"
func (a Accessibility) String() string {
	if a == Unknown {
		return "Unknown"
	}
	return string(a)
}

// UnmarshalJSON lets location_type values use any supported spelling
func (a *Accessibility) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("location_type must be a string: %w", err)
	}
	*a = ParseAccessibility(s)
	return nil
}

// Stage is an externally defined named section of the trail
type Stage struct {
	Number        int    `json:"stage_number"`
	Name          string `json:"name"`
	StartLocation string `json:"start_location"`
	EndLocation   string `json:"end_location"`
}

// Accommodation is a candidate stopping point supplied by the external catalog.
// The planner only ever reads it.
type Accommodation struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Type          string        `json:"type,omitempty"`
	Latitude      float64       `json:"latitude"`
	Longitude     float64       `json:"longitude"`
	Altitude      *float64      `json:"altitude,omitempty"`
	Stage         *Stage        `json:"stage,omitempty"`
	Accessibility Accessibility `json:"location_type"`
}

// Point returns the accommodation's 2D position
func (a *Accommodation) Point() geo.Point {
	return geo.Point{Latitude: a.Latitude, Longitude: a.Longitude}
}

// StageNumber returns the stage number and whether one is declared
func (a *Accommodation) StageNumber() (int, bool) {
	if a.Stage == nil {
		return 0, false
	}
	return a.Stage.Number, true
}
