package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// ErrDuplicateID is returned when two catalog records share an id
var ErrDuplicateID = errors.New("duplicate accommodation id")

// Catalog is a read-only snapshot of the accommodation catalog, indexed by id.
// It is safe to share between planning sessions.
type Catalog struct {
	items []*Accommodation
	byID  map[string]*Accommodation
}

// New validates the accommodations and builds a Catalog. Order is preserved.
func New(items []*Accommodation) (*Catalog, error) {
	c := &Catalog{
		items: make([]*Accommodation, 0, len(items)),
		byID:  make(map[string]*Accommodation, len(items)),
	}

	for i, acc := range items {
		if acc == nil {
			continue
		}
		if acc.ID == "" {
			return nil, fmt.Errorf("accommodation %d: missing id", i)
		}
		if !finite(acc.Latitude) || !finite(acc.Longitude) || (acc.Altitude != nil && !finite(*acc.Altitude)) {
			return nil, fmt.Errorf("accommodation %s: coordinates must be finite", acc.ID)
		}
		if _, exists := c.byID[acc.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, acc.ID)
		}
		c.byID[acc.ID] = acc
		c.items = append(c.items, acc)
	}

	return c, nil
}

// Get returns the accommodation with the given id
func (c *Catalog) Get(id string) (*Accommodation, bool) {
	if c == nil {
		return nil, false
	}
	acc, ok := c.byID[id]
	return acc, ok
}

// All returns the accommodations in catalog order
func (c *Catalog) All() []*Accommodation {
	if c == nil {
		return nil
	}
	out := make([]*Accommodation, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of accommodations
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// SortedByName returns the accommodations ordered by name, then id
func (c *Catalog) SortedByName() []*Accommodation {
	out := c.All()
	SortByName(out)
	return out
}

// SortByName orders accommodations lexicographically by name; ids break ties.
func SortByName(accs []*Accommodation) {
	sort.SliceStable(accs, func(i, j int) bool {
		if accs[i].Name != accs[j].Name {
			return accs[i].Name < accs[j].Name
		}
		return accs[i].ID < accs[j].ID
	})
}

// Decode parses a catalog document. Both a JSON array of records and a GeoJSON
// FeatureCollection of Points (records as feature properties) are accepted.
func Decode(data []byte) ([]*Accommodation, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("catalog document is empty")
	}

	if trimmed[0] == '[' {
		var items []*Accommodation
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to parse catalog records: %w", err)
		}
		return items, nil
	}

	return decodeFeatureCollection(trimmed)
}

func decodeFeatureCollection(data []byte) ([]*Accommodation, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog GeoJSON: %w", err)
	}

	items := make([]*Accommodation, 0, len(fc.Features))
	for i, feature := range fc.Features {
		point, ok := feature.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry must be a Point", i)
		}

		// Properties use the same field names as the JSON records.
		raw, err := json.Marshal(feature.Properties)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		acc := &Accommodation{}
		if err := json.Unmarshal(raw, acc); err != nil {
			return nil, fmt.Errorf("feature %d: failed to parse properties: %w", i, err)
		}

		acc.Longitude = point.Lon()
		acc.Latitude = point.Lat()
		if acc.ID == "" {
			if id, ok := feature.ID.(string); ok {
				acc.ID = id
			} else if feature.ID != nil {
				acc.ID = fmt.Sprint(feature.ID)
			}
		}
		items = append(items, acc)
	}

	return items, nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
