// Package store persists saved itinerary plans.
//
// A plan records the ordered accommodation ids only. Legs are derived again when
// a plan is loaded, so saved plans follow track and catalog updates.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when no plan has the requested id
var ErrNotFound = errors.New("plan not found")

// Plan is a saved itinerary
type Plan struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	AccommodationIDs []string  `json:"accommodation_ids"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Validate checks the fields every backend requires
func (p Plan) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("plan id is required")
	}
	for i, id := range p.AccommodationIDs {
		if id == "" {
			return fmt.Errorf("plan stop %d has an empty accommodation id", i+1)
		}
	}
	return nil
}

// PlanStore saves and loads plans
type PlanStore interface {
	// Save inserts or replaces the plan. CreatedAt is kept from the first save.
	Save(ctx context.Context, plan Plan) (Plan, error)
	Get(ctx context.Context, id string) (Plan, error)
	// List returns plans most recently updated first
	List(ctx context.Context) ([]Plan, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
