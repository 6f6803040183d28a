// trip_places.go
// TripPlacesBinding answers "which places belong to the trip on screen".
// Binding the subscription is an explicit side effect (SetTrip), never part
// of the computed reads, mirroring the effect/render split the view layer
// needs to stay loop-free.

package bindings

import (
	"context"
	"sync"

	"odyssea/models"
	"odyssea/stores"
)

// TripPlacesBinding tracks one screen's current trip and exposes its
// effective place list.
type TripPlacesBinding struct {
	trips  *stores.TripStore
	places *stores.PlacesStore

	mu     sync.Mutex
	tripID string
}

// NewTripPlacesBinding composes the trip and places stores.
func NewTripPlacesBinding(trips *stores.TripStore, places *stores.PlacesStore) *TripPlacesBinding {
	return &TripPlacesBinding{trips: trips, places: places}
}

// SetTrip resolves the current trip from the route id (falling back to the
// store selection) and binds its places subscription, seeding it with the
// trip's embedded place list as fallback. Safe to call on every trip-id
// change; rebinding an already-bound trip is a no-op inside the store.
func (b *TripPlacesBinding) SetTrip(ctx context.Context, routeID string) (string, error) {
	tripID, trip := ResolveCurrentTrip(routeID, b.trips)

	b.mu.Lock()
	b.tripID = tripID
	b.mu.Unlock()

	if tripID == "" {
		return "", nil
	}

	var fallback []models.VisitedPlace
	if trip != nil {
		fallback = trip.Places
	}
	return tripID, b.places.BindTripPlaces(ctx, tripID, fallback)
}

// TripID returns the trip this binding currently tracks ("" when none).
func (b *TripPlacesBinding) TripID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripID
}

// Places computes the effective list: live places-store data when
// non-empty, else the trip's embedded place list, else empty. Pure read.
func (b *TripPlacesBinding) Places() []models.VisitedPlace {
	tripID := b.TripID()
	if tripID == "" {
		return []models.VisitedPlace{}
	}

	if live := b.places.GetPlacesForTrip(tripID); len(live) > 0 {
		return live
	}
	if trip, ok := b.trips.GetTripByID(tripID); ok {
		return models.ClonePlaces(trip.Places)
	}
	return []models.VisitedPlace{}
}

// LoadingFromBackend is true iff a trip is bound but its first live
// snapshot has not arrived yet.
func (b *TripPlacesBinding) LoadingFromBackend() bool {
	tripID := b.TripID()
	return tripID != "" && b.places.LoadingFromBackend(tripID)
}

// Stats aggregates the effective place list for the current trip.
func (b *TripPlacesBinding) Stats() models.TripStats {
	tripID := b.TripID()
	if tripID == "" {
		return models.TripStats{Days: 1, Categories: []models.CategoryCount{}}
	}
	trip, _ := b.trips.GetTripByID(tripID)
	return models.ComputeTripStats(trip, b.Places())
}
