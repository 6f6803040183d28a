// Package bindings composes the stores into the derived views screens
// consume, so no screen has to duplicate subscription or resolution logic.
package bindings

import (
	"odyssea/models"
	"odyssea/stores"
)

// ResolveCurrentTrip resolves which trip is "current": the route-supplied
// id when present and non-empty, else the store-level selection, else none.
// Pure computation with no state and no side effects, so it is safe to
// re-evaluate on every render without risking update loops.
func ResolveCurrentTrip(routeID string, trips *stores.TripStore) (string, *models.Trip) {
	id := routeID
	if id == "" {
		id = trips.SelectedTripID()
	}
	if id == "" {
		return "", nil
	}
	if trip, ok := trips.GetTripByID(id); ok {
		return id, &trip
	}
	return id, nil
}
