// trip.go
// Defines the trip and visited-place structures shared by the stores and the
// Firestore sync layer.

package models

import (
	"time"
)

// TripStatus defines where a trip sits in its lifecycle.
type TripStatus string

const (
	StatusUpcoming  TripStatus = "Upcoming"
	StatusCurrent   TripStatus = "Current"
	StatusCompleted TripStatus = "Completed"
)

// PlaceCategory defines the kind of place a traveller logged.
type PlaceCategory string

const (
	CategoryPasseio     PlaceCategory = "Passeio"
	CategoryRestaurante PlaceCategory = "Restaurante"
	CategoryPraia       PlaceCategory = "Praia"
	CategoryHotel       PlaceCategory = "Hotel"
	CategoryTransporte  PlaceCategory = "Transporte"
	CategoryMirante     PlaceCategory = "Mirante"
	CategoryMuseu       PlaceCategory = "Museu"
	CategoryShopping    PlaceCategory = "Shopping"
	CategoryOutro       PlaceCategory = "Outro"
)

// Location is the geographic position of a visited place.
type Location struct {
	Latitude  float64 `firestore:"latitude" json:"latitude"`
	Longitude float64 `firestore:"longitude" json:"longitude"`
	Address   string  `firestore:"address" json:"address"`
}

// VisitedPlace is one logged stop inside a trip. DateTime is an ISO-8601
// instant; ISO strings compare chronologically, so consumers sort on the
// raw string the same way the mobile client does.
type VisitedPlace struct {
	ID        string        `firestore:"-" json:"id"` // document id, not a stored field
	Name      string        `firestore:"name" json:"name"`
	Category  PlaceCategory `firestore:"category" json:"category"`
	Location  Location      `firestore:"location" json:"location"`
	DateTime  string        `firestore:"dateTime" json:"dateTime"`
	Rating    int           `firestore:"rating" json:"rating"` // 0-5
	Notes     string        `firestore:"notes" json:"notes"`
	MediaURLs []string      `firestore:"mediaUrls" json:"mediaUrls"`
	Tags      []string      `firestore:"tags" json:"tags"`
}

// Trip maps directly to a document in the "trips" collection.
// StartDate and EndDate are calendar dates ("2025-08-10"); Places is the
// embedded copy of the place list, used as a fallback until the places
// subcollection subscription delivers live data.
type Trip struct {
	ID            string         `firestore:"-" json:"id"`
	OwnerUID      string         `firestore:"ownerUid" json:"ownerUid"`
	Title         string         `firestore:"title" json:"title"`
	Destination   string         `firestore:"destination" json:"destination"`
	StartDate     string         `firestore:"startDate" json:"startDate"`
	EndDate       string         `firestore:"endDate" json:"endDate"`
	CoverPhotoURL string         `firestore:"coverPhotoUrl" json:"coverPhotoUrl"`
	Tags          []string       `firestore:"tags" json:"tags"`
	Status        TripStatus     `firestore:"status" json:"status"`
	Places        []VisitedPlace `firestore:"places" json:"places"`
	CreatedAt     time.Time      `firestore:"createdAt,serverTimestamp" json:"createdAt"`
}

// Clone returns a deep copy so callers can hand trips across store
// boundaries without sharing backing slices.
func (t Trip) Clone() Trip {
	out := t
	out.Tags = append([]string(nil), t.Tags...)
	out.Places = ClonePlaces(t.Places)
	return out
}

// Clone returns a deep copy of a visited place.
func (p VisitedPlace) Clone() VisitedPlace {
	out := p
	out.MediaURLs = append([]string(nil), p.MediaURLs...)
	out.Tags = append([]string(nil), p.Tags...)
	return out
}

// ClonePlaces deep-copies a place list. A nil input yields an empty,
// non-nil slice so callers never see nil lists.
func ClonePlaces(places []VisitedPlace) []VisitedPlace {
	out := make([]VisitedPlace, 0, len(places))
	for _, p := range places {
		out = append(out, p.Clone())
	}
	return out
}
