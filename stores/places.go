// places.go
// PlacesStore maps trip-id to its live place list. Each trip is subscribed
// at most once concurrently; once a subscription is bound this store is the
// authoritative cache for that trip's places, taking precedence over the
// embedded list on the trip document.

package stores

import (
	"context"
	"fmt"
	"log"
	"sync"

	"odyssea/models"
	"odyssea/remote"
)

// PlacePatch is a partial place update; nil fields are left untouched.
type PlacePatch struct {
	Name      *string
	Category  *models.PlaceCategory
	Location  *models.Location
	DateTime  *string
	Rating    *int
	Notes     *string
	MediaURLs *[]string
	Tags      *[]string
}

func (p PlacePatch) apply(v *models.VisitedPlace) {
	if p.Name != nil {
		v.Name = *p.Name
	}
	if p.Category != nil {
		v.Category = *p.Category
	}
	if p.Location != nil {
		v.Location = *p.Location
	}
	if p.DateTime != nil {
		v.DateTime = *p.DateTime
	}
	if p.Rating != nil {
		v.Rating = *p.Rating
	}
	if p.Notes != nil {
		v.Notes = *p.Notes
	}
	if p.MediaURLs != nil {
		v.MediaURLs = append([]string(nil), *p.MediaURLs...)
	}
	if p.Tags != nil {
		v.Tags = append([]string(nil), *p.Tags...)
	}
}

// PlacesStore holds the live place lists keyed by trip id.
type PlacesStore struct {
	col remote.Collection

	watchers
	mu           sync.Mutex
	placesByTrip map[string][]models.VisitedPlace
	unsubs       map[string]remote.Unsubscribe
	live         map[string]bool // first live snapshot arrived
}

// NewPlacesStore builds a places store over the given remote collection.
func NewPlacesStore(col remote.Collection) *PlacesStore {
	return &PlacesStore{
		col:          col,
		placesByTrip: map[string][]models.VisitedPlace{},
		unsubs:       map[string]remote.Unsubscribe{},
		live:         map[string]bool{},
	}
}

// BindTripPlaces establishes the live subscription for one trip's places,
// ordered by visit date/time ascending. Idempotent per trip id: a second
// call while a subscription is active is a no-op, including its fallback.
// A non-empty fallback (e.g. the trip's embedded place list) seeds local
// state so the UI has data before the first live snapshot arrives; the
// snapshot subsequently overwrites it.
func (s *PlacesStore) BindTripPlaces(ctx context.Context, tripID string, fallback []models.VisitedPlace) error {
	s.mu.Lock()
	if _, bound := s.unsubs[tripID]; bound {
		s.mu.Unlock()
		return nil
	}
	// Reserve the slot before releasing the lock; a concurrent bind for the
	// same trip sees it as bound and backs off.
	s.unsubs[tripID] = nil

	seeded := false
	if len(fallback) > 0 {
		if _, exists := s.placesByTrip[tripID]; !exists {
			s.placesByTrip[tripID] = models.ClonePlaces(fallback)
			seeded = true
		}
	}
	s.mu.Unlock()
	if seeded {
		s.notify()
	}

	unsub, err := s.col.Subscribe(ctx, remote.Query{
		Path:    fmt.Sprintf("%s/%s/places", tripsCollection, tripID),
		OrderBy: "dateTime",
	}, func(docs []remote.Doc) {
		s.applySnapshot(tripID, docs)
	})
	if err != nil {
		s.mu.Lock()
		if u, ok := s.unsubs[tripID]; ok && u == nil {
			delete(s.unsubs, tripID)
		}
		s.mu.Unlock()
		return fmt.Errorf("failed to subscribe to places for trip %s: %w", tripID, err)
	}

	s.mu.Lock()
	if u, ok := s.unsubs[tripID]; !ok || u != nil {
		// Cleared while subscribing; this listener must not survive.
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsubs[tripID] = unsub
	s.mu.Unlock()
	return nil
}

func (s *PlacesStore) applySnapshot(tripID string, docs []remote.Doc) {
	places := make([]models.VisitedPlace, 0, len(docs))
	for _, doc := range docs {
		var p models.VisitedPlace
		if err := doc.DataTo(&p); err != nil {
			log.Printf("Warning: failed to parse place %s: %v", doc.ID(), err)
			continue
		}
		p.ID = doc.ID()
		if p.Category == "" {
			p.Category = models.CategoryOutro
		}
		places = append(places, p)
	}

	s.mu.Lock()
	if _, bound := s.unsubs[tripID]; !bound {
		// Cleared while this push was in flight; drop it.
		s.mu.Unlock()
		return
	}
	s.placesByTrip[tripID] = places
	s.live[tripID] = true
	s.mu.Unlock()
	s.notify()
}

// GetPlacesForTrip is a pure read; unbound trips yield an empty list.
func (s *PlacesStore) GetPlacesForTrip(tripID string) []models.VisitedPlace {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.ClonePlaces(s.placesByTrip[tripID])
}

// LoadingFromBackend is true iff the trip is bound but no live snapshot
// has arrived yet (fallback data may still be showing).
func (s *PlacesStore) LoadingFromBackend(tripID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, bound := s.unsubs[tripID]
	return bound && !s.live[tripID]
}

// ClearTripPlaces tears down one trip's subscription and drops its cached
// places. Required on trip deselection so listeners don't leak.
func (s *PlacesStore) ClearTripPlaces(tripID string) {
	s.mu.Lock()
	unsub := s.unsubs[tripID]
	delete(s.unsubs, tripID)
	delete(s.placesByTrip, tripID)
	delete(s.live, tripID)
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.notify()
}

// ClearAll tears down every subscription and drops all cached data.
// Required on sign-out so no listener survives into the next session.
func (s *PlacesStore) ClearAll() {
	s.mu.Lock()
	unsubs := make([]remote.Unsubscribe, 0, len(s.unsubs))
	for _, unsub := range s.unsubs {
		if unsub != nil {
			unsubs = append(unsubs, unsub)
		}
	}
	s.unsubs = map[string]remote.Unsubscribe{}
	s.placesByTrip = map[string][]models.VisitedPlace{}
	s.live = map[string]bool{}
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	s.notify()
}
