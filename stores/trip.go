// trip.go
// TripStore owns the in-memory trip list and the selected-trip id. It binds
// at most one live subscription, filtered by owner and ordered by start
// date; every snapshot replaces the whole list (last-write-wins at the
// snapshot level, no client-side merge of partial updates).

package stores

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"odyssea/cache"
	"odyssea/models"
	"odyssea/remote"
)

const (
	tripsCollection     = "trips"
	tripsCacheNamespace = "odyssea-trips-v2"

	// Used when a trip is created without a cover image or its upload fails.
	defaultCoverPhotoURL = "https://images.unsplash.com/photo-1500530855697-b586d89ba3ee?auto=format&fit=crop&w=1200&q=80"
)

// WriteStatus tags the fate of an optimistic mutation.
type WriteStatus int

const (
	WriteCommitted WriteStatus = iota
	WritePending
	WriteFailed
)

// PlaceWrite tracks one optimistic place append until the backend confirms
// or rejects it.
type PlaceWrite struct {
	Status WriteStatus
	Reason string
	TripID string
	Place  models.VisitedPlace
}

// TripPlace pairs a place with the trip that owns it.
type TripPlace struct {
	Trip  models.Trip
	Place models.VisitedPlace
}

// CreateTripInput carries the user-supplied fields for a new trip.
type CreateTripInput struct {
	Title       string
	Destination string
	StartDate   string
	EndDate     string
	Tags        []string
	CoverImage  []byte // optional; uploaded to blob storage when present
}

// TripPatch is a partial trip update; nil fields are left untouched.
type TripPatch struct {
	Title         *string
	Destination   *string
	StartDate     *string
	EndDate       *string
	CoverPhotoURL *string
	Tags          *[]string
	Status        *models.TripStatus
}

// TripStore holds the trips slice of application state.
type TripStore struct {
	col   remote.Collection
	blobs remote.Blobs
	cache *cache.Store

	watchers
	mu             sync.Mutex
	trips          []models.Trip
	selectedTripID string
	ownerUID       string
	unsub          remote.Unsubscribe
	loading        bool
	placeWrites    map[string]PlaceWrite
}

type tripsCacheState struct {
	Trips          []models.Trip `json:"trips"`
	SelectedTripID string        `json:"selectedTripId"`
}

// NewTripStore builds a trip store over the given remote collection, blob
// uploader and local cache (cache may be nil). Cached trips are rehydrated
// immediately; the live subscription overwrites them once bound.
func NewTripStore(col remote.Collection, blobs remote.Blobs, c *cache.Store) *TripStore {
	s := &TripStore{
		col:         col,
		blobs:       blobs,
		cache:       c,
		placeWrites: map[string]PlaceWrite{},
	}
	if c != nil {
		var state tripsCacheState
		err := c.Load(tripsCacheNamespace, &state)
		switch {
		case err == nil:
			s.trips = state.Trips
			s.selectedTripID = state.SelectedTripID
		case !errors.Is(err, cache.ErrMiss):
			log.Printf("Warning: failed to rehydrate trips: %v", err)
		}
	}
	return s
}

// InitUserTrips binds the live subscription for one owner's trips, ordered
// by start date ascending. Calling it again for the same owner is a no-op;
// a different owner forces full teardown first so two owners' data never
// interleave.
func (s *TripStore) InitUserTrips(ctx context.Context, ownerUID string) error {
	s.mu.Lock()
	if s.unsub != nil {
		if s.ownerUID == ownerUID {
			s.mu.Unlock()
			return nil
		}
		s.unsub()
		s.unsub = nil
		s.trips = nil
		s.selectedTripID = ""
		s.placeWrites = map[string]PlaceWrite{}
	}
	s.ownerUID = ownerUID
	s.loading = true
	s.mu.Unlock()
	s.notify()

	unsub, err := s.col.Subscribe(ctx, remote.Query{
		Path:    tripsCollection,
		Filters: []remote.Filter{{Field: "ownerUid", Op: "==", Value: ownerUID}},
		OrderBy: "startDate",
	}, s.applySnapshot)
	if err != nil {
		s.mu.Lock()
		if s.ownerUID == ownerUID {
			s.loading = false
		}
		s.mu.Unlock()
		s.notify()
		return fmt.Errorf("failed to subscribe to trips for %s: %w", ownerUID, err)
	}

	s.mu.Lock()
	if s.ownerUID != ownerUID || s.unsub != nil {
		// A concurrent bind won the slot; this subscription must not survive.
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsub = unsub
	s.mu.Unlock()
	return nil
}

// applySnapshot replaces the whole trip list with the pushed snapshot and
// marks any pending place writes it now contains as committed.
func (s *TripStore) applySnapshot(docs []remote.Doc) {
	trips := make([]models.Trip, 0, len(docs))
	for _, doc := range docs {
		var t models.Trip
		if err := doc.DataTo(&t); err != nil {
			log.Printf("Warning: failed to parse trip %s: %v", doc.ID(), err)
			continue
		}
		t.ID = doc.ID()
		trips = append(trips, t)
	}

	s.mu.Lock()
	s.trips = trips
	s.loading = false
	for id, w := range s.placeWrites {
		if w.Status == WritePending && snapshotHasPlace(trips, w.TripID, id) {
			delete(s.placeWrites, id)
		}
	}
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

// Teardown releases the live subscription. Cached trips stay in place so
// the next session has data before its first snapshot.
func (s *TripStore) Teardown() {
	s.mu.Lock()
	if s.unsub != nil {
		s.unsub()
		s.unsub = nil
	}
	s.ownerUID = ""
	s.loading = false
	s.mu.Unlock()
}

// AddTrip uploads the optional cover image, writes the trip document and
// returns the trip as written. It deliberately does not splice the trip
// into local state: the owner subscription echoes it back in the next
// snapshot, so callers must not expect immediate presence in Trips().
func (s *TripStore) AddTrip(ctx context.Context, in CreateTripInput, ownerUID string) (models.Trip, error) {
	coverURL := defaultCoverPhotoURL
	if len(in.CoverImage) > 0 && s.blobs != nil {
		objectPath := fmt.Sprintf("tripCovers/%s/cover-%d-%s.jpg", ownerUID, time.Now().UnixMilli(), uuid.NewString()[:8])
		url, err := s.blobs.Upload(ctx, objectPath, in.CoverImage)
		if err != nil {
			log.Printf("Warning: trip cover upload failed, using default cover: %v", err)
		} else {
			coverURL = url
		}
	}

	trip := models.Trip{
		ID:            uuid.NewString(),
		OwnerUID:      ownerUID,
		Title:         in.Title,
		Destination:   in.Destination,
		StartDate:     in.StartDate,
		EndDate:       in.EndDate,
		CoverPhotoURL: coverURL,
		Tags:          append([]string(nil), in.Tags...),
		Status:        models.StatusUpcoming,
		Places:        []models.VisitedPlace{},
	}

	if err := s.col.Write(ctx, tripsCollection, trip.ID, trip); err != nil {
		return models.Trip{}, err
	}
	return trip, nil
}

// SetSelectedTrip records which trip the user is looking at.
func (s *TripStore) SetSelectedTrip(id string) {
	s.mu.Lock()
	s.selectedTripID = id
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

// AddPlaceToTrip optimistically appends the place to the in-memory trip and
// persists the full updated place list in the background. The append is
// tagged Pending; a failed persist reverts it and tags it Failed so the UI
// can offer a retry.
func (s *TripStore) AddPlaceToTrip(ctx context.Context, tripID string, place models.VisitedPlace) error {
	if place.ID == "" {
		place.ID = uuid.NewString()
	}
	if place.Category == "" {
		place.Category = models.CategoryOutro
	}

	s.mu.Lock()
	idx := s.tripIndexLocked(tripID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("trip %s not found", tripID)
	}
	s.trips[idx].Places = append(s.trips[idx].Places, place.Clone())
	s.placeWrites[place.ID] = PlaceWrite{Status: WritePending, TripID: tripID, Place: place.Clone()}
	placesCopy := models.ClonePlaces(s.trips[idx].Places)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	go s.persistPlaceList(ctx, tripID, place.ID, placesCopy)
	return nil
}

func (s *TripStore) persistPlaceList(ctx context.Context, tripID, placeID string, places []models.VisitedPlace) {
	err := s.col.Merge(ctx, tripsCollection, tripID, map[string]interface{}{"places": places})

	s.mu.Lock()
	w, ok := s.placeWrites[placeID]
	if !ok || w.Status != WritePending {
		// Already confirmed by a snapshot or superseded.
		s.mu.Unlock()
		return
	}
	if err != nil {
		log.Printf("Warning: failed to persist place %s to trip %s: %v", placeID, tripID, err)
		if idx := s.tripIndexLocked(tripID); idx >= 0 {
			s.trips[idx].Places = removePlace(s.trips[idx].Places, placeID)
		}
		w.Status = WriteFailed
		w.Reason = err.Error()
		s.placeWrites[placeID] = w
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
		return
	}
	delete(s.placeWrites, placeID)
	s.mu.Unlock()
	s.notify()
}

// RetryPlaceWrite re-applies a failed optimistic place append.
func (s *TripStore) RetryPlaceWrite(ctx context.Context, placeID string) error {
	s.mu.Lock()
	w, ok := s.placeWrites[placeID]
	if !ok || w.Status != WriteFailed {
		s.mu.Unlock()
		return fmt.Errorf("no failed write for place %s", placeID)
	}
	delete(s.placeWrites, placeID)
	s.mu.Unlock()

	return s.AddPlaceToTrip(ctx, w.TripID, w.Place)
}

// UpdateTrip applies a partial update optimistically, persists the changed
// fields and reverts the local copy if the persist fails.
func (s *TripStore) UpdateTrip(ctx context.Context, id string, patch TripPatch) error {
	fields := patch.fields()
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	idx := s.tripIndexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("trip %s not found", id)
	}
	prev := s.trips[idx].Clone()
	patch.apply(&s.trips[idx])
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if err := s.col.Merge(ctx, tripsCollection, id, fields); err != nil {
		s.mu.Lock()
		if idx := s.tripIndexLocked(id); idx >= 0 {
			s.trips[idx] = prev
		}
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
		return err
	}
	return nil
}

// UpdatePlaceInTrip applies a partial update to one embedded place and
// persists the full place list, reverting on failure.
func (s *TripStore) UpdatePlaceInTrip(ctx context.Context, tripID, placeID string, patch PlacePatch) error {
	s.mu.Lock()
	idx := s.tripIndexLocked(tripID)
	if idx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("trip %s not found", tripID)
	}
	pIdx := placeIndex(s.trips[idx].Places, placeID)
	if pIdx < 0 {
		s.mu.Unlock()
		return fmt.Errorf("place %s not found in trip %s", placeID, tripID)
	}
	prev := s.trips[idx].Places[pIdx].Clone()
	patch.apply(&s.trips[idx].Places[pIdx])
	placesCopy := models.ClonePlaces(s.trips[idx].Places)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	if err := s.col.Merge(ctx, tripsCollection, tripID, map[string]interface{}{"places": placesCopy}); err != nil {
		s.mu.Lock()
		if idx := s.tripIndexLocked(tripID); idx >= 0 {
			if pIdx := placeIndex(s.trips[idx].Places, placeID); pIdx >= 0 {
				s.trips[idx].Places[pIdx] = prev
			}
		}
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
		return err
	}
	return nil
}

// --- Selectors (pure reads, safe from render paths) ---

// Trips returns a deep copy of the loaded trip list.
func (s *TripStore) Trips() []models.Trip {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Trip, 0, len(s.trips))
	for _, t := range s.trips {
		out = append(out, t.Clone())
	}
	return out
}

// SelectedTripID returns the currently selected trip id ("" when none).
func (s *TripStore) SelectedTripID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedTripID
}

// Loading reports whether a subscription is bound but no snapshot has
// arrived yet.
func (s *TripStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// GetTripByID looks up a trip without side effects.
func (s *TripStore) GetTripByID(id string) (models.Trip, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx := s.tripIndexLocked(id); idx >= 0 {
		return s.trips[idx].Clone(), true
	}
	return models.Trip{}, false
}

// FindTripByPlaceID scans all loaded trips' place lists and returns the
// first trip/place pair matching the place id, or nil.
func (s *TripStore) FindTripByPlaceID(placeID string) *TripPlace {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trips {
		for _, p := range t.Places {
			if p.ID == placeID {
				return &TripPlace{Trip: t.Clone(), Place: p.Clone()}
			}
		}
	}
	return nil
}

// GetPlaceByID finds a place across all loaded trips.
func (s *TripStore) GetPlaceByID(placeID string) (models.VisitedPlace, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.trips {
		for _, p := range t.Places {
			if p.ID == placeID {
				return p.Clone(), true
			}
		}
	}
	return models.VisitedPlace{}, false
}

// PlaceWriteState exposes the pending/failed tag for an optimistic place
// append; ok is false once the write is committed.
func (s *TripStore) PlaceWriteState(placeID string) (PlaceWrite, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.placeWrites[placeID]
	return w, ok
}

// --- internals ---

func (s *TripStore) tripIndexLocked(id string) int {
	for i := range s.trips {
		if s.trips[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *TripStore) persistLocked() {
	if s.cache == nil {
		return
	}
	state := tripsCacheState{Trips: s.trips, SelectedTripID: s.selectedTripID}
	if err := s.cache.Save(tripsCacheNamespace, state); err != nil {
		log.Printf("Warning: failed to persist trips: %v", err)
	}
}

func (p TripPatch) apply(t *models.Trip) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Destination != nil {
		t.Destination = *p.Destination
	}
	if p.StartDate != nil {
		t.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		t.EndDate = *p.EndDate
	}
	if p.CoverPhotoURL != nil {
		t.CoverPhotoURL = *p.CoverPhotoURL
	}
	if p.Tags != nil {
		t.Tags = append([]string(nil), *p.Tags...)
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
}

func (p TripPatch) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Destination != nil {
		fields["destination"] = *p.Destination
	}
	if p.StartDate != nil {
		fields["startDate"] = *p.StartDate
	}
	if p.EndDate != nil {
		fields["endDate"] = *p.EndDate
	}
	if p.CoverPhotoURL != nil {
		fields["coverPhotoUrl"] = *p.CoverPhotoURL
	}
	if p.Tags != nil {
		fields["tags"] = append([]string(nil), *p.Tags...)
	}
	if p.Status != nil {
		fields["status"] = *p.Status
	}
	return fields
}

func snapshotHasPlace(trips []models.Trip, tripID, placeID string) bool {
	for _, t := range trips {
		if t.ID != tripID {
			continue
		}
		for _, p := range t.Places {
			if p.ID == placeID {
				return true
			}
		}
	}
	return false
}

func placeIndex(places []models.VisitedPlace, placeID string) int {
	for i := range places {
		if places[i].ID == placeID {
			return i
		}
	}
	return -1
}

func removePlace(places []models.VisitedPlace, placeID string) []models.VisitedPlace {
	out := places[:0]
	for _, p := range places {
		if p.ID != placeID {
			out = append(out, p)
		}
	}
	return out
}
