package stores_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odyssea/models"
	"odyssea/remote"
	"odyssea/stores"
)

func fallbackPlaces() []models.VisitedPlace {
	return []models.VisitedPlace{
		{ID: "p1", Name: "Praia do Futuro", Category: models.CategoryPraia, DateTime: "2025-12-31T10:00:00Z"},
		{ID: "p2", Name: "Beira Mar à noite", Category: models.CategoryPasseio, DateTime: "2025-12-31T20:30:00Z"},
	}
}

func TestPlacesStore_BindTripPlaces_Idempotent(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)

	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", nil))
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", nil))

	assert.Equal(t, 1, fc.totalSubs())
}

func TestPlacesStore_ConcurrentBindCreatesOneSubscription(t *testing.T) {
	fc := newFakeCollection()
	entered := make(chan struct{}, 2)
	release := make(chan struct{})
	fc.onSubscribe = func() {
		entered <- struct{}{}
		<-release
	}
	s := stores.NewPlacesStore(fc)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() { done <- s.BindTripPlaces(context.Background(), "trip-1", nil) }()
	}
	<-entered
	close(release)
	require.NoError(t, <-done)
	require.NoError(t, <-done)

	assert.Equal(t, 1, fc.totalSubs())
	assert.Equal(t, 1, fc.activeSubs())
}

func TestPlacesStore_ClearDuringBindReleasesSubscription(t *testing.T) {
	fc := newFakeCollection()
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	fc.onSubscribe = func() {
		entered <- struct{}{}
		<-release
	}
	s := stores.NewPlacesStore(fc)

	done := make(chan error, 1)
	go func() { done <- s.BindTripPlaces(context.Background(), "trip-1", fallbackPlaces()) }()
	<-entered

	s.ClearTripPlaces("trip-1")
	close(release)
	require.NoError(t, <-done)

	// The subscription that raced the clear was torn down, not registered.
	assert.Equal(t, 0, fc.activeSubs())
	assert.Empty(t, s.GetPlacesForTrip("trip-1"))
	assert.False(t, s.LoadingFromBackend("trip-1"))
}

func TestPlacesStore_FallbackSeedsUntilLiveDataArrives(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)

	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", fallbackPlaces()))

	got := s.GetPlacesForTrip("trip-1")
	require.Len(t, got, 2)
	assert.Equal(t, "Praia do Futuro", got[0].Name)
	assert.True(t, s.LoadingFromBackend("trip-1"))

	// Live snapshot overwrites the seed wholesale.
	live := []remote.Doc{fakeDoc{id: "p3", data: models.VisitedPlace{Name: "Templo de Uluwatu", Category: models.CategoryPasseio}}}
	fc.push(0, live)

	got = s.GetPlacesForTrip("trip-1")
	require.Len(t, got, 1)
	assert.Equal(t, "p3", got[0].ID)
	assert.False(t, s.LoadingFromBackend("trip-1"))
}

func TestPlacesStore_SecondBindIgnoresNewFallback(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)

	first := fallbackPlaces()[:1]
	second := fallbackPlaces()

	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", first))
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", second))

	// Only the first fallback applied, and only one subscription exists.
	assert.Len(t, s.GetPlacesForTrip("trip-1"), 1)
	assert.Equal(t, 1, fc.totalSubs())
}

func TestPlacesStore_EmptySnapshotIsAuthoritative(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", fallbackPlaces()))

	fc.push(0, nil)

	assert.Empty(t, s.GetPlacesForTrip("trip-1"))
	assert.False(t, s.LoadingFromBackend("trip-1"))
}

func TestPlacesStore_DecodeDefaultsCategory(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", nil))

	fc.push(0, []remote.Doc{fakeDoc{id: "p1", data: map[string]interface{}{"name": "Sem categoria"}}})

	got := s.GetPlacesForTrip("trip-1")
	require.Len(t, got, 1)
	assert.Equal(t, models.CategoryOutro, got[0].Category)
}

func TestPlacesStore_ClearTripPlaces(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", fallbackPlaces()))

	s.ClearTripPlaces("trip-1")

	assert.Empty(t, s.GetPlacesForTrip("trip-1"))
	assert.False(t, s.LoadingFromBackend("trip-1"))
	assert.Equal(t, 0, fc.activeSubs())

	// Rebinding after a clear creates a fresh subscription.
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", nil))
	assert.Equal(t, 1, fc.activeSubs())
}

func TestPlacesStore_ClearAll_NoLeakedListeners(t *testing.T) {
	fc := newFakeCollection()
	s := stores.NewPlacesStore(fc)
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-1", nil))
	require.NoError(t, s.BindTripPlaces(context.Background(), "trip-2", nil))

	updates := 0
	unwatch := s.Watch(func() { updates++ })
	defer unwatch()

	s.ClearAll()
	updatesAfterClear := updates

	assert.Empty(t, s.GetPlacesForTrip("trip-1"))
	assert.Empty(t, s.GetPlacesForTrip("trip-2"))
	assert.Equal(t, 0, fc.activeSubs())

	// Pushes on the dead subscriptions deliver nothing and change nothing.
	fc.push(0, []remote.Doc{fakeDoc{id: "p1", data: models.VisitedPlace{Name: "ghost"}}})
	fc.push(1, []remote.Doc{fakeDoc{id: "p2", data: models.VisitedPlace{Name: "ghost"}}})
	assert.Empty(t, s.GetPlacesForTrip("trip-1"))
	assert.Equal(t, updatesAfterClear, updates)
}
