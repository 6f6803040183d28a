package stores_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"odyssea/models"
	"odyssea/remote"
	"odyssea/stores"
)

type authFixture struct {
	fc       *fakeCollection
	blobs    *fakeBlobs
	identity *fakeIdentity
	profiles *stores.ProfileStore
	auth     *stores.AuthStore
}

func newAuthFixture() *authFixture {
	fc := newFakeCollection()
	blobs := &fakeBlobs{}
	identity := &fakeIdentity{}
	profiles := stores.NewProfileStore(fc, blobs, nil)
	return &authFixture{
		fc:       fc,
		blobs:    blobs,
		identity: identity,
		profiles: profiles,
		auth:     stores.NewAuthStore(identity, profiles, nil),
	}
}

// statusRecorder watches the store and keeps every status it republishes.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []models.AuthStatus
}

func recordStatuses(s *stores.AuthStore) (*statusRecorder, func()) {
	r := &statusRecorder{}
	unwatch := s.Watch(func() {
		r.mu.Lock()
		r.statuses = append(r.statuses, s.Status())
		r.mu.Unlock()
	})
	return r, unwatch
}

func (r *statusRecorder) seen(status models.AuthStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.statuses {
		if s == status {
			return true
		}
	}
	return false
}

func TestAuthStore_SignIn_ValidCredentials(t *testing.T) {
	f := newAuthFixture()
	rec, unwatch := recordStatuses(f.auth)
	defer unwatch()

	f.auth.SignIn(context.Background(), "ana@example.com", "secret")

	// The flow passes through checking and settles authenticated.
	assert.True(t, rec.seen(models.AuthChecking))
	assert.Equal(t, models.AuthAuthenticated, f.auth.Status())
	assert.Empty(t, f.auth.Err())

	session := f.auth.Session()
	require.NotNil(t, session.User)
	require.NotNil(t, session.Profile)
	assert.Equal(t, "ana@example.com", session.User.Email)
	assert.Equal(t, "uid-1", session.Profile.UID)
}

func TestAuthStore_SignIn_CreatesProfileWhenAbsent(t *testing.T) {
	f := newAuthFixture()

	f.auth.SignIn(context.Background(), "ana@example.com", "secret")

	// Get-or-create: the missing profile was written to the users collection.
	w, ok := f.fc.lastWrite()
	require.True(t, ok)
	assert.Equal(t, "users", w.path)
	assert.Equal(t, "uid-1", w.id)
}

func TestAuthStore_SignIn_LoadsExistingProfile(t *testing.T) {
	f := newAuthFixture()
	f.fc.setDoc("users", "uid-1", models.UserProfile{
		DisplayName: "Ana Viajante",
		Email:       "ana@example.com",
		HomeCountry: "Brasil",
	})

	f.auth.SignIn(context.Background(), "ana@example.com", "secret")

	require.Equal(t, models.AuthAuthenticated, f.auth.Status())
	profile := f.profiles.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "Ana Viajante", profile.DisplayName)
	assert.Empty(t, f.fc.writes, "existing profile must not be rewritten")
	assert.True(t, f.auth.ProfileComplete())
}

func TestAuthStore_SignIn_InvalidCredentials(t *testing.T) {
	f := newAuthFixture()
	f.identity.signInFn = func(email, password string) (*models.AuthUser, error) {
		return nil, &remote.AuthError{Code: remote.AuthCodeInvalidCredentials, Err: errors.New("INVALID_PASSWORD")}
	}

	f.auth.SignIn(context.Background(), "ana@example.com", "wrong")

	assert.Equal(t, models.AuthUnauthenticated, f.auth.Status())
	assert.NotEmpty(t, f.auth.Err())
	assert.Nil(t, f.auth.User())
}

func TestAuthStore_SignIn_ProfileLoadFailure(t *testing.T) {
	f := newAuthFixture()
	f.fc.readErr = errors.New("firestore unavailable")

	f.auth.SignIn(context.Background(), "ana@example.com", "secret")

	// Profile failure is recorded, not fatal: status resolves deterministically.
	assert.Equal(t, models.AuthUnauthenticated, f.auth.Status())
	assert.NotEmpty(t, f.profiles.Err())
}

func TestAuthStore_SignUp_SetsDisplayName(t *testing.T) {
	f := newAuthFixture()

	f.auth.SignUp(context.Background(), "Ana", "ana@example.com", "secret")

	require.Equal(t, models.AuthAuthenticated, f.auth.Status())
	profile := f.profiles.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "Ana", profile.DisplayName)
}

func TestAuthStore_InitListener_Idempotent(t *testing.T) {
	f := newAuthFixture()

	f.auth.InitListener(context.Background())
	f.auth.InitListener(context.Background())

	assert.Equal(t, 1, f.identity.listenerCount())
	// The provider reported no identity, so checking resolved immediately.
	assert.Equal(t, models.AuthUnauthenticated, f.auth.Status())
}

func TestAuthStore_StopListenerDuringInitReleasesProviderListener(t *testing.T) {
	f := newAuthFixture()
	registered := make(chan struct{})
	release := make(chan struct{})
	f.identity.onRegister = func() {
		close(registered)
		<-release
	}

	done := make(chan struct{})
	go func() {
		f.auth.InitListener(context.Background())
		close(done)
	}()
	<-registered

	f.auth.StopListener()
	close(release)
	<-done

	// A stop that raced the registration must still release the listener.
	assert.Equal(t, 0, f.identity.listenerCount())
}

func TestAuthStore_ListenerDrivenSignIn(t *testing.T) {
	f := newAuthFixture()
	f.auth.InitListener(context.Background())

	f.identity.fire(&models.AuthUser{UID: "uid-7", Email: "bruno@example.com", DisplayName: "Bruno"})

	assert.Equal(t, models.AuthAuthenticated, f.auth.Status())
	require.NotNil(t, f.auth.User())
	assert.Equal(t, "uid-7", f.auth.User().UID)

	f.identity.fire(nil)

	assert.Equal(t, models.AuthUnauthenticated, f.auth.Status())
	assert.Nil(t, f.auth.User())
	assert.Nil(t, f.profiles.Profile())
}

func TestAuthStore_SignOut_ClearsEvenWhenProviderFails(t *testing.T) {
	f := newAuthFixture()
	f.auth.SignIn(context.Background(), "ana@example.com", "secret")
	require.Equal(t, models.AuthAuthenticated, f.auth.Status())

	f.identity.signOutErr = errors.New("network down")
	f.auth.SignOut()

	assert.Equal(t, models.AuthUnauthenticated, f.auth.Status())
	assert.Nil(t, f.auth.User())
	assert.Nil(t, f.profiles.Profile())
	assert.Empty(t, f.auth.Err())
}

func TestAuthStore_UpdateProfile_NoOpWhenUnauthenticated(t *testing.T) {
	f := newAuthFixture()

	name := "Ana"
	require.NoError(t, f.auth.UpdateProfile(context.Background(), stores.ProfilePatch{DisplayName: &name}))

	assert.Empty(t, f.fc.merges)
}

func TestAuthStore_UpdateProfile_AdoptsServerCopy(t *testing.T) {
	f := newAuthFixture()
	f.auth.SignIn(context.Background(), "ana@example.com", "secret")
	require.Equal(t, models.AuthAuthenticated, f.auth.Status())

	// The server normalizes the name; the store must adopt the server copy,
	// not its own optimistic merge.
	f.fc.mergeFn = func(path, id string, fields map[string]interface{}) error {
		f.fc.setDoc("users", "uid-1", models.UserProfile{
			DisplayName: "Ana B. Viajante",
			Email:       "ana@example.com",
			HomeCountry: "Brasil",
		})
		return nil
	}

	name := "ana b viajante"
	country := "Brasil"
	require.NoError(t, f.auth.UpdateProfile(context.Background(), stores.ProfilePatch{DisplayName: &name, HomeCountry: &country}))

	profile := f.profiles.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "Ana B. Viajante", profile.DisplayName)
	assert.True(t, f.auth.ProfileComplete())
}

func TestAuthStore_SignOutDropsInFlightProfileUpdate(t *testing.T) {
	f := newAuthFixture()
	f.auth.SignIn(context.Background(), "ana@example.com", "secret")
	require.Equal(t, models.AuthAuthenticated, f.auth.Status())

	entered := make(chan struct{})
	release := make(chan struct{})
	f.fc.mergeFn = func(path, id string, fields map[string]interface{}) error {
		close(entered)
		<-release
		return nil
	}

	done := make(chan struct{})
	go func() {
		name := "Ana"
		_ = f.auth.UpdateProfile(context.Background(), stores.ProfilePatch{DisplayName: &name})
		close(done)
	}()

	<-entered
	f.auth.SignOut()
	close(release)
	<-done

	// The stale completion was dropped; nothing leaked into the next session.
	assert.Equal(t, models.AuthUnauthenticated, f.auth.Status())
	assert.Nil(t, f.profiles.Profile())
}

func TestAuthStore_UpdateAvatar(t *testing.T) {
	f := newAuthFixture()
	f.auth.SignIn(context.Background(), "ana@example.com", "secret")
	require.Equal(t, models.AuthAuthenticated, f.auth.Status())

	require.NoError(t, f.auth.UpdateAvatar(context.Background(), []byte{0xFF, 0xD8}))

	profile := f.profiles.Profile()
	require.NotNil(t, profile)
	assert.Equal(t, "https://storage.test/profilePhotos/uid-1.jpg", profile.AvatarURL)
	assert.Equal(t, profile.AvatarURL, f.identity.photoURL)
	require.NotNil(t, f.auth.User())
	assert.Equal(t, profile.AvatarURL, f.auth.User().PhotoURL)
}

func TestAuthStore_ProfileComplete_RequiresBothFields(t *testing.T) {
	f := newAuthFixture()
	f.fc.setDoc("users", "uid-1", models.UserProfile{
		DisplayName: "Ana",
		Email:       "ana@example.com",
		HomeCountry: "   ",
	})

	f.auth.SignIn(context.Background(), "ana@example.com", "secret")

	require.Equal(t, models.AuthAuthenticated, f.auth.Status())
	assert.False(t, f.auth.ProfileComplete(), "whitespace-only home country must not count")
}
