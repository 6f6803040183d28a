// auth.go
// AuthStore drives the session state machine:
//
//	idle → checking → {authenticated, unauthenticated}
//
// Authentication and profile failures become store-level error state, never
// exceptions across the store boundary. Every sign-in/up/out flow resolves
// status deterministically; no path leaves the store in "checking".

package stores

import (
	"context"
	"errors"
	"log"
	"sync"

	"odyssea/cache"
	"odyssea/models"
	"odyssea/remote"
)

const authCacheNamespace = "odyssea-auth"

// AuthStore holds the session slice of application state.
type AuthStore struct {
	identity remote.Identity
	profiles *ProfileStore
	cache    *cache.Store

	watchers
	mu             sync.Mutex
	status         models.AuthStatus
	user           *models.AuthUser
	errMsg         string
	epoch          uint64 // bumped on sign-out and identity change
	listenerActive bool
	unsubAuth      remote.Unsubscribe
}

type authCacheState struct {
	User *models.AuthUser `json:"user"`
}

// NewAuthStore builds an auth store over the identity provider and profile
// store (cache may be nil). A cached identity is rehydrated as a display
// hint only; status stays idle until InitListener hears from the provider.
func NewAuthStore(identity remote.Identity, profiles *ProfileStore, c *cache.Store) *AuthStore {
	s := &AuthStore{
		identity: identity,
		profiles: profiles,
		cache:    c,
		status:   models.AuthIdle,
	}
	if c != nil {
		var state authCacheState
		err := c.Load(authCacheNamespace, &state)
		switch {
		case err == nil:
			s.user = state.User
		case !errors.Is(err, cache.ErrMiss):
			log.Printf("Warning: failed to rehydrate auth state: %v", err)
		}
	}
	return s
}

// InitListener binds the identity-change listener. Idempotent: a second
// call while a listener is active is a no-op. The store enters "checking"
// until the provider reports the current identity.
func (s *AuthStore) InitListener(ctx context.Context) {
	s.mu.Lock()
	if s.listenerActive {
		s.mu.Unlock()
		return
	}
	s.listenerActive = true
	s.status = models.AuthChecking
	s.mu.Unlock()
	s.notify()

	unsub := s.identity.OnAuthStateChanged(func(user *models.AuthUser) {
		s.handleAuthChange(ctx, user)
	})

	s.mu.Lock()
	if !s.listenerActive {
		// StopListener ran while the listener was being registered.
		s.mu.Unlock()
		unsub()
		return
	}
	s.unsubAuth = unsub
	s.mu.Unlock()
}

// StopListener releases the identity-change listener.
func (s *AuthStore) StopListener() {
	s.mu.Lock()
	unsub := s.unsubAuth
	s.unsubAuth = nil
	s.listenerActive = false
	s.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}

func (s *AuthStore) handleAuthChange(ctx context.Context, user *models.AuthUser) {
	if user == nil {
		s.mu.Lock()
		s.epoch++
		s.status = models.AuthUnauthenticated
		s.user = nil
		s.persistLocked()
		s.mu.Unlock()
		s.profiles.Reset()
		s.notify()
		return
	}

	s.mu.Lock()
	if s.status == models.AuthAuthenticated && s.user != nil && s.user.UID == user.UID {
		// Same identity re-announced (e.g. right after SignIn already
		// completed the transition); just refresh the identity fields.
		s.user = user
		s.persistLocked()
		s.mu.Unlock()
		s.notify()
		return
	}
	s.epoch++
	epoch := s.epoch
	s.user = user
	s.status = models.AuthChecking
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	profile, err := s.profiles.LoadFromUser(ctx, *user)
	s.resolveProfileLoad(epoch, profile, err)
}

// resolveProfileLoad finishes a checking→terminal transition, dropping the
// result if the session epoch moved on while the load was in flight.
func (s *AuthStore) resolveProfileLoad(epoch uint64, profile *models.UserProfile, err error) {
	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return
	}
	if err != nil || profile == nil {
		// Profile failure is recorded, not fatal to the app.
		s.status = models.AuthUnauthenticated
		if err != nil {
			s.errMsg = remote.AuthUserMessage(err)
		}
		s.mu.Unlock()
		s.notify()
		return
	}
	s.status = models.AuthAuthenticated
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// SignIn authenticates with email+password, loads (or creates) the profile
// and transitions to authenticated. Failures resolve to unauthenticated
// with a user-facing error string; this method never surfaces credentials
// errors as Go errors to the view layer.
func (s *AuthStore) SignIn(ctx context.Context, email, password string) {
	s.beginChecking()

	user, err := s.identity.SignIn(ctx, email, password)
	if err != nil {
		s.failAuth(err)
		return
	}
	s.completeAuth(ctx, user)
}

// SignUp creates the account (the identity provider sets the display name
// before the profile is created), then proceeds exactly like SignIn.
func (s *AuthStore) SignUp(ctx context.Context, name, email, password string) {
	s.beginChecking()

	user, err := s.identity.SignUp(ctx, name, email, password)
	if err != nil {
		s.failAuth(err)
		return
	}
	s.completeAuth(ctx, user)
}

func (s *AuthStore) beginChecking() {
	s.mu.Lock()
	s.status = models.AuthChecking
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) failAuth(err error) {
	s.mu.Lock()
	s.status = models.AuthUnauthenticated
	s.user = nil
	s.errMsg = remote.AuthUserMessage(err)
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
}

func (s *AuthStore) completeAuth(ctx context.Context, user *models.AuthUser) {
	s.mu.Lock()
	if s.status == models.AuthAuthenticated && s.user != nil && s.user.UID == user.UID {
		// The identity listener already completed this transition.
		s.mu.Unlock()
		return
	}
	s.epoch++
	epoch := s.epoch
	s.user = user
	s.persistLocked()
	s.mu.Unlock()

	profile, err := s.profiles.LoadFromUser(ctx, *user)
	s.resolveProfileLoad(epoch, profile, err)
}

// SignOut delegates to the provider and then unconditionally clears
// identity, profile and status. Local cleanup happens even when the
// delegated call fails.
func (s *AuthStore) SignOut() {
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()

	if err := s.identity.SignOut(); err != nil {
		log.Printf("Warning: provider sign-out failed, clearing local session anyway: %v", err)
	}

	s.mu.Lock()
	s.status = models.AuthUnauthenticated
	s.user = nil
	s.errMsg = ""
	s.persistLocked()
	s.mu.Unlock()
	s.profiles.Reset()
	s.notify()
}

// UpdateProfile round-trips a profile update. No-op unless authenticated.
func (s *AuthStore) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	s.mu.Lock()
	if s.status != models.AuthAuthenticated {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.profiles.Update(ctx, patch)
}

// UpdateAvatar uploads the photo and propagates the resulting URL to both
// the identity's photo reference and the profile's avatar field.
func (s *AuthStore) UpdateAvatar(ctx context.Context, photo []byte) error {
	s.mu.Lock()
	if s.status != models.AuthAuthenticated {
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	url, err := s.profiles.ChangeAvatar(ctx, photo)
	if err != nil || url == "" {
		return err
	}

	if err := s.identity.UpdatePhotoURL(ctx, url); err != nil {
		log.Printf("Warning: failed to update identity photo: %v", err)
	}

	s.mu.Lock()
	if epoch == s.epoch && s.user != nil {
		s.user.PhotoURL = url
		s.persistLocked()
	}
	s.mu.Unlock()
	s.notify()
	return nil
}

// ProfileComplete reports whether the signed-in user finished profile
// setup. Consumed by navigation.
func (s *AuthStore) ProfileComplete() bool {
	return s.profiles.Complete()
}

// Status returns the state-machine position.
func (s *AuthStore) Status() models.AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// User returns a copy of the authenticated identity, or nil.
func (s *AuthStore) User() *models.AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	out := *s.user
	return &out
}

// Err returns the user-displayable error from the last failed flow.
func (s *AuthStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Session returns the derived session view. Status is authenticated only
// when both identity and profile are present.
func (s *AuthStore) Session() models.Session {
	s.mu.Lock()
	status := s.status
	var user *models.AuthUser
	if s.user != nil {
		u := *s.user
		user = &u
	}
	s.mu.Unlock()

	profile := s.profiles.Profile()
	if status == models.AuthAuthenticated && (user == nil || profile == nil) {
		status = models.AuthUnauthenticated
	}
	return models.Session{Status: status, User: user, Profile: profile}
}

func (s *AuthStore) persistLocked() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(authCacheNamespace, authCacheState{User: s.user}); err != nil {
		log.Printf("Warning: failed to persist auth state: %v", err)
	}
}
