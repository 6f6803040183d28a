// profile.go
// ProfileStore owns the UserProfile document for the signed-in identity.
// Profiles are created lazily on first sign-in ("get-or-create"); updates
// round-trip and adopt the server copy, which is authoritative post-write.

package stores

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"odyssea/cache"
	"odyssea/models"
	"odyssea/remote"
)

const (
	usersCollection       = "users"
	profileCacheNamespace = "odyssea-profile"
)

// ProfilePatch is a partial profile update; nil fields are left untouched.
// UID and CreatedAt are never client-writable.
type ProfilePatch struct {
	DisplayName *string
	Bio         *string
	HomeCountry *string
	AvatarURL   *string
}

func (p ProfilePatch) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if p.DisplayName != nil {
		fields["displayName"] = *p.DisplayName
	}
	if p.Bio != nil {
		fields["bio"] = *p.Bio
	}
	if p.HomeCountry != nil {
		fields["homeCountry"] = *p.HomeCountry
	}
	if p.AvatarURL != nil {
		fields["avatarUrl"] = *p.AvatarURL
	}
	return fields
}

// ProfileStore holds the profile slice of application state.
type ProfileStore struct {
	col   remote.Collection
	blobs remote.Blobs
	cache *cache.Store

	watchers
	mu      sync.Mutex
	profile *models.UserProfile
	loading bool
	errMsg  string
	gen     uint64 // bumped on Reset; in-flight completions re-check it
}

type profileCacheState struct {
	Profile *models.UserProfile `json:"profile"`
}

// NewProfileStore builds a profile store over the given remote collection,
// blob uploader and local cache (cache may be nil).
func NewProfileStore(col remote.Collection, blobs remote.Blobs, c *cache.Store) *ProfileStore {
	s := &ProfileStore{col: col, blobs: blobs, cache: c}
	if c != nil {
		var state profileCacheState
		err := c.Load(profileCacheNamespace, &state)
		switch {
		case err == nil:
			s.profile = state.Profile
		case !errors.Is(err, cache.ErrMiss):
			log.Printf("Warning: failed to rehydrate profile: %v", err)
		}
	}
	return s
}

// LoadFromUser fetches the profile for an authenticated identity, creating
// it from the identity's fields when absent. Failures are captured into
// error state and also returned so the auth store can react.
func (s *ProfileStore) LoadFromUser(ctx context.Context, user models.AuthUser) (*models.UserProfile, error) {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	gen := s.gen
	s.mu.Unlock()
	s.notify()

	profile, err := s.getOrCreate(ctx, user)

	s.mu.Lock()
	if gen != s.gen {
		// Reset happened while the load was in flight; drop the result.
		s.mu.Unlock()
		return nil, err
	}
	s.loading = false
	if err != nil {
		s.errMsg = "Could not load your profile"
		s.mu.Unlock()
		s.notify()
		return nil, err
	}
	s.profile = profile
	s.persistLocked()
	s.mu.Unlock()
	s.notify()

	return cloneProfile(profile), nil
}

func (s *ProfileStore) getOrCreate(ctx context.Context, user models.AuthUser) (*models.UserProfile, error) {
	doc, err := s.col.ReadOnce(ctx, usersCollection, user.UID)
	if err != nil {
		return nil, &remote.ProfileLoadError{UID: user.UID, Err: err}
	}

	if doc != nil {
		var p models.UserProfile
		if err := doc.DataTo(&p); err != nil {
			return nil, &remote.ProfileLoadError{UID: user.UID, Err: err}
		}
		p.UID = user.UID
		if p.Email == "" {
			p.Email = user.Email
		}
		if p.DisplayName == "" {
			p.DisplayName = user.DisplayName
		}
		return &p, nil
	}

	profile := models.UserProfile{
		UID:         user.UID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		AvatarURL:   user.PhotoURL,
	}
	// CreatedAt/UpdatedAt are zero here so Firestore stamps them server-side.
	if err := s.col.Write(ctx, usersCollection, user.UID, profile); err != nil {
		return nil, &remote.ProfileLoadError{UID: user.UID, Err: err}
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	return &profile, nil
}

// Update persists the changed fields and then replaces the local profile
// with the server-confirmed copy rather than an optimistic merge.
func (s *ProfileStore) Update(ctx context.Context, patch ProfilePatch) error {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return nil
	}
	uid := s.profile.UID
	gen := s.gen
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	fields := patch.fields()
	fields["updatedAt"] = remote.ServerTimestamp

	err := s.col.Merge(ctx, usersCollection, uid, fields)
	var confirmed *models.UserProfile
	if err == nil {
		confirmed, err = s.readBack(ctx, uid)
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return err
	}
	s.loading = false
	if err != nil {
		s.errMsg = "Could not update your profile"
		s.mu.Unlock()
		s.notify()
		return err
	}
	s.profile = confirmed
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *ProfileStore) readBack(ctx context.Context, uid string) (*models.UserProfile, error) {
	doc, err := s.col.ReadOnce(ctx, usersCollection, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to read back profile %s: %w", uid, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("profile %s vanished after update", uid)
	}
	var p models.UserProfile
	if err := doc.DataTo(&p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", uid, err)
	}
	p.UID = uid
	return &p, nil
}

// ChangeAvatar uploads the photo bytes to the profile's fixed storage path,
// persists the resulting URL and updates the local profile. Returns the URL
// so the caller can propagate it to the identity provider.
func (s *ProfileStore) ChangeAvatar(ctx context.Context, photo []byte) (string, error) {
	s.mu.Lock()
	if s.profile == nil {
		s.mu.Unlock()
		return "", nil
	}
	uid := s.profile.UID
	gen := s.gen
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()

	url, err := s.blobs.Upload(ctx, fmt.Sprintf("profilePhotos/%s.jpg", uid), photo)
	if err == nil {
		err = s.col.Merge(ctx, usersCollection, uid, map[string]interface{}{
			"avatarUrl": url,
			"updatedAt": remote.ServerTimestamp,
		})
	}

	s.mu.Lock()
	if gen != s.gen {
		s.mu.Unlock()
		return "", err
	}
	s.loading = false
	if err != nil {
		s.errMsg = "Could not change your photo"
		s.mu.Unlock()
		s.notify()
		return "", err
	}
	if s.profile != nil {
		s.profile.AvatarURL = url
		s.profile.UpdatedAt = time.Now().UTC()
	}
	s.persistLocked()
	s.mu.Unlock()
	s.notify()
	return url, nil
}

// Reset clears the profile and invalidates any in-flight completion.
func (s *ProfileStore) Reset() {
	s.mu.Lock()
	s.gen++
	s.profile = nil
	s.loading = false
	s.errMsg = ""
	if s.cache != nil {
		if err := s.cache.Delete(profileCacheNamespace); err != nil {
			log.Printf("Warning: failed to clear cached profile: %v", err)
		}
	}
	s.mu.Unlock()
	s.notify()
}

// Profile returns a copy of the loaded profile, or nil.
func (s *ProfileStore) Profile() *models.UserProfile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfile(s.profile)
}

// Loading reports whether a profile operation is in flight.
func (s *ProfileStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the user-displayable error from the last failed operation.
func (s *ProfileStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// Complete reports whether the loaded profile passes the completeness
// check (non-blank display name and home country).
func (s *ProfileStore) Complete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile.Complete()
}

func (s *ProfileStore) persistLocked() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(profileCacheNamespace, profileCacheState{Profile: s.profile}); err != nil {
		log.Printf("Warning: failed to persist profile: %v", err)
	}
}

func cloneProfile(p *models.UserProfile) *models.UserProfile {
	if p == nil {
		return nil
	}
	out := *p
	return &out
}
