// user.go
// Identity and profile structures. AuthUser mirrors what the identity
// provider knows about an account; UserProfile is the app-owned document
// stored 1:1 with it in the "users" collection.

package models

import (
	"strings"
	"time"
)

// AuthStatus is the auth store's state-machine position.
type AuthStatus string

const (
	AuthIdle            AuthStatus = "idle"
	AuthChecking        AuthStatus = "checking"
	AuthAuthenticated   AuthStatus = "authenticated"
	AuthUnauthenticated AuthStatus = "unauthenticated"
)

// AuthUser is the authenticated identity as reported by the provider.
type AuthUser struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// UserProfile maps to a document in the "users" collection, keyed by the
// identity uid. Created lazily on first sign-in when absent.
type UserProfile struct {
	UID         string    `firestore:"-" json:"uid"`
	DisplayName string    `firestore:"displayName" json:"displayName"`
	Email       string    `firestore:"email" json:"email"`
	AvatarURL   string    `firestore:"avatarUrl,omitempty" json:"avatarUrl,omitempty"`
	Bio         string    `firestore:"bio" json:"bio"`
	HomeCountry string    `firestore:"homeCountry" json:"homeCountry"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp" json:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt,serverTimestamp" json:"updatedAt"`
}

// Complete reports whether the profile has the fields the app requires
// before letting the user past profile setup.
func (p *UserProfile) Complete() bool {
	if p == nil {
		return false
	}
	return strings.TrimSpace(p.DisplayName) != "" && strings.TrimSpace(p.HomeCountry) != ""
}

// Session is the derived view the navigation layer consumes. Status is
// AuthAuthenticated only when both User and Profile are present.
type Session struct {
	Status  AuthStatus   `json:"status"`
	User    *AuthUser    `json:"user,omitempty"`
	Profile *UserProfile `json:"profile,omitempty"`
}
