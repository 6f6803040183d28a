// remote.go
// Contracts the stores depend on. Stores take these interfaces in their
// constructors so tests can substitute in-memory fakes; the concrete
// implementations in this package bind them to Firestore, Cloud Storage
// and Firebase Auth.

package remote

import (
	"context"

	"odyssea/models"
)

// Unsubscribe releases a live subscription. Safe to call more than once.
type Unsubscribe func()

// Doc is one document inside a pushed snapshot.
type Doc interface {
	// ID returns the document id (not stored inside the document body).
	ID() string
	// DataTo decodes the document body into v.
	DataTo(v interface{}) error
}

// Filter is a single equality/range constraint on a query.
type Filter struct {
	Field string
	Op    string
	Value interface{}
}

// Query describes a collection read. Path may address a nested
// subcollection ("trips/abc/places").
type Query struct {
	Path    string
	Filters []Filter
	OrderBy string
	Desc    bool
}

// Collection is the document-store surface the stores consume.
//
// Subscribe pushes the full current snapshot of the matching set on every
// change, never deltas. After a successful Write through the same client,
// the next pushed snapshot reflects that write.
type Collection interface {
	Subscribe(ctx context.Context, q Query, onChange func(docs []Doc)) (Unsubscribe, error)
	Write(ctx context.Context, path, id string, payload interface{}) error
	Merge(ctx context.Context, path, id string, fields map[string]interface{}) error
	// ReadOnce returns (nil, nil) when the document does not exist.
	ReadOnce(ctx context.Context, path, id string) (Doc, error)
}

// Blobs uploads binary content and returns a stable retrieval URL.
type Blobs interface {
	Upload(ctx context.Context, objectPath string, data []byte) (string, error)
}

// Identity is the email+password identity provider surface.
//
// OnAuthStateChanged registers a push-based listener; it fires once
// immediately with the current identity (possibly nil) and again on every
// subsequent change.
type Identity interface {
	SignIn(ctx context.Context, email, password string) (*models.AuthUser, error)
	SignUp(ctx context.Context, name, email, password string) (*models.AuthUser, error)
	SignOut() error
	UpdatePhotoURL(ctx context.Context, photoURL string) error
	OnAuthStateChanged(cb func(user *models.AuthUser)) Unsubscribe
}
