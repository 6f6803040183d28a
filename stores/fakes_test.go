package stores_test

import (
	"context"
	"encoding/json"
	"sync"

	"odyssea/models"
	"odyssea/remote"
)

// fakeDoc carries any payload and decodes it through a JSON round-trip,
// which exercises the same tag-driven field mapping the real codec uses.
type fakeDoc struct {
	id   string
	data interface{}
}

func (d fakeDoc) ID() string { return d.id }

func (d fakeDoc) DataTo(v interface{}) error {
	b, err := json.Marshal(d.data)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

var _ remote.Doc = fakeDoc{}

type writeRec struct {
	path    string
	id      string
	payload interface{}
}

type fakeSub struct {
	query    remote.Query
	onChange func(docs []remote.Doc)
	active   bool
}

// fakeCollection is a hand-written double for remote.Collection. Tests push
// snapshots into recorded subscriptions to simulate the backend echoing
// writes back; optional function fields override Write/Merge/ReadOnce.
type fakeCollection struct {
	mu sync.Mutex

	subs   []*fakeSub
	writes []writeRec
	merges []writeRec

	writeErr    error
	mergeFn     func(path, id string, fields map[string]interface{}) error
	readDocs    map[string]remote.Doc
	readErr     error
	onSubscribe func() // runs at the top of Subscribe; may block
}

var _ remote.Collection = (*fakeCollection)(nil)

func newFakeCollection() *fakeCollection {
	return &fakeCollection{readDocs: map[string]remote.Doc{}}
}

func (f *fakeCollection) Subscribe(_ context.Context, q remote.Query, onChange func(docs []remote.Doc)) (remote.Unsubscribe, error) {
	if f.onSubscribe != nil {
		f.onSubscribe()
	}
	f.mu.Lock()
	sub := &fakeSub{query: q, onChange: onChange, active: true}
	f.subs = append(f.subs, sub)
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		sub.active = false
		f.mu.Unlock()
	}, nil
}

func (f *fakeCollection) Write(_ context.Context, path, id string, payload interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, writeRec{path: path, id: id, payload: payload})
	return nil
}

func (f *fakeCollection) Merge(_ context.Context, path, id string, fields map[string]interface{}) error {
	if f.mergeFn != nil {
		if err := f.mergeFn(path, id, fields); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merges = append(f.merges, writeRec{path: path, id: id, payload: fields})
	return nil
}

func (f *fakeCollection) ReadOnce(_ context.Context, path, id string) (remote.Doc, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	doc, ok := f.readDocs[path+"/"+id]
	if !ok {
		return nil, nil
	}
	return doc, nil
}

// push delivers a snapshot to subscription i unless it was unsubscribed;
// a torn-down listener must never receive one.
func (f *fakeCollection) push(i int, docs []remote.Doc) {
	f.mu.Lock()
	if i >= len(f.subs) || !f.subs[i].active {
		f.mu.Unlock()
		return
	}
	onChange := f.subs[i].onChange
	f.mu.Unlock()
	onChange(docs)
}

func (f *fakeCollection) activeSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.subs {
		if s.active {
			n++
		}
	}
	return n
}

func (f *fakeCollection) totalSubs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *fakeCollection) setDoc(path, id string, data interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readDocs[path+"/"+id] = fakeDoc{id: id, data: data}
}

func (f *fakeCollection) lastWrite() (writeRec, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return writeRec{}, false
	}
	return f.writes[len(f.writes)-1], true
}

// fakeBlobs is a double for remote.Blobs.
type fakeBlobs struct {
	mu       sync.Mutex
	uploads  []string
	uploadFn func(objectPath string, data []byte) (string, error)
}

var _ remote.Blobs = (*fakeBlobs)(nil)

func (f *fakeBlobs) Upload(_ context.Context, objectPath string, data []byte) (string, error) {
	f.mu.Lock()
	f.uploads = append(f.uploads, objectPath)
	f.mu.Unlock()
	if f.uploadFn != nil {
		return f.uploadFn(objectPath, data)
	}
	return "https://storage.test/" + objectPath, nil
}

// fakeIdentity is a double for remote.Identity with push-based listeners.
type fakeIdentity struct {
	mu         sync.Mutex
	current    *models.AuthUser
	listeners  map[int]func(user *models.AuthUser)
	nextID     int
	signInFn   func(email, password string) (*models.AuthUser, error)
	signUpFn   func(name, email, password string) (*models.AuthUser, error)
	signOutErr error
	photoURL   string
	onRegister func() // runs before OnAuthStateChanged returns; may block
}

var _ remote.Identity = (*fakeIdentity)(nil)

func (f *fakeIdentity) SignIn(_ context.Context, email, password string) (*models.AuthUser, error) {
	if f.signInFn != nil {
		return f.signInFn(email, password)
	}
	return &models.AuthUser{UID: "uid-1", Email: email}, nil
}

func (f *fakeIdentity) SignUp(_ context.Context, name, email, password string) (*models.AuthUser, error) {
	if f.signUpFn != nil {
		return f.signUpFn(name, email, password)
	}
	return &models.AuthUser{UID: "uid-1", Email: email, DisplayName: name}, nil
}

func (f *fakeIdentity) SignOut() error {
	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()
	return f.signOutErr
}

func (f *fakeIdentity) UpdatePhotoURL(_ context.Context, photoURL string) error {
	f.mu.Lock()
	f.photoURL = photoURL
	f.mu.Unlock()
	return nil
}

func (f *fakeIdentity) OnAuthStateChanged(cb func(user *models.AuthUser)) remote.Unsubscribe {
	f.mu.Lock()
	if f.listeners == nil {
		f.listeners = map[int]func(user *models.AuthUser){}
	}
	id := f.nextID
	f.nextID++
	f.listeners[id] = cb
	current := f.current
	f.mu.Unlock()
	cb(current)
	if f.onRegister != nil {
		f.onRegister()
	}
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

// fire simulates a provider-pushed identity change.
func (f *fakeIdentity) fire(user *models.AuthUser) {
	f.mu.Lock()
	f.current = user
	cbs := make([]func(user *models.AuthUser), 0, len(f.listeners))
	for _, cb := range f.listeners {
		cbs = append(cbs, cb)
	}
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(user)
	}
}

func (f *fakeIdentity) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}
