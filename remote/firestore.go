// firestore.go
// Firestore-backed implementation of the Collection contract.

package remote

import (
	"context"
	"fmt"
	"log"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreClient wraps the Firestore client behind the Collection contract.
type FirestoreClient struct {
	client *firestore.Client
}

var _ Collection = (*FirestoreClient)(nil)

// NewFirestoreClient initializes a Firestore client through the Firebase app.
func NewFirestoreClient(ctx context.Context, projectID, credentialsPath string) (*FirestoreClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	config := &firebase.Config{ProjectID: projectID}
	app, err := firebase.NewApp(ctx, config, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firestore client: %w", err)
	}

	log.Printf("✅ Connected to Firestore project: %s", projectID)

	return &FirestoreClient{client: client}, nil
}

// Close closes the Firestore client.
func (c *FirestoreClient) Close() error {
	return c.client.Close()
}

// fsDoc adapts a Firestore document snapshot to the Doc contract.
type fsDoc struct {
	snap *firestore.DocumentSnapshot
}

func (d fsDoc) ID() string { return d.snap.Ref.ID }

func (d fsDoc) DataTo(v interface{}) error { return d.snap.DataTo(v) }

func (c *FirestoreClient) buildQuery(q Query) firestore.Query {
	fq := c.client.Collection(q.Path).Query
	for _, f := range q.Filters {
		fq = fq.Where(f.Field, f.Op, f.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Desc {
			dir = firestore.Desc
		}
		fq = fq.OrderBy(q.OrderBy, dir)
	}
	return fq
}

// Subscribe binds a snapshot listener for the query. Every backend change
// delivers the full matching document set, in query order, to onChange.
// Delivery happens on a dedicated goroutine; it stops when the returned
// Unsubscribe runs or ctx is cancelled.
func (c *FirestoreClient) Subscribe(ctx context.Context, q Query, onChange func(docs []Doc)) (Unsubscribe, error) {
	ctx, cancel := context.WithCancel(ctx)
	it := c.buildQuery(q).Snapshots(ctx)

	go func() {
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					return
				}
				log.Printf("Warning: snapshot stream for %s ended: %v", q.Path, err)
				return
			}

			var docs []Doc
			docIter := snap.Documents
			for {
				doc, err := docIter.Next()
				if err == iterator.Done {
					break
				}
				if err != nil {
					log.Printf("Warning: failed to iterate snapshot for %s: %v", q.Path, err)
					break
				}
				docs = append(docs, fsDoc{snap: doc})
			}
			onChange(docs)
		}
	}()

	return func() {
		cancel()
		it.Stop()
	}, nil
}

// Write upserts a document at path/id.
func (c *FirestoreClient) Write(ctx context.Context, path, id string, payload interface{}) error {
	if _, err := c.client.Collection(path).Doc(id).Set(ctx, payload); err != nil {
		return &RemoteWriteError{Path: docPath(path, id), Err: err}
	}
	return nil
}

// Merge upserts only the given fields, leaving the rest of the document
// untouched.
func (c *FirestoreClient) Merge(ctx context.Context, path, id string, fields map[string]interface{}) error {
	if _, err := c.client.Collection(path).Doc(id).Set(ctx, fields, firestore.MergeAll); err != nil {
		return &RemoteWriteError{Path: docPath(path, id), Err: err}
	}
	return nil
}

// ReadOnce fetches a single document; a missing document is (nil, nil).
func (c *FirestoreClient) ReadOnce(ctx context.Context, path, id string) (Doc, error) {
	snap, err := c.client.Collection(path).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", docPath(path, id), err)
	}
	return fsDoc{snap: snap}, nil
}

// ServerTimestamp is the sentinel Merge callers use for fields the backend
// should stamp.
var ServerTimestamp = firestore.ServerTimestamp

func docPath(path, id string) string {
	return strings.TrimSuffix(path, "/") + "/" + id
}
