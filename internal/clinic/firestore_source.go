package clinic

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const defaultCollection = "clinics"

// FirestoreSource reads the clinic directory from a Firestore collection.
type FirestoreSource struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreSource initialises the Firebase Admin SDK and opens Firestore.
// credentialsFile may be empty to use application default credentials.
func NewFirestoreSource(ctx context.Context, projectID, credentialsFile string) (*FirestoreSource, error) {
	var opts []option.ClientOption
	if strings.TrimSpace(credentialsFile) != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	var conf *firebase.Config
	if strings.TrimSpace(projectID) != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("clinic: init firebase app: %w", err)
	}
	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("clinic: open firestore: %w", err)
	}
	return &FirestoreSource{client: client, collection: defaultCollection}, nil
}

func (s *FirestoreSource) FindClinics(ctx context.Context, q Query) ([]Clinic, error) {
	query := s.client.Collection(s.collection).Query
	if q.Service != "" {
		query = query.Where("services", "array-contains", q.Service)
	}
	query = query.Where("rating", ">=", q.MinRating).OrderBy("rating", firestore.Desc)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Clinic
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("clinic: firestore query: %w", err)
		}
		var c Clinic
		if err := doc.DataTo(&c); err != nil {
			return nil, fmt.Errorf("clinic: decode clinic %s: %w", doc.Ref.ID, err)
		}
		c.ID = doc.Ref.ID
		out = append(out, c)
	}
	return out, nil
}

// Close releases the Firestore client.
func (s *FirestoreSource) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
