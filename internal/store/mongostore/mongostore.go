// Package mongostore implements the user, medicine and contact repositories
// on MongoDB. Documents use hex ObjectID strings as their _id.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/baymax-health/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	usersCollection     = "users"
	medicinesCollection = "medicines"
	contactsCollection  = "contacts"

	connectTimeout = 10 * time.Second
)

// Store owns the client connection and hands out repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Open connects to uri, pings the server and ensures indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("while connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("while pinging mongo: %w", err)
	}

	s := &Store{client: client, db: client.Database(database)}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll  string
		model mongo.IndexModel
	}{
		{usersCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}},
		{medicinesCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created_idx"),
		}},
		{contactsCollection, mongo.IndexModel{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("user_created_idx"),
		}},
	}
	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.coll).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("while creating index on %s: %w", idx.coll, err)
		}
	}
	return nil
}

func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(usersCollection)}
}

func (s *Store) Medicines() *MedicineRepository {
	return &MedicineRepository{coll: s.db.Collection(medicinesCollection)}
}

func (s *Store) Contacts() *ContactRepository {
	return &ContactRepository{coll: s.db.Collection(contactsCollection)}
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	}
	return err
}
