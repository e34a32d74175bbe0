package mongostore

import (
	"context"
	"time"

	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ContactRepository struct {
	coll *mongo.Collection
}

func (r *ContactRepository) ListByUser(ctx context.Context, userID string) ([]types.Contact, error) {
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	contacts := []types.Contact{}
	if err := cur.All(ctx, &contacts); err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	contact.ID = newID()
	contact.CreatedAt = time.Now().UTC()
	if _, err := r.coll.InsertOne(ctx, contact); err != nil {
		return types.Contact{}, mapErr(err)
	}
	return contact, nil
}

func (r *ContactRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
