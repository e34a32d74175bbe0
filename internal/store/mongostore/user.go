package mongostore

import (
	"context"
	"time"

	"github.com/baymax-health/apiserver/internal/store"
	"github.com/baymax-health/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type UserRepository struct {
	coll *mongo.Collection
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return types.User{}, mapErr(err)
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	var user types.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return types.User{}, mapErr(err)
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now().UTC()
	user.ID = newID()
	user.CreatedAt = now
	user.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return types.User{}, mapErr(err)
	}
	return user, nil
}

func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now().UTC()
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"firstName":    user.FirstName,
		"lastName":     user.LastName,
		"email":        user.Email,
		"phone":        user.Phone,
		"passwordHash": user.PasswordHash,
		"updatedAt":    user.UpdatedAt,
	}})
	if err != nil {
		return types.User{}, mapErr(err)
	}
	if res.MatchedCount == 0 {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}
