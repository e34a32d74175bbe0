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

type MedicineRepository struct {
	coll *mongo.Collection
}

func (r *MedicineRepository) ListByUser(ctx context.Context, userID string) ([]types.Medicine, error) {
	cur, err := r.coll.Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	meds := []types.Medicine{}
	for cur.Next(ctx) {
		var med types.Medicine
		if err := cur.Decode(&med); err != nil {
			return nil, err
		}
		if med.IntakeHistory == nil {
			med.IntakeHistory = []types.IntakeEntry{}
		}
		meds = append(meds, med)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return meds, nil
}

func (r *MedicineRepository) Get(ctx context.Context, userID, id string) (types.Medicine, error) {
	var med types.Medicine
	if err := r.coll.FindOne(ctx, bson.M{"_id": id, "userId": userID}).Decode(&med); err != nil {
		return types.Medicine{}, mapErr(err)
	}
	if med.IntakeHistory == nil {
		med.IntakeHistory = []types.IntakeEntry{}
	}
	return med, nil
}

func (r *MedicineRepository) Create(ctx context.Context, med types.Medicine) (types.Medicine, error) {
	now := time.Now().UTC()
	med.ID = newID()
	med.Version = 1
	med.CreatedAt = now
	med.UpdatedAt = now
	if med.IntakeHistory == nil {
		med.IntakeHistory = []types.IntakeEntry{}
	}
	if _, err := r.coll.InsertOne(ctx, med); err != nil {
		return types.Medicine{}, mapErr(err)
	}
	return med, nil
}

// Update replaces the mutable fields of med when the stored version matches
// med.Version.
func (r *MedicineRepository) Update(ctx context.Context, med types.Medicine) (types.Medicine, error) {
	updatedAt := time.Now().UTC()
	filter := bson.M{"_id": med.ID, "userId": med.UserID, "version": med.Version}
	update := bson.M{
		"$set": bson.M{
			"name":          med.Name,
			"dose":          med.Dose,
			"program":       med.Program,
			"quantity":      med.Quantity,
			"foodRelation":  med.FoodRelation,
			"dailyDosage":   med.DailyDosage,
			"status":        med.Status,
			"intakeHistory": med.IntakeHistory,
			"updatedAt":     updatedAt,
		},
		"$inc": bson.M{"version": 1},
	}

	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return types.Medicine{}, mapErr(err)
	}
	if res.MatchedCount == 0 {
		if _, err := r.Get(ctx, med.UserID, med.ID); err != nil {
			return types.Medicine{}, err
		}
		return types.Medicine{}, store.ErrConflict
	}

	med.Version++
	med.UpdatedAt = updatedAt
	return med, nil
}

func (r *MedicineRepository) Delete(ctx context.Context, userID, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
