package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Cases struct {
	coll *mongo.Collection
}

func replaceUpsert() *options.ReplaceOptions {
	return options.Replace().SetUpsert(true)
}

// Collection loads a user's cases, creating an empty collection on first
// access.
func (c *Cases) Collection(ctx context.Context, userID string) (CaseCollection, error) {
	var coll CaseCollection
	err := c.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&coll)
	if err == nil {
		return coll, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return CaseCollection{}, err
	}

	coll = CaseCollection{UserID: userID}
	if _, err := c.coll.InsertOne(ctx, coll); err != nil && !mongo.IsDuplicateKeyError(err) {
		return CaseCollection{}, err
	}
	return coll, nil
}

// Append adds a case to the end of the user's collection.
func (c *Cases) Append(ctx context.Context, userID string, item Case) error {
	if _, err := c.Collection(ctx, userID); err != nil {
		return err
	}
	_, err := c.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$push": bson.M{"cases": item}})
	return err
}

// Save writes back a collection whose embedded cases were mutated in place
// (lift, edit reason).
func (c *Cases) Save(ctx context.Context, coll CaseCollection) error {
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": coll.UserID}, coll, replaceUpsert())
	return err
}

// Transfer moves a case collection to a new owning id, leaving the old
// collection emptied, and returns the number of cases moved.
func (c *Cases) Transfer(ctx context.Context, oldID, newID string) (int, error) {
	coll, err := c.Collection(ctx, oldID)
	if err != nil {
		return 0, err
	}
	moved := len(coll.Cases)
	coll.UserID = newID
	if err := c.Save(ctx, coll); err != nil {
		return 0, err
	}
	if err := c.Save(ctx, CaseCollection{UserID: oldID}); err != nil {
		return 0, err
	}
	return moved, nil
}
