package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Users struct {
	coll *mongo.Collection
}

// Get loads a profile, creating an empty one on first access.
func (u *Users) Get(ctx context.Context, userID string) (UserProfile, error) {
	var profile UserProfile
	err := u.coll.FindOne(ctx, bson.M{"_id": userID}).Decode(&profile)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return UserProfile{}, err
	}

	profile = UserProfile{UserID: userID}
	if _, err := u.coll.InsertOne(ctx, profile); err != nil && !mongo.IsDuplicateKeyError(err) {
		return UserProfile{}, err
	}
	return profile, nil
}

func (u *Users) SetMuted(ctx context.Context, userID string, muted bool) error {
	if _, err := u.Get(ctx, userID); err != nil {
		return err
	}
	_, err := u.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"is_muted": muted}})
	return err
}

func (u *Users) SetRaidVerified(ctx context.Context, userID string, verified bool) error {
	if _, err := u.Get(ctx, userID); err != nil {
		return err
	}
	_, err := u.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"raid_verified": verified}})
	return err
}

func (u *Users) SetOfflineReportPing(ctx context.Context, userID string, ping bool) error {
	if _, err := u.Get(ctx, userID); err != nil {
		return err
	}
	_, err := u.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"offline_report_ping": ping}})
	return err
}

// AddKarmaReceived adjusts the receiver's score and appends the history
// entry; history is append-only. The returned score is the stored
// post-increment value, so concurrent adjustments never report the same
// total.
func (u *Users) AddKarmaReceived(ctx context.Context, userID string, entry KarmaEntry) (int64, error) {
	if _, err := u.Get(ctx, userID); err != nil {
		return 0, err
	}
	res := u.coll.FindOneAndUpdate(ctx, bson.M{"_id": userID}, bson.M{
		"$inc":  bson.M{"karma": entry.Amount},
		"$push": bson.M{"karma_received_history": entry},
	}, options.FindOneAndUpdate().SetReturnDocument(options.After))
	var profile UserProfile
	if err := res.Decode(&profile); err != nil {
		return 0, err
	}
	return profile.Karma, nil
}

func (u *Users) AddKarmaGiven(ctx context.Context, userID string, entry KarmaEntry) error {
	if _, err := u.Get(ctx, userID); err != nil {
		return err
	}
	_, err := u.coll.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$push": bson.M{"karma_given_history": entry},
	})
	return err
}

// OfflinePingOptIns returns the ids of users who asked to be pinged for
// reports while offline.
func (u *Users) OfflinePingOptIns(ctx context.Context) ([]string, error) {
	cursor, err := u.coll.Find(ctx, bson.M{"offline_report_ping": true})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var profile UserProfile
		if err := cursor.Decode(&profile); err != nil {
			return nil, err
		}
		ids = append(ids, profile.UserID)
	}
	return ids, cursor.Err()
}

// Transfer reassigns a profile to a new owning id. The old document is reset
// to an empty profile rather than deleted.
func (u *Users) Transfer(ctx context.Context, oldID, newID string) error {
	profile, err := u.Get(ctx, oldID)
	if err != nil {
		return err
	}
	profile.UserID = newID
	if _, err := u.coll.ReplaceOne(ctx, bson.M{"_id": newID}, profile, replaceUpsert()); err != nil {
		return err
	}
	_, err = u.coll.ReplaceOne(ctx, bson.M{"_id": oldID}, UserProfile{UserID: oldID}, replaceUpsert())
	return err
}
