package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Jobs struct {
	coll *mongo.Collection
}

// Upsert writes a job under its kind:user key. Scheduling twice for the same
// kind and user replaces the pending job instead of stacking a second one.
func (j *Jobs) Upsert(ctx context.Context, job Job) error {
	job.Key = JobKey(job.Kind, job.UserID)
	opts := options.Replace().SetUpsert(true)
	_, err := j.coll.ReplaceOne(ctx, bson.M{"_id": job.Key}, job, opts)
	return err
}

// Delete removes a pending job; deleting a job that does not exist is not an
// error.
func (j *Jobs) Delete(ctx context.Context, kind JobKind, userID string) error {
	_, err := j.coll.DeleteOne(ctx, bson.M{"_id": JobKey(kind, userID)})
	return err
}

// ClaimDue atomically removes and returns one job due at or before now, so a
// claimed job fires at most once. Returns false when nothing is due.
func (j *Jobs) ClaimDue(ctx context.Context, now time.Time) (Job, bool, error) {
	var job Job
	err := j.coll.FindOneAndDelete(ctx, bson.M{"due_at": bson.M{"$lte": now}}).Decode(&job)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Job{}, false, nil
		}
		return Job{}, false, err
	}
	return job, true, nil
}
