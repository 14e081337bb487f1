// Package mongostore implements the account and review repositories on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	accountsCollection = "users"
	reviewsCollection  = "reviews"
)

// EnsureIndexes declares the unique constraints the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(accountsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection(reviewsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "entryUid", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("user_entry_unique"),
		},
		{
			Keys:    bson.D{{Key: "entryUid", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("entry_created"),
		},
	})
	return err
}

// objectID parses a hex id; malformed ids can never match a document.
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrNotFound
	}
	return oid, nil
}

// timestamp is now at the millisecond precision BSON dates keep, so values
// returned from writes equal the ones read back later.
func timestamp(now func() time.Time) time.Time {
	return now().UTC().Truncate(time.Millisecond)
}

// versionFilter matches a document at the given version. Documents written
// before versioning have no version field and count as version 0.
func versionFilter(oid primitive.ObjectID, version int64) bson.M {
	if version == 0 {
		return bson.M{"_id": oid, "version": bson.M{"$in": bson.A{int64(0), nil}}}
	}
	return bson.M{"_id": oid, "version": version}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrDuplicate
	default:
		return err
	}
}
