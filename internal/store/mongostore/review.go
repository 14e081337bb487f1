package mongostore

import (
	"context"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type reviewDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	EntryUID  string             `bson:"entryUid"`
	UserID    string             `bson:"userId"`
	UserEmail string             `bson:"userEmail"`
	Rating    int                `bson:"rating"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d reviewDocument) toReview() types.Review {
	return types.Review{
		ID:        d.ID.Hex(),
		EntryUID:  d.EntryUID,
		UserID:    d.UserID,
		UserEmail: d.UserEmail,
		Rating:    d.Rating,
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// ReviewRepository handles persistence for reviews.
type ReviewRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewReviewRepository(db *mongo.Database) *ReviewRepository {
	return &ReviewRepository{coll: db.Collection(reviewsCollection), now: time.Now}
}

func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	now := timestamp(r.now)
	doc := reviewDocument{
		ID:        primitive.NewObjectID(),
		EntryUID:  review.EntryUID,
		UserID:    review.UserID,
		UserEmail: review.UserEmail,
		Rating:    review.Rating,
		Title:     review.Title,
		Content:   review.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return types.Review{}, translate(err)
	}
	return doc.toReview(), nil
}

func (r *ReviewRepository) GetByID(ctx context.Context, id string) (types.Review, error) {
	oid, err := objectID(id)
	if err != nil {
		return types.Review{}, err
	}
	var doc reviewDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return types.Review{}, translate(err)
	}
	return doc.toReview(), nil
}

func (r *ReviewRepository) FindByUserAndEntry(ctx context.Context, userID, entryUID string) (types.Review, error) {
	var doc reviewDocument
	filter := bson.M{"userId": userID, "entryUid": entryUID}
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return types.Review{}, translate(err)
	}
	return doc.toReview(), nil
}

// ListByEntry returns a game's reviews newest first. ObjectIDs grow with
// insertion, so ascending _id keeps insertion order among equal timestamps.
func (r *ReviewRepository) ListByEntry(ctx context.Context, entryUID string) ([]types.Review, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"entryUid": entryUID}, opts)
	if err != nil {
		return nil, err
	}
	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	reviews := make([]types.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, doc.toReview())
	}
	return reviews, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review types.Review) (types.Review, error) {
	oid, err := objectID(review.ID)
	if err != nil {
		return types.Review{}, err
	}
	review.UpdatedAt = timestamp(r.now)

	update := bson.M{"$set": bson.M{
		"rating":    review.Rating,
		"title":     review.Title,
		"content":   review.Content,
		"updatedAt": review.UpdatedAt,
	}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return types.Review{}, translate(err)
	}
	if result.MatchedCount == 0 {
		return types.Review{}, store.ErrNotFound
	}
	return review, nil
}

func (r *ReviewRepository) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}
