package mongostore

import (
	"context"
	"strings"
	"time"

	"github.com/gamestore-dxp/apiserver/internal/store"
	"github.com/gamestore-dxp/apiserver/types"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type accountDocument struct {
	ID             primitive.ObjectID         `bson:"_id,omitempty"`
	Email          string                     `bson:"email"`
	Password       string                     `bson:"password"`
	Birthdate      *time.Time                 `bson:"birthdate,omitempty"`
	RecentlyViewed []types.RecentlyViewedGame `bson:"recentlyViewed"`
	Wishlist       []types.WishlistItem       `bson:"wishlist"`
	Downloads      []types.DownloadedGame     `bson:"downloads"`
	Version        int64                      `bson:"version"`
	CreatedAt      time.Time                  `bson:"createdAt"`
	UpdatedAt      time.Time                  `bson:"updatedAt"`
}

func (d accountDocument) toAccount() types.Account {
	return types.Account{
		ID:             d.ID.Hex(),
		Email:          d.Email,
		PasswordHash:   d.Password,
		Birthdate:      d.Birthdate,
		RecentlyViewed: d.RecentlyViewed,
		Wishlist:       d.Wishlist,
		Downloads:      d.Downloads,
		Version:        d.Version,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// AccountRepository handles persistence for accounts.
type AccountRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountsCollection), now: time.Now}
}

func (r *AccountRepository) GetByID(ctx context.Context, id string) (types.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return types.Account{}, err
	}
	var doc accountDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		return types.Account{}, translate(err)
	}
	return doc.toAccount(), nil
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (types.Account, error) {
	var doc accountDocument
	filter := bson.M{"email": strings.ToLower(strings.TrimSpace(email))}
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return types.Account{}, translate(err)
	}
	return doc.toAccount(), nil
}

func (r *AccountRepository) Create(ctx context.Context, account types.Account) (types.Account, error) {
	now := timestamp(r.now)
	doc := accountDocument{
		ID:             primitive.NewObjectID(),
		Email:          account.Email,
		Password:       account.PasswordHash,
		Birthdate:      account.Birthdate,
		RecentlyViewed: []types.RecentlyViewedGame{},
		Wishlist:       []types.WishlistItem{},
		Downloads:      []types.DownloadedGame{},
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return types.Account{}, translate(err)
	}
	return doc.toAccount(), nil
}

// UpdateLists rewrites the personal lists only while the stored version still
// equals account.Version, bumping it on success.
func (r *AccountRepository) UpdateLists(ctx context.Context, account types.Account) (types.Account, error) {
	oid, err := objectID(account.ID)
	if err != nil {
		return types.Account{}, err
	}
	updatedAt := timestamp(r.now)

	filter := versionFilter(oid, account.Version)
	update := bson.M{
		"$set": bson.M{
			"recentlyViewed": nonNil(account.RecentlyViewed),
			"wishlist":       nonNil(account.Wishlist),
			"downloads":      nonNil(account.Downloads),
			"updatedAt":      updatedAt,
		},
		"$inc": bson.M{"version": 1},
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return types.Account{}, translate(err)
	}
	if result.MatchedCount == 0 {
		count, err := r.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if err != nil {
			return types.Account{}, err
		}
		if count == 0 {
			return types.Account{}, store.ErrNotFound
		}
		return types.Account{}, store.ErrVersionConflict
	}

	account.Version++
	account.UpdatedAt = updatedAt
	return account, nil
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
