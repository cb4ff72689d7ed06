package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/autos-marketplace/backend/internal/models"
)

// ListingStore handles listing documents in MongoDB.
type ListingStore struct {
	col *mongo.Collection
}

func NewListingStore(db *mongo.Database) *ListingStore {
	return &ListingStore{col: db.Collection(ListingsCollection)}
}

func (s *ListingStore) Insert(ctx context.Context, l *models.Listing) (string, error) {
	if l.Photos == nil {
		l.Photos = []string{}
	}
	res, err := s.col.InsertOne(ctx, l)
	if err != nil {
		return "", fmt.Errorf("mongo insert listing: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	l.ID = oid
	return oid.Hex(), nil
}

func (s *ListingStore) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var l models.Listing
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&l); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// Selector is a rendered filter plus its pagination window.
type Selector interface {
	BSON() bson.M
	Skip() int64
	Limit() int64
}

// Find returns one page of listings matching sel, newest first.
func (s *ListingStore) Find(ctx context.Context, sel Selector) ([]models.Listing, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(sel.Skip()).
		SetLimit(sel.Limit())
	cur, err := s.col.Find(ctx, sel.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("mongo find listings: %w", err)
	}
	defer cur.Close(ctx)

	var listings []models.Listing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("mongo decode listings: %w", err)
	}
	return listings, nil
}

func (s *ListingStore) FindByOwner(ctx context.Context, owner primitive.ObjectID) ([]models.Listing, error) {
	cur, err := s.col.Find(ctx, bson.M{"owner_id": owner})
	if err != nil {
		return nil, fmt.Errorf("mongo find owner listings: %w", err)
	}
	defer cur.Close(ctx)

	var listings []models.Listing
	if err := cur.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("mongo decode listings: %w", err)
	}
	return listings, nil
}

// UpdateByID applies set and returns the document as stored afterwards.
func (s *ListingStore) UpdateByID(ctx context.Context, id string, set bson.M) (*models.Listing, error) {
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}
	return s.findOneAndUpdate(ctx, id, bson.M{"$set": set})
}

// AddPhoto appends an object key to the listing's photo references.
func (s *ListingStore) AddPhoto(ctx context.Context, id, key string) (*models.Listing, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{"$push": bson.M{"photos": key}})
}

func (s *ListingStore) findOneAndUpdate(ctx context.Context, id string, update bson.M) (*models.Listing, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var l models.Listing
	if err := s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&l); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// DeleteByID removes the listing and returns what was deleted.
func (s *ListingStore) DeleteByID(ctx context.Context, id string) (*models.Listing, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var l models.Listing
	if err := s.col.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&l); err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

// DeleteByOwner removes every listing of owner.
func (s *ListingStore) DeleteByOwner(ctx context.Context, owner primitive.ObjectID) (int64, error) {
	res, err := s.col.DeleteMany(ctx, bson.M{"owner_id": owner})
	if err != nil {
		return 0, fmt.Errorf("mongo delete owner listings: %w", err)
	}
	return res.DeletedCount, nil
}
