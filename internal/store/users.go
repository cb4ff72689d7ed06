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

// UserStore handles user documents in MongoDB.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection(UsersCollection)}
}

func (s *UserStore) Insert(ctx context.Context, u *models.User) (string, error) {
	if u.Sales == nil {
		u.Sales = []models.Summary{}
	}
	res, err := s.col.InsertOne(ctx, u)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", ErrDuplicateEmail
		}
		return "", fmt.Errorf("mongo insert user: %w", err)
	}
	oid := res.InsertedID.(primitive.ObjectID)
	u.ID = oid
	return oid.Hex(), nil
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": oid}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.col.FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// UpdateByID applies set and returns the document as stored afterwards.
func (s *UserStore) UpdateByID(ctx context.Context, id string, set bson.M) (*models.User, error) {
	oid, err := ParseID(id)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return s.FindByID(ctx, id)
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var u models.User
	err = s.col.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&u)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (s *UserStore) DeleteByID(ctx context.Context, id string) error {
	oid, err := ParseID(id)
	if err != nil {
		return err
	}
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("mongo delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendSummary pushes summary onto the owner's sales unless a summary for
// the same post is already there, so repeating the call is harmless.
func (s *UserStore) AppendSummary(ctx context.Context, owner primitive.ObjectID, summary models.Summary) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": owner, "sales.post_id": bson.M{"$ne": summary.PostID}},
		bson.M{"$push": bson.M{"sales": summary}},
	)
	if err != nil {
		return fmt.Errorf("mongo append summary: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	n, err := s.col.CountDocuments(ctx, bson.M{"_id": owner})
	if err != nil {
		return fmt.Errorf("mongo count user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
