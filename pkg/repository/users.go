package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type UserStore struct {
	users collection[models.User]
}

func NewUserStore(m *MongoRepository) *UserStore {
	return &UserStore{users: newCollection[models.User](m, UsersCollection)}
}

func (s *UserStore) Get(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.users.findOne(ctx, bson.M{"_id": id})
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// UpsertFromProvider records a provider sign-in, creating the user on first
// login and refreshing the provider profile afterwards.
func (s *UserStore) UpsertFromProvider(ctx context.Context, u *models.User) (*models.User, error) {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"provider":   u.Provider,
			"subject":    u.Subject,
			"picture":    u.Picture,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"name":       u.Name,
			"phone":      "",
			"role":       models.RoleUser,
			"addresses":  bson.A{},
			"wishlist":   bson.A{},
			"created_at": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var out models.User
	err := s.users.coll.FindOneAndUpdate(ctx, bson.M{"email": models.NormalizeEmail(u.Email)}, update, opts).Decode(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", mapError(err))
	}
	return &out, nil
}

func (s *UserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, name, phone, picture string) (*models.User, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out models.User
	err := s.users.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":       name,
		"phone":      phone,
		"picture":    picture,
		"updated_at": time.Now().UTC(),
	}}, opts).Decode(&out)
	if err != nil {
		return nil, mapError(err)
	}
	return &out, nil
}

// SaveAddresses writes back an address list edited in memory. The write is
// conditional on updated_at so a concurrent edit surfaces as ErrConflict
// instead of silently breaking the single-default rule.
func (s *UserStore) SaveAddresses(ctx context.Context, u *models.User) error {
	now := time.Now().UTC().Truncate(time.Millisecond)
	res, err := s.users.coll.UpdateOne(ctx,
		bson.M{"_id": u.ID, "updated_at": u.UpdatedAt},
		bson.M{"$set": bson.M{"addresses": u.Addresses, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: addresses changed concurrently", ErrConflict)
	}
	u.UpdatedAt = now
	return nil
}

func (s *UserStore) AddToWishlist(ctx context.Context, id, cakeID primitive.ObjectID) error {
	return s.users.updateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"wishlist": cakeID}})
}

func (s *UserStore) RemoveFromWishlist(ctx context.Context, id, cakeID primitive.ObjectID) error {
	return s.users.updateOne(ctx, bson.M{"_id": id}, bson.M{"$pull": bson.M{"wishlist": cakeID}})
}

func (s *UserStore) List(ctx context.Context, skip, limit int64) ([]models.User, int64, error) {
	return s.users.page(ctx, bson.M{}, bson.D{{Key: "created_at", Value: -1}}, skip, limit)
}

type AdminStore struct {
	admins collection[models.Admin]
}

func NewAdminStore(m *MongoRepository) *AdminStore {
	return &AdminStore{admins: newCollection[models.Admin](m, AdminsCollection)}
}

func (s *AdminStore) GetByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return s.admins.findOne(ctx, bson.M{"email": models.NormalizeEmail(email)})
}

// EnsureAdmin creates the bootstrap account when it does not exist yet.
// An existing account keeps its password.
func (s *AdminStore) EnsureAdmin(ctx context.Context, a *models.Admin) (bool, error) {
	res, err := s.admins.coll.UpdateOne(ctx,
		bson.M{"email": models.NormalizeEmail(a.Email)},
		bson.M{"$setOnInsert": bson.M{
			"name":          a.Name,
			"password_hash": a.PasswordHash,
			"created_at":    time.Now().UTC(),
		}},
		options.Update().SetUpsert(true))
	if err != nil {
		return false, mapError(err)
	}
	return res.UpsertedCount > 0, nil
}
