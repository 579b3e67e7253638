package repository

import (
	"context"
	"errors"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CartStore struct {
	carts collection[models.Cart]
}

func NewCartStore(m *MongoRepository) *CartStore {
	return &CartStore{carts: newCollection[models.Cart](m, CartsCollection)}
}

// Get returns the user's cart, or an empty one.
func (s *CartStore) Get(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	cart, err := s.carts.findOne(ctx, bson.M{"user_id": userID})
	if errors.Is(err, ErrNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}, Addons: []models.CartAddon{}}, nil
	}
	return cart, err
}

func (s *CartStore) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	if cart.Addons == nil {
		cart.Addons = []models.CartAddon{}
	}
	_, err := s.carts.coll.ReplaceOne(ctx, bson.M{"user_id": cart.UserID}, cart, options.Replace().SetUpsert(true))
	return mapError(err)
}

func (s *CartStore) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.carts.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}
