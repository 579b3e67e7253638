package repository

import (
	"context"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CategoryStore struct {
	categories collection[models.Category]
}

func NewCategoryStore(m *MongoRepository) *CategoryStore {
	return &CategoryStore{categories: newCollection[models.Category](m, CategoriesCollection)}
}

func (s *CategoryStore) List(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	filter := bson.M{}
	if activeOnly {
		filter["status"] = models.CategoryActive
	}
	return s.categories.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

// Get finds a category by hex id or slug.
func (s *CategoryStore) Get(ctx context.Context, idOrSlug string) (*models.Category, error) {
	if id, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		return s.categories.findOne(ctx, bson.M{"_id": id})
	}
	return s.categories.findOne(ctx, bson.M{"slug": idOrSlug})
}

func (s *CategoryStore) Create(ctx context.Context, c *models.Category) error {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.CreatedAt, c.UpdatedAt = now, now
	return s.categories.insert(ctx, c)
}

func (s *CategoryStore) Update(ctx context.Context, id primitive.ObjectID, c *models.Category) error {
	existing, err := s.categories.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	c.ID = id
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	return s.categories.replace(ctx, id, c)
}

func (s *CategoryStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.categories.delete(ctx, id)
}

type AddonStore struct {
	addons collection[models.Addon]
}

func NewAddonStore(m *MongoRepository) *AddonStore {
	return &AddonStore{addons: newCollection[models.Addon](m, AddonsCollection)}
}

func (s *AddonStore) List(ctx context.Context, availableOnly bool) ([]models.Addon, error) {
	filter := bson.M{}
	if availableOnly {
		filter["available"] = true
	}
	return s.addons.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (s *AddonStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Addon, error) {
	addons, err := s.addons.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.Addon, len(addons))
	for _, a := range addons {
		out[a.ID] = a
	}
	return out, nil
}

func (s *AddonStore) Create(ctx context.Context, a *models.Addon) error {
	now := time.Now().UTC()
	a.ID = primitive.NewObjectID()
	a.CreatedAt, a.UpdatedAt = now, now
	return s.addons.insert(ctx, a)
}

func (s *AddonStore) Update(ctx context.Context, id primitive.ObjectID, a *models.Addon) error {
	existing, err := s.addons.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	a.ID = id
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	return s.addons.replace(ctx, id, a)
}

func (s *AddonStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.addons.delete(ctx, id)
}
