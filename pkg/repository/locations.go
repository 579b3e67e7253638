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

type LocationStore struct {
	locations collection[models.Location]
}

func NewLocationStore(m *MongoRepository) *LocationStore {
	return &LocationStore{locations: newCollection[models.Location](m, LocationsCollection)}
}

func (s *LocationStore) List(ctx context.Context, availableOnly bool) ([]models.Location, error) {
	filter := bson.M{}
	if availableOnly {
		filter["available"] = true
	}
	return s.locations.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (s *LocationStore) FindByPincode(ctx context.Context, pincode string) ([]models.Location, error) {
	return s.locations.find(ctx, bson.M{"pincode": pincode, "available": true})
}

// Near returns available areas whose centre lies within maxKm of the
// point, closest first. Each area's own radius is applied by the caller.
func (s *LocationStore) Near(ctx context.Context, lat, lng, maxKm float64) ([]models.Location, error) {
	filter := bson.M{
		"available": true,
		"coordinates": bson.M{
			"$nearSphere": bson.M{
				"$geometry":    models.NewGeoPoint(lat, lng),
				"$maxDistance": maxKm * 1000,
			},
		},
	}
	return s.locations.find(ctx, filter)
}

func (s *LocationStore) MaxRadius(ctx context.Context) (float64, error) {
	widest, err := s.locations.findOne(ctx, bson.M{"available": true},
		options.FindOne().SetSort(bson.D{{Key: "radius", Value: -1}}))
	if errors.Is(err, ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return widest.Radius, nil
}

func (s *LocationStore) Create(ctx context.Context, l *models.Location) error {
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	l.CreatedAt, l.UpdatedAt = now, now
	return s.locations.insert(ctx, l)
}

func (s *LocationStore) Update(ctx context.Context, id primitive.ObjectID, l *models.Location) error {
	existing, err := s.locations.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	l.ID = id
	l.CreatedAt = existing.CreatedAt
	l.UpdatedAt = time.Now().UTC()
	return s.locations.replace(ctx, id, l)
}

func (s *LocationStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.locations.delete(ctx, id)
}
