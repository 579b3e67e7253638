package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// listProjection keeps review bodies out of listing pages.
var listProjection = bson.M{"reviews": 0}

type CakeStore struct {
	cakes collection[models.Cake]
}

func NewCakeStore(m *MongoRepository) *CakeStore {
	return &CakeStore{cakes: newCollection[models.Cake](m, CakesCollection)}
}

func (s *CakeStore) List(ctx context.Context, filter bson.M, sort bson.D, skip, limit int64) ([]models.Cake, int64, error) {
	total, err := s.cakes.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count cakes: %w", err)
	}
	opts := options.Find().SetSort(sort).SetSkip(skip).SetLimit(limit).SetProjection(listProjection)
	cakes, err := s.cakes.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cakes: %w", err)
	}
	return cakes, total, nil
}

func (s *CakeStore) All(ctx context.Context) ([]models.Cake, error) {
	return s.cakes.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}).SetProjection(listProjection))
}

func (s *CakeStore) Featured(ctx context.Context, limit int64) ([]models.Cake, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "average_rating", Value: -1}, {Key: "sold_count", Value: -1}}).
		SetLimit(limit).
		SetProjection(listProjection)
	return s.cakes.find(ctx, bson.M{"featured": true, "available": true}, opts)
}

// Get finds a cake by hex id or by slug.
func (s *CakeStore) Get(ctx context.Context, idOrSlug string) (*models.Cake, error) {
	if id, err := primitive.ObjectIDFromHex(idOrSlug); err == nil {
		return s.cakes.findOne(ctx, bson.M{"_id": id})
	}
	return s.cakes.findOne(ctx, bson.M{"slug": idOrSlug})
}

func (s *CakeStore) GetByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Cake, error) {
	cakes, err := s.cakes.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetProjection(listProjection))
	if err != nil {
		return nil, fmt.Errorf("failed to load cakes: %w", err)
	}
	out := make(map[primitive.ObjectID]models.Cake, len(cakes))
	for _, c := range cakes {
		out[c.ID] = c
	}
	return out, nil
}

func (s *CakeStore) Create(ctx context.Context, cake *models.Cake) error {
	now := time.Now().UTC()
	cake.ID = primitive.NewObjectID()
	if cake.Slug == "" {
		cake.Slug = models.Slugify(cake.Name)
	}
	if cake.Reviews == nil {
		cake.Reviews = []models.Review{}
	}
	cake.CreatedAt, cake.UpdatedAt = now, now
	return s.cakes.insert(ctx, cake)
}

// Update replaces the editable fields, keeping reviews and counters.
func (s *CakeStore) Update(ctx context.Context, id primitive.ObjectID, cake *models.Cake) error {
	if cake.Slug == "" {
		cake.Slug = models.Slugify(cake.Name)
	}
	cake.ID = id
	cake.UpdatedAt = time.Now().UTC()
	return s.cakes.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"name":        cake.Name,
		"slug":        cake.Slug,
		"description": cake.Description,
		"type":        cake.Type,
		"caketype":    cake.CakeType,
		"prices":      cake.Prices,
		"images":      cake.Images,
		"category":    cake.Category,
		"available":   cake.Available,
		"featured":    cake.Featured,
		"updated_at":  cake.UpdatedAt,
	}})
}

func (s *CakeStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.cakes.delete(ctx, id)
}

func (s *CakeStore) SetAvailable(ctx context.Context, id primitive.ObjectID, available bool) error {
	return s.cakes.updateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"available":  available,
		"updated_at": time.Now().UTC(),
	}})
}

func (s *CakeStore) AddImage(ctx context.Context, id primitive.ObjectID, url string) error {
	return s.cakes.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"images": url},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// AddReview appends a review and refreshes the rating summary. The filter
// refuses a second review from the same user. The average is written only
// while no newer review has landed; that review's own update covers it.
func (s *CakeStore) AddReview(ctx context.Context, id primitive.ObjectID, review models.Review) (*models.Cake, error) {
	review.CreatedAt = time.Now().UTC()
	filter := bson.M{"_id": id, "reviews.user_id": bson.M{"$ne": review.UserID}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"reviews": bson.M{"$concatArrays": bson.A{bson.M{"$ifNull": bson.A{"$reviews", bson.A{}}}, bson.M{"$literal": bson.A{review}}}},
		}}},
		{{Key: "$set", Value: bson.M{
			"review_count": bson.M{"$size": "$reviews"},
			"updated_at":   review.CreatedAt,
		}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var cake models.Cake
	err := s.cakes.coll.FindOneAndUpdate(ctx, filter, pipeline, opts).Decode(&cake)
	if errors.Is(err, mongo.ErrNoDocuments) {
		existing, getErr := s.cakes.findOne(ctx, bson.M{"_id": id})
		if getErr != nil {
			return nil, getErr
		}
		if existing.HasReviewFrom(review.UserID) {
			return nil, models.ErrAlreadyReviewed
		}
		return nil, fmt.Errorf("%w: cake changed while adding review", ErrConflict)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add review: %w", err)
	}

	cake.ReviewCount, cake.AverageRating = models.RatingSummary(cake.Reviews)
	err = s.cakes.updateOne(ctx,
		bson.M{"_id": id, "review_count": cake.ReviewCount},
		bson.M{"$set": bson.M{"average_rating": cake.AverageRating}})
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("failed to update rating: %w", err)
	}
	return &cake, nil
}

// UpsertByName inserts a cake or updates the one with the same name.
// Used by the spreadsheet import.
func (s *CakeStore) UpsertByName(ctx context.Context, cake *models.Cake) (bool, error) {
	now := time.Now().UTC()
	if cake.Slug == "" {
		cake.Slug = models.Slugify(cake.Name)
	}
	update := bson.M{
		"$set": bson.M{
			"slug":        cake.Slug,
			"description": cake.Description,
			"type":        cake.Type,
			"caketype":    cake.CakeType,
			"prices":      cake.Prices,
			"category":    cake.Category,
			"available":   cake.Available,
			"featured":    cake.Featured,
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{
			"images":         bson.A{},
			"reviews":        bson.A{},
			"average_rating": 0,
			"review_count":   0,
			"sold_count":     0,
			"created_at":     now,
		},
	}
	res, err := s.cakes.coll.UpdateOne(ctx, bson.M{"name": cake.Name}, update, options.Update().SetUpsert(true))
	if err != nil {
		return false, mapError(err)
	}
	return res.UpsertedCount > 0, nil
}

// IncrementSold bumps the popularity counter for every cake in an order.
func (s *CakeStore) IncrementSold(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	writes := make([]mongo.WriteModel, 0, len(items))
	for _, item := range items {
		writes = append(writes, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": item.CakeID}).
			SetUpdate(bson.M{"$inc": bson.M{"sold_count": item.Quantity}}))
	}
	_, err := s.cakes.coll.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false))
	return err
}

// CountByCategory reports how many cakes reference a category.
func (s *CakeStore) CountByCategory(ctx context.Context, categoryID primitive.ObjectID) (int64, error) {
	return s.cakes.coll.CountDocuments(ctx, bson.M{"category": categoryID})
}
