package repository

import (
	"context"
	"strings"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BannerStore struct {
	banners collection[models.Banner]
}

func NewBannerStore(m *MongoRepository) *BannerStore {
	return &BannerStore{banners: newCollection[models.Banner](m, BannersCollection)}
}

func (s *BannerStore) List(ctx context.Context, activeOnly bool) ([]models.Banner, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	return s.banners.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "created_at", Value: -1}}))
}

func (s *BannerStore) Get(ctx context.Context, id primitive.ObjectID) (*models.Banner, error) {
	return s.banners.findOne(ctx, bson.M{"_id": id})
}

func (s *BannerStore) Create(ctx context.Context, b *models.Banner) error {
	now := time.Now().UTC()
	b.ID = primitive.NewObjectID()
	b.CreatedAt, b.UpdatedAt = now, now
	return s.banners.insert(ctx, b)
}

func (s *BannerStore) Update(ctx context.Context, id primitive.ObjectID, b *models.Banner) error {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	b.ID = id
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = time.Now().UTC()
	return s.banners.replace(ctx, id, b)
}

func (s *BannerStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.banners.delete(ctx, id)
}

type NewsStore struct {
	news collection[models.News]
}

func NewNewsStore(m *MongoRepository) *NewsStore {
	return &NewsStore{news: newCollection[models.News](m, NewsCollection)}
}

func (s *NewsStore) List(ctx context.Context, publishedOnly bool, skip, limit int64) ([]models.News, int64, error) {
	filter := bson.M{}
	if publishedOnly {
		filter["published"] = true
	}
	return s.news.page(ctx, filter, bson.D{{Key: "published_at", Value: -1}, {Key: "created_at", Value: -1}}, skip, limit)
}

func (s *NewsStore) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*models.News, error) {
	filter := bson.M{"slug": strings.ToLower(slug)}
	if publishedOnly {
		filter["published"] = true
	}
	return s.news.findOne(ctx, filter)
}

func (s *NewsStore) Create(ctx context.Context, n *models.News) error {
	now := time.Now().UTC()
	n.ID = primitive.NewObjectID()
	n.CreatedAt, n.UpdatedAt = now, now
	return s.news.insert(ctx, n)
}

func (s *NewsStore) Update(ctx context.Context, id primitive.ObjectID, n *models.News) error {
	existing, err := s.news.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	n.ID = id
	n.CreatedAt = existing.CreatedAt
	n.UpdatedAt = time.Now().UTC()
	return s.news.replace(ctx, id, n)
}

func (s *NewsStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.news.delete(ctx, id)
}

type SubscriberStore struct {
	subscribers collection[models.Subscriber]
}

func NewSubscriberStore(m *MongoRepository) *SubscriberStore {
	return &SubscriberStore{subscribers: newCollection[models.Subscriber](m, SubscribersCollection)}
}

func (s *SubscriberStore) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.subscribers.coll.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Create inserts a subscriber. A concurrent duplicate loses on the unique
// index and is reported as ErrConflict.
func (s *SubscriberStore) Create(ctx context.Context, sub *models.Subscriber) error {
	sub.ID = primitive.NewObjectID()
	sub.CreatedAt = time.Now().UTC()
	return s.subscribers.insert(ctx, sub)
}

func (s *SubscriberStore) List(ctx context.Context, skip, limit int64) ([]models.Subscriber, int64, error) {
	return s.subscribers.page(ctx, bson.M{}, bson.D{{Key: "created_at", Value: -1}}, skip, limit)
}

func (s *SubscriberStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.subscribers.delete(ctx, id)
}
