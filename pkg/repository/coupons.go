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

type CouponStore struct {
	coupons collection[models.Coupon]
}

func NewCouponStore(m *MongoRepository) *CouponStore {
	return &CouponStore{coupons: newCollection[models.Coupon](m, CouponsCollection)}
}

func (s *CouponStore) List(ctx context.Context) ([]models.Coupon, error) {
	return s.coupons.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
}

func (s *CouponStore) GetByCode(ctx context.Context, code string) (*models.Coupon, error) {
	return s.coupons.findOne(ctx, bson.M{"code": models.NormalizeCouponCode(code)})
}

func (s *CouponStore) Create(ctx context.Context, c *models.Coupon) error {
	now := time.Now().UTC()
	c.ID = primitive.NewObjectID()
	c.UsedCount = 0
	c.CreatedAt, c.UpdatedAt = now, now
	return s.coupons.insert(ctx, c)
}

// Update replaces a coupon's terms; the usage counter is preserved.
func (s *CouponStore) Update(ctx context.Context, id primitive.ObjectID, c *models.Coupon) error {
	existing, err := s.coupons.findOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	c.ID = id
	c.UsedCount = existing.UsedCount
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = time.Now().UTC()
	return s.coupons.replace(ctx, id, c)
}

func (s *CouponStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	return s.coupons.delete(ctx, id)
}

// Redeem consumes one use of a coupon. The guard on usage_limit makes the
// increment safe under concurrent checkouts; an exhausted or inactive
// coupon yields ErrConflict.
func (s *CouponStore) Redeem(ctx context.Context, code string) error {
	filter := bson.M{
		"code":   models.NormalizeCouponCode(code),
		"active": true,
		"$or": bson.A{
			bson.M{"usage_limit": 0},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$used_count", "$usage_limit"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := s.coupons.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to redeem coupon: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: coupon %s is no longer available", ErrConflict, code)
	}
	return nil
}

// Release gives back a use taken by Redeem.
func (s *CouponStore) Release(ctx context.Context, code string) error {
	_, err := s.coupons.coll.UpdateOne(ctx,
		bson.M{"code": models.NormalizeCouponCode(code), "used_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"used_count": -1}})
	return err
}
