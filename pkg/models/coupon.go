package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CouponPercent = "percent"
	CouponFlat    = "flat"
)

type Coupon struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Code        string             `bson:"code" json:"code"`
	Kind        string             `bson:"kind" json:"kind"`
	Value       float64            `bson:"value" json:"value"`
	MinOrder    float64            `bson:"min_order" json:"min_order"`
	MaxDiscount float64            `bson:"max_discount" json:"max_discount"`
	StartsAt    time.Time          `bson:"starts_at" json:"starts_at"`
	ExpiresAt   time.Time          `bson:"expires_at" json:"expires_at"`
	UsageLimit  int                `bson:"usage_limit" json:"usage_limit"`
	UsedCount   int                `bson:"used_count" json:"used_count"`
	Active      bool               `bson:"active" json:"active"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Coupon) Validate() error {
	c.Code = NormalizeCouponCode(c.Code)
	if c.Code == "" {
		return fmt.Errorf("%w: code is required", ErrInvalid)
	}
	switch c.Kind {
	case CouponPercent:
		if c.Value <= 0 || c.Value > 100 {
			return fmt.Errorf("%w: percent value must be in (0, 100]", ErrInvalid)
		}
	case CouponFlat:
		if c.Value <= 0 {
			return fmt.Errorf("%w: flat value must be positive", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: kind must be %q or %q", ErrInvalid, CouponPercent, CouponFlat)
	}
	if c.MinOrder < 0 || c.MaxDiscount < 0 || c.UsageLimit < 0 {
		return fmt.Errorf("%w: min_order, max_discount and usage_limit cannot be negative", ErrInvalid)
	}
	if !c.StartsAt.IsZero() && !c.ExpiresAt.IsZero() && c.ExpiresAt.Before(c.StartsAt) {
		return fmt.Errorf("%w: expires_at is before starts_at", ErrInvalid)
	}
	return nil
}
