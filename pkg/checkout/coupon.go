package checkout

import (
	"math"
	"time"

	"github.com/example/bakery/pkg/models"
)

// CouponDiscount validates a coupon against a subtotal at time now and
// returns the discount it grants.
func CouponDiscount(c *models.Coupon, subtotal float64, now time.Time) (float64, error) {
	switch {
	case !c.Active:
		return 0, reject(CodeCouponInactive, "coupon_code", "coupon %s is not active", c.Code)
	case !c.StartsAt.IsZero() && now.Before(c.StartsAt):
		return 0, reject(CodeCouponNotStart, "coupon_code", "coupon %s is not valid yet", c.Code)
	case !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt):
		return 0, reject(CodeCouponExpired, "coupon_code", "coupon %s has expired", c.Code)
	case c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit:
		return 0, reject(CodeCouponExhausted, "coupon_code", "coupon %s has been fully redeemed", c.Code)
	case subtotal < c.MinOrder:
		return 0, reject(CodeCouponMinOrder, "coupon_code", "coupon %s needs a minimum order of %.2f", c.Code, c.MinOrder)
	}

	var discount float64
	switch c.Kind {
	case models.CouponPercent:
		discount = subtotal * c.Value / 100
		if c.MaxDiscount > 0 {
			discount = math.Min(discount, c.MaxDiscount)
		}
	case models.CouponFlat:
		discount = c.Value
	}
	return Round2(math.Min(discount, subtotal)), nil
}
