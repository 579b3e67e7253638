package checkout

import (
	"errors"
	"testing"
	"time"

	"github.com/example/bakery/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func codeOf(t *testing.T, err error) string {
	t.Helper()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve), "expected ValidationError, got %v", err)
	return ve.Code
}

func TestCouponDiscount(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		coupon   models.Coupon
		subtotal float64
		want     float64
		code     string
	}{
		{name: "percent", coupon: models.Coupon{Code: "TEN", Kind: models.CouponPercent, Value: 10, Active: true}, subtotal: 850, want: 85},
		{name: "percent capped", coupon: models.Coupon{Code: "HALF", Kind: models.CouponPercent, Value: 50, MaxDiscount: 200, Active: true}, subtotal: 1000, want: 200},
		{name: "zero cap means uncapped", coupon: models.Coupon{Code: "HALF", Kind: models.CouponPercent, Value: 50, Active: true}, subtotal: 1000, want: 500},
		{name: "flat", coupon: models.Coupon{Code: "FLAT100", Kind: models.CouponFlat, Value: 100, Active: true}, subtotal: 450, want: 100},
		{name: "flat never exceeds subtotal", coupon: models.Coupon{Code: "FLAT500", Kind: models.CouponFlat, Value: 500, Active: true}, subtotal: 320, want: 320},
		{name: "rounded", coupon: models.Coupon{Code: "ODD", Kind: models.CouponPercent, Value: 12.5, Active: true}, subtotal: 99.99, want: 12.5},
		{name: "inactive", coupon: models.Coupon{Code: "OFF", Kind: models.CouponFlat, Value: 10}, subtotal: 100, code: CodeCouponInactive},
		{name: "not started", coupon: models.Coupon{Code: "SOON", Kind: models.CouponFlat, Value: 10, Active: true, StartsAt: now.Add(time.Hour)}, subtotal: 100, code: CodeCouponNotStart},
		{name: "expired", coupon: models.Coupon{Code: "OLD", Kind: models.CouponFlat, Value: 10, Active: true, ExpiresAt: now}, subtotal: 100, code: CodeCouponExpired},
		{name: "exhausted", coupon: models.Coupon{Code: "USED", Kind: models.CouponFlat, Value: 10, Active: true, UsageLimit: 5, UsedCount: 5}, subtotal: 100, code: CodeCouponExhausted},
		{name: "below minimum", coupon: models.Coupon{Code: "BIG", Kind: models.CouponFlat, Value: 10, Active: true, MinOrder: 500}, subtotal: 499, code: CodeCouponMinOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CouponDiscount(&tt.coupon, tt.subtotal, now)
			if tt.code != "" {
				assert.Equal(t, tt.code, codeOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeliveryChargeAndTotals(t *testing.T) {
	s := models.DefaultSettings()

	assert.Equal(t, 50.0, DeliveryCharge(&s, 998.99))
	assert.Equal(t, 0.0, DeliveryCharge(&s, 999))

	s.FreeDeliveryAbove = 0
	assert.Equal(t, 50.0, DeliveryCharge(&s, 5000))

	totals := ComputeTotals(900, 49.5, 90, 50)
	assert.Equal(t, 909.5, totals.Total)
	assert.Equal(t, 90.0, totals.Discount)
}

func TestPriceCart(t *testing.T) {
	cakeID := primitive.NewObjectID()
	hiddenID := primitive.NewObjectID()
	goneID := primitive.NewObjectID()
	candles := primitive.NewObjectID()

	cakes := map[primitive.ObjectID]models.Cake{
		cakeID: {
			ID: cakeID, Name: "Truffle", Slug: "truffle", Available: true, Images: []string{"/uploads/t.jpg"},
			Prices: []models.PriceOption{{Weight: "500g", SellPrice: 450}, {Weight: "1kg", SellPrice: 850}},
		},
		hiddenID: {ID: hiddenID, Name: "Seasonal", Available: false, Prices: []models.PriceOption{{Weight: "1kg", SellPrice: 700}}},
	}
	addons := map[primitive.ObjectID]models.Addon{
		candles: {ID: candles, Name: "Candles", Price: 20, Available: true},
	}
	cart := &models.Cart{
		Items: []models.CartItem{
			{CakeID: cakeID, Weight: "1KG", Quantity: 2, Message: "Happy birthday"},
			{CakeID: cakeID, Weight: "2kg", Quantity: 1},
			{CakeID: hiddenID, Weight: "1kg", Quantity: 1},
			{CakeID: goneID, Weight: "1kg", Quantity: 1},
		},
		Addons: []models.CartAddon{{AddonID: candles, Quantity: 3}},
	}

	priced := PriceCart(cart, cakes, addons)
	require.Len(t, priced.Items, 4)

	first := priced.Items[0]
	assert.False(t, first.Unavailable)
	assert.Equal(t, 850.0, first.UnitPrice)
	assert.Equal(t, 1700.0, first.LineTotal)
	assert.Equal(t, "/uploads/t.jpg", first.Image)

	assert.True(t, priced.Items[1].Unavailable)
	assert.True(t, priced.Items[2].Unavailable)
	assert.True(t, priced.Items[3].Unavailable)
	assert.True(t, priced.HasUnavailable())

	assert.Equal(t, 1700.0, priced.Subtotal)
	assert.Equal(t, 60.0, priced.AddonsTotal)
}

func TestValidateSchedule(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	s := models.DefaultSettings()
	rules := ScheduleRules{Location: ist, MaxAdvanceDays: 30}
	slot := s.DeliverySlots[0]

	morning := time.Date(2024, 5, 10, 9, 0, 0, 0, ist)
	afternoon := time.Date(2024, 5, 10, 15, 0, 0, 0, ist)

	day, err := ValidateSchedule("2024-05-10", slot, &s, rules, morning)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, ist), day)

	_, err = ValidateSchedule("2024-05-10", slot, &s, rules, afternoon)
	assert.Equal(t, CodeSameDayCutoff, codeOf(t, err))

	_, err = ValidateSchedule("2024-05-11", slot, &s, rules, afternoon)
	assert.NoError(t, err)

	_, err = ValidateSchedule("2024-05-09", slot, &s, rules, morning)
	assert.Equal(t, CodeInvalidDate, codeOf(t, err))

	_, err = ValidateSchedule("2024-06-09", slot, &s, rules, morning)
	assert.NoError(t, err)
	_, err = ValidateSchedule("2024-06-10", slot, &s, rules, morning)
	assert.Equal(t, CodeDateTooFar, codeOf(t, err))

	_, err = ValidateSchedule("10/05/2024", slot, &s, rules, morning)
	assert.Equal(t, CodeInvalidDate, codeOf(t, err))

	_, err = ValidateSchedule("2024-05-11", "midnight", &s, rules, morning)
	assert.Equal(t, CodeInvalidSlot, codeOf(t, err))
}

func TestValidateScheduleUsesStoreTimezone(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	s := models.DefaultSettings()

	// 20:00 UTC on the 9th is already the 10th in the store timezone.
	now := time.Date(2024, 5, 9, 20, 0, 0, 0, time.UTC)
	_, err = ValidateSchedule("2024-05-09", s.DeliverySlots[0], &s, ScheduleRules{Location: ist, MaxAdvanceDays: 30}, now)
	assert.Equal(t, CodeInvalidDate, codeOf(t, err))
}
