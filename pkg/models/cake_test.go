package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func validCake() Cake {
	return Cake{
		Name:     "Black Forest",
		Type:     TypeEgg,
		CakeType: CakeTypeCake,
		Prices: []PriceOption{
			{Weight: "500g", CostPrice: 200, SellPrice: 450},
			{Weight: "1kg", CostPrice: 380, SellPrice: 850},
		},
	}
}

func TestCakeValidate(t *testing.T) {
	c := validCake()
	require.NoError(t, c.Validate())

	c.Prices = append(c.Prices, PriceOption{Weight: "1KG", SellPrice: 900})
	assert.ErrorIs(t, c.Validate(), ErrInvalid)

	c = validCake()
	c.Prices = nil
	assert.ErrorIs(t, c.Validate(), ErrInvalid)

	c = validCake()
	c.Prices[0].SellPrice = 0
	assert.ErrorIs(t, c.Validate(), ErrInvalid)

	c = validCake()
	c.Type = "vegan"
	assert.ErrorIs(t, c.Validate(), ErrInvalid)
}

func TestCakePricing(t *testing.T) {
	c := validCake()
	p, ok := c.PriceFor("1KG")
	require.True(t, ok)
	assert.Equal(t, 850.0, p.SellPrice)
	_, ok = c.PriceFor("2kg")
	assert.False(t, ok)
}

func TestRatingSummary(t *testing.T) {
	ratings := func(rs ...int) []Review {
		out := make([]Review, len(rs))
		for i, r := range rs {
			out[i] = Review{UserID: primitive.NewObjectID(), Rating: r}
		}
		return out
	}

	n, avg := RatingSummary(nil)
	assert.Zero(t, n)
	assert.Zero(t, avg)

	n, avg = RatingSummary(ratings(5, 4))
	assert.Equal(t, 2, n)
	assert.Equal(t, 4.5, avg)

	// 4.25 and 4.75 sit on a half and go to the even neighbour
	_, avg = RatingSummary(ratings(4, 4, 4, 5))
	assert.Equal(t, 4.2, avg)
	_, avg = RatingSummary(ratings(4, 5, 5, 5))
	assert.Equal(t, 4.8, avg)

	_, avg = RatingSummary(ratings(5, 5, 4))
	assert.Equal(t, 4.7, avg)
}

func TestCakeHasReviewFrom(t *testing.T) {
	c := validCake()
	u := primitive.NewObjectID()
	assert.False(t, c.HasReviewFrom(u))
	c.Reviews = append(c.Reviews, Review{UserID: u, Rating: 5})
	assert.True(t, c.HasReviewFrom(u))
	assert.False(t, c.HasReviewFrom(primitive.NewObjectID()))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "red-velvet-cake", Slugify("  Red Velvet  Cake! "))
	assert.Equal(t, "cr-me-br-l-e", Slugify("Crème Brûlée"))
}
