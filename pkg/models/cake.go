package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TypeEgg     = "egg"
	TypeEggless = "eggless"

	CakeTypeCake   = "cake"
	CakeTypePastry = "pastry"
)

// PriceOption is one purchasable weight of a cake.
type PriceOption struct {
	Weight    string  `bson:"weight" json:"weight"`
	CostPrice float64 `bson:"cost_price" json:"cost_price"`
	SellPrice float64 `bson:"sell_price" json:"sell_price"`
}

type Review struct {
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name      string             `bson:"name" json:"name"`
	Rating    int                `bson:"rating" json:"rating"`
	Comment   string             `bson:"comment" json:"comment"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type Cake struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Slug          string             `bson:"slug" json:"slug"`
	Description   string             `bson:"description" json:"description"`
	Type          string             `bson:"type" json:"type"`
	CakeType      string             `bson:"caketype" json:"caketype"`
	Prices        []PriceOption      `bson:"prices" json:"prices"`
	Images        []string           `bson:"images" json:"images"`
	Category      primitive.ObjectID `bson:"category" json:"category"`
	Available     bool               `bson:"available" json:"available"`
	Featured      bool               `bson:"featured" json:"featured"`
	Reviews       []Review           `bson:"reviews" json:"reviews,omitempty"`
	AverageRating float64            `bson:"average_rating" json:"average_rating"`
	ReviewCount   int                `bson:"review_count" json:"review_count"`
	SoldCount     int                `bson:"sold_count" json:"sold_count"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// PriceFor returns the price option for the given weight.
func (c *Cake) PriceFor(weight string) (PriceOption, bool) {
	for _, p := range c.Prices {
		if strings.EqualFold(p.Weight, weight) {
			return p, true
		}
	}
	return PriceOption{}, false
}

func (c *Cake) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if c.Type != TypeEgg && c.Type != TypeEggless {
		return fmt.Errorf("%w: type must be %q or %q", ErrInvalid, TypeEgg, TypeEggless)
	}
	if c.CakeType != CakeTypeCake && c.CakeType != CakeTypePastry {
		return fmt.Errorf("%w: caketype must be %q or %q", ErrInvalid, CakeTypeCake, CakeTypePastry)
	}
	if len(c.Prices) == 0 {
		return fmt.Errorf("%w: at least one price option is required", ErrInvalid)
	}
	seen := make(map[string]bool, len(c.Prices))
	for _, p := range c.Prices {
		w := strings.ToLower(strings.TrimSpace(p.Weight))
		if w == "" {
			return fmt.Errorf("%w: price option weight is required", ErrInvalid)
		}
		if seen[w] {
			return fmt.Errorf("%w: duplicate weight %q", ErrInvalid, p.Weight)
		}
		seen[w] = true
		if p.SellPrice <= 0 {
			return fmt.Errorf("%w: sell price for %q must be positive", ErrInvalid, p.Weight)
		}
		if p.CostPrice < 0 {
			return fmt.Errorf("%w: cost price for %q cannot be negative", ErrInvalid, p.Weight)
		}
	}
	return nil
}

// RatingSummary returns the review count and the average rating to one
// decimal place, rounding halves to even.
func RatingSummary(reviews []Review) (int, float64) {
	if len(reviews) == 0 {
		return 0, 0
	}
	var sum int
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return len(reviews), math.RoundToEven(avg*10) / 10
}

// HasReviewFrom reports whether the user already reviewed the cake.
func (c *Cake) HasReviewFrom(userID primitive.ObjectID) bool {
	for _, r := range c.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a display name into a url-safe identifier.
func Slugify(name string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
	return strings.Trim(s, "-")
}
