package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CategoryActive   = "active"
	CategoryInactive = "inactive"
)

type Category struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Slug        string             `bson:"slug" json:"slug"`
	Description string             `bson:"description" json:"description"`
	Image       string             `bson:"image" json:"image"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (c *Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if c.Status == "" {
		c.Status = CategoryActive
	}
	if c.Status != CategoryActive && c.Status != CategoryInactive {
		return fmt.Errorf("%w: status must be %q or %q", ErrInvalid, CategoryActive, CategoryInactive)
	}
	if c.Slug == "" {
		c.Slug = Slugify(c.Name)
	}
	return nil
}

// Addon is an extra sold with an order, such as candles or a topper.
type Addon struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name" json:"name"`
	Price     float64            `bson:"price" json:"price"`
	Image     string             `bson:"image" json:"image"`
	Available bool               `bson:"available" json:"available"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (a *Addon) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if a.Price < 0 {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalid)
	}
	return nil
}
