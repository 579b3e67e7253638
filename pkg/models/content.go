package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Banner struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title     string             `bson:"title" json:"title"`
	Image     string             `bson:"image" json:"image"`
	Link      string             `bson:"link" json:"link"`
	Position  int                `bson:"position" json:"position"`
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

func (b *Banner) Validate() error {
	if strings.TrimSpace(b.Image) == "" {
		return fmt.Errorf("%w: image is required", ErrInvalid)
	}
	return nil
}

type News struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Slug        string             `bson:"slug" json:"slug"`
	Body        string             `bson:"body" json:"body"`
	Image       string             `bson:"image" json:"image"`
	Published   bool               `bson:"published" json:"published"`
	PublishedAt time.Time          `bson:"published_at,omitempty" json:"published_at,omitempty"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (n *News) Validate() error {
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if n.Slug == "" {
		n.Slug = Slugify(n.Title)
	}
	if n.Published && n.PublishedAt.IsZero() {
		n.PublishedAt = time.Now().UTC()
	}
	return nil
}

type Subscriber struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email     string             `bson:"email" json:"email"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
