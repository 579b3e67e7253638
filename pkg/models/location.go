package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GeoPoint is a GeoJSON point; Coordinates are [lng, lat].
type GeoPoint struct {
	Type        string     `bson:"type" json:"type"`
	Coordinates [2]float64 `bson:"coordinates" json:"coordinates"`
}

func NewGeoPoint(lat, lng float64) GeoPoint {
	return GeoPoint{Type: "Point", Coordinates: [2]float64{lng, lat}}
}

func (p GeoPoint) Lat() float64 { return p.Coordinates[1] }
func (p GeoPoint) Lng() float64 { return p.Coordinates[0] }

// Location is a delivery area: a named point with a radius in km.
type Location struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	State       string             `bson:"state" json:"state"`
	Pincode     string             `bson:"pincode" json:"pincode"`
	Coordinates GeoPoint           `bson:"coordinates" json:"coordinates"`
	Available   bool               `bson:"available" json:"available"`
	Radius      float64            `bson:"radius" json:"radius"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

func (l *Location) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if l.Radius < 0 {
		return fmt.Errorf("%w: radius cannot be negative", ErrInvalid)
	}
	lat, lng := l.Coordinates.Lat(), l.Coordinates.Lng()
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", ErrInvalid)
	}
	l.Coordinates.Type = "Point"
	l.Pincode = strings.TrimSpace(l.Pincode)
	return nil
}
