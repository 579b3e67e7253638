// Package delivery decides whether an address lies inside a delivery area.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/bakery/pkg/models"
	"go.uber.org/zap"
)

var ErrMissingAddress = errors.New("pincode or coordinates are required")

type AreaFinder interface {
	FindByPincode(ctx context.Context, pincode string) ([]models.Location, error)
	Near(ctx context.Context, lat, lng, maxKm float64) ([]models.Location, error)
	// MaxRadius is the largest radius among available areas, 0 when none.
	MaxRadius(ctx context.Context) (float64, error)
}

type Geocoder interface {
	Geocode(ctx context.Context, pincode string) (float64, float64, error)
}

type Cache interface {
	GetDelivery(ctx context.Context, key string, dest interface{}) error
	SetDelivery(ctx context.Context, key string, result interface{}, ttl time.Duration) error
}

type Request struct {
	Pincode string   `json:"pincode"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (r Request) hasPoint() bool {
	return r.Lat != nil && r.Lng != nil
}

func (r Request) cacheKey() string {
	key := "pin:" + r.Pincode
	if r.hasPoint() {
		key += fmt.Sprintf(":pt:%.4f,%.4f", *r.Lat, *r.Lng)
	}
	return key
}

// RequestFor builds a check request from a saved address.
func RequestFor(a models.Address) Request {
	r := Request{Pincode: strings.TrimSpace(a.Pincode)}
	if a.HasCoordinates() {
		lat, lng := a.Lat, a.Lng
		r.Lat, r.Lng = &lat, &lng
	}
	return r
}

type Result struct {
	Deliverable bool    `json:"deliverable"`
	AreaID      string  `json:"area_id,omitempty"`
	Area        string  `json:"area,omitempty"`
	DistanceKm  float64 `json:"distance_km"`
	MatchedBy   string  `json:"matched_by,omitempty"`
}

type Checker struct {
	areas    AreaFinder
	geocoder Geocoder
	cache    Cache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewChecker builds a checker. geocoder and cache may be nil.
func NewChecker(areas AreaFinder, geocoder Geocoder, cache Cache, ttl time.Duration, logger *zap.Logger) *Checker {
	return &Checker{areas: areas, geocoder: geocoder, cache: cache, ttl: ttl, logger: logger}
}

// Check matches the request against delivery areas: first by pincode, then
// by distance from the given or geocoded point to each area centre.
func (c *Checker) Check(ctx context.Context, req Request) (*Result, error) {
	req.Pincode = strings.TrimSpace(req.Pincode)
	if req.Pincode == "" && !req.hasPoint() {
		return nil, ErrMissingAddress
	}

	key := req.cacheKey()
	if c.cache != nil {
		var cached Result
		if err := c.cache.GetDelivery(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}

	res, err := c.check(ctx, req)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetDelivery(ctx, key, res, c.ttl); err != nil {
			c.logger.Warn("Failed to cache delivery check", zap.String("key", key), zap.Error(err))
		}
	}
	return res, nil
}

func (c *Checker) check(ctx context.Context, req Request) (*Result, error) {
	if req.Pincode != "" {
		areas, err := c.areas.FindByPincode(ctx, req.Pincode)
		if err != nil {
			return nil, fmt.Errorf("failed to look up pincode: %w", err)
		}
		if len(areas) > 0 {
			area := areas[0]
			res := &Result{Deliverable: true, AreaID: area.ID.Hex(), Area: area.Name, MatchedBy: "pincode"}
			if req.hasPoint() {
				res.DistanceKm = round2(DistanceKm(area.Coordinates.Lat(), area.Coordinates.Lng(), *req.Lat, *req.Lng))
			}
			return res, nil
		}
	}

	matchedBy := "radius"
	if !req.hasPoint() {
		if c.geocoder == nil {
			return &Result{Deliverable: false}, nil
		}
		lat, lng, err := c.geocoder.Geocode(ctx, req.Pincode)
		if errors.Is(err, ErrNoGeocodeResult) {
			return &Result{Deliverable: false}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to geocode pincode: %w", err)
		}
		req.Lat, req.Lng = &lat, &lng
		matchedBy = "geocode"
	}

	reach, err := c.areas.MaxRadius(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read delivery radius: %w", err)
	}
	if reach <= 0 {
		return &Result{Deliverable: false}, nil
	}
	candidates, err := c.areas.Near(ctx, *req.Lat, *req.Lng, reach)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby areas: %w", err)
	}
	area, dist, ok := Covering(candidates, *req.Lat, *req.Lng)
	if !ok {
		return &Result{Deliverable: false}, nil
	}
	return &Result{
		Deliverable: true,
		AreaID:      area.ID.Hex(),
		Area:        area.Name,
		DistanceKm:  round2(dist),
		MatchedBy:   matchedBy,
	}, nil
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
