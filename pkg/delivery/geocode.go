package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/bakery/pkg/config"
	"googlemaps.github.io/maps"
)

var ErrNoGeocodeResult = errors.New("no geocoding result")

// GeocodeClient resolves postal codes to coordinates with the Google
// Geocoding API.
type GeocodeClient struct {
	client *maps.Client
	region string
}

func NewGeocodeClient(cfg *config.GeocodingConfig) (*GeocodeClient, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(cfg.BaseURL))
	}
	client, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create geocoding client: %w", err)
	}
	return &GeocodeClient{client: client, region: cfg.Region}, nil
}

func (g *GeocodeClient) Geocode(ctx context.Context, pincode string) (float64, float64, error) {
	components := map[maps.Component]string{maps.ComponentPostalCode: pincode}
	if g.region != "" {
		components[maps.ComponentCountry] = g.region
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Components: components, Region: g.region})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode request failed: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, ErrNoGeocodeResult
	}
	loc := results[0].Geometry.Location
	return loc.Lat, loc.Lng, nil
}
