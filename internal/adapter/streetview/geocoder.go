// Package streetview turns a dig ticket's location into a photo for the dig
// roulette posts: forward geocoding via Nominatim when a ticket has no
// coordinates, then a Google Street View Static API image of the spot.
package streetview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// GeocodeResult is a forward geocoding hit. A zero result means the address
// was not found, which is not an error.
type GeocodeResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Found reports whether the lookup produced coordinates.
func (r GeocodeResult) Found() bool {
	return r.Lat != 0 || r.Lon != 0
}

// Geocoder resolves a street address to coordinates.
type Geocoder interface {
	ForwardGeocode(ctx context.Context, address string) (GeocodeResult, error)
}

// NominatimClient implements Geocoder against a Nominatim instance.
type NominatimClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// userAgent identifies the bot to Nominatim, per its usage policy.
const userAgent = "chicago-dig-bot/1.0"

// NewNominatimClient creates a Nominatim geocoding client.
func NewNominatimClient(baseURL string, timeout time.Duration, logger *slog.Logger) *NominatimClient {
	return &NominatimClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ForwardGeocode resolves an address to coordinates. Returns the zero result
// when Nominatim finds nothing.
func (c *NominatimClient) ForwardGeocode(ctx context.Context, address string) (GeocodeResult, error) {
	params := url.Values{
		"q":      {address},
		"format": {"json"},
		"limit":  {"1"},
	}
	u := c.baseURL + "/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return GeocodeResult{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return GeocodeResult{}, fmt.Errorf("nominatim error: status %d: %s", resp.StatusCode, body)
	}

	var hits []struct {
		Lat         string `json:"lat"`
		Lon         string `json:"lon"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return GeocodeResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(hits) == 0 {
		return GeocodeResult{}, nil
	}

	lat, _ := strconv.ParseFloat(hits[0].Lat, 64)
	lon, _ := strconv.ParseFloat(hits[0].Lon, 64)
	return GeocodeResult{
		Lat:         lat,
		Lon:         lon,
		DisplayName: hits[0].DisplayName,
	}, nil
}
