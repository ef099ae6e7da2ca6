package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.openweathermap.org/geo/1.0"

// ErrNotFound is returned when a query resolves to no place.
var ErrNotFound = errors.New("place not found")

// Place is one geocoding result.
type Place struct {
	Name    string  `json:"name"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Country string  `json:"country"`
	State   string  `json:"state"`
}

// DisplayName joins name, state and country, skipping empty parts.
func (p Place) DisplayName() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Name, p.State, p.Country} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// Client resolves city names and coordinates through the OpenWeather geocoding API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
}

func NewClient(httpClient *http.Client, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "geocoding",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
	return &Client{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		breaker:    cb,
	}
}

// Direct geocodes a free-form city query; the best match is first.
func (c *Client) Direct(ctx context.Context, query string) ([]Place, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "5")
	values.Set("appid", c.apiKey)
	return c.fetch(ctx, "/direct", values)
}

// Reverse looks up the nearest named place for coordinates.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("limit", "1")
	values.Set("appid", c.apiKey)
	places, err := c.fetch(ctx, "/reverse", values)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, ErrNotFound
	}
	return places[0], nil
}

func (c *Client) fetch(ctx context.Context, path string, values url.Values) ([]Place, error) {
	u := c.baseURL + path + "?" + values.Encode()

	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("geocoding %s: status %d", path, resp.StatusCode)
		}
		var places []Place
		if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
			return nil, fmt.Errorf("geocoding %s: decode: %w", path, err)
		}
		return places, nil
	})
	if err != nil {
		return nil, err
	}
	return res.([]Place), nil
}
