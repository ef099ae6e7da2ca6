package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// Client fetches current conditions and the 5-day/3-hour forecast from OpenWeather.
// Both endpoints share one circuit breaker: they live on the same API family and
// fail together.
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
		Name:        "openweather",
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

// Current returns current conditions for the coordinates in the requested
// unit system and description language.
func (c *Client) Current(ctx context.Context, lat, lon float64, units, lang string) (Current, error) {
	var payload struct {
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  int     `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Weather []struct {
			ID          int    `json:"id"`
			Description string `json:"description"`
		} `json:"weather"`
	}
	if err := c.get(ctx, "/weather", lat, lon, units, lang, &payload); err != nil {
		return Current{}, err
	}

	cur := Current{
		Temp:        payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		WindSpeed:   payload.Wind.Speed,
		Humidity:    payload.Main.Humidity,
		Pressure:    payload.Main.Pressure,
		ConditionID: 800,
	}
	if len(payload.Weather) > 0 {
		cur.ConditionID = payload.Weather[0].ID
		cur.Description = payload.Weather[0].Description
	}
	return cur, nil
}

// Forecast returns the 3-hourly forecast series for the coordinates.
func (c *Client) Forecast(ctx context.Context, lat, lon float64, units, lang string) ([]Sample, error) {
	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp float64 `json:"temp"`
			} `json:"main"`
			Weather []struct {
				ID          int    `json:"id"`
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}
	if err := c.get(ctx, "/forecast", lat, lon, units, lang, &payload); err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(payload.List))
	for _, item := range payload.List {
		s := Sample{
			Timestamp:   time.Unix(item.Dt, 0).UTC(),
			Temp:        item.Main.Temp,
			ConditionID: 800,
		}
		if len(item.Weather) > 0 {
			s.ConditionID = item.Weather[0].ID
			s.Description = item.Weather[0].Description
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func (c *Client) get(ctx context.Context, path string, lat, lon float64, units, lang string, out interface{}) error {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("units", units)
	values.Set("lang", lang)
	values.Set("appid", c.apiKey)
	u := c.baseURL + path + "?" + values.Encode()

	body, err := c.breaker.Execute(func() (interface{}, error) {
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
			return nil, fmt.Errorf("openweather %s: status %d", path, resp.StatusCode)
		}
		var buf json.RawMessage
		if err := json.NewDecoder(resp.Body).Decode(&buf); err != nil {
			return nil, fmt.Errorf("openweather %s: decode: %w", path, err)
		}
		return buf, nil
	})
	if err != nil {
		return err
	}
	return json.Unmarshal(body.(json.RawMessage), out)
}
