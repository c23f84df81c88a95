// Package weather looks up current conditions for a destination by
// geocoding its name and querying the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const (
	defaultGeocodeBaseURL = "https://nominatim.openstreetmap.org"
	defaultWeatherBaseURL = "https://api.open-meteo.com"

	requestTimeout  = 10 * time.Second
	forecastRetries = 3
	retryDelay      = time.Second

	userAgent = "wayfarer-travel-advisor/1.0"
)

// ClientConfig carries the dependencies for constructing a Client.
type ClientConfig struct {
	GeocodeBaseURL string
	WeatherBaseURL string
	HTTPClient     *http.Client
	Logger         *zap.Logger
	// Sleep is overridable for tests; defaults to time.Sleep.
	Sleep func(time.Duration)
}

// Client fetches weather descriptions. Lookup failures are reported as
// descriptive strings rather than errors so callers can degrade gracefully.
type Client struct {
	geocodeBaseURL string
	weatherBaseURL string
	httpClient     *http.Client
	logger         *zap.Logger
	sleep          func(time.Duration)
}

// NewClient constructs a Client, filling unset fields with defaults.
func NewClient(cfg ClientConfig) *Client {
	client := &Client{
		geocodeBaseURL: cfg.GeocodeBaseURL,
		weatherBaseURL: cfg.WeatherBaseURL,
		httpClient:     cfg.HTTPClient,
		logger:         cfg.Logger,
		sleep:          cfg.Sleep,
	}
	if client.geocodeBaseURL == "" {
		client.geocodeBaseURL = defaultGeocodeBaseURL
	}
	if client.weatherBaseURL == "" {
		client.weatherBaseURL = defaultWeatherBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: requestTimeout}
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	if client.sleep == nil {
		client.sleep = time.Sleep
	}
	return client
}

// Coordinates is a geocoded latitude/longitude pair.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a destination name to coordinates. It tries the exact
// name first and falls back to "<name>, city" before giving up.
func (c *Client) Geocode(ctx context.Context, destinationName string) (Coordinates, error) {
	queries := []string{destinationName, destinationName + ", city"}

	var lastErr error
	for _, query := range queries {
		coords, err := c.geocodeQuery(ctx, query)
		if err == nil {
			c.logger.Info("geocoded destination",
				zap.String("destination", destinationName),
				zap.Float64("latitude", coords.Latitude),
				zap.Float64("longitude", coords.Longitude))
			return coords, nil
		}
		lastErr = err
	}

	return Coordinates{}, fmt.Errorf("geocoding %q failed: %w", destinationName, lastErr)
}

func (c *Client) geocodeQuery(ctx context.Context, query string) (Coordinates, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1",
		c.geocodeBaseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Coordinates{}, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, fmt.Errorf("geocoding service returned status %d", resp.StatusCode)
	}

	var results []geocodeResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, err
	}
	if len(results) == 0 {
		return Coordinates{}, errors.New("no geocoding results")
	}

	var coords Coordinates
	if _, err := fmt.Sscanf(results[0].Lat, "%f", &coords.Latitude); err != nil {
		return Coordinates{}, fmt.Errorf("invalid latitude %q", results[0].Lat)
	}
	if _, err := fmt.Sscanf(results[0].Lon, "%f", &coords.Longitude); err != nil {
		return Coordinates{}, fmt.Errorf("invalid longitude %q", results[0].Lon)
	}
	return coords, nil
}

type forecastResponse struct {
	CurrentWeather *currentWeather `json:"current_weather"`
}

type currentWeather struct {
	Temperature float64 `json:"temperature"`
	WeatherCode int     `json:"weathercode"`
}

// CurrentConditions returns a human-readable weather line for a destination
// and whether the lookup actually succeeded. Every failure mode yields a
// descriptive string; the result is never empty and never an error.
func (c *Client) CurrentConditions(ctx context.Context, destinationName string) (string, bool) {
	coords, err := c.Geocode(ctx, destinationName)
	if err != nil {
		c.logger.Warn("geocoding failed",
			zap.String("destination", destinationName),
			zap.Error(err))
		return fmt.Sprintf("Could not find coordinates for %s", destinationName), false
	}

	endpoint := fmt.Sprintf("%s/v1/forecast?latitude=%g&longitude=%g&current_weather=true",
		c.weatherBaseURL, coords.Latitude, coords.Longitude)

	for attempt := 1; attempt <= forecastRetries; attempt++ {
		conditions, ok, retryable, err := c.fetchForecast(ctx, endpoint, destinationName)
		if err == nil {
			return conditions, ok
		}

		c.logger.Warn("weather lookup attempt failed",
			zap.String("destination", destinationName),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if !retryable {
			return fmt.Sprintf("Weather service error for %s", destinationName), false
		}
		if attempt < forecastRetries {
			c.sleep(retryDelay)
			continue
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Sprintf("Weather service timeout for %s", destinationName), false
		}
	}

	return fmt.Sprintf("Weather service temporarily unavailable for %s", destinationName), false
}

// fetchForecast performs a single forecast request. The boolean returns
// report whether the lookup produced real conditions and whether a failure
// is worth retrying.
func (c *Client) fetchForecast(ctx context.Context, endpoint, destinationName string) (string, bool, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", false, false, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors and timeouts are transient.
		return "", false, true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", false, true, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	var forecast forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&forecast); err != nil {
		return "", false, false, err
	}
	if forecast.CurrentWeather == nil {
		return fmt.Sprintf("No current weather data available for %s", destinationName), false, false, nil
	}

	description := DescribeCode(forecast.CurrentWeather.WeatherCode)
	c.logger.Info("retrieved weather",
		zap.String("destination", destinationName),
		zap.String("conditions", description),
		zap.Float64("temperature", forecast.CurrentWeather.Temperature))

	return fmt.Sprintf("Current weather in %s: %s, Temperature: %g°C",
		destinationName, description, forecast.CurrentWeather.Temperature), true, false, nil
}
