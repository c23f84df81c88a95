// Package webui serves the server-rendered frontend. It talks to the API
// process over HTTP and keeps per-browser chat transcripts in memory.
package webui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const clientTimeout = 30 * time.Second

// APIError carries the error token returned by the API.
type APIError struct {
	StatusCode int
	Token      string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Token)
}

// Destination mirrors the API destination payload.
type Destination struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Note mirrors the API note payload.
type Note struct {
	ID            uint      `json:"id"`
	DestinationID uint      `json:"destination_id"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}

// AskResult mirrors the API answer payload.
type AskResult struct {
	Answer      string  `json:"answer"`
	WeatherInfo *string `json:"weather_info"`
}

// Client is a thin REST client for the API process.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient trims the trailing slash so path joining stays uniform.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: clientTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

func (c *Client) ListDestinations(ctx context.Context) ([]Destination, error) {
	var destinations []Destination
	if err := c.do(ctx, http.MethodGet, "/destinations", nil, &destinations); err != nil {
		return nil, err
	}
	return destinations, nil
}

func (c *Client) CreateDestination(ctx context.Context, name string) (Destination, error) {
	var destination Destination
	err := c.do(ctx, http.MethodPost, "/destinations", map[string]string{"name": name}, &destination)
	return destination, err
}

func (c *Client) DeleteDestination(ctx context.Context, destinationID uint) error {
	path := fmt.Sprintf("/destinations/%d", destinationID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) ListNotes(ctx context.Context, destinationID uint) ([]Note, error) {
	var notes []Note
	path := fmt.Sprintf("/destinations/%d/notes", destinationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) CreateNote(ctx context.Context, destinationID uint, content string) (Note, error) {
	var note Note
	path := fmt.Sprintf("/destinations/%d/notes", destinationID)
	err := c.do(ctx, http.MethodPost, path, map[string]string{"content": content}, &note)
	return note, err
}

func (c *Client) Ask(ctx context.Context, destinationID uint, question string) (AskResult, error) {
	var result AskResult
	payload := map[string]any{
		"destination_id": destinationID,
		"question":       question,
	}
	err := c.do(ctx, http.MethodPost, "/ask", payload, &result)
	return result, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("api request: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		token := "unknown_error"
		if err := json.NewDecoder(response.Body).Decode(&failure); err == nil && failure.Error != "" {
			token = failure.Error
		}
		return &APIError{StatusCode: response.StatusCode, Token: token}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
