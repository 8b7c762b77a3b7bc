// Package ticketmaster is a search provider backed by the Ticketmaster
// Discovery API.
package ticketmaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/erazemk/vodnik/internal/model"
)

const (
	DefaultBaseURL = "https://app.ticketmaster.com"
	DefaultKeyword = "event"
	DefaultRadius  = 50

	searchPath       = "/discovery/v2/events.json"
	geohashPrecision = 8
	maxBodySize      = 4 << 20
)

// StatusError is returned for non-200 responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("ticketmaster: unexpected status %d: %s", e.StatusCode, e.Body)
}

// Config configures a Client. Zero values fall back to the defaults.
type Config struct {
	BaseURL    string
	APIKey     string
	Radius     int
	HTTPClient *http.Client

	// FailureThreshold is the number of consecutive failures that opens
	// the circuit breaker. OpenTimeout is how long it stays open.
	FailureThreshold uint32
	OpenTimeout      time.Duration
}

// Client searches events near a point.
type Client struct {
	baseURL string
	apiKey  string
	radius  int
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// New returns a Client for cfg, filling unset fields with the defaults.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultRadius
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ticketmaster",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a provider failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		radius:  cfg.Radius,
		http:    cfg.HTTPClient,
		breaker: breaker,
	}
}

// Search returns events within the configured radius of lat, lon matching
// term. An empty term searches for DefaultKeyword.
func (c *Client) Search(ctx context.Context, lat, lon float64, term string) ([]model.Item, error) {
	res, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, lat, lon, term)
	})
	if err != nil {
		return nil, err
	}
	return parseEvents(res.([]byte))
}

func (c *Client) searchURL(lat, lon float64, term string) string {
	if term == "" {
		term = DefaultKeyword
	}
	q := url.Values{}
	q.Set("apikey", c.apiKey)
	q.Set("geoPoint", geohash.EncodeWithPrecision(lat, lon, geohashPrecision))
	q.Set("keyword", term)
	q.Set("radius", strconv.Itoa(c.radius))
	return c.baseURL + searchPath + "?" + q.Encode()
}

func (c *Client) fetch(ctx context.Context, lat, lon float64, term string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchURL(lat, lon, term), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting events: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func parseEvents(body []byte) ([]model.Item, error) {
	if !gjson.ValidBytes(body) {
		return nil, errors.New("ticketmaster: invalid JSON response")
	}

	events := gjson.GetBytes(body, "_embedded.events").Array()
	items := make([]model.Item, 0, len(events))
	for _, ev := range events {
		id := ev.Get("id").String()
		if id == "" {
			continue
		}

		var categories []string
		for _, c := range ev.Get("classifications.#.segment.name").Array() {
			categories = append(categories, c.String())
		}

		items = append(items, model.Item{
			ItemID:     id,
			Name:       ev.Get("name").String(),
			URL:        ev.Get("url").String(),
			ImageURL:   ev.Get("images.0.url").String(),
			Rating:     ev.Get("rating").Float(),
			Distance:   ev.Get("distance").Float(),
			Address:    venueAddress(ev.Get("_embedded.venues.0")),
			Categories: model.NormalizeSet(categories),
		})
	}
	return items, nil
}

func venueAddress(venue gjson.Result) string {
	var parts []string
	for _, path := range []string{"address.line1", "address.line2", "address.line3", "city.name"} {
		if v := strings.TrimSpace(venue.Get(path).String()); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}
