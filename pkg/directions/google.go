package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/akfire/dispatch-relay/pkg/logger"
)

// GoogleBaseURL is the Google Directions API endpoint
const GoogleBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

// GoogleClient implements Provider using the Google Directions API.
type GoogleClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	logger     *logger.Logger
}

// NewGoogleClient creates a Google Directions client
func NewGoogleClient(apiKey string, timeout time.Duration, log *logger.Logger) *GoogleClient {
	return &GoogleClient{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: GoogleBaseURL,
		logger:  log,
	}
}

// WithBaseURL overrides the API endpoint (used by tests)
func (c *GoogleClient) WithBaseURL(u string) *GoogleClient {
	c.baseURL = u
	return c
}

// Route requests driving directions from origin to destination.
func (c *GoogleClient) Route(ctx context.Context, origin Origin, destination string) (Route, error) {
	params := url.Values{
		"origin":      {fmt.Sprintf("%f,%f", origin.Lat, origin.Lng)},
		"destination": {destination},
		"mode":        {"driving"},
		"key":         {c.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return Route{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Route{}, fmt.Errorf("directions request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Route{}, fmt.Errorf("directions API error: status %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Route{}, fmt.Errorf("decode response: %w", err)
	}

	if body.Status != "OK" {
		return Route{}, fmt.Errorf("directions API status %s", body.Status)
	}
	if len(body.Routes) == 0 || len(body.Routes[0].Legs) == 0 {
		return Route{}, fmt.Errorf("directions response has no usable route")
	}

	r := body.Routes[0]
	leg := r.Legs[0]
	return Route{
		Summary:         r.Summary,
		DistanceMeters:  leg.Distance.Value,
		DurationSeconds: leg.Duration.Value,
		EndLat:          leg.EndLocation.Lat,
		EndLng:          leg.EndLocation.Lng,
		Polyline:        r.OverviewPolyline.Points,
	}, nil
}

// Google Directions API response types.

type response struct {
	Status string  `json:"status"`
	Routes []route `json:"routes"`
}

type route struct {
	Summary          string   `json:"summary"`
	Legs             []leg    `json:"legs"`
	OverviewPolyline polyline `json:"overview_polyline"`
}

type leg struct {
	Distance    value    `json:"distance"`
	Duration    value    `json:"duration"`
	EndLocation location `json:"end_location"`
}

type value struct {
	Value int `json:"value"`
}

type location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type polyline struct {
	Points string `json:"points"`
}
