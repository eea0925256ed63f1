// Package foursquare adapts the Foursquare venue search API to the venue
// cache's provider contract.
package foursquare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"venuechat/internal/models"
)

// Provider errors. An empty result is not an error.
var (
	ErrProviderUnavailable = errors.New("venue provider unavailable")
	ErrProviderTimeout     = errors.New("venue provider timed out")
)

const (
	DefaultBaseURL    = "https://api.foursquare.com/v2"
	DefaultAPIVersion = "20240101"
	DefaultTimeout    = 5 * time.Second
	DefaultLimit      = 50

	// maxResponseBytes bounds how much of a response body is decoded.
	maxResponseBytes = 4 << 20
)

// Config holds the provider credentials and transport tunables.
type Config struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	OAuthToken   string
	APIVersion   string
	Timeout      time.Duration
	Retries      int
	Limit        int
}

// Client searches the venue directory over HTTP.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	version      string
	timeout      time.Duration
	limit        int
	httpClient   *http.Client
	log          *zap.SugaredLogger
}

// NewClient creates a new provider client. Transport-level retries are
// handled by go-retryablehttp; the per-call timeout covers all attempts.
func NewClient(cfg Config, log *zap.SugaredLogger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.Retries
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = time.Second
	rc.Logger = nil
	// Hand the final response back so the status can be classified here.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	var transport http.RoundTripper = &retryablehttp.RoundTripper{Client: rc}
	if cfg.OAuthToken != "" {
		transport = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.OAuthToken}),
			Base:   transport,
		}
	}

	return &Client{
		baseURL:      cfg.BaseURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		version:      cfg.APIVersion,
		timeout:      cfg.Timeout,
		limit:        cfg.Limit,
		httpClient:   &http.Client{Transport: transport},
		log:          log,
	}
}

// searchResponse is the subset of the search payload the cache consumes.
type searchResponse struct {
	Meta struct {
		Code        int    `json:"code"`
		ErrorType   string `json:"errorType"`
		ErrorDetail string `json:"errorDetail"`
	} `json:"meta"`
	Response struct {
		Venues []models.ExternalVenue `json:"venues"`
	} `json:"response"`
}

// SearchVenues returns up to the configured limit of venues within
// q.Meters of the point, optionally matching q.Filter.
func (c *Client) SearchVenues(ctx context.Context, q models.ProviderQuery) ([]models.ExternalVenue, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	limit := c.limit
	if q.Limit > 0 && q.Limit < limit {
		limit = q.Limit
	}

	params := url.Values{}
	params.Set("ll", strconv.FormatFloat(q.Lat, 'f', -1, 64)+","+strconv.FormatFloat(q.Lng, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(q.Meters))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("intent", "browse")
	params.Set("v", c.version)
	if q.Filter != "" {
		params.Set("query", q.Filter)
	}
	if c.clientID != "" {
		params.Set("client_id", c.clientID)
		params.Set("client_secret", c.clientSecret)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/venues/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrProviderUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "VenueChat/1.0")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return nil, fmt.Errorf("%w: HTTP %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var payload searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&payload); err != nil {
		if ctx.Err() != nil {
			return nil, c.transportError(ctx, err)
		}
		return nil, fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err)
	}
	if payload.Meta.Code != 0 && payload.Meta.Code != http.StatusOK {
		return nil, fmt.Errorf("%w: %s (%d): %s", ErrProviderUnavailable, payload.Meta.ErrorType, payload.Meta.Code, payload.Meta.ErrorDetail)
	}

	c.log.Debugw("provider search completed",
		"lat", q.Lat,
		"lng", q.Lng,
		"meters", q.Meters,
		"results", len(payload.Response.Venues),
		"duration", time.Since(start),
	)

	if payload.Response.Venues == nil {
		return []models.ExternalVenue{}, nil
	}
	return payload.Response.Venues, nil
}

// transportError classifies a failed round trip as a timeout or an outage.
func (c *Client) transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %v", ErrProviderTimeout, c.timeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
