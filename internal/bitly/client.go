// Package bitly is a typed client for the three Bitly v4 endpoints the
// metrics pipeline needs: resolving the caller's default group, listing a
// group's bitlinks, and fetching per-country click series for one bitlink.
// Every call takes the caller's access token; nothing is cached and nothing
// is retried.
package bitly

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"
	"unicode/utf8"

	"github.com/swayne275/bitly-metrics/internal/errx"
	"github.com/swayne275/bitly-metrics/internal/metrics"
)

// DefaultBaseURL is the production Bitly v4 API root.
const DefaultBaseURL = "https://api-ssl.bitly.com/v4"

const (
	defaultTimeout    = 30 * time.Second
	defaultPageSize   = 50
	defaultWindowDays = 30
	maxErrorBodyBytes = 512
)

// Client calls the Bitly v4 API. The embedded http.Client is safe for
// concurrent use, so one Client serves all in-flight fan-out calls.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	pageSize   int
	windowDays int
}

// Config holds construction parameters for the Client. Zero values fall back
// to production defaults.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	PageSize   int
	WindowDays int
	Logger     *slog.Logger
}

// NewClient creates a Client for the Bitly v4 API.
func NewClient(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		pageSize:   pageSize,
		windowDays: windowDays,
	}
}

// APIError represents a non-2xx HTTP response from Bitly.
type APIError struct {
	StatusCode int
	Body       string // first 512 bytes
}

func (e *APIError) Error() string {
	return fmt.Sprintf("bitly responded %d: %s", e.StatusCode, e.Body)
}

// DecodeError represents a 2xx Bitly response whose body was not the
// expected JSON.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("could not parse bitly response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// userResponse is the slice of GET /user the pipeline cares about. Pointer
// fields distinguish a missing field from a present-but-empty one.
type userResponse struct {
	DefaultGroupGUID *string `json:"default_group_guid"`
}

type bitlinksResponse struct {
	Links      *[]linkEntry `json:"links"`
	Pagination pagination   `json:"pagination"`
}

type linkEntry struct {
	Link *string `json:"link"`
}

type pagination struct {
	Next string `json:"next"`
}

type countriesResponse struct {
	Metrics *[]countryMetric `json:"metrics"`
}

type countryMetric struct {
	Value  *string  `json:"value"`
	Clicks *[]int64 `json:"clicks"`
}

// DefaultGroup resolves the default group GUID for the account owning the
// provided access token.
func (c *Client) DefaultGroup(ctx context.Context, token string) (string, error) {
	const op = "bitly.client.DefaultGroup"

	var resp userResponse
	if err := c.getJSON(ctx, c.baseURL+"/user", token, &resp); err != nil {
		return "", classify(op, err)
	}

	if resp.DefaultGroupGUID == nil || *resp.DefaultGroupGUID == "" {
		c.logger.Error("bitly user data missing default group guid")
		return "", errx.E(op, errx.UpstreamData,
			errors.New(`"default_group_guid" not in data retrieved from bitly`))
	}

	return *resp.DefaultGroupGUID, nil
}

// GroupLinks lists every bitlink in the group, following Bitly's pagination
// cursor until exhausted. A failure on any page fails the whole call; no
// partial link list is returned.
func (c *Client) GroupLinks(ctx context.Context, token, groupGUID string) ([]metrics.Link, error) {
	const op = "bitly.client.GroupLinks"

	pageURL := fmt.Sprintf("%s/groups/%s/bitlinks?size=%d",
		c.baseURL, url.PathEscape(groupGUID), c.pageSize)

	var links []metrics.Link
	for pageURL != "" {
		var page bitlinksResponse
		if err := c.getJSON(ctx, pageURL, token, &page); err != nil {
			return nil, classify(op, err)
		}

		if page.Links == nil {
			c.logger.Error("bitly group data missing links field", "group", groupGUID)
			return nil, errx.E(op, errx.UpstreamData,
				errors.New(`"links" field not in data retrieved from bitly`))
		}

		for _, entry := range *page.Links {
			if entry.Link == nil || *entry.Link == "" {
				c.logger.Error("bitly link entry missing link field", "group", groupGUID)
				return nil, errx.E(op, errx.UpstreamData,
					errors.New(`"link" field not in data retrieved from bitly`))
			}
			links = append(links, metrics.Link{
				ID:       EncodeBitlink(*entry.Link),
				ShortURL: *entry.Link,
			})
		}

		pageURL = page.Pagination.Next
	}

	return links, nil
}

// CountrySeries fetches the per-country daily click counts for one bitlink
// over the trailing window.
func (c *Client) CountrySeries(ctx context.Context, token string, link metrics.Link) (metrics.CountrySeries, error) {
	const op = "bitly.client.CountrySeries"

	u := fmt.Sprintf("%s/bitlinks/%s/countries?unit=day&units=%d",
		c.baseURL, link.ID, c.windowDays)

	var resp countriesResponse
	if err := c.getJSON(ctx, u, token, &resp); err != nil {
		return nil, classify(op, err)
	}

	if resp.Metrics == nil {
		c.logger.Error("bitly country data missing metrics field", "bitlink", link.ID)
		return nil, errx.E(op, errx.UpstreamData,
			errors.New(`"metrics" field not in data retrieved from bitly`))
	}

	series := make(metrics.CountrySeries, len(*resp.Metrics))
	for _, m := range *resp.Metrics {
		if m.Value == nil || *m.Value == "" {
			c.logger.Error("bitly country entry missing value field", "bitlink", link.ID)
			return nil, errx.E(op, errx.UpstreamData,
				errors.New(`"value" field not in data retrieved from bitly`))
		}
		if m.Clicks == nil {
			c.logger.Error("bitly country entry missing clicks field", "bitlink", link.ID)
			return nil, errx.E(op, errx.UpstreamData,
				errors.New(`"clicks" field not in data retrieved from bitly`))
		}
		series[*m.Value] = *m.Clicks
	}

	return series, nil
}

// getJSON performs one authenticated GET and decodes the JSON body into dest.
// It returns the raw outcome untranslated: transport errors as-is, non-2xx
// statuses as *APIError, undecodable 2xx bodies as *DecodeError. classify
// turns these into the errx taxonomy.
func (c *Client) getJSON(ctx context.Context, fullURL, token string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(body)
		if len(bodyStr) > maxErrorBodyBytes {
			cut := maxErrorBodyBytes
			// Back off to a rune boundary so the truncated body stays valid UTF-8.
			for cut > 0 && !utf8.RuneStart(bodyStr[cut]) {
				cut--
			}
			bodyStr = bodyStr[:cut]
		}
		return &APIError{StatusCode: resp.StatusCode, Body: bodyStr}
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}

// classify maps a raw call outcome onto the closed error taxonomy. Order
// matters: credential rejections must stay distinguishable from generic
// transport and payload problems.
func classify(op string, err error) error {
	var apiErr *APIError
	var decodeErr *DecodeError

	switch {
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden {
			return errx.E(op, errx.BadCredential, err)
		}
		return errx.E(op, errx.UpstreamHTTP, err)
	case errors.As(err, &decodeErr):
		return errx.E(op, errx.UpstreamData, err)
	default:
		// Dial failures, timeouts, TLS problems: nothing here is
		// attributable to a cause the caller can act on.
		return errx.E(op, errx.Internal, err)
	}
}
