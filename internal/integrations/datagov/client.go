// Package datagov queries an open-data catalog (data.gov.sg style CKAN API)
// for caregiver centre suggestions. Lookups are auxiliary: they run under a
// fixed deadline and callers treat failures as a missing enrichment, never
// as a turn failure.
package datagov

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"babygpt/internal/domain"
)

const lookupTimeout = 5 * time.Second

// Column-name candidates for the substring heuristic. Open datasets do not
// share a schema; name/address-like columns are detected, not declared.
var (
	nameCandidates    = []string{"name", "centre", "school", "title"}
	addressCandidates = []string{"address", "location", "street", "building"}
)

type packageSearchResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Results []struct {
			Resources []struct {
				ID string `json:"id"`
			} `json:"resources"`
		} `json:"results"`
	} `json:"result"`
}

type datastoreSearchResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Records []map[string]any `json:"records"`
	} `json:"result"`
}

// Client is a minimal open-data catalog client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://data.gov.sg",
		httpClient: &http.Client{Timeout: lookupTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FindResource searches the catalog by keyword and returns the first
// datastore resource id.
func (c *Client) FindResource(ctx context.Context, keyword string) (string, error) {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("rows", "1")

	var parsed packageSearchResponse
	if err := c.getJSON(ctx, "/api/action/package_search", q, &parsed); err != nil {
		return "", err
	}
	if !parsed.Success {
		return "", errors.New("datagov: package_search unsuccessful")
	}
	for _, result := range parsed.Result.Results {
		for _, res := range result.Resources {
			if res.ID != "" {
				return res.ID, nil
			}
		}
	}
	return "", errors.New("datagov: no resources matched keyword")
}

// SearchPlaces runs a free-text record search against a resource and decodes
// name/address-like columns heuristically.
func (c *Client) SearchPlaces(ctx context.Context, resourceID, query string, limit int) ([]domain.Place, error) {
	if limit <= 0 {
		limit = 3
	}
	q := url.Values{}
	q.Set("resource_id", resourceID)
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(limit))

	var parsed datastoreSearchResponse
	if err := c.getJSON(ctx, "/api/action/datastore_search", q, &parsed); err != nil {
		return nil, err
	}
	if !parsed.Success {
		return nil, errors.New("datagov: datastore_search unsuccessful")
	}

	places := make([]domain.Place, 0, len(parsed.Result.Records))
	for _, record := range parsed.Result.Records {
		place := domain.Place{
			Name:    columnValue(record, nameCandidates),
			Address: columnValue(record, addressCandidates),
		}
		if place.Name == "" {
			continue
		}
		places = append(places, place)
	}
	return places, nil
}

// Lookup chains FindResource and SearchPlaces under one deadline.
func (c *Client) Lookup(ctx context.Context, keyword, query string, limit int) ([]domain.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	resourceID, err := c.FindResource(ctx, keyword)
	if err != nil {
		return nil, err
	}
	return c.SearchPlaces(ctx, resourceID, query, limit)
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("datagov: create request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("datagov: request failed: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("datagov: unexpected status %d from %s", res.StatusCode, path)
	}

	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("datagov: read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("datagov: decode response: %w", err)
	}
	return nil
}

// columnValue returns the first record value whose column name contains one
// of the candidate substrings.
func columnValue(record map[string]any, candidates []string) string {
	for _, candidate := range candidates {
		for key, val := range record {
			if !strings.Contains(strings.ToLower(key), candidate) {
				continue
			}
			if s, ok := val.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
