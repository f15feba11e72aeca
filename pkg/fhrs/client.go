// Package fhrs is a client for the UK Food Hygiene Rating Scheme API
// (api.ratings.food.gov.uk, API version 2) used to acquire the
// hygiene-inspection registry.
package fhrs

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://api.ratings.food.gov.uk"

// Client performs FHRS API operations.
type Client interface {
	// Search returns one page of establishments around a point.
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
	// SearchAll pages through every establishment around a point.
	SearchAll(ctx context.Context, req SearchRequest) ([]Establishment, error)
}

// SearchRequest describes a geographic establishment search.
type SearchRequest struct {
	Lat           float64
	Lng           float64
	MaxDistMiles  float64
	CountryID     int    // 1 = England
	SchemeTypeKey string // "FHRS" (hygiene ratings, not Scottish FHIS)
	PageNumber    int
	PageSize      int
}

// SearchResponse is one page of a geographic search.
type SearchResponse struct {
	Establishments []Establishment `json:"establishments"`
}

// Establishment is an FHRS establishment as returned by the API. Geocode
// coordinates arrive as decimal strings and may be empty for entries the
// registry never geocoded.
type Establishment struct {
	FHRSID         int64   `json:"FHRSID"`
	BusinessName   string  `json:"BusinessName"`
	BusinessType   string  `json:"BusinessType"`
	AddressLine1   string  `json:"AddressLine1"`
	AddressLine2   string  `json:"AddressLine2"`
	AddressLine3   string  `json:"AddressLine3"`
	AddressLine4   string  `json:"AddressLine4"`
	PostCode       string  `json:"PostCode"`
	RatingValue    string  `json:"RatingValue"`
	RatingKey      string  `json:"RatingKey"`
	RatingDate     string  `json:"RatingDate"`
	LocalAuthority string  `json:"LocalAuthorityName"`
	SchemeType     string  `json:"SchemeType"`
	Scores         Scores  `json:"scores"`
	Geocode        Geocode `json:"geocode"`
}

// Scores holds the three inspection component scores. The API omits them for
// establishments awaiting inspection.
type Scores struct {
	Hygiene                *int `json:"Hygiene"`
	Structural             *int `json:"Structural"`
	ConfidenceInManagement *int `json:"ConfidenceInManagement"`
}

// Geocode holds an establishment's coordinates as published.
type Geocode struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an FHRS API client. The API requires no key, only the
// x-api-version header.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(req.Lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(req.Lng, 'f', -1, 64))
	q.Set("maxDistanceLimit", strconv.FormatFloat(req.MaxDistMiles, 'f', -1, 64))
	q.Set("countryId", strconv.Itoa(req.CountryID))
	q.Set("schemeTypeKey", req.SchemeTypeKey)
	q.Set("pageNumber", strconv.Itoa(req.PageNumber))
	q.Set("pageSize", strconv.Itoa(req.PageSize))
	q.Set("sortOptionKey", "distance")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/Establishments?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fhrs: create request")
	}
	httpReq.Header.Set("x-api-version", "2")
	httpReq.Header.Set("accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "fhrs: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "fhrs: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("fhrs: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result SearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "fhrs: unmarshal response")
	}

	return &result, nil
}

// SearchAll pages through the search until a page comes back short or empty.
func (c *httpClient) SearchAll(ctx context.Context, req SearchRequest) ([]Establishment, error) {
	if req.PageSize <= 0 {
		req.PageSize = 500
	}
	req.PageNumber = 1

	var all []Establishment
	for {
		page, err := c.Search(ctx, req)
		if err != nil {
			return nil, eris.Wrapf(err, "fhrs: page %d", req.PageNumber)
		}
		if len(page.Establishments) == 0 {
			return all, nil
		}
		all = append(all, page.Establishments...)
		if len(page.Establishments) < req.PageSize {
			return all, nil
		}
		req.PageNumber++
	}
}
