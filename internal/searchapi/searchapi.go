// Package searchapi queries the NVA search API with automatic
// pagination.
package searchapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/httpx"
	"github.com/BIBSYSDEV/nva-aws-cli-tools/internal/logger"
)

// DefaultAPIVersion pins the resource search media type version.
const DefaultAPIVersion = "2024-12-01"

// DefaultPageSize is the page size used when the caller does not set
// one.
const DefaultPageSize = 100

// Hit is one search result.
type Hit struct {
	Identifier     string `json:"identifier"`
	RecordMetadata struct {
		ModifiedDate string `json:"modifiedDate"`
	} `json:"recordMetadata"`

	raw json.RawMessage
}

// Raw returns the full hit document.
func (h Hit) Raw() json.RawMessage { return h.raw }

type searchResponse struct {
	Hits      []json.RawMessage `json:"hits"`
	TotalHits int               `json:"totalHits"`
}

// Service queries the search API of one environment.
type Service struct {
	api       *httpx.Client
	apiDomain string
	limiter   *rate.Limiter
	log       logger.Logger
}

// New creates a Service. Requests are rate limited to stay friendly
// to the shared search backend.
func New(api *httpx.Client, apiDomain string) *Service {
	return &Service{
		api:       api,
		apiDomain: apiDomain,
		limiter:   rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		log:       logger.New("searchapi"),
	}
}

func (s *Service) resourceURL(params url.Values) string {
	return fmt.Sprintf("https://%s/search/resources?%s", s.apiDomain, params.Encode())
}

func (s *Service) fetchPage(ctx context.Context, params url.Values) (*searchResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var response searchResponse
	if err := s.api.GetJSON(ctx, s.resourceURL(params), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func decodeHit(raw json.RawMessage) (Hit, error) {
	var hit Hit
	if err := json.Unmarshal(raw, &hit); err != nil {
		return Hit{}, fmt.Errorf("decode search hit: %w", err)
	}
	hit.raw = raw
	return hit, nil
}

// ForEachHit pages through resource search results with from/results
// offsets, invoking fn for every hit until totalHits is reached.
func (s *Service) ForEachHit(ctx context.Context, query url.Values, pageSize int, fn func(Hit) error) error {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	offset := 0
	for {
		params := url.Values{}
		for key, values := range query {
			params[key] = values
		}
		params.Set("from", fmt.Sprint(offset))
		params.Set("results", fmt.Sprint(pageSize))

		s.log.Debug("fetching search page",
			logger.Int("from", offset),
			logger.Int("results", pageSize))

		response, err := s.fetchPage(ctx, params)
		if err != nil {
			return err
		}
		if len(response.Hits) == 0 {
			return nil
		}

		for _, raw := range response.Hits {
			hit, err := decodeHit(raw)
			if err != nil {
				return err
			}
			if err := fn(hit); err != nil {
				return err
			}
		}

		offset += len(response.Hits)
		if offset >= response.TotalHits {
			return nil
		}
	}
}

// CollectIdentifiers pages through results with a modified-date
// cursor, which survives deep result sets better than offsets. The
// returned identifiers are deduplicated; iteration stops when a page
// is empty or the cursor stops advancing.
func (s *Service) CollectIdentifiers(ctx context.Context, query url.Values) ([]string, error) {
	seen := make(map[string]bool)
	var identifiers []string
	modifiedSince := ""

	for {
		params := url.Values{}
		for key, values := range query {
			params[key] = values
		}
		if params.Get("sort") == "" {
			params.Set("sort", "modified_date:asc")
		}
		if params.Get("size") == "" {
			params.Set("size", fmt.Sprint(DefaultPageSize))
		}
		if modifiedSince != "" {
			params.Set("modified_since", modifiedSince)
		}

		s.log.Debug("fetching search page", logger.String("modified_since", modifiedSince))

		response, err := s.fetchPage(ctx, params)
		if err != nil {
			return nil, err
		}
		if len(response.Hits) == 0 {
			return identifiers, nil
		}

		var lastModified string
		for _, raw := range response.Hits {
			hit, err := decodeHit(raw)
			if err != nil {
				return nil, err
			}
			if hit.Identifier != "" && !seen[hit.Identifier] {
				seen[hit.Identifier] = true
				identifiers = append(identifiers, hit.Identifier)
			}
			lastModified = hit.RecordMetadata.ModifiedDate
		}

		if lastModified == "" || lastModified == modifiedSince {
			return identifiers, nil
		}
		modifiedSince = lastModified
	}
}

// NewClient builds the HTTP client used against the search API, with
// the versioned Accept header.
func NewClient(opts ...httpx.Option) *httpx.Client {
	base := []httpx.Option{
		httpx.WithHeader("Accept", "application/json; version="+DefaultAPIVersion),
		httpx.WithRetryWait(2*time.Second, 30*time.Second),
	}
	return httpx.New(append(base, opts...)...)
}
