package metadata

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"animerelay/logging"
	"animerelay/metrics"
	"animerelay/types"
)

const (
	DefaultBaseURL = "https://api.themoviedb.org/3"
	Language       = "en-US"

	defaultTimeout = 15 * time.Second
	userAgent      = "AnimeRelay/1.0"
)

// AppendToResponse lists the sub-resources requested alongside the details
var AppendToResponse = []string{"credits", "images", "external_ids"}

var (
	ErrNotFound      = errors.New("no TMDb match found")
	ErrInvalidAPIKey = errors.New("TMDB API key is invalid")
	ErrRateLimited   = errors.New("TMDB rate limit exceeded")
)

// StatusError is returned for any unexpected non-2xx TMDb status
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("TMDB API error: status %d", e.StatusCode)
}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Breaker is optional; nil disables the circuit breaker.
	Breaker *BreakerSettings
	// Client overrides the HTTP client, Timeout is ignored when set.
	Client *http.Client
}

// Provider looks up TMDb details for a single title
type Provider struct {
	tmdbAPIKey string
	baseURL    string
	client     *http.Client
	breaker    *gobreaker.CircuitBreaker[json.RawMessage]
}

func NewMetadataProvider(cfg Config) *Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: cfg.Timeout,
		}
	}

	mp := &Provider{
		tmdbAPIKey: cfg.APIKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     client,
	}
	if cfg.Breaker != nil {
		mp.breaker = newBreaker(*cfg.Breaker)
	}
	return mp
}

// FetchDetails returns the raw TMDb details payload for id, with credits,
// images and external ids appended. A TMDb 404 or an empty payload yields
// ErrNotFound. The call is made exactly once.
func (mp *Provider) FetchDetails(ctx context.Context, mediaType types.MediaType, id int) (json.RawMessage, error) {
	start := time.Now()

	var (
		data json.RawMessage
		err  error
	)
	if mp.breaker != nil {
		data, err = mp.breaker.Execute(func() (json.RawMessage, error) {
			return mp.fetchDetails(ctx, mediaType, id)
		})
	} else {
		data, err = mp.fetchDetails(ctx, mediaType, id)
	}

	metrics.RecordTMDBRequest(mediaType.String(), outcomeOf(err), time.Since(start))
	return data, err
}

func (mp *Provider) fetchDetails(ctx context.Context, mediaType types.MediaType, id int) (json.RawMessage, error) {
	apiURL := fmt.Sprintf(
		"%s/%s/%s",
		mp.baseURL,
		url.PathEscape(mediaType.String()),
		strconv.Itoa(id),
	)

	params := url.Values{}
	params.Set("api_key", mp.tmdbAPIKey)
	params.Set("language", Language)
	params.Set("append_to_response", strings.Join(AppendToResponse, ","))

	fullURL := apiURL + "?" + params.Encode()

	logging.Ctx(ctx).Debug().
		Str("media_type", mediaType.String()).
		Int("tmdb_id", id).
		Msg("🔍 Fetching details from TMDB")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := mp.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", redactKey(err, mp.tmdbAPIKey))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrInvalidAPIKey
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	empty, err := isEmptyPayload(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if empty {
		return nil, ErrNotFound
	}

	if s, ok := summarize(body); ok {
		logging.Ctx(ctx).Info().
			Str("media_type", mediaType.String()).
			Int("tmdb_id", id).
			Str("title", s.DisplayTitle()).
			Str("year", s.Year()).
			Msg("✅ Found TMDB entry")
	}

	return json.RawMessage(body), nil
}

// isEmptyPayload reports whether body decodes to a JSON zero value
func isEmptyPayload(body []byte) (bool, error) {
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return false, err
	}
	switch t := v.(type) {
	case nil:
		return true, nil
	case map[string]interface{}:
		return len(t) == 0, nil
	case []interface{}:
		return len(t) == 0, nil
	case string:
		return t == "", nil
	case float64:
		return t == 0, nil
	case bool:
		return !t, nil
	}
	return false, nil
}

// redactKey strips the API key from transport errors, which embed the URL
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), key, "REDACTED"))
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeFound
	case errors.Is(err, ErrNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}
