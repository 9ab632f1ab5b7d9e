package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animerelay/logging"
	"animerelay/metadata"
	"animerelay/types"
)

type fakeFetcher struct {
	data  json.RawMessage
	err   error
	panic bool

	calls     int
	mediaType types.MediaType
	id        int
	ctx       context.Context
}

func (f *fakeFetcher) FetchDetails(ctx context.Context, mediaType types.MediaType, id int) (json.RawMessage, error) {
	f.calls++
	f.mediaType = mediaType
	f.id = id
	f.ctx = ctx
	if f.panic {
		panic("boom")
	}
	return f.data, f.err
}

func doRequest(t *testing.T, h http.Handler, method, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var body map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestIndex(t *testing.T) {
	relay := NewRelay(&fakeFetcher{}, Options{})

	rec, body := doRequest(t, relay, http.MethodGet, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, true, body["ok"])

	routes, ok := body["routes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, routes, 2)
	assert.Equal(t, []interface{}{"TMDB_API_KEY"}, body["env_required"])
}

func TestLookup(t *testing.T) {
	payload := json.RawMessage(`{"id":1429,"name":"Attack on Titan"}`)

	tests := []struct {
		name         string
		target       string
		fetcher      *fakeFetcher
		expectStatus int
		expectCalls  int
		check        func(t *testing.T, body map[string]interface{}, f *fakeFetcher)
	}{
		{
			name:         "tv by default",
			target:       "/api/anime/by-tmdb/1429",
			fetcher:      &fakeFetcher{data: payload},
			expectStatus: http.StatusOK,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, true, body["matched"])
				assert.Equal(t, float64(1429), body["tmdb_id"])
				assert.Equal(t, "tv", body["tmdb_type"])
				data := body["tmdb_data"].(map[string]interface{})
				assert.Equal(t, "Attack on Titan", data["name"])
				assert.Equal(t, types.MediaTypeTV, f.mediaType)
				assert.Equal(t, 1429, f.id)
			},
		},
		{
			name:         "movie",
			target:       "/api/anime/by-tmdb/129?type=movie",
			fetcher:      &fakeFetcher{data: payload},
			expectStatus: http.StatusOK,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "movie", body["tmdb_type"])
				assert.Equal(t, types.MediaTypeMovie, f.mediaType)
			},
		},
		{
			name:         "empty type falls back to tv",
			target:       "/api/anime/by-tmdb/5?type=",
			fetcher:      &fakeFetcher{data: payload},
			expectStatus: http.StatusOK,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "tv", body["tmdb_type"])
			},
		},
		{
			name:         "non integer id",
			target:       "/api/anime/by-tmdb/abc",
			fetcher:      &fakeFetcher{},
			expectStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "Invalid TMDB ID format", body["error"])
			},
		},
		{
			name:         "empty id",
			target:       "/api/anime/by-tmdb/",
			fetcher:      &fakeFetcher{},
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "id is checked before type",
			target:       "/api/anime/by-tmdb/abc?type=book",
			fetcher:      &fakeFetcher{},
			expectStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "Invalid TMDB ID format", body["error"])
			},
		},
		{
			name:         "invalid type",
			target:       "/api/anime/by-tmdb/123?type=book",
			fetcher:      &fakeFetcher{},
			expectStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "type must be tv or movie", body["error"])
			},
		},
		{
			name:         "last segment is the id",
			target:       "/api/anime/by-tmdb/extra/42",
			fetcher:      &fakeFetcher{data: payload},
			expectStatus: http.StatusOK,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, float64(42), body["tmdb_id"])
			},
		},
		{
			name:         "upstream not found",
			target:       "/api/anime/by-tmdb/99999999",
			fetcher:      &fakeFetcher{err: metadata.ErrNotFound},
			expectStatus: http.StatusNotFound,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, false, body["matched"])
				assert.Equal(t, "No TMDb match found", body["message"])
			},
		},
		{
			name:         "upstream failure",
			target:       "/api/anime/by-tmdb/1",
			fetcher:      &fakeFetcher{err: &metadata.StatusError{StatusCode: 503}},
			expectStatus: http.StatusInternalServerError,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "Internal server error: TMDB API error: status 503", body["error"])
			},
		},
		{
			name:         "panic becomes 500",
			target:       "/api/anime/by-tmdb/1",
			fetcher:      &fakeFetcher{panic: true},
			expectStatus: http.StatusInternalServerError,
			expectCalls:  1,
			check: func(t *testing.T, body map[string]interface{}, f *fakeFetcher) {
				assert.Equal(t, "Internal server error: boom", body["error"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			relay := NewRelay(tt.fetcher, Options{})

			rec, body := doRequest(t, relay, http.MethodGet, tt.target)
			assert.Equal(t, tt.expectStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.expectCalls, tt.fetcher.calls)
			if tt.expectStatus == http.StatusBadRequest {
				assert.Contains(t, body, "error")
			}
			if tt.check != nil {
				tt.check(t, body, tt.fetcher)
			}
		})
	}
}

func TestUnknownRoute(t *testing.T) {
	relay := NewRelay(&fakeFetcher{}, Options{})

	for _, target := range []string{"/unknown/path", "/api/anime/by-tmdb", "/metrics"} {
		rec, body := doRequest(t, relay, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		assert.Equal(t, "Route not found", body["error"], target)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	relay := NewRelay(&fakeFetcher{}, Options{})

	rec, body := doRequest(t, relay, http.MethodPost, "/api/anime/by-tmdb/1")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method not allowed", body["error"])
}

func TestLookupDoesNotPropagateCancellation(t *testing.T) {
	f := &fakeFetcher{data: json.RawMessage(`{"id":1}`)}
	relay := NewRelay(f, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/anime/by-tmdb/1", nil).WithContext(ctx)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, f.ctx)
	assert.NoError(t, f.ctx.Err())
	assert.Equal(t, "abc-123", logging.RequestIDFromContext(f.ctx))
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestRequestIDGenerated(t *testing.T) {
	relay := NewRelay(&fakeFetcher{}, Options{})
	rec, _ := doRequest(t, relay, http.MethodGet, "/")
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestMetricsEndpoint(t *testing.T) {
	relay := NewRelay(&fakeFetcher{}, Options{Metrics: true})
	doRequest(t, relay, http.MethodGet, "/")

	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "animerelay_http_requests_total")
}

func TestCORS(t *testing.T) {
	relay := NewRelay(&fakeFetcher{}, Options{})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()
	relay.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

// end to end through the real TMDb client against a fake upstream
func TestLookupAgainstUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tv/1429":
			_, _ = w.Write([]byte(`{"id":1429,"name":"Attack on Titan"}`))
		case "/tv/500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"status_code":34,"status_message":"The resource you requested could not be found."}`))
		}
	}))
	defer upstream.Close()

	provider := metadata.NewMetadataProvider(metadata.Config{APIKey: "k", BaseURL: upstream.URL})
	relay := NewRelay(provider, Options{})

	rec, body := doRequest(t, relay, http.MethodGet, "/api/anime/by-tmdb/1429")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, float64(1429), body["tmdb_id"])

	rec, body = doRequest(t, relay, http.MethodGet, "/api/anime/by-tmdb/7")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, false, body["matched"])

	rec, body = doRequest(t, relay, http.MethodGet, "/api/anime/by-tmdb/500")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal server error: TMDB API error: status 500", body["error"])
}

func TestParseTMDBID(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"123", 123, false},
		{" 7 ", 7, false},
		{"a/b/9", 9, false},
		{"-3", -3, false},
		{"", 0, true},
		{"12/", 0, true},
		{"1.5", 0, true},
	}
	for _, tt := range tests {
		got, err := parseTMDBID(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}
