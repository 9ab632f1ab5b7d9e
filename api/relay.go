package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"animerelay/logging"
	"animerelay/metadata"
	"animerelay/types"
	"animerelay/validation"
)

const lookupPrefix = "/api/anime/by-tmdb"

// DetailsFetcher performs a single TMDb details lookup
type DetailsFetcher interface {
	FetchDetails(ctx context.Context, mediaType types.MediaType, id int) (json.RawMessage, error)
}

type Options struct {
	// CORSOrigins defaults to "*"
	CORSOrigins []string
	// Metrics exposes GET /metrics
	Metrics bool
}

// Relay serves the lookup routes and relays TMDb responses
type Relay struct {
	fetcher DetailsFetcher
	router  http.Handler
}

func NewRelay(fetcher DetailsFetcher, opts Options) *Relay {
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}

	rl := &Relay{fetcher: fetcher}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Instrument)
	r.Use(Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{RequestIDHeader},
		MaxAge:         86400,
	}))

	r.NotFound(rl.handleNotFound)
	r.MethodNotAllowed(rl.handleMethodNotAllowed)

	r.Get("/", rl.handleIndex)
	r.Get(lookupPrefix+"/*", rl.handleLookup)
	if opts.Metrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	rl.router = r
	return rl
}

// ServeHTTP implements http.Handler
func (rl *Relay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rl.router.ServeHTTP(w, r)
}

func (rl *Relay) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, index)
}

// handleLookup serves /api/anime/by-tmdb/{id}?type=tv|movie
func (rl *Relay) handleLookup(w http.ResponseWriter, r *http.Request) {
	id, err := parseTMDBID(chi.URLParam(r, "*"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid TMDB ID format")
		return
	}

	req := types.LookupRequest{ID: id, Type: r.URL.Query().Get("type")}
	if err := validation.ValidateStruct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, types.ErrInvalidMediaType.Error())
		return
	}
	mediaType := req.MediaType()

	// the lookup outlives a client that hangs up; only the client timeout bounds it
	ctx := context.WithoutCancel(r.Context())

	data, err := rl.fetcher.FetchDetails(ctx, mediaType, id)
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		logging.Ctx(ctx).Info().Int("tmdb_id", id).Str("media_type", mediaType.String()).Msg("🔍 No TMDB match")
		writeJSON(w, r, http.StatusNotFound, NoMatchResponse{
			Matched: false,
			Message: "No TMDb match found",
		})
	case err != nil:
		logging.Ctx(ctx).Error().Err(err).Int("tmdb_id", id).Str("media_type", mediaType.String()).Msg("❌ TMDB lookup failed")
		writeError(w, r, http.StatusInternalServerError, "Internal server error: "+err.Error())
	default:
		writeJSON(w, r, http.StatusOK, LookupResponse{
			Matched:  true,
			TMDBID:   id,
			TMDBType: mediaType,
			TMDBData: data,
		})
	}
}

// parseTMDBID takes the last path segment after the lookup prefix
func parseTMDBID(rest string) (int, error) {
	segments := strings.Split(rest, "/")
	return strconv.Atoi(strings.TrimSpace(segments[len(segments)-1]))
}

func (rl *Relay) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusNotFound, "Route not found")
}

func (rl *Relay) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed")
}
