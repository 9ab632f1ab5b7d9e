package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"animerelay/logging"
	"animerelay/types"
)

// IndexResponse describes the available routes
type IndexResponse struct {
	OK          bool     `json:"ok"`
	Routes      []string `json:"routes"`
	EnvRequired []string `json:"env_required"`
	Notes       []string `json:"notes"`
}

// LookupResponse wraps a TMDb payload that was found
type LookupResponse struct {
	Matched  bool            `json:"matched"`
	TMDBID   int             `json:"tmdb_id"`
	TMDBType types.MediaType `json:"tmdb_type"`
	TMDBData json.RawMessage `json:"tmdb_data"`
}

// NoMatchResponse is returned when TMDb has no entry for the id
type NoMatchResponse struct {
	Matched bool   `json:"matched"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

var index = IndexResponse{
	OK: true,
	Routes: []string{
		"/api/anime/by-tmdb/<tmdb_id>?type=tv",
		"/api/anime/by-tmdb/<tmdb_id>?type=movie",
	},
	EnvRequired: []string{"TMDB_API_KEY"},
	Notes: []string{
		"Uses TMDb API directly",
		"Append '?type=tv' for anime series, '?type=movie' for anime films",
		"Response includes titles, overview, episodes, genres, credits, images, external ids",
	},
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("❌ Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, r, status, ErrorResponse{Error: message})
}
