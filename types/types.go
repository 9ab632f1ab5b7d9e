package types

import "errors"

// MediaType selects which TMDb resource kind a lookup targets
type MediaType string

const (
	MediaTypeTV    MediaType = "tv"
	MediaTypeMovie MediaType = "movie"

	// DefaultMediaType is used when the caller does not ask for a type
	DefaultMediaType = MediaTypeTV
)

var ErrInvalidMediaType = errors.New("type must be tv or movie")

// ParseMediaType maps a raw query value to a MediaType. An empty value
// selects DefaultMediaType.
func ParseMediaType(raw string) (MediaType, error) {
	switch MediaType(raw) {
	case "":
		return DefaultMediaType, nil
	case MediaTypeTV, MediaTypeMovie:
		return MediaType(raw), nil
	}
	return "", ErrInvalidMediaType
}

func (m MediaType) String() string {
	return string(m)
}

// LookupRequest represents a parsed by-tmdb lookup
type LookupRequest struct {
	ID   int    `validate:"-"`
	Type string `validate:"omitempty,oneof=tv movie"`
}

// MediaType returns the requested type, falling back to the default
func (r LookupRequest) MediaType() MediaType {
	if r.Type == "" {
		return DefaultMediaType
	}
	return MediaType(r.Type)
}
