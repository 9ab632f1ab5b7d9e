package metadata

import "github.com/goccy/go-json"

// Summary holds the few fields of a details payload worth logging.
// Movies carry title/release_date, shows carry name/first_air_date.
type Summary struct {
	ID           int    `json:"id"`
	Title        string `json:"title,omitempty"`
	Name         string `json:"name,omitempty"`
	ReleaseDate  string `json:"release_date,omitempty"`
	FirstAirDate string `json:"first_air_date,omitempty"`
}

func summarize(body []byte) (Summary, bool) {
	var s Summary
	if err := json.Unmarshal(body, &s); err != nil {
		return Summary{}, false
	}
	return s, s.ID != 0
}

func (s Summary) DisplayTitle() string {
	if s.Title != "" {
		return s.Title
	}
	return s.Name
}

// Year extracts the year from the release or first air date (YYYY-MM-DD)
func (s Summary) Year() string {
	date := s.ReleaseDate
	if date == "" {
		date = s.FirstAirDate
	}
	if len(date) >= 4 {
		return date[:4]
	}
	return ""
}
