package matching

import (
	"fmt"
	"strings"
	"time"
)

// Level is a seniority level, ordered entry < mid < senior < executive.
type Level int

const (
	LevelUnspecified Level = iota
	LevelEntry
	LevelMid
	LevelSenior
	LevelExecutive
)

var levelNames = map[Level]string{
	LevelEntry:     "entry",
	LevelMid:       "mid",
	LevelSenior:    "senior",
	LevelExecutive: "executive",
}

func (l Level) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return "unspecified"
}

// ParseLevel accepts the level names case-insensitively.
func ParseLevel(s string) (Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return LevelUnspecified, nil
	}
	for l, name := range levelNames {
		if name == s {
			return l, nil
		}
	}
	return LevelUnspecified, fmt.Errorf("unknown experience level %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if l == LevelUnspecified {
		return []byte{}, nil
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Location is a place; any populated field may match.
type Location struct {
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Country string `json:"country,omitempty"`
}

// Job is the part of a job posting the engine looks at.
type Job struct {
	ID       string   `json:"id"`
	Skills   []string `json:"skills"`
	Level    Level    `json:"experience_level"`
	Location Location `json:"location"`
	Remote   bool     `json:"remote"`
}

// WorkEntry is one position in a candidate's history. A current position
// runs until the scoring time.
type WorkEntry struct {
	Title   string    `json:"title,omitempty"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end,omitempty"`
	Current bool      `json:"current"`
}

// Engagement carries the activity signals used for the engagement component.
type Engagement struct {
	LastActiveAt time.Time `json:"last_active_at,omitempty"`
	ProfileViews int       `json:"profile_views"`
	Applications int       `json:"applications"`
}

// Candidate is an enriched candidate profile.
type Candidate struct {
	ID          string      `json:"id"`
	Name        string      `json:"name,omitempty"`
	Skills      []string    `json:"skills"`
	WorkHistory []WorkEntry `json:"work_history"`
	Location    Location    `json:"location"`
	Engagement  Engagement  `json:"engagement"`
}

// Components are the weighted parts of a score, each within its maximum.
type Components struct {
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
	Location   float64 `json:"location"`
	Engagement float64 `json:"engagement"`
}

// Sum adds the components.
func (c Components) Sum() float64 {
	return c.Skills + c.Experience + c.Location + c.Engagement
}

// MatchScore compares one job with one candidate.
type MatchScore struct {
	Components Components `json:"components"`
	Total      int        `json:"total"`
	Reasons    []string   `json:"reasons"`
}
