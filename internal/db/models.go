package db

import (
	"time"
)

// Song is a row of the songs table.
type Song struct {
	ID       string
	Title    string
	ArtistID string
	Year     int
	Duration float64
}

// Artist is a row of the artists table.
type Artist struct {
	ID        string
	Name      string
	Location  string
	Latitude  *float64 // nullable
	Longitude *float64 // nullable
}

// TimeEntry is a row of the time table: one civil breakdown of a play timestamp.
type TimeEntry struct {
	StartTime time.Time
	Hour      int
	Day       int
	Week      int // ISO 8601 week number
	Month     int
	Year      int
	Weekday   int // Monday = 0 ... Sunday = 6
}

// User is a row of the users table.
type User struct {
	ID        int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
}

// Songplay is a row of the songplays fact table.
type Songplay struct {
	ID        int64 // assigned by the database
	StartTime time.Time
	UserID    int64
	Level     string
	SongID    *string // nullable - set only on an exact catalog match
	ArtistID  *string // nullable - set only on an exact catalog match
	SessionID int64
	Location  string
	UserAgent string
}

// SongMatch is the result of a catalog lookup.
type SongMatch struct {
	SongID   string
	ArtistID string
}
