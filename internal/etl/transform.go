package etl

import (
	"time"

	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/records"
)

// NewTimeEntry breaks a play timestamp down into its UTC calendar fields.
// Week is the ISO 8601 week and Weekday counts from Monday = 0.
func NewTimeEntry(ts time.Time) db.TimeEntry {
	ts = ts.UTC()
	_, week := ts.ISOWeek()
	return db.TimeEntry{
		StartTime: ts,
		Hour:      ts.Hour(),
		Day:       ts.Day(),
		Week:      week,
		Month:     int(ts.Month()),
		Year:      ts.Year(),
		Weekday:   (int(ts.Weekday()) + 6) % 7,
	}
}

func songRow(s *records.Song) db.Song {
	return db.Song{
		ID:       s.SongID,
		Title:    s.Title,
		ArtistID: s.ArtistID,
		Year:     s.Year,
		Duration: s.Duration,
	}
}

func artistRow(s *records.Song) db.Artist {
	return db.Artist{
		ID:        s.ArtistID,
		Name:      s.ArtistName,
		Location:  s.ArtistLocation,
		Latitude:  s.ArtistLatitude,
		Longitude: s.ArtistLongitude,
	}
}

func userRow(e *records.Event) db.User {
	return db.User{
		ID:        e.UserID,
		FirstName: e.FirstName,
		LastName:  e.LastName,
		Gender:    e.Gender,
		Level:     e.Level,
	}
}

func songplayRow(e *records.Event, match *db.SongMatch) db.Songplay {
	play := db.Songplay{
		StartTime: e.Timestamp,
		UserID:    e.UserID,
		Level:     e.Level,
		SessionID: e.SessionID,
		Location:  e.Location,
		UserAgent: e.UserAgent,
	}
	if match != nil {
		songID, artistID := match.SongID, match.ArtistID
		play.SongID = &songID
		play.ArtistID = &artistID
	}
	return play
}
