package etl

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/records"
)

// FileStats counts what a loader did with one file (or, summed, a pass).
type FileStats struct {
	Songs       int
	Artists     int
	TimeEntries int
	Users       int
	Songplays   int
	Resolved    int // songplays with a catalog match
	Discarded   int // events whose page is not NextSong
	Skipped     int // malformed records skipped under the Skip policy
}

// Add accumulates o into s.
func (s *FileStats) Add(o FileStats) {
	s.Songs += o.Songs
	s.Artists += o.Artists
	s.TimeEntries += o.TimeEntries
	s.Users += o.Users
	s.Songplays += o.Songplays
	s.Resolved += o.Resolved
	s.Discarded += o.Discarded
	s.Skipped += o.Skipped
}

// LoaderFunc loads one file through store.
type LoaderFunc func(ctx context.Context, store Store, path string) (FileStats, error)

// Loaders holds the two file loaders and the policy they apply to malformed records.
type Loaders struct {
	Policy ErrorPolicy
	Log    logrus.FieldLogger
}

// SongFile loads a song-metadata file: one songs row and one artists row.
// A malformed record fails the file regardless of policy.
func (l *Loaders) SongFile(ctx context.Context, store Store, path string) (FileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("opening song file: %w", err)
	}
	defer f.Close()

	song, err := records.DecodeSong(f, path)
	if err != nil {
		return FileStats{}, err
	}

	if err := store.InsertSong(ctx, songRow(song)); err != nil {
		return FileStats{}, err
	}
	if err := store.InsertArtist(ctx, artistRow(song)); err != nil {
		return FileStats{}, err
	}
	return FileStats{Songs: 1, Artists: 1}, nil
}

// LogFile loads an event-log file. NextSong events produce, in file order,
// one time row each, then one users row each, then one songplays row each.
// Other events are discarded.
func (l *Loaders) LogFile(ctx context.Context, store Store, path string) (FileStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileStats{}, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	raw, malformed, err := records.DecodeEvents(f, path)
	if err != nil {
		return FileStats{}, err
	}

	var stats FileStats
	var events []*records.Event
	for _, rec := range raw {
		page, err := rec.PageName(path)
		if err != nil {
			malformed = append(malformed, asMalformed(err))
			continue
		}
		if page != records.PageNextSong {
			stats.Discarded++
			continue
		}
		event, err := rec.Event(path)
		if err != nil {
			malformed = append(malformed, asMalformed(err))
			continue
		}
		events = append(events, event)
	}

	if len(malformed) > 0 {
		slices.SortFunc(malformed, func(a, b *records.MalformedRecordError) int {
			return cmp.Compare(a.Line, b.Line)
		})
		if l.Policy != Skip {
			return FileStats{}, malformed[0]
		}
		for _, m := range malformed {
			l.logger().WithFields(logrus.Fields{
				"file":  m.Path,
				"line":  m.Line,
				"field": m.Field,
			}).Warn("skipping malformed record: " + m.Reason)
		}
		stats.Skipped = len(malformed)
	}

	for _, e := range events {
		if err := store.InsertTime(ctx, NewTimeEntry(e.Timestamp)); err != nil {
			return FileStats{}, err
		}
		stats.TimeEntries++
	}

	for _, e := range events {
		if err := store.InsertUser(ctx, userRow(e)); err != nil {
			return FileStats{}, err
		}
		stats.Users++
	}

	for _, e := range events {
		match, err := resolveSong(ctx, store, e)
		if err != nil {
			return FileStats{}, err
		}
		play := songplayRow(e, match)
		if err := store.InsertSongplay(ctx, &play); err != nil {
			return FileStats{}, err
		}
		stats.Songplays++
		if match != nil {
			stats.Resolved++
		}
	}

	return stats, nil
}

// resolveSong looks the event's (song, artist, length) up in the catalog.
// Returns nil without error when the event lacks any of the three or there
// is no exact match.
func resolveSong(ctx context.Context, store Store, e *records.Event) (*db.SongMatch, error) {
	if e.Song == nil || e.Artist == nil || e.Length == nil {
		return nil, nil
	}
	match, err := store.FindSong(ctx, *e.Song, *e.Artist, *e.Length)
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (l *Loaders) logger() logrus.FieldLogger {
	if l.Log == nil {
		return logrus.StandardLogger()
	}
	return l.Log
}

// asMalformed unwraps a validation error, wrapping unexpected errors so
// they still sort and report like malformed records.
func asMalformed(err error) *records.MalformedRecordError {
	var m *records.MalformedRecordError
	if errors.As(err, &m) {
		return m
	}
	return &records.MalformedRecordError{Reason: err.Error()}
}
