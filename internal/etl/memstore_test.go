package etl

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/justestif/sparkify-etl/internal/db"
)

// tables is the in-memory state of the five warehouse tables.
type tables struct {
	songs     []db.Song
	artists   []db.Artist
	times     []db.TimeEntry
	users     []db.User
	songplays []db.Songplay
	nextID    int64
}

func (t tables) clone() tables {
	return tables{
		songs:     slices.Clone(t.songs),
		artists:   slices.Clone(t.artists),
		times:     slices.Clone(t.times),
		users:     slices.Clone(t.users),
		songplays: slices.Clone(t.songplays),
		nextID:    t.nextID,
	}
}

// memStore implements Store over a working copy of the tables.
type memStore struct {
	tables
	failSongplay error
}

func (m *memStore) InsertSong(_ context.Context, song db.Song) error {
	m.songs = append(m.songs, song)
	return nil
}

func (m *memStore) InsertArtist(_ context.Context, artist db.Artist) error {
	m.artists = append(m.artists, artist)
	return nil
}

func (m *memStore) InsertTime(_ context.Context, entry db.TimeEntry) error {
	m.times = append(m.times, entry)
	return nil
}

func (m *memStore) InsertUser(_ context.Context, user db.User) error {
	m.users = append(m.users, user)
	return nil
}

// FindSong joins songs to artists and matches title, name and duration exactly.
func (m *memStore) FindSong(_ context.Context, title, artist string, duration float64) (*db.SongMatch, error) {
	for _, s := range m.songs {
		for _, a := range m.artists {
			if a.ID == s.ArtistID && s.Title == title && a.Name == artist && s.Duration == duration {
				return &db.SongMatch{SongID: s.ID, ArtistID: a.ID}, nil
			}
		}
	}
	return nil, db.ErrNotFound
}

func (m *memStore) InsertSongplay(_ context.Context, play *db.Songplay) error {
	if m.failSongplay != nil {
		return m.failSongplay
	}
	m.nextID++
	play.ID = m.nextID
	m.songplays = append(m.songplays, *play)
	return nil
}

// memDB implements Transactor. Each unit of work runs against a copy that
// replaces the committed tables only when fn succeeds.
type memDB struct {
	committed    tables
	commits      int
	rollbacks    int
	failSongplay error
}

func (m *memDB) InTx(_ context.Context, fn func(Store) error) error {
	work := &memStore{tables: m.committed.clone(), failSongplay: m.failSongplay}
	if err := fn(work); err != nil {
		m.rollbacks++
		return err
	}
	m.committed = work.tables
	m.commits++
	return nil
}

var errInjected = errors.New("injected failure")

// writeFile writes content to root/rel, creating parent directories.
func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const (
	songDompfaff = `{"num_songs": 1, "artist_id": "ARJIE2Y1187B994AB7", "artist_latitude": null, "artist_longitude": null, "artist_location": "", "artist_name": "Line Renaud", "song_id": "SOSITWX", "title": "Der Kleine Dompfaff", "duration": 152.92036, "year": 0}`

	songCasual = `{"num_songs": 1, "artist_id": "ARD7TVE1187B99BFB1", "artist_latitude": 35.14968, "artist_longitude": -90.04892, "artist_location": "California - LA", "artist_name": "Casual", "song_id": "SOMZWCG12A8C13C480", "title": "I Didn't Mean To", "duration": 218.93179, "year": 0}`

	eventDompfaff = `{"artist":"Line Renaud","auth":"Logged In","firstName":"Ryan","gender":"M","itemInSession":0,"lastName":"Smith","length":152.92036,"level":"free","location":"San Jose-Sunnyvale-Santa Clara, CA","method":"PUT","page":"NextSong","registration":1541016707796.0,"sessionId":583,"song":"Der Kleine Dompfaff","status":200,"ts":1541290555796,"userAgent":"Mozilla\/5.0 (X11; Linux x86_64)","userId":"26"}`

	eventHome = `{"artist":null,"auth":"Logged In","firstName":"Wyatt","gender":"M","itemInSession":0,"lastName":"Scott","length":null,"level":"free","location":"Eureka-Arcata-Fortuna, CA","method":"GET","page":"Home","registration":1540872073796.0,"sessionId":563,"song":null,"status":200,"ts":1542247071796,"userAgent":"Mozilla\/5.0","userId":"9"}`

	eventLoggedOut = `{"artist":null,"auth":"Logged Out","firstName":null,"gender":null,"itemInSession":0,"lastName":null,"length":null,"level":"free","location":null,"method":"PUT","page":"Login","registration":null,"sessionId":52,"song":null,"status":307,"ts":1541207073796,"userAgent":null,"userId":""}`

	eventUnknownSong = `{"artist":"Sydney Youngblood","auth":"Logged In","firstName":"Jacob","gender":"M","itemInSession":53,"lastName":"Klein","length":238.07955,"level":"paid","location":"Tampa-St. Petersburg-Clearwater, FL","method":"PUT","page":"NextSong","registration":1540558108796.0,"sessionId":954,"song":"Ain't No Sunshine","status":200,"ts":1543279932796,"userAgent":"Mozilla\/5.0 (Macintosh)","userId":"73"}`
)
