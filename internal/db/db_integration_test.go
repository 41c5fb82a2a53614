//go:build integration

package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/justestif/sparkify-etl/internal/dbtest"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()

	database, err := New(ctx, dbtest.Start(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(database.Close)

	if err := database.Setup(ctx); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	return database
}

func TestSetup_Idempotent(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	if err := q.InsertUser(ctx, User{ID: 26, FirstName: "Ryan", LastName: "Smith", Gender: "M", Level: "free"}); err != nil {
		t.Fatal(err)
	}
	if err := database.Setup(ctx); err != nil {
		t.Fatalf("second Setup() error = %v", err)
	}

	counts, err := database.Stats().Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range TableNames {
		if counts.Tables[table] != 0 {
			t.Errorf("%s has %d rows after Setup, want 0", table, counts.Tables[table])
		}
	}

	if err := database.CreateTables(ctx); err != nil {
		t.Errorf("CreateTables() on existing tables error = %v", err)
	}
}

func TestFindSong(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	if err := q.InsertSong(ctx, Song{ID: "SOSITWX", Title: "Der Kleine Dompfaff", ArtistID: "ARJIE2Y1187B994AB7", Duration: 152.92036}); err != nil {
		t.Fatal(err)
	}
	if err := q.InsertArtist(ctx, Artist{ID: "ARJIE2Y1187B994AB7", Name: "Line Renaud"}); err != nil {
		t.Fatal(err)
	}

	match, err := q.FindSong(ctx, "Der Kleine Dompfaff", "Line Renaud", 152.92036)
	if err != nil {
		t.Fatalf("FindSong() error = %v", err)
	}
	if match.SongID != "SOSITWX" || match.ArtistID != "ARJIE2Y1187B994AB7" {
		t.Errorf("FindSong() = %+v", match)
	}

	misses := []struct {
		title    string
		artist   string
		duration float64
	}{
		{"Der Kleine Dompfaff", "Line Renaud", 152.92037},
		{"Der Kleine Dompfaff", "line renaud", 152.92036},
		{"Der kleine Dompfaff", "Line Renaud", 152.92036},
	}
	for _, m := range misses {
		if _, err := q.FindSong(ctx, m.title, m.artist, m.duration); !errors.Is(err, ErrNotFound) {
			t.Errorf("FindSong(%q, %q, %v) error = %v, want ErrNotFound", m.title, m.artist, m.duration, err)
		}
	}
}

func TestInTx_Rollback(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := database.InTx(ctx, func(q *Queries) error {
		if err := q.InsertTime(ctx, TimeEntry{StartTime: time.UnixMilli(1541290555796).UTC()}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("InTx() error = %v, want %v", err, errBoom)
	}

	err = database.InTx(ctx, func(q *Queries) error {
		return q.InsertTime(ctx, TimeEntry{StartTime: time.UnixMilli(1541290555796).UTC(), Day: 4, Weekday: 6})
	})
	if err != nil {
		t.Fatalf("InTx() error = %v", err)
	}

	counts, err := database.Stats().Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Tables["time"] != 1 {
		t.Errorf("time rows = %d, want 1", counts.Tables["time"])
	}
}

func TestSongplaysAndStats(t *testing.T) {
	database := openTestDB(t)
	ctx := context.Background()
	q := database.Queries()

	if err := q.InsertSong(ctx, Song{ID: "SOSITWX", Title: "Der Kleine Dompfaff", ArtistID: "ARJIE2Y1187B994AB7", Duration: 152.92036}); err != nil {
		t.Fatal(err)
	}
	if err := q.InsertArtist(ctx, Artist{ID: "ARJIE2Y1187B994AB7", Name: "Line Renaud"}); err != nil {
		t.Fatal(err)
	}

	songID, artistID := "SOSITWX", "ARJIE2Y1187B994AB7"
	start := time.UnixMilli(1541290555796).UTC()
	plays := []*Songplay{
		{StartTime: start, UserID: 26, Level: "free", SongID: &songID, ArtistID: &artistID, SessionID: 583},
		{StartTime: start.Add(time.Hour), UserID: 26, Level: "free", SessionID: 583},
		{StartTime: start.Add(20 * time.Hour), UserID: 73, Level: "paid", SessionID: 954},
	}
	for i, p := range plays {
		if err := q.InsertSongplay(ctx, p); err != nil {
			t.Fatal(err)
		}
		if p.ID != int64(i+1) {
			t.Errorf("songplay %d got ID %d", i, p.ID)
		}
	}

	stats := database.Stats()

	counts, err := stats.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if counts.Tables["songplays"] != 3 || counts.ResolvedSongplays != 1 {
		t.Errorf("counts = %+v", counts)
	}

	top, err := stats.TopSongs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 1 || top[0].Title != "Der Kleine Dompfaff" || top[0].Artist != "Line Renaud" || top[0].Plays != 1 {
		t.Errorf("TopSongs() = %+v", top)
	}

	userPlays, err := stats.UserSongplays(ctx, 26, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(userPlays) != 2 || !userPlays[0].StartTime.Equal(start) || userPlays[1].SongID != nil {
		t.Errorf("UserSongplays() = %+v", userPlays)
	}

	listening, err := stats.Listening(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(listening) != 2 {
		t.Fatalf("Listening() returned %d users, want 2", len(listening))
	}
	ryan := listening[0]
	if ryan.UserID != 26 || ryan.Night != 2 || ryan.Weekend != 2 || ryan.Total != 2 {
		t.Errorf("user 26 listening = %+v", ryan)
	}
	if listening[1].Evening != 1 {
		t.Errorf("user 73 listening = %+v", listening[1])
	}
}

func TestRecreateDatabase(t *testing.T) {
	ctx := context.Background()
	dsn := dbtest.Start(t)

	for range 2 {
		if err := RecreateDatabase(ctx, dsn, "scratch db"); err != nil {
			t.Fatalf("RecreateDatabase() error = %v", err)
		}
	}
}

func TestRecreateDatabase_KeepsServerError(t *testing.T) {
	ctx := context.Background()
	dsn := dbtest.Start(t)

	// The maintenance connection is open on sparkifydb, so it cannot drop it.
	err := RecreateDatabase(ctx, dsn, "sparkifydb")
	if !errors.Is(err, ErrSchema) {
		t.Fatalf("RecreateDatabase() error = %v, want ErrSchema", err)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("RecreateDatabase() error %v does not wrap *pgconn.PgError", err)
	}
	if pgErr.Code != "55006" {
		t.Errorf("SQLSTATE = %s, want 55006 (object in use)", pgErr.Code)
	}
}
