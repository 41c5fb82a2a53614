package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

func (s Song) args() []any {
	return []any{s.ID, s.Title, s.ArtistID, s.Year, s.Duration}
}

// InsertSong inserts one songs row. Duplicate song IDs are not rejected.
func (q *Queries) InsertSong(ctx context.Context, song Song) error {
	if _, err := q.q.Exec(ctx, songTableInsert, song.args()...); err != nil {
		return fmt.Errorf("inserting song: %w", err)
	}
	return nil
}

// FindSong looks up the catalog for a song with exactly this title, artist
// name and duration. Returns ErrNotFound when there is no match.
func (q *Queries) FindSong(ctx context.Context, title, artist string, duration float64) (*SongMatch, error) {
	var m SongMatch
	err := q.q.QueryRow(ctx, songSelect, title, artist, duration).Scan(&m.SongID, &m.ArtistID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying song: %w", err)
	}
	return &m, nil
}
