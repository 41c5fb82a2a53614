package db

import (
	"context"
	"fmt"
)

func (a Artist) args() []any {
	return []any{a.ID, a.Name, a.Location, a.Latitude, a.Longitude}
}

// InsertArtist inserts one artists row. Duplicate artist IDs are not rejected.
func (q *Queries) InsertArtist(ctx context.Context, artist Artist) error {
	if _, err := q.q.Exec(ctx, artistTableInsert, artist.args()...); err != nil {
		return fmt.Errorf("inserting artist: %w", err)
	}
	return nil
}
