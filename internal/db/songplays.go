package db

import (
	"context"
	"fmt"
)

func (p Songplay) args() []any {
	return []any{p.StartTime, p.UserID, p.Level, p.SongID, p.ArtistID, p.SessionID, p.Location, p.UserAgent}
}

// InsertSongplay inserts one songplays row and sets play.ID to the
// surrogate key assigned by the database.
func (q *Queries) InsertSongplay(ctx context.Context, play *Songplay) error {
	if err := q.q.QueryRow(ctx, songplayTableInsert, play.args()...).Scan(&play.ID); err != nil {
		return fmt.Errorf("inserting songplay: %w", err)
	}
	return nil
}
