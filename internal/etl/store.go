// Package etl loads song-metadata and event-log files into the warehouse tables.
package etl

import (
	"context"

	"github.com/justestif/sparkify-etl/internal/db"
)

// Store is the set of statements a loader issues for one file.
type Store interface {
	InsertSong(ctx context.Context, song db.Song) error
	InsertArtist(ctx context.Context, artist db.Artist) error
	InsertTime(ctx context.Context, entry db.TimeEntry) error
	InsertUser(ctx context.Context, user db.User) error
	FindSong(ctx context.Context, title, artist string, duration float64) (*db.SongMatch, error)
	InsertSongplay(ctx context.Context, play *db.Songplay) error
}

// Transactor runs fn as one unit of work, committing when fn returns nil.
type Transactor interface {
	InTx(ctx context.Context, fn func(Store) error) error
}

// postgres adapts *db.DB to Transactor.
type postgres struct {
	db *db.DB
}

// NewPostgres returns a Transactor that runs each unit of work in a
// PostgreSQL transaction.
func NewPostgres(database *db.DB) Transactor {
	return &postgres{db: database}
}

func (p *postgres) InTx(ctx context.Context, fn func(Store) error) error {
	return p.db.InTx(ctx, func(q *db.Queries) error {
		return fn(q)
	})
}
