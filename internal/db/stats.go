package db

import (
	"context"
	"fmt"
)

// StatsRepository runs read-only analytics queries over the loaded tables.
type StatsRepository struct {
	q querier
}

// TableCounts holds row counts for every warehouse table.
type TableCounts struct {
	Tables            map[string]int64
	ResolvedSongplays int64 // songplays with a non-null song_id
}

// SongPlayCount is a catalog song with the number of times it was played.
type SongPlayCount struct {
	SongID string
	Title  string
	Artist string
	Plays  int64
}

// UserListening counts a user's plays by part of day and weekend.
type UserListening struct {
	UserID    int64
	Night     int64 // 00:00-05:59
	Morning   int64 // 06:00-11:59
	Afternoon int64 // 12:00-17:59
	Evening   int64 // 18:00-23:59
	Weekend   int64
	Total     int64
}

// Counts returns row counts for all tables.
func (r *StatsRepository) Counts(ctx context.Context) (*TableCounts, error) {
	counts := &TableCounts{Tables: make(map[string]int64, len(TableNames))}
	for _, table := range TableNames {
		var n int64
		// Table names come from a fixed list, never from input.
		if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("counting %s: %w", table, err)
		}
		counts.Tables[table] = n
	}

	query := `SELECT COUNT(*) FROM songplays WHERE song_id IS NOT NULL`
	if err := r.q.QueryRow(ctx, query).Scan(&counts.ResolvedSongplays); err != nil {
		return nil, fmt.Errorf("counting resolved songplays: %w", err)
	}
	return counts, nil
}

// TopSongs returns the most played catalog songs, most plays first.
func (r *StatsRepository) TopSongs(ctx context.Context, limit int) ([]SongPlayCount, error) {
	query := `
		SELECT sp.song_id,
			COALESCE((SELECT title FROM songs WHERE song_id = sp.song_id LIMIT 1), ''),
			COALESCE((SELECT name FROM artists WHERE artist_id = sp.artist_id LIMIT 1), ''),
			COUNT(*) AS plays
		FROM songplays sp
		WHERE sp.song_id IS NOT NULL
		GROUP BY sp.song_id, sp.artist_id
		ORDER BY plays DESC, sp.song_id
		LIMIT $1
	`
	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying top songs: %w", err)
	}
	defer rows.Close()

	var songs []SongPlayCount
	for rows.Next() {
		var s SongPlayCount
		if err := rows.Scan(&s.SongID, &s.Title, &s.Artist, &s.Plays); err != nil {
			return nil, fmt.Errorf("scanning top song: %w", err)
		}
		songs = append(songs, s)
	}
	return songs, rows.Err()
}

// UserSongplays returns a user's plays in chronological order.
func (r *StatsRepository) UserSongplays(ctx context.Context, userID int64, limit int) ([]Songplay, error) {
	query := `
		SELECT songplay_id, start_time, user_id, level, song_id, artist_id, session_id, location, user_agent
		FROM songplays
		WHERE user_id = $1
		ORDER BY start_time, songplay_id
		LIMIT $2
	`
	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying user songplays: %w", err)
	}
	defer rows.Close()

	var plays []Songplay
	for rows.Next() {
		var p Songplay
		if err := rows.Scan(
			&p.ID,
			&p.StartTime,
			&p.UserID,
			&p.Level,
			&p.SongID,
			&p.ArtistID,
			&p.SessionID,
			&p.Location,
			&p.UserAgent,
		); err != nil {
			return nil, fmt.Errorf("scanning songplay: %w", err)
		}
		plays = append(plays, p)
	}
	return plays, rows.Err()
}

// Listening returns per-user play counts by part of day, ordered by user ID.
func (r *StatsRepository) Listening(ctx context.Context) ([]UserListening, error) {
	query := `
		SELECT user_id,
			COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM start_time) < 6),
			COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM start_time) >= 6 AND EXTRACT(HOUR FROM start_time) < 12),
			COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM start_time) >= 12 AND EXTRACT(HOUR FROM start_time) < 18),
			COUNT(*) FILTER (WHERE EXTRACT(HOUR FROM start_time) >= 18),
			COUNT(*) FILTER (WHERE EXTRACT(ISODOW FROM start_time) >= 6),
			COUNT(*)
		FROM songplays
		GROUP BY user_id
		ORDER BY user_id
	`
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying listening counts: %w", err)
	}
	defer rows.Close()

	var out []UserListening
	for rows.Next() {
		var u UserListening
		if err := rows.Scan(
			&u.UserID,
			&u.Night,
			&u.Morning,
			&u.Afternoon,
			&u.Evening,
			&u.Weekend,
			&u.Total,
		); err != nil {
			return nil, fmt.Errorf("scanning listening counts: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
