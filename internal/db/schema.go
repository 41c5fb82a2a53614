package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Drop statements. Each is a no-op when the table does not exist.
const (
	songplayTableDrop = `DROP TABLE IF EXISTS songplays`
	userTableDrop     = `DROP TABLE IF EXISTS users`
	songTableDrop     = `DROP TABLE IF EXISTS songs`
	artistTableDrop   = `DROP TABLE IF EXISTS artists`
	timeTableDrop     = `DROP TABLE IF EXISTS time`
)

// Create statements. Each is a no-op when the table already exists.
const (
	songplayTableCreate = `
		CREATE TABLE IF NOT EXISTS songplays (
			songplay_id serial,
			start_time  timestamp,
			user_id     int,
			level       text,
			song_id     text,
			artist_id   text,
			session_id  int,
			location    text,
			user_agent  text
		)
	`
	userTableCreate = `
		CREATE TABLE IF NOT EXISTS users (
			user_id    int,
			first_name text,
			last_name  text,
			gender     character(1),
			level      text
		)
	`
	songTableCreate = `
		CREATE TABLE IF NOT EXISTS songs (
			song_id   text,
			title     text,
			artist_id text,
			year      int,
			duration  numeric
		)
	`
	artistTableCreate = `
		CREATE TABLE IF NOT EXISTS artists (
			artist_id text,
			name      text,
			location  text,
			latitude  numeric,
			longitude numeric
		)
	`
	timeTableCreate = `
		CREATE TABLE IF NOT EXISTS time (
			start_time timestamp,
			hour       int,
			day        int,
			week       int,
			month      int,
			year       int,
			weekday    int
		)
	`
)

// Insert statements. Placeholders follow the column order listed in each
// statement; the row types' args methods produce values in that order.
const (
	songplayTableInsert = `
		INSERT INTO songplays (start_time, user_id, level, song_id, artist_id, session_id, location, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING songplay_id
	`
	userTableInsert = `
		INSERT INTO users (user_id, first_name, last_name, gender, level)
		VALUES ($1, $2, $3, $4, $5)
	`
	songTableInsert = `
		INSERT INTO songs (song_id, title, artist_id, year, duration)
		VALUES ($1, $2, $3, $4, $5)
	`
	artistTableInsert = `
		INSERT INTO artists (artist_id, name, location, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5)
	`
	timeTableInsert = `
		INSERT INTO time (start_time, hour, day, week, month, year, weekday)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
)

// songSelect resolves a (title, artist name, duration) triple to at most one
// (song_id, artist_id) pair using exact equality on all three values.
const songSelect = `
	SELECT s.song_id, s.artist_id
	FROM songs s
	JOIN artists a ON a.artist_id = s.artist_id
	WHERE s.title = $1 AND a.name = $2 AND s.duration = $3
	LIMIT 1
`

// CreateTableQueries lists the create statements in execution order.
var CreateTableQueries = []string{
	songplayTableCreate,
	userTableCreate,
	songTableCreate,
	artistTableCreate,
	timeTableCreate,
}

// DropTableQueries lists the drop statements in execution order.
var DropTableQueries = []string{
	songplayTableDrop,
	userTableDrop,
	songTableDrop,
	artistTableDrop,
	timeTableDrop,
}

// TableNames lists the warehouse tables in the order the schema creates them.
var TableNames = []string{"songplays", "users", "songs", "artists", "time"}

// DropTables drops every warehouse table.
func (db *DB) DropTables(ctx context.Context) error {
	return execSchema(ctx, db.pool, DropTableQueries)
}

// CreateTables creates every warehouse table.
func (db *DB) CreateTables(ctx context.Context) error {
	return execSchema(ctx, db.pool, CreateTableQueries)
}

// Setup drops and recreates all tables, leaving an empty schema.
func (db *DB) Setup(ctx context.Context) error {
	if err := db.DropTables(ctx); err != nil {
		return err
	}
	return db.CreateTables(ctx)
}

// execSchema runs each statement on its own and stops at the first failure.
func execSchema(ctx context.Context, q querier, queries []string) error {
	for _, query := range queries {
		if _, err := q.Exec(ctx, query); err != nil {
			return fmt.Errorf("%w: %w", ErrSchema, err)
		}
	}
	return nil
}

// RecreateDatabase connects to a maintenance database (usually "postgres" or
// "studentdb") and drops and recreates the named database with UTF8 encoding.
func RecreateDatabase(ctx context.Context, adminURL, name string) error {
	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return fmt.Errorf("%w: connecting to maintenance database: %w", ErrConnection, err)
	}
	defer conn.Close(ctx)

	ident := pgx.Identifier{name}.Sanitize()
	statements := []string{
		"DROP DATABASE IF EXISTS " + ident,
		"CREATE DATABASE " + ident + " WITH ENCODING 'utf8' TEMPLATE template0",
	}
	for _, stmt := range statements {
		if _, err := conn.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: %w", ErrSchema, err)
		}
	}
	return nil
}
