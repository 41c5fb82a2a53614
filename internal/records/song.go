package records

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// SongRecord is the raw shape of a song-metadata file.
type SongRecord struct {
	SongID          Field[string]  `json:"song_id"`
	Title           Field[string]  `json:"title"`
	ArtistID        Field[string]  `json:"artist_id"`
	Year            Field[int]     `json:"year"`
	Duration        Field[float64] `json:"duration"`
	ArtistName      Field[string]  `json:"artist_name"`
	ArtistLocation  Field[string]  `json:"artist_location"`
	ArtistLatitude  Field[float64] `json:"artist_latitude"`
	ArtistLongitude Field[float64] `json:"artist_longitude"`
}

// Song is a validated song-metadata record.
type Song struct {
	SongID          string
	Title           string
	ArtistID        string
	Year            int
	Duration        float64
	ArtistName      string
	ArtistLocation  string
	ArtistLatitude  *float64
	ArtistLongitude *float64
}

// Validate checks that every required key is present. Identifiers, title,
// year, duration and artist name must be non-null; location and coordinates
// may be null.
func (r SongRecord) Validate(path string) (*Song, error) {
	nonNull := []struct {
		name  string
		valid bool
	}{
		{"song_id", r.SongID.Valid()},
		{"title", r.Title.Valid()},
		{"artist_id", r.ArtistID.Valid()},
		{"year", r.Year.Valid()},
		{"duration", r.Duration.Valid()},
		{"artist_name", r.ArtistName.Valid()},
	}
	for _, f := range nonNull {
		if !f.valid {
			return nil, missing(path, 1, f.name)
		}
	}

	present := []struct {
		name    string
		present bool
	}{
		{"artist_location", r.ArtistLocation.Present},
		{"artist_latitude", r.ArtistLatitude.Present},
		{"artist_longitude", r.ArtistLongitude.Present},
	}
	for _, f := range present {
		if !f.present {
			return nil, missing(path, 1, f.name)
		}
	}

	return &Song{
		SongID:          r.SongID.Value,
		Title:           r.Title.Value,
		ArtistID:        r.ArtistID.Value,
		Year:            r.Year.Value,
		Duration:        r.Duration.Value,
		ArtistName:      r.ArtistName.Value,
		ArtistLocation:  r.ArtistLocation.Value,
		ArtistLatitude:  r.ArtistLatitude.Ptr(),
		ArtistLongitude: r.ArtistLongitude.Ptr(),
	}, nil
}

// DecodeSong reads the single metadata record of a song file.
// Only the first JSON value is read; anything after it is ignored.
func DecodeSong(r io.Reader, path string) (*Song, error) {
	var rec SongRecord
	if err := json.NewDecoder(r).Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &MalformedRecordError{Path: path, Reason: "file contains no record"}
		}
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, &MalformedRecordError{Path: path, Line: 1, Reason: err.Error()}
		}
		return nil, fmt.Errorf("reading song record: %w", err)
	}
	return rec.Validate(path)
}
