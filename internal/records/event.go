package records

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"
)

// PageNextSong marks an event in which a song was played.
const PageNextSong = "NextSong"

// maxLineSize bounds a single event line.
const maxLineSize = 1 << 20

// EventRecord is the raw shape of one event-log line.
type EventRecord struct {
	Line int `json:"-"`

	Artist    Field[string]          `json:"artist"`
	FirstName Field[string]          `json:"firstName"`
	Gender    Field[string]          `json:"gender"`
	LastName  Field[string]          `json:"lastName"`
	Length    Field[float64]         `json:"length"`
	Level     Field[string]          `json:"level"`
	Location  Field[string]          `json:"location"`
	Page      Field[string]          `json:"page"`
	SessionID Field[IntString]       `json:"sessionId"`
	Song      Field[string]          `json:"song"`
	TS        Field[json.RawMessage] `json:"ts"`
	UserAgent Field[string]          `json:"userAgent"`
	UserID    Field[IntString]       `json:"userId"`
}

// Event is a validated NextSong event.
type Event struct {
	Line      int
	Timestamp time.Time // UTC
	UserID    int64
	FirstName string
	LastName  string
	Gender    string
	Level     string
	SessionID int64
	Location  string
	UserAgent string
	Song      *string
	Artist    *string
	Length    *float64
}

// PageName returns the event's page, failing when the key is absent or null.
func (r EventRecord) PageName(path string) (string, error) {
	if !r.Page.Valid() {
		return "", missing(path, r.Line, "page")
	}
	return r.Page.Value, nil
}

// Event validates a NextSong record and converts it to an Event.
func (r EventRecord) Event(path string) (*Event, error) {
	if !r.TS.Valid() {
		return nil, missing(path, r.Line, "ts")
	}
	ms, err := parseInt(r.TS.Value)
	if err != nil {
		return nil, &MalformedRecordError{Path: path, Line: r.Line, Field: "ts", Reason: "invalid timestamp: " + err.Error()}
	}
	if !r.UserID.Value.Set {
		return nil, missing(path, r.Line, "userId")
	}
	if !r.SessionID.Value.Set {
		return nil, missing(path, r.Line, "sessionId")
	}
	if !r.Level.Valid() {
		return nil, missing(path, r.Line, "level")
	}

	return &Event{
		Line:      r.Line,
		Timestamp: time.UnixMilli(ms).UTC(),
		UserID:    r.UserID.Value.Value,
		FirstName: r.FirstName.Value,
		LastName:  r.LastName.Value,
		Gender:    r.Gender.Value,
		Level:     r.Level.Value,
		SessionID: r.SessionID.Value.Value,
		Location:  r.Location.Value,
		UserAgent: r.UserAgent.Value,
		Song:      r.Song.Ptr(),
		Artist:    r.Artist.Ptr(),
		Length:    r.Length.Ptr(),
	}, nil
}

// DecodeEvents reads one JSON object per line. Blank lines are ignored.
// Lines that are not valid JSON objects or exceed maxLineSize are reported
// in malformed and do not stop decoding; err is non-nil only when the
// reader itself fails.
func DecodeEvents(r io.Reader, path string) (events []EventRecord, malformed []*MalformedRecordError, err error) {
	br := bufio.NewReaderSize(r, 64*1024)

	line := 0
	for {
		raw, tooLong, readErr := readLine(br)
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, nil, fmt.Errorf("reading events: %w", readErr)
		}
		if errors.Is(readErr, io.EOF) && len(raw) == 0 && !tooLong {
			break
		}
		line++

		switch raw = bytes.TrimSpace(raw); {
		case tooLong:
			malformed = append(malformed, &MalformedRecordError{Path: path, Line: line, Reason: "line too long"})
		case len(raw) == 0:
		default:
			var rec EventRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				malformed = append(malformed, &MalformedRecordError{Path: path, Line: line, Reason: err.Error()})
				break
			}
			rec.Line = line
			events = append(events, rec)
		}

		if readErr != nil {
			break
		}
	}
	return events, malformed, nil
}

// readLine returns the next line including its terminator. A line longer
// than maxLineSize is consumed and reported as tooLong with no content.
func readLine(br *bufio.Reader) (line []byte, tooLong bool, err error) {
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if len(bytes.TrimRight(line, "\r\n")) > maxLineSize {
				line, tooLong = nil, true
			}
		}
		if !errors.Is(err, bufio.ErrBufferFull) {
			return line, tooLong, err
		}
	}
}

// parseInt accepts a JSON number or a quoted integer.
func parseInt(raw json.RawMessage) (int64, error) {
	s := string(bytes.TrimSpace(raw))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	return parseIntegral(s)
}
