package web

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/justestif/sparkify-etl/internal/analytics"
	"github.com/justestif/sparkify-etl/internal/db"
)

const (
	defaultLimit = 10
	maxLimit     = 1000
)

// Warehouse is the read side of the database used by the handlers.
type Warehouse interface {
	Counts(ctx context.Context) (*db.TableCounts, error)
	TopSongs(ctx context.Context, limit int) ([]db.SongPlayCount, error)
	UserSongplays(ctx context.Context, userID int64, limit int) ([]db.Songplay, error)
	Listening(ctx context.Context) ([]db.UserListening, error)
}

// Handlers contains HTTP handlers for the analytics API.
type Handlers struct {
	warehouse Warehouse
	log       logrus.FieldLogger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(warehouse Warehouse, log logrus.FieldLogger) *Handlers {
	return &Handlers{
		warehouse: warehouse,
		log:       log,
	}
}

type statsResponse struct {
	Tables            map[string]int64 `json:"tables"`
	ResolvedSongplays int64            `json:"resolved_songplays"`
}

type topSongResponse struct {
	SongID string `json:"song_id"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Plays  int64  `json:"plays"`
}

type songplayResponse struct {
	SongplayID int64     `json:"songplay_id"`
	StartTime  time.Time `json:"start_time"`
	UserID     int64     `json:"user_id"`
	Level      string    `json:"level"`
	SongID     *string   `json:"song_id"`
	ArtistID   *string   `json:"artist_id"`
	SessionID  int64     `json:"session_id"`
	Location   string    `json:"location"`
	UserAgent  string    `json:"user_agent"`
}

type profileResponse struct {
	Name     string             `json:"name"`
	UserIDs  []int64            `json:"user_ids"`
	Centroid map[string]float64 `json:"centroid"`
}

type profilesResponse struct {
	Profiles    []profileResponse `json:"profiles"`
	SparseUsers []int64           `json:"sparse_users"`
}

// Healthz reports liveness (GET /healthz).
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Stats returns row counts per table (GET /api/stats).
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.warehouse.Counts(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statsResponse{
		Tables:            counts.Tables,
		ResolvedSongplays: counts.ResolvedSongplays,
	})
}

// TopSongs returns the most played catalog songs (GET /api/top-songs?limit=N).
func (h *Handlers) TopSongs(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}
	songs, err := h.warehouse.TopSongs(r.Context(), limit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	resp := make([]topSongResponse, len(songs))
	for i, s := range songs {
		resp[i] = topSongResponse{SongID: s.SongID, Title: s.Title, Artist: s.Artist, Plays: s.Plays}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UserSongplays returns a user's plays (GET /api/users/{userID}/songplays).
func (h *Handlers) UserSongplays(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user ID must be an integer")
		return
	}
	limit, ok := parseLimit(w, r)
	if !ok {
		return
	}

	plays, err := h.warehouse.UserSongplays(r.Context(), userID, limit)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if len(plays) == 0 {
		writeError(w, http.StatusNotFound, "no songplays for user")
		return
	}

	resp := make([]songplayResponse, len(plays))
	for i, p := range plays {
		resp[i] = songplayResponse{
			SongplayID: p.ID,
			StartTime:  p.StartTime,
			UserID:     p.UserID,
			Level:      p.Level,
			SongID:     p.SongID,
			ArtistID:   p.ArtistID,
			SessionID:  p.SessionID,
			Location:   p.Location,
			UserAgent:  p.UserAgent,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListeningProfiles clusters users by listening hours (GET /api/listening-profiles?k=N).
func (h *Handlers) ListeningProfiles(w http.ResponseWriter, r *http.Request) {
	cfg := analytics.DefaultConfig()
	if k := r.URL.Query().Get("k"); k != "" {
		n, err := strconv.Atoi(k)
		if err != nil || n <= 0 || n > 20 {
			writeError(w, http.StatusBadRequest, "k must be an integer between 1 and 20")
			return
		}
		cfg.NumProfiles = n
	}

	rows, err := h.warehouse.Listening(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	listeners := make([]analytics.Listener, len(rows))
	for i, u := range rows {
		listeners[i] = toListener(u)
	}

	profiles, sparse, err := analytics.DetectProfiles(listeners, cfg)
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	resp := profilesResponse{
		Profiles:    make([]profileResponse, len(profiles)),
		SparseUsers: make([]int64, len(sparse)),
	}
	for i, p := range profiles {
		resp.Profiles[i] = profileResponse{Name: p.Name, UserIDs: p.UserIDs, Centroid: p.Centroid}
	}
	for i, l := range sparse {
		resp.SparseUsers[i] = l.UserID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithField("path", r.URL.Path).WithError(err).Error("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// parseLimit reads ?limit=N, writing a 400 response when it is invalid.
func parseLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return defaultLimit, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 || limit > maxLimit {
		writeError(w, http.StatusBadRequest, "limit must be an integer between 1 and 1000")
		return 0, false
	}
	return limit, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// toListener converts database counts to the clustering input.
func toListener(u db.UserListening) analytics.Listener {
	return analytics.Listener{
		UserID:    u.UserID,
		Night:     u.Night,
		Morning:   u.Morning,
		Afternoon: u.Afternoon,
		Evening:   u.Evening,
		Weekend:   u.Weekend,
		Total:     u.Total,
	}
}
