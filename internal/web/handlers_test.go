package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/justestif/sparkify-etl/internal/db"
	"github.com/justestif/sparkify-etl/internal/logging"
)

// mockWarehouse is a test double for Warehouse.
type mockWarehouse struct {
	counts    *db.TableCounts
	topSongs  []db.SongPlayCount
	songplays map[int64][]db.Songplay
	listening []db.UserListening
	err       error

	lastLimit int
}

func (m *mockWarehouse) Counts(ctx context.Context) (*db.TableCounts, error) {
	return m.counts, m.err
}

func (m *mockWarehouse) TopSongs(ctx context.Context, limit int) ([]db.SongPlayCount, error) {
	m.lastLimit = limit
	return m.topSongs, m.err
}

func (m *mockWarehouse) UserSongplays(ctx context.Context, userID int64, limit int) ([]db.Songplay, error) {
	m.lastLimit = limit
	return m.songplays[userID], m.err
}

func (m *mockWarehouse) Listening(ctx context.Context) ([]db.UserListening, error) {
	return m.listening, m.err
}

func newTestServer(t *testing.T, wh Warehouse) http.Handler {
	t.Helper()
	srv, err := NewServer(ServerConfig{Warehouse: wh, Log: logging.Discard()})
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return srv.Handler()
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewServer_RequiresWarehouse(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Error("NewServer() error = nil, want error")
	}
}

func TestHealthz(t *testing.T) {
	rec := get(t, newTestServer(t, &mockWarehouse{}), "/healthz")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("GET /healthz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestStats(t *testing.T) {
	wh := &mockWarehouse{counts: &db.TableCounts{
		Tables:            map[string]int64{"songplays": 6820, "users": 6820, "songs": 71, "artists": 71, "time": 6820},
		ResolvedSongplays: 1,
	}}

	rec := get(t, newTestServer(t, wh), "/api/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp statsResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Tables["songs"] != 71 || resp.ResolvedSongplays != 1 {
		t.Errorf("response = %+v", resp)
	}
}

func TestTopSongs(t *testing.T) {
	tests := []struct {
		name      string
		target    string
		wantCode  int
		wantLimit int
	}{
		{name: "default limit", target: "/api/top-songs", wantCode: http.StatusOK, wantLimit: defaultLimit},
		{name: "explicit limit", target: "/api/top-songs?limit=3", wantCode: http.StatusOK, wantLimit: 3},
		{name: "zero limit", target: "/api/top-songs?limit=0", wantCode: http.StatusBadRequest},
		{name: "too large", target: "/api/top-songs?limit=5000", wantCode: http.StatusBadRequest},
		{name: "not a number", target: "/api/top-songs?limit=ten", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wh := &mockWarehouse{topSongs: []db.SongPlayCount{
				{SongID: "SOSITWX", Title: "Der Kleine Dompfaff", Artist: "Line Renaud", Plays: 1},
			}}

			rec := get(t, newTestServer(t, wh), tt.target)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode != http.StatusOK {
				return
			}
			if wh.lastLimit != tt.wantLimit {
				t.Errorf("limit = %d, want %d", wh.lastLimit, tt.wantLimit)
			}

			var resp []topSongResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(resp) != 1 || resp[0].SongID != "SOSITWX" || resp[0].Plays != 1 {
				t.Errorf("response = %+v", resp)
			}
		})
	}
}

func TestUserSongplays(t *testing.T) {
	songID, artistID := "SOSITWX", "ARJIE2Y1187B994AB7"
	wh := &mockWarehouse{songplays: map[int64][]db.Songplay{
		26: {{
			ID:        1,
			StartTime: time.UnixMilli(1541290555796).UTC(),
			UserID:    26,
			Level:     "free",
			SongID:    &songID,
			ArtistID:  &artistID,
			SessionID: 583,
		}},
	}}
	h := newTestServer(t, wh)

	t.Run("found", func(t *testing.T) {
		rec := get(t, h, "/api/users/26/songplays")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp []songplayResponse
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
		if len(resp) != 1 || resp[0].SongID == nil || *resp[0].SongID != songID {
			t.Errorf("response = %+v", resp)
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		if rec := get(t, h, "/api/users/99/songplays"); rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("bad user id", func(t *testing.T) {
		if rec := get(t, h, "/api/users/ryan/songplays"); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestListeningProfiles(t *testing.T) {
	wh := &mockWarehouse{listening: []db.UserListening{
		{UserID: 26, Night: 9, Morning: 1, Total: 10},
		{UserID: 73, Night: 8, Evening: 2, Total: 10},
		{UserID: 8, Afternoon: 1, Total: 1},
	}}
	h := newTestServer(t, wh)

	rec := get(t, h, "/api/listening-profiles?k=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp profilesResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Profiles) != 1 || resp.Profiles[0].Name != "Night Owls" {
		t.Errorf("profiles = %+v", resp.Profiles)
	}
	if len(resp.SparseUsers) != 1 || resp.SparseUsers[0] != 8 {
		t.Errorf("sparse users = %v, want [8]", resp.SparseUsers)
	}

	for _, k := range []string{"0", "21", "x"} {
		if rec := get(t, h, "/api/listening-profiles?k="+k); rec.Code != http.StatusBadRequest {
			t.Errorf("k=%s: status = %d, want 400", k, rec.Code)
		}
	}
}

func TestWarehouseError(t *testing.T) {
	h := newTestServer(t, &mockWarehouse{err: errors.New("connection reset")})

	for _, target := range []string{"/api/stats", "/api/top-songs", "/api/users/1/songplays", "/api/listening-profiles"} {
		rec := get(t, h, target)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("GET %s = %d, want 500", target, rec.Code)
		}
		var body map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil || body["error"] != "internal error" {
			t.Errorf("GET %s body = %v (%v)", target, body, err)
		}
	}
}
