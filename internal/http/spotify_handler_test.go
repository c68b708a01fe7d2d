package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"portfolio/internal/auth"
	"portfolio/internal/spotify"
)

func TestSpotifyHandlerRejectsUnauthenticated(t *testing.T) {
	outcomes := []auth.Result{
		{Outcome: auth.OutcomeNoSession},
		{Outcome: auth.OutcomeRefreshFailed, Err: errors.New("invalid_grant")},
	}
	for _, result := range outcomes {
		api := &fakeResources{}
		handler := NewSpotifyHandler(api, fakeGuard{result: result}, testLogger())

		for name, serve := range map[string]http.HandlerFunc{
			"me":          handler.Me,
			"now-playing": handler.NowPlaying,
			"top-tracks":  handler.TopTracks,
		} {
			rec := httptest.NewRecorder()
			serve(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/"+name, nil))

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("%s/%s: expected status 401, got %d", result.Outcome, name, rec.Code)
			}
			if body := strings.TrimSpace(rec.Body.String()); body != `{"error":"unauthorized"}` {
				t.Fatalf("%s/%s: unexpected body %s", result.Outcome, name, body)
			}
		}
		if api.callsCount != 0 {
			t.Fatalf("expected no upstream calls without a token, got %d", api.callsCount)
		}
	}
}

func TestSpotifyHandlerMe(t *testing.T) {
	api := &fakeResources{user: &spotify.User{
		ID:           "user-1",
		DisplayName:  strPtr("Listener"),
		Images:       []spotify.Image{{URL: "https://img.test/avatar.jpg"}},
		ExternalURLs: spotify.ExternalURLs{Spotify: "https://open.spotify.com/user/user-1"},
	}}
	handler := NewSpotifyHandler(api, authenticatedGuard("token-1"), testLogger())

	rec := httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/me", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if api.lastToken != "token-1" {
		t.Fatalf("expected bearer token-1, got %q", api.lastToken)
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["id"] != "user-1" || body["displayName"] != "Listener" {
		t.Fatalf("unexpected profile %v", body)
	}
	if body["followers"] != float64(0) {
		t.Fatalf("expected followers to default to 0, got %v", body["followers"])
	}
	if body["image"] != "https://img.test/avatar.jpg" {
		t.Fatalf("unexpected image %v", body["image"])
	}
}

func TestSpotifyHandlerNowPlayingIdle(t *testing.T) {
	cases := map[string]*spotify.CurrentlyPlaying{
		"no content": nil,
		"null item":  {IsPlaying: true},
	}
	for name, playing := range cases {
		handler := NewSpotifyHandler(&fakeResources{playing: playing}, authenticatedGuard("t"), testLogger())

		rec := httptest.NewRecorder()
		handler.NowPlaying(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/now-playing", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", name, rec.Code)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != `{"isPlaying":false}` {
			t.Fatalf("%s: expected idle body, got %s", name, body)
		}
	}
}

func TestSpotifyHandlerNowPlayingTrack(t *testing.T) {
	progress := int64(42_000)
	api := &fakeResources{playing: &spotify.CurrentlyPlaying{
		IsPlaying:  true,
		ProgressMS: &progress,
		Item: &spotify.Track{
			ID:           "track-1",
			Name:         "Song",
			DurationMS:   180_000,
			Artists:      []spotify.Artist{{Name: "A"}, {Name: "B"}},
			ExternalURLs: spotify.ExternalURLs{Spotify: "https://open.spotify.com/track/track-1"},
			Album:        &spotify.Album{Name: "Record", Images: []spotify.Image{{URL: "https://img.test/cover.jpg"}}},
		},
	}}
	handler := NewSpotifyHandler(api, authenticatedGuard("t"), testLogger())

	rec := httptest.NewRecorder()
	handler.NowPlaying(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/now-playing", nil))

	var body struct {
		IsPlaying  bool  `json:"isPlaying"`
		ProgressMS int64 `json:"progressMs"`
		DurationMS int64 `json:"durationMs"`
		Track      struct {
			ID         string   `json:"id"`
			Artists    []string `json:"artists"`
			Album      string   `json:"album"`
			AlbumImage string   `json:"albumImage"`
		} `json:"track"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.IsPlaying || body.ProgressMS != 42_000 || body.DurationMS != 180_000 {
		t.Fatalf("unexpected playback state %+v", body)
	}
	if body.Track.ID != "track-1" || strings.Join(body.Track.Artists, ",") != "A,B" || body.Track.Album != "Record" || body.Track.AlbumImage != "https://img.test/cover.jpg" {
		t.Fatalf("unexpected track %+v", body.Track)
	}
}

func TestSpotifyHandlerTopTracksRange(t *testing.T) {
	cases := map[string]spotify.TimeRange{
		"":            spotify.TimeRangeShort,
		"bogus":       spotify.TimeRangeShort,
		"medium_term": spotify.TimeRangeMedium,
		"long_term":   spotify.TimeRangeLong,
	}
	for query, want := range cases {
		api := &fakeResources{page: &spotify.TopTracksPage{}}
		handler := NewSpotifyHandler(api, authenticatedGuard("t"), testLogger())

		rec := httptest.NewRecorder()
		handler.TopTracks(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/top-tracks?range="+query, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("range %q: expected status 200, got %d", query, rec.Code)
		}
		if api.lastRange != want || api.lastLimit != spotify.TopTracksLimit {
			t.Fatalf("range %q: requested %q limit %d", query, api.lastRange, api.lastLimit)
		}
		if body := strings.TrimSpace(rec.Body.String()); body != `{"tracks":[]}` {
			t.Fatalf("range %q: unexpected body %s", query, body)
		}
	}
}

func TestSpotifyHandlerUpstreamError(t *testing.T) {
	api := &fakeResources{err: &spotify.UpstreamError{StatusCode: http.StatusBadGateway, Body: "bad gateway"}}
	handler := NewSpotifyHandler(api, authenticatedGuard("t"), testLogger())

	rec := httptest.NewRecorder()
	handler.Me(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/me", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error != "upstream_error" || body.Message != "spotify api 502: bad gateway" {
		t.Fatalf("unexpected error body %+v", body)
	}
}

func TestSpotifyHandlerTransportError(t *testing.T) {
	api := &fakeResources{err: errors.New("dial tcp: connection refused")}
	handler := NewSpotifyHandler(api, authenticatedGuard("t"), testLogger())

	rec := httptest.NewRecorder()
	handler.TopTracks(rec, httptest.NewRequest(http.MethodGet, "/api/spotify/top-tracks", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body.Error != "internal_error" || !strings.Contains(body.Message, "connection refused") {
		t.Fatalf("unexpected error body %+v", body)
	}
}
