// Package spotify talks to the Spotify accounts service and Web API.
//
// Response types follow https://developer.spotify.com/documentation/web-api/reference/
// and keep only the fields the portfolio renders.
package spotify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"portfolio/internal/platform/metrics"
)

const defaultAPIURL = "https://api.spotify.com"

// TopTracksLimit is the page size requested from the top tracks endpoint.
const TopTracksLimit = 12

// ErrUpstream matches every UpstreamError.
var ErrUpstream = errors.New("spotify: upstream request failed")

// UpstreamError reports a non-2xx answer from the Web API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("spotify api %d: %s", e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrUpstream) match.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// TimeRange selects the affinity window of the top tracks endpoint.
type TimeRange string

const (
	TimeRangeShort  TimeRange = "short_term"
	TimeRangeMedium TimeRange = "medium_term"
	TimeRangeLong   TimeRange = "long_term"
)

// ParseTimeRange maps a query value to a TimeRange, defaulting to short_term.
func ParseTimeRange(value string) TimeRange {
	switch r := TimeRange(value); r {
	case TimeRangeShort, TimeRangeMedium, TimeRangeLong:
		return r
	default:
		return TimeRangeShort
	}
}

// Image is an image resource.
type Image struct {
	URL    string `json:"url"`
	Height *int   `json:"height"`
	Width  *int   `json:"width"`
}

// ExternalURLs holds links to the Spotify web player.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Followers is the follower summary of a profile.
type Followers struct {
	Total *int `json:"total"`
}

// User is the current user's profile.
type User struct {
	ID           string       `json:"id"`
	DisplayName  *string      `json:"display_name"`
	Followers    *Followers   `json:"followers"`
	Images       []Image      `json:"images"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// Artist is a simplified artist object.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is a simplified album object.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Track is a full track object.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	DurationMS   int64        `json:"duration_ms"`
	Artists      []Artist     `json:"artists"`
	Album        *Album       `json:"album"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// CurrentlyPlaying is the playback snapshot. Item is nil when nothing is loaded or the
// current item is not a track.
type CurrentlyPlaying struct {
	IsPlaying  bool   `json:"is_playing"`
	ProgressMS *int64 `json:"progress_ms"`
	Item       *Track `json:"item"`
}

// TopTracksPage is one page of the user's top tracks.
type TopTracksPage struct {
	Items []Track `json:"items"`
	Total int     `json:"total"`
	Limit int     `json:"limit"`
}

// Client calls the Web API on behalf of a bearer token.
type Client struct {
	client  *http.Client
	baseURL string
}

// Option configures the Client during construction.
type Option func(*Client)

// WithBaseURL overrides the Web API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// NewClient constructs a Client.
func NewClient(client *http.Client, opts ...Option) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	c := &Client{
		client:  client,
		baseURL: defaultAPIURL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Profile fetches the current user's profile.
func (c *Client) Profile(ctx context.Context, accessToken string) (*User, error) {
	var user User
	found, err := c.get(ctx, accessToken, "/v1/me", nil, &user)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("spotify profile: empty response")
	}
	return &user, nil
}

// CurrentlyPlaying fetches the playback state. It returns nil, nil when nothing is playing.
func (c *Client) CurrentlyPlaying(ctx context.Context, accessToken string) (*CurrentlyPlaying, error) {
	var playing CurrentlyPlaying
	found, err := c.get(ctx, accessToken, "/v1/me/player/currently-playing", nil, &playing)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &playing, nil
}

// TopTracks fetches the user's top tracks for the given range.
func (c *Client) TopTracks(ctx context.Context, accessToken string, timeRange TimeRange, limit int) (*TopTracksPage, error) {
	values := url.Values{}
	values.Set("time_range", string(timeRange))
	values.Set("limit", strconv.Itoa(limit))

	var page TopTracksPage
	if _, err := c.get(ctx, accessToken, "/v1/me/top/tracks", values, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// get returns false without decoding when the API answers 204 or an empty body.
func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, dst any) (bool, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, fmt.Errorf("create spotify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("call spotify %s: %w", path, err)
	}
	defer resp.Body.Close()

	metrics.UpstreamRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return false, fmt.Errorf("read spotify %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, &UpstreamError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if len(bytes.TrimSpace(body)) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return false, fmt.Errorf("decode spotify %s: %w", path, err)
	}
	return true, nil
}
