package spotify

// Profile is the profile projection returned to the browser.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Followers   int     `json:"followers"`
	Image       *string `json:"image"`
	URL         string  `json:"url"`
}

// TrackView is the track projection used by the now-playing response.
type TrackView struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	AlbumImage *string  `json:"albumImage"`
}

// NowPlaying is the playback projection. Only IsPlaying is set when nothing is playing.
type NowPlaying struct {
	IsPlaying  bool       `json:"isPlaying"`
	ProgressMS *int64     `json:"progressMs,omitempty"`
	DurationMS *int64     `json:"durationMs,omitempty"`
	Track      *TrackView `json:"track,omitempty"`
}

// TopTrack is one entry of the top tracks projection.
type TopTrack struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	URL        string   `json:"url"`
	Artists    []string `json:"artists"`
	AlbumImage *string  `json:"albumImage"`
}

// TopTracks is the top tracks projection.
type TopTracks struct {
	Tracks []TopTrack `json:"tracks"`
}

// ToProfile projects a user profile.
func ToProfile(u *User) Profile {
	profile := Profile{
		ID:    u.ID,
		Image: firstImageURL(u.Images),
		URL:   u.ExternalURLs.Spotify,
	}
	if u.DisplayName != nil {
		profile.DisplayName = *u.DisplayName
	}
	if u.Followers != nil && u.Followers.Total != nil {
		profile.Followers = *u.Followers.Total
	}
	return profile
}

// ToNowPlaying projects a playback snapshot. A nil snapshot or a missing item means nothing
// is playing.
func ToNowPlaying(p *CurrentlyPlaying) NowPlaying {
	if p == nil || p.Item == nil {
		return NowPlaying{IsPlaying: false}
	}

	progress := int64(0)
	if p.ProgressMS != nil {
		progress = *p.ProgressMS
	}
	duration := p.Item.DurationMS

	track := TrackView{
		ID:         p.Item.ID,
		Name:       p.Item.Name,
		URL:        p.Item.ExternalURLs.Spotify,
		Artists:    artistNames(p.Item.Artists),
		AlbumImage: albumImageURL(p.Item.Album),
	}
	if p.Item.Album != nil {
		track.Album = p.Item.Album.Name
	}

	return NowPlaying{
		IsPlaying:  p.IsPlaying,
		ProgressMS: &progress,
		DurationMS: &duration,
		Track:      &track,
	}
}

// ToTopTracks projects a page of top tracks.
func ToTopTracks(page *TopTracksPage) TopTracks {
	out := TopTracks{Tracks: make([]TopTrack, 0)}
	if page == nil {
		return out
	}
	for _, t := range page.Items {
		out.Tracks = append(out.Tracks, TopTrack{
			ID:         t.ID,
			Name:       t.Name,
			URL:        t.ExternalURLs.Spotify,
			Artists:    artistNames(t.Artists),
			AlbumImage: albumImageURL(t.Album),
		})
	}
	return out
}

// firstImageURL returns the first image URL, or nil when there is none.
func firstImageURL(images []Image) *string {
	if len(images) == 0 || images[0].URL == "" {
		return nil
	}
	url := images[0].URL
	return &url
}

func albumImageURL(album *Album) *string {
	if album == nil {
		return nil
	}
	return firstImageURL(album.Images)
}

func artistNames(artists []Artist) []string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return names
}
