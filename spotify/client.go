package spotify

import (
	"context"
	"errors"
	"fmt"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	spotifyclient "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"lyricsd/config"
)

// Preferred cover size in pixels; Spotify usually offers 64, 300 and 640.
const preferredImageSize = 300

const searchTimeout = 10 * time.Second

var ErrNoArtwork = errors.New("no artwork found")

type searcher interface {
	Search(ctx context.Context, query string, t spotifyclient.SearchType, opts ...spotifyclient.RequestOption) (*spotifyclient.SearchResult, error)
}

// Artwork looks up album covers for resolved songs.
type Artwork struct {
	client searcher
}

// NewArtwork authenticates with client credentials.
func NewArtwork(ctx context.Context, cfg config.SpotifyConfig) (*Artwork, error) {
	creds := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := creds.Token(ctx)
	if err != nil {
		sentry.CaptureException(err)
		return nil, fmt.Errorf("spotify token: %w", err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	httpClient.Timeout = searchTimeout
	return &Artwork{client: spotifyclient.New(httpClient)}, nil
}

// Thumbnail returns a cover image URL for the best matching track.
func (a *Artwork) Thumbnail(ctx context.Context, title, artist string) (string, error) {
	query := fmt.Sprintf("track:%s artist:%s", title, artist)

	span := sentry.StartSpan(ctx, "spotify.search")
	span.Description = "Search Spotify API for artwork"
	span.SetTag("query", query)
	defer span.Finish()

	results, err := a.client.Search(span.Context(), query, spotifyclient.SearchTypeTrack, spotifyclient.Limit(1))
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
		return "", err
	}
	if results == nil || results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		span.Status = sentry.SpanStatusNotFound
		return "", ErrNoArtwork
	}

	track := results.Tracks.Tracks[0]
	url := pickImage(track.Album.Images)
	if url == "" {
		span.Status = sentry.SpanStatusNotFound
		return "", ErrNoArtwork
	}

	log.Tracef("artwork for '%s' by %s: %s", title, artist, url)
	span.Status = sentry.SpanStatusOK
	return url, nil
}

func pickImage(images []spotifyclient.Image) string {
	best := ""
	bestDiff := -1
	for _, img := range images {
		if img.URL == "" {
			continue
		}
		diff := int(img.Width) - preferredImageSize
		if diff < 0 {
			diff = -diff
		}
		if bestDiff < 0 || diff < bestDiff {
			best, bestDiff = img.URL, diff
		}
	}
	return best
}
