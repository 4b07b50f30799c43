package lyrics

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"

	"lyricsd/models"
	"lyricsd/schema"
)

// DegradedMessage is returned with link-only results.
const DegradedMessage = "Lyrics could not be extracted automatically. Visit the source link to read them."

type geniusSearchResponse struct {
	Response struct {
		Hits []struct {
			Type   string     `json:"type"`
			Result geniusSong `json:"result"`
		} `json:"hits"`
	} `json:"response"`
}

type geniusSong struct {
	ID            int64  `json:"id" validate:"required"`
	Title         string `json:"title" validate:"required"`
	URL           string `json:"url" validate:"required,url"`
	ThumbnailURL  string `json:"song_art_image_thumbnail_url" validate:"omitempty,url"`
	PrimaryArtist struct {
		Name string `json:"name" validate:"required"`
	} `json:"primary_artist"`
}

// Genius searches the metadata API, then scrapes the first hit's page.
type Genius struct {
	baseURL    string
	token      string
	client     *http.Client
	strategies []Strategy
}

func NewGenius(baseURL, token string, client *http.Client) *Genius {
	return &Genius{
		baseURL:    baseURL,
		token:      token,
		client:     client,
		strategies: DefaultStrategies,
	}
}

// WithStrategies replaces the scrape strategies.
func (g *Genius) WithStrategies(strategies ...Strategy) *Genius {
	g.strategies = strategies
	return g
}

func (g *Genius) Name() string { return "genius" }

func (g *Genius) Resolve(ctx context.Context, q Query) Result {
	if q.Artist == "" {
		return skip(ErrMissingArtist)
	}
	if g.baseURL == "" || g.token == "" {
		return skip(fmt.Errorf("%w: genius credentials not configured", ErrUpstreamUnavailable))
	}

	song, err := g.search(ctx, q.Artist+" "+q.Title)
	if err != nil {
		return skip(err)
	}

	record, err := schema.Record(models.LyricsRecord{
		Title:        song.Title,
		Artist:       song.PrimaryArtist.Name,
		SourceURL:    song.URL,
		ThumbnailURL: song.ThumbnailURL,
	})
	if err != nil {
		return skip(err)
	}

	text, err := g.scrape(ctx, song.URL)
	if err != nil {
		log.WithFields(log.Fields{"module": "lyrics", "source": g.Name(), "url": song.URL}).
			Debugf("scrape failed, returning link only: %v", err)
		record.Message = DegradedMessage
		return Result{Outcome: Found, Record: record, Err: err}
	}

	record.Lyrics = schema.NormalizeLyrics(text)
	return found(record)
}

func (g *Genius) search(ctx context.Context, query string) (geniusSong, error) {
	u := g.baseURL + "/search?" + url.Values{"q": {query}}.Encode()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+g.token)

	var body geniusSearchResponse
	if err := getJSON(ctx, g.client, u, header, &body); err != nil {
		return geniusSong{}, err
	}
	if len(body.Response.Hits) == 0 {
		return geniusSong{}, fmt.Errorf("%w: no search hits for %q", ErrNotFound, query)
	}

	song := body.Response.Hits[0].Result
	if err := schema.Check(song); err != nil {
		return geniusSong{}, err
	}
	return song, nil
}

func (g *Genius) scrape(ctx context.Context, pageURL string) (string, error) {
	header := http.Header{}
	header.Set("User-Agent", browserUserAgent)
	header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := get(ctx, g.client, pageURL, header)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("%w: parse HTML: %v", ErrScrapeExtraction, err)
	}

	text, strategy, err := ExtractLyrics(doc, g.strategies)
	if err != nil {
		return "", err
	}
	log.Tracef("extracted %d bytes of lyrics from %s using %s", len(text), pageURL, strategy)
	return text, nil
}
