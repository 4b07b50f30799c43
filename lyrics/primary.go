package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"lyricsd/models"
	"lyricsd/schema"
)

type primaryResponse struct {
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	Lyrics       string `json:"lyrics" validate:"required_without=Error"`
	Error        string `json:"error"`
	SourceURL    string `json:"sourceUrl" validate:"omitempty,url"`
	ThumbnailURL string `json:"thumbnailUrl" validate:"omitempty,url"`
}

// Primary queries the structured lyrics endpoint: GET {base}/lyrics?title=&artist=.
type Primary struct {
	baseURL string
	client  *http.Client
}

func NewPrimary(baseURL string, client *http.Client) *Primary {
	return &Primary{baseURL: baseURL, client: client}
}

func (p *Primary) Name() string { return "primary" }

func (p *Primary) Resolve(ctx context.Context, q Query) Result {
	if p.baseURL == "" {
		return skip(fmt.Errorf("%w: primary endpoint not configured", ErrUpstreamUnavailable))
	}

	params := url.Values{}
	params.Set("title", q.Title)
	if q.Artist != "" {
		params.Set("artist", q.Artist)
	}
	u := p.baseURL + "/lyrics?" + params.Encode()

	var body primaryResponse
	if err := getJSON(ctx, p.client, u, nil, &body); err != nil {
		return skip(err)
	}

	title := body.Title
	if title == "" {
		title = q.Title
	}
	artist := body.Artist
	if artist == "" {
		artist = q.Artist
	}

	record, err := schema.Record(models.LyricsRecord{
		Title:        title,
		Artist:       artist,
		Lyrics:       body.Lyrics,
		SourceURL:    body.SourceURL,
		ThumbnailURL: body.ThumbnailURL,
		Error:        body.Error,
	})
	if err != nil {
		return skip(err)
	}

	if !record.Successful() {
		if record.Error == "" {
			record.Error = "Lyrics not found for this song."
		}
		return failed(record, errors.Join(ErrNotFound, errors.New(record.Error)))
	}
	return found(record)
}
