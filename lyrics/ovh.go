package lyrics

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"lyricsd/models"
	"lyricsd/schema"
)

type ovhResponse struct {
	Lyrics string `json:"lyrics" validate:"required"`
}

// Ovh queries the lyrics.ovh API: GET {base}/v1/{artist}/{title}.
type Ovh struct {
	baseURL string
	client  *http.Client
}

func NewOvh(baseURL string, client *http.Client) *Ovh {
	return &Ovh{baseURL: baseURL, client: client}
}

func (o *Ovh) Name() string { return "lyrics.ovh" }

func (o *Ovh) Resolve(ctx context.Context, q Query) Result {
	if q.Artist == "" {
		return skip(ErrMissingArtist)
	}
	if o.baseURL == "" {
		return skip(fmt.Errorf("%w: lyrics.ovh endpoint not configured", ErrUpstreamUnavailable))
	}

	u := fmt.Sprintf("%s/v1/%s/%s", o.baseURL,
		url.PathEscape(strings.TrimSpace(q.Artist)),
		url.PathEscape(strings.TrimSpace(q.Title)))

	var body ovhResponse
	if err := getJSON(ctx, o.client, u, nil, &body); err != nil {
		return skip(err)
	}

	record, err := schema.Record(models.LyricsRecord{
		Title:  q.Title,
		Artist: q.Artist,
		Lyrics: stripOvhPreamble(body.Lyrics),
	})
	if err != nil {
		return skip(err)
	}
	if record.Lyrics == "" {
		return skip(ErrNotFound)
	}
	return found(record)
}

// lyrics.ovh sometimes prefixes French credits ("Paroles de la chanson X par Y").
func stripOvhPreamble(s string) string {
	s = strings.TrimLeft(s, "\r\n ")
	if strings.HasPrefix(s, "Paroles de la chanson") {
		if i := strings.IndexAny(s, "\r\n"); i >= 0 {
			return s[i+1:]
		}
		return ""
	}
	return s
}
