package lyrics

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestPrimary(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		query       Query
		wantOutcome Outcome
		wantErr     error
		wantLyrics  string
		wantArtist  string
	}{
		{
			name:        "success",
			handler:     writeJSON(http.StatusOK, map[string]string{"title": "Imagine", "artist": "John Lennon", "lyrics": "Imagine there's no heaven"}),
			query:       Query{Title: "Imagine"},
			wantOutcome: Found,
			wantLyrics:  "Imagine there's no heaven",
			wantArtist:  "John Lennon",
		},
		{
			name:        "missing fields fall back to query",
			handler:     writeJSON(http.StatusOK, map[string]string{"lyrics": "la la la"}),
			query:       Query{Title: "Song", Artist: "Band"},
			wantOutcome: Found,
			wantLyrics:  "la la la",
			wantArtist:  "Band",
		},
		{
			name:        "error in body",
			handler:     writeJSON(http.StatusOK, map[string]string{"title": "Song", "error": "No lyrics"}),
			query:       Query{Title: "Song"},
			wantOutcome: Failed,
			wantErr:     ErrNotFound,
			wantArtist:  "Unknown",
		},
		{
			name:        "not found",
			handler:     writeStatus(http.StatusNotFound),
			query:       Query{Title: "Song"},
			wantOutcome: Skip,
			wantErr:     ErrNotFound,
		},
		{
			name:        "server error",
			handler:     writeStatus(http.StatusInternalServerError),
			query:       Query{Title: "Song"},
			wantOutcome: Skip,
			wantErr:     ErrUpstreamUnavailable,
		},
		{
			name:        "schema drift",
			handler:     writeJSON(http.StatusOK, map[string]any{"title": "Song", "lyrics": 12}),
			query:       Query{Title: "Song"},
			wantOutcome: Skip,
			wantErr:     ErrSchemaMismatch,
		},
		{
			name:        "neither lyrics nor error",
			handler:     writeJSON(http.StatusOK, map[string]string{"title": "Song"}),
			query:       Query{Title: "Song"},
			wantOutcome: Skip,
			wantErr:     ErrSchemaMismatch,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.handle("/lyrics", tt.handler)

			res := NewPrimary(up.URL, up.Client()).Resolve(context.Background(), tt.query)
			if res.Outcome != tt.wantOutcome {
				t.Fatalf("Resolve() outcome = %v, want %v (err %v)", res.Outcome, tt.wantOutcome, res.Err)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Resolve() err = %v, want %v", res.Err, tt.wantErr)
			}
			if res.Record.Lyrics != tt.wantLyrics {
				t.Errorf("Resolve() lyrics = %q, want %q", res.Record.Lyrics, tt.wantLyrics)
			}
			if tt.wantArtist != "" && res.Record.Artist != tt.wantArtist {
				t.Errorf("Resolve() artist = %q, want %q", res.Record.Artist, tt.wantArtist)
			}
		})
	}
}

func TestPrimarySendsQuery(t *testing.T) {
	up := newFakeUpstream(t)
	up.handle("/lyrics", writeJSON(http.StatusOK, map[string]string{"lyrics": "x y z"}))

	NewPrimary(up.URL, up.Client()).Resolve(context.Background(), Query{Title: "Let It Be", Artist: "The Beatles"})

	if got, want := up.lastPath("/lyrics"), "/lyrics?artist=The+Beatles&title=Let+It+Be"; got != want {
		t.Errorf("request = %q, want %q", got, want)
	}
}

func TestPrimaryNotConfigured(t *testing.T) {
	res := NewPrimary("", http.DefaultClient).Resolve(context.Background(), Query{Title: "Song"})
	if res.Outcome != Skip || !errors.Is(res.Err, ErrUpstreamUnavailable) {
		t.Errorf("Resolve() = %v / %v, want skip / ErrUpstreamUnavailable", res.Outcome, res.Err)
	}
}

func TestOvh(t *testing.T) {
	tests := []struct {
		name        string
		handler     http.HandlerFunc
		query       Query
		wantOutcome Outcome
		wantErr     error
		wantLyrics  string
	}{
		{
			name:        "success",
			handler:     writeJSON(http.StatusOK, map[string]string{"lyrics": "Is this the real life...\r\nIs this just fantasy?"}),
			query:       Query{Title: "Bohemian Rhapsody", Artist: "Queen"},
			wantOutcome: Found,
			wantLyrics:  "Is this the real life...\nIs this just fantasy?",
		},
		{
			name:        "strips french preamble",
			handler:     writeJSON(http.StatusOK, map[string]string{"lyrics": "Paroles de la chanson Imagine par John Lennon\r\nImagine there's no heaven"}),
			query:       Query{Title: "Imagine", Artist: "John Lennon"},
			wantOutcome: Found,
			wantLyrics:  "Imagine there's no heaven",
		},
		{
			name:        "empty lyrics",
			handler:     writeJSON(http.StatusOK, map[string]string{"lyrics": ""}),
			query:       Query{Title: "Song", Artist: "Band"},
			wantOutcome: Skip,
			wantErr:     ErrSchemaMismatch,
		},
		{
			name:        "whitespace lyrics",
			handler:     writeJSON(http.StatusOK, map[string]string{"lyrics": " \n "}),
			query:       Query{Title: "Song", Artist: "Band"},
			wantOutcome: Skip,
			wantErr:     ErrNotFound,
		},
		{
			name:        "api error",
			handler:     writeJSON(http.StatusNotFound, map[string]string{"error": "No lyrics found"}),
			query:       Query{Title: "Song", Artist: "Band"},
			wantOutcome: Skip,
			wantErr:     ErrNotFound,
		},
		{
			name:        "no artist",
			query:       Query{Title: "Song"},
			wantOutcome: Skip,
			wantErr:     ErrMissingArtist,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.handle("/v1/", tt.handler)

			res := NewOvh(up.URL, up.Client()).Resolve(context.Background(), tt.query)
			if res.Outcome != tt.wantOutcome {
				t.Fatalf("Resolve() outcome = %v, want %v (err %v)", res.Outcome, tt.wantOutcome, res.Err)
			}
			if tt.wantErr != nil && !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Resolve() err = %v, want %v", res.Err, tt.wantErr)
			}
			if res.Record.Lyrics != tt.wantLyrics {
				t.Errorf("Resolve() lyrics = %q, want %q", res.Record.Lyrics, tt.wantLyrics)
			}
		})
	}
}

func TestOvhEscapesPath(t *testing.T) {
	up := newFakeUpstream(t)
	up.handle("/v1/", writeJSON(http.StatusOK, map[string]string{"lyrics": "la"}))

	NewOvh(up.URL, up.Client()).Resolve(context.Background(), Query{Title: "What's Up?", Artist: "AC/DC"})

	if got, want := up.lastPath("/v1/"), "/v1/AC%2FDC/What%27s%20Up%3F"; got != want {
		t.Errorf("request path = %q, want %q", got, want)
	}
}

func TestGenius(t *testing.T) {
	up := newFakeUpstream(t)
	up.handle("/search", up.geniusSearch("Bohemian Rhapsody", "Queen"))
	up.handle("/songs/", writeHTML(lyricsPage(`<div data-lyrics-container="true">Is this the real life?<br>Is this just fantasy?</div>`)))

	res := NewGenius(up.URL, "test-token", up.Client()).Resolve(context.Background(), Query{Title: "bohemian rhapsody", Artist: "queen"})
	if res.Outcome != Found {
		t.Fatalf("Resolve() outcome = %v (err %v)", res.Outcome, res.Err)
	}

	r := res.Record
	if r.Title != "Bohemian Rhapsody" || r.Artist != "Queen" {
		t.Errorf("Resolve() title/artist = %q/%q, want corrected names", r.Title, r.Artist)
	}
	if r.Lyrics != "Is this the real life?\nIs this just fantasy?" {
		t.Errorf("Resolve() lyrics = %q", r.Lyrics)
	}
	if r.SourceURL != up.URL+"/songs/1" || r.ThumbnailURL != up.URL+"/art/1.jpg" {
		t.Errorf("Resolve() urls = %q, %q", r.SourceURL, r.ThumbnailURL)
	}
	if auth := up.lastHeader("/search", "Authorization"); auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
	if ua := up.lastHeader("/songs/", "User-Agent"); ua != browserUserAgent {
		t.Errorf("User-Agent = %q, want browser user agent", ua)
	}
	if got := up.lastPath("/search"); got != "/search?q=queen+bohemian+rhapsody" {
		t.Errorf("search request = %q", got)
	}
}

func TestGeniusDegraded(t *testing.T) {
	tests := []struct {
		name string
		page http.HandlerFunc
	}{
		{"no container", writeHTML(lyricsPage(`<div class="SongHeader">Bohemian Rhapsody</div>`))},
		{"page blocked", writeStatus(http.StatusForbidden)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			up.handle("/search", up.geniusSearch("Bohemian Rhapsody", "Queen"))
			up.handle("/songs/", tt.page)

			res := NewGenius(up.URL, "test-token", up.Client()).Resolve(context.Background(), Query{Title: "Bohemian Rhapsody", Artist: "Queen"})
			if res.Outcome != Found {
				t.Fatalf("Resolve() outcome = %v, want found", res.Outcome)
			}
			if !res.Record.Degraded() {
				t.Errorf("Resolve() record = %+v, want degraded", res.Record)
			}
			if res.Record.Message != DegradedMessage {
				t.Errorf("Resolve() message = %q", res.Record.Message)
			}
			if res.HasLyrics() {
				t.Error("HasLyrics() = true for a link-only result")
			}
		})
	}
}

func TestGeniusSkips(t *testing.T) {
	tests := []struct {
		name    string
		search  func(up *fakeUpstream) http.HandlerFunc
		token   string
		query   Query
		wantErr error
	}{
		{
			name:    "no artist",
			token:   "t",
			query:   Query{Title: "Song"},
			wantErr: ErrMissingArtist,
		},
		{
			name:    "no token",
			query:   Query{Title: "Song", Artist: "Band"},
			wantErr: ErrUpstreamUnavailable,
		},
		{
			name: "zero hits",
			search: func(*fakeUpstream) http.HandlerFunc {
				return writeJSON(http.StatusOK, map[string]any{"response": map[string]any{"hits": []any{}}})
			},
			token:   "t",
			query:   Query{Title: "Song", Artist: "Band"},
			wantErr: ErrNotFound,
		},
		{
			name: "hit without url",
			search: func(*fakeUpstream) http.HandlerFunc {
				return writeJSON(http.StatusOK, map[string]any{"response": map[string]any{"hits": []any{
					map[string]any{"result": map[string]any{"id": 5, "title": "Song", "primary_artist": map[string]any{"name": "Band"}}},
				}}})
			},
			token:   "t",
			query:   Query{Title: "Song", Artist: "Band"},
			wantErr: ErrSchemaMismatch,
		},
		{
			name:    "unauthorized",
			search:  func(*fakeUpstream) http.HandlerFunc { return writeStatus(http.StatusUnauthorized) },
			token:   "bad",
			query:   Query{Title: "Song", Artist: "Band"},
			wantErr: ErrUpstreamUnavailable,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := newFakeUpstream(t)
			if tt.search != nil {
				up.handle("/search", tt.search(up))
			}

			res := NewGenius(up.URL, tt.token, up.Client()).Resolve(context.Background(), tt.query)
			if res.Outcome != Skip {
				t.Fatalf("Resolve() outcome = %v, want skip", res.Outcome)
			}
			if !errors.Is(res.Err, tt.wantErr) {
				t.Errorf("Resolve() err = %v, want %v", res.Err, tt.wantErr)
			}
			if up.count("/songs/") != 0 {
				t.Error("page was scraped after a failed search")
			}
		})
	}
}
