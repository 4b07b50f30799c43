package lyrics

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"lyricsd/config"
)

// fakeUpstream serves every lyrics source from one httptest server and
// counts the calls each route receives.
type fakeUpstream struct {
	*httptest.Server

	mu      sync.Mutex
	calls   map[string]int
	paths   map[string][]string
	headers map[string]http.Header
	routes  map[string]http.HandlerFunc
}

func newFakeUpstream(t *testing.T) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{
		calls:   make(map[string]int),
		paths:   make(map[string][]string),
		headers: make(map[string]http.Header),
		routes:  make(map[string]http.HandlerFunc),
	}

	mux := http.NewServeMux()
	for _, route := range []string{"/lyrics", "/v1/", "/search", "/songs/"} {
		route := route
		mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
			f.mu.Lock()
			f.calls[route]++
			p := r.URL.EscapedPath()
			if r.URL.RawQuery != "" {
				p += "?" + r.URL.RawQuery
			}
			f.paths[route] = append(f.paths[route], p)
			f.headers[route] = r.Header.Clone()
			h := f.routes[route]
			f.mu.Unlock()

			if h == nil {
				http.NotFound(w, r)
				return
			}
			h(w, r)
		})
	}

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeUpstream) handle(route string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[route] = h
}

func (f *fakeUpstream) count(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

func (f *fakeUpstream) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeUpstream) lastPath(route string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.paths[route]
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (f *fakeUpstream) lastHeader(route, name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers[route].Get(name)
}

func (f *fakeUpstream) config() config.LyricsConfig {
	return config.LyricsConfig{
		PrimaryURL:    f.URL,
		OvhURL:        f.URL,
		GeniusURL:     f.URL,
		GeniusToken:   "test-token",
		SourceTimeout: 2 * time.Second,
	}
}

func (f *fakeUpstream) resolver() *Resolver {
	return NewResolver(f.config(), f.Client())
}

func writeJSON(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
}

func writeStatus(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, http.StatusText(status), status)
	}
}

func writeHTML(html string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}
}

// geniusSearch returns a search handler whose first hit points at /songs/1.
func (f *fakeUpstream) geniusSearch(title, artist string) http.HandlerFunc {
	return writeJSON(http.StatusOK, map[string]any{
		"response": map[string]any{
			"hits": []any{
				map[string]any{
					"type": "song",
					"result": map[string]any{
						"id":                           1,
						"title":                        title,
						"url":                          f.URL + "/songs/1",
						"song_art_image_thumbnail_url": f.URL + "/art/1.jpg",
						"primary_artist":               map[string]any{"name": artist},
					},
				},
			},
		},
	})
}

func lyricsPage(body string) string {
	return `<!DOCTYPE html><html><head><title>Lyrics</title></head><body>` +
		`<div id="lyrics-root">` + body + `</div>` +
		`<footer>` + strings.Repeat("footer text ", 5) + `</footer></body></html>`
}
