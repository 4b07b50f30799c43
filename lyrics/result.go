package lyrics

import (
	"context"
	"errors"

	"lyricsd/models"
	"lyricsd/schema"
)

var (
	// ErrUpstreamUnavailable covers network failures, non-404 error statuses and unconfigured sources.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNotFound means the source answered but has no lyrics for the song.
	ErrNotFound = errors.New("lyrics not found")
	// ErrScrapeExtraction means a lyrics page was fetched but no strategy found the text.
	ErrScrapeExtraction = errors.New("no lyrics on page")
	// ErrMissingArtist is returned by sources that cannot search on a title alone.
	ErrMissingArtist = errors.New("artist required")
	// ErrSchemaMismatch means an upstream payload failed validation.
	ErrSchemaMismatch = schema.ErrSchemaMismatch
)

// Query identifies the song being resolved. Artist may be empty.
type Query struct {
	Title  string
	Artist string
}

// Source is one upstream the resolver can ask for lyrics.
type Source interface {
	Name() string
	Resolve(ctx context.Context, q Query) Result
}

// Outcome tags what a Source produced for one query.
type Outcome int

const (
	// Skip means the source could not help; try the next one.
	Skip Outcome = iota
	// Found carries a validated record.
	Found
	// Failed carries an error record; the resolver still falls back.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Failed:
		return "failed"
	default:
		return "skip"
	}
}

// Result is what a Source returns instead of a Go error.
type Result struct {
	Outcome Outcome
	Record  models.LyricsRecord
	Err     error
}

func found(r models.LyricsRecord) Result {
	return Result{Outcome: Found, Record: r}
}

func skip(err error) Result {
	return Result{Outcome: Skip, Err: err}
}

func failed(r models.LyricsRecord, err error) Result {
	return Result{Outcome: Failed, Record: r, Err: err}
}

// HasLyrics reports whether the result carries usable lyrics text.
func (r Result) HasLyrics() bool {
	return r.Outcome == Found && r.Record.Successful()
}
