package lyrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"

	"lyricsd/cache"
	"lyricsd/config"
	"lyricsd/models"
	"lyricsd/sentryhelper"
)

const defaultSourceTimeout = 8 * time.Second

// Enricher fills in cover art for records that arrive without one.
type Enricher interface {
	Thumbnail(ctx context.Context, title, artist string) (string, error)
}

// Resolver tries the cache, then the primary, secondary and tertiary sources in order.
type Resolver struct {
	primary   Source
	secondary Source
	tertiary  Source
	timeout   time.Duration
	enricher  Enricher
}

// NewResolver wires the three HTTP sources from cfg.
func NewResolver(cfg config.LyricsConfig, client *http.Client) *Resolver {
	if client == nil {
		client = NewHTTPClient()
	}
	return NewResolverWithSources(
		NewPrimary(cfg.PrimaryURL, client),
		NewOvh(cfg.OvhURL, client),
		NewGenius(cfg.GeniusURL, cfg.GeniusToken, client),
		cfg.SourceTimeout,
	)
}

func NewResolverWithSources(primary, secondary, tertiary Source, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultSourceTimeout
	}
	return &Resolver{
		primary:   primary,
		secondary: secondary,
		tertiary:  tertiary,
		timeout:   timeout,
	}
}

func (r *Resolver) WithEnricher(e Enricher) *Resolver {
	r.enricher = e
	return r
}

// Resolve always returns a well-formed record; failures are reported in its
// Error field. A nil store disables caching for this call.
func (r *Resolver) Resolve(ctx context.Context, title, artist string, store *cache.Cache) models.LyricsRecord {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)
	logger := log.WithFields(log.Fields{"module": "lyrics", "title": title, "artist": artist})

	span := sentry.StartSpan(ctx, "lyrics.resolve")
	span.Description = "Resolve lyrics through cache and sources"
	span.SetTag("title", title)
	span.SetTag("artist", artist)
	defer span.Finish()
	ctx = span.Context()

	if title == "" {
		span.Status = sentry.SpanStatusInvalidArgument
		return models.Failed("", artist, "Title is required")
	}

	q := Query{Title: title, Artist: artist}

	var key string
	if artist != "" && store != nil {
		key = cache.Key(artist, title)
		if cached, ok := store.Get(ctx, key); ok {
			logger.Debug("served from cache")
			span.SetTag("source", "cache")
			span.Status = sentry.SpanStatusOK
			return cached
		}
	}

	primary := r.try(ctx, r.primary, q)
	if primary.HasLyrics() {
		return r.accept(ctx, span, store, key, r.primary.Name(), primary.Record)
	}
	if ctx.Err() != nil {
		return abandoned(ctx, logger, span, title, artist)
	}

	if artist == "" {
		logger.Debug("primary source failed and no artist given, not falling back")
		span.Status = sentry.SpanStatusNotFound
		return models.NotFound(title)
	}

	secondary := r.try(ctx, r.secondary, q)
	if secondary.HasLyrics() {
		return r.accept(ctx, span, store, key, r.secondary.Name(), secondary.Record)
	}
	if ctx.Err() != nil {
		return abandoned(ctx, logger, span, title, artist)
	}

	tertiary := r.try(ctx, r.tertiary, q)
	if tertiary.HasLyrics() {
		return r.accept(ctx, span, store, key, r.tertiary.Name(), tertiary.Record)
	}
	if tertiary.Outcome == Found && tertiary.Record.Degraded() {
		// Link-only: handed to the caller but never cached.
		logger.Infof("returning link-only result %s", tertiary.Record.SourceURL)
		span.SetTag("source", r.tertiary.Name()+"/degraded")
		span.Status = sentry.SpanStatusOK
		return tertiary.Record
	}
	if ctx.Err() != nil {
		return abandoned(ctx, logger, span, title, artist)
	}

	logger.Errorf("all lyrics sources failed")
	span.Status = sentry.SpanStatusNotFound
	return models.Failed(title, artist, "Failed to fetch lyrics")
}

// abandoned ends a resolve whose caller went away. Nothing is reported upstream.
func abandoned(ctx context.Context, logger *log.Entry, span *sentry.Span, title, artist string) models.LyricsRecord {
	logger.Debugf("caller gave up, stopping fallback chain: %v", ctx.Err())
	span.Status = sentry.SpanStatusCanceled
	return models.Failed(title, artist, "Failed to fetch lyrics")
}

func (r *Resolver) accept(ctx context.Context, span *sentry.Span, store *cache.Cache, key, source string, record models.LyricsRecord) models.LyricsRecord {
	if record.ThumbnailURL == "" && r.enricher != nil {
		if thumb, err := r.thumbnail(ctx, record); err != nil {
			log.Debugf("artwork lookup failed for %s: %v", record.Title, err)
		} else {
			record.ThumbnailURL = thumb
		}
	}
	if key != "" && store != nil {
		store.Put(ctx, key, record)
	}
	span.SetTag("source", source)
	span.Status = sentry.SpanStatusOK
	return record
}

// thumbnail asks the enricher for artwork under the per-source timeout, even if
// the enricher ignores its context.
func (r *Resolver) thumbnail(ctx context.Context, record models.LyricsRecord) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type artwork struct {
		url string
		err error
	}
	done := make(chan artwork, 1)
	go func() {
		url, err := r.enricher.Thumbnail(ctx, record.Title, record.Artist)
		done <- artwork{url, err}
	}()

	select {
	case a := <-done:
		return a.url, a.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// try runs one source under the per-source timeout and logs its outcome.
func (r *Resolver) try(ctx context.Context, src Source, q Query) (res Result) {
	logger := log.WithFields(log.Fields{"module": "lyrics", "source": src.Name(), "title": q.Title})

	span := sentry.StartSpan(ctx, "lyrics.source."+src.Name())
	span.Description = fmt.Sprintf("Fetch lyrics from %s", src.Name())
	defer span.Finish()

	ctx, cancel := context.WithTimeout(span.Context(), r.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			res = skip(fmt.Errorf("%w: panic: %v", ErrUpstreamUnavailable, p))
		}
		r.report(ctx, logger, span, src.Name(), res)
	}()

	return src.Resolve(ctx, q)
}

func (r *Resolver) report(ctx context.Context, logger *log.Entry, span *sentry.Span, name string, res Result) {
	span.SetTag("outcome", res.Outcome.String())
	sentryhelper.AddBreadcrumb(ctx, &sentry.Breadcrumb{
		Category: "lyrics",
		Message:  fmt.Sprintf("%s: %s", name, res.Outcome),
		Level:    sentry.LevelInfo,
	})

	switch {
	case res.Outcome == Found:
		span.Status = sentry.SpanStatusOK
		logger.Debug("source returned a record")
	case errors.Is(res.Err, context.Canceled), errors.Is(ctx.Err(), context.Canceled):
		span.Status = sentry.SpanStatusCanceled
		logger.Debugf("request cancelled: %v", res.Err)
	case errors.Is(res.Err, ErrMissingArtist), errors.Is(res.Err, ErrNotFound):
		span.Status = sentry.SpanStatusNotFound
		logger.Debugf("source could not help: %v", res.Err)
	case errors.Is(res.Err, ErrSchemaMismatch):
		span.Status = sentry.SpanStatusDataLoss
		logger.Warnf("unexpected response shape: %v", res.Err)
		sentryhelper.CaptureException(ctx, fmt.Errorf("%s: %w", name, res.Err))
	default:
		span.Status = sentry.SpanStatusUnavailable
		if res.Outcome == Failed {
			logger.Warnf("source returned an error record (%s): %v", res.Record.Error, res.Err)
		} else {
			logger.Warnf("source unavailable: %v", res.Err)
		}
		if errors.Is(res.Err, ErrUpstreamUnavailable) {
			sentryhelper.CaptureException(ctx, fmt.Errorf("%s: %w", name, res.Err))
		}
	}
}
