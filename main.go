package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"lyricsd/agent"
	"lyricsd/cache"
	appConfig "lyricsd/config"
	"lyricsd/database"
	"lyricsd/handlers"
	"lyricsd/logging"
	"lyricsd/lyrics"
	"lyricsd/sentry"
	"lyricsd/spotify"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warnf("Error loading .env file: %v", err)
	}
	cfg := appConfig.Load()
	logging.Setup(cfg.Server.LogLevel)
	sentry.Init(cfg.Sentry)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		sentry.ReportError(err)
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *appConfig.Config) error {
	store, closeStore, err := openStore(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeStore()
	lyricsCache := cache.New(store, cfg.Cache.TTL)

	resolver := lyrics.NewResolver(cfg.Lyrics, lyrics.NewHTTPClient())
	if !cfg.Lyrics.HasGenius() {
		log.Info("GENIUS_ACCESS_TOKEN not set, search and scrape fallback disabled")
	}
	if cfg.Spotify.IsEnabled() {
		artwork, err := spotify.NewArtwork(ctx, cfg.Spotify)
		if err != nil {
			log.Warnf("Spotify artwork disabled: %v", err)
		} else {
			resolver.WithEnricher(artwork)
		}
	}

	var chat handlers.ChatAgent
	if cfg.Gemini.IsEnabled() {
		lyricsAgent, err := agent.New(ctx, cfg.Gemini, resolver, lyricsCache)
		if err != nil {
			log.Warnf("Lyrics agent disabled: %v", err)
		} else {
			chat = lyricsAgent
		}
	}

	router := gin.Default()
	router.Use(sentry.GetSentryGin())
	handlers.NewManager(resolver, lyricsCache, chat).Register(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on :%s", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore picks SQLite when DB_PATH is set and an in-memory store otherwise.
func openStore(ctx context.Context, cfg appConfig.CacheConfig) (cache.Store, func(), error) {
	if cfg.DBPath == "" {
		log.Info("DB_PATH not set, caching lyrics in memory")
		return cache.NewMemoryStore(), func() {}, nil
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		return nil, nil, err
	}
	if n, err := db.Purge(ctx); err != nil {
		log.Warnf("Failed to purge expired lyrics: %v", err)
	} else if n > 0 {
		log.Infof("Purged %d expired lyrics records", n)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			log.Errorf("Error closing database: %v", err)
		}
	}, nil
}
