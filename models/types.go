package models

// UnknownArtist is used when neither the caller nor any source resolved an artist.
const UnknownArtist = "Unknown"

// LyricsRecord is the one shape returned to callers and stored in the cache.
type LyricsRecord struct {
	Title        string `json:"title" validate:"required"`
	Artist       string `json:"artist" validate:"required"`
	Lyrics       string `json:"lyrics"`
	SourceURL    string `json:"sourceUrl,omitempty" validate:"omitempty,url"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty" validate:"omitempty,url"`
	Error        string `json:"error,omitempty"`
	// Message carries a note for degraded results, e.g. a link-only scrape.
	Message string `json:"message,omitempty"`
}

// Successful reports whether the record holds lyrics and no error.
// Only successful records are eligible for caching.
func (r LyricsRecord) Successful() bool {
	return r.Lyrics != "" && r.Error == ""
}

// Degraded reports whether the record points at a source page but has no lyrics text.
func (r LyricsRecord) Degraded() bool {
	return r.Lyrics == "" && r.Error == "" && r.SourceURL != ""
}

func NotFound(title string) LyricsRecord {
	return LyricsRecord{
		Title:  title,
		Artist: UnknownArtist,
		Error:  "Lyrics not found for this song.",
	}
}

func Failed(title, artist, reason string) LyricsRecord {
	if artist == "" {
		artist = UnknownArtist
	}
	return LyricsRecord{
		Title:  title,
		Artist: artist,
		Error:  reason,
	}
}
