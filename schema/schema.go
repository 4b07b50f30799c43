// Package schema checks upstream payloads and cached records before they are trusted.
// Every source response goes through Decode and every outgoing record through Record,
// so drift in a third-party API shape can't leak malformed data into the cache.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"lyricsd/models"
)

// ErrSchemaMismatch is returned when a payload does not have the expected shape.
var ErrSchemaMismatch = errors.New("schema mismatch")

var validate = validator.New(validator.WithRequiredStructEnabled())

var lrcTimestamp = regexp.MustCompile(`\[\d+:\d+(?:\.\d+)?\]`)

// Check validates v against its `validate` struct tags.
func Check(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace()+":"+fe.Tag())
			}
			return fmt.Errorf("%w: %s", ErrSchemaMismatch, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return nil
}

// Decode reads a JSON document into v and validates it.
func Decode(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrSchemaMismatch, err)
	}
	return Check(v)
}

// Unmarshal is Decode for an in-memory payload.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrSchemaMismatch, err)
	}
	return Check(v)
}

// Record normalizes r and validates the result.
func Record(r models.LyricsRecord) (models.LyricsRecord, error) {
	r.Title = strings.TrimSpace(r.Title)
	r.Artist = strings.TrimSpace(r.Artist)
	if r.Artist == "" {
		r.Artist = models.UnknownArtist
	}
	r.Lyrics = NormalizeLyrics(r.Lyrics)
	r.SourceURL = strings.TrimSpace(r.SourceURL)
	r.ThumbnailURL = strings.TrimSpace(r.ThumbnailURL)
	r.Error = strings.TrimSpace(r.Error)

	if err := Check(r); err != nil {
		return models.LyricsRecord{}, err
	}
	return r, nil
}

// NormalizeLyrics unifies line endings, drops LRC timestamps and trims blank edges.
func NormalizeLyrics(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	if lrcTimestamp.MatchString(s) {
		lines := strings.Split(s, "\n")
		for i, line := range lines {
			lines[i] = strings.TrimSpace(lrcTimestamp.ReplaceAllString(line, ""))
		}
		s = strings.Join(lines, "\n")
	}
	return strings.TrimSpace(s)
}
