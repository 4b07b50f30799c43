package lyrics

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// minCoarseLength rejects empty or garbage text from the coarse extraction.
const minCoarseLength = 10

// Strategy locates lyric containers on a page.
type Strategy struct {
	Name     string
	Selector string
}

// DefaultStrategies are tried in order until one yields text.
var DefaultStrategies = []Strategy{
	{Name: "data-attribute", Selector: `[data-lyrics-container="true"]`},
	{Name: "generated-class", Selector: `#lyrics-root [class^="Lyrics__Container"]`},
	{Name: "legacy", Selector: `div.lyrics`},
}

// Decorative and control elements that live inside lyric containers.
const nonLyricsSelector = `svg, button, header, script, style, noscript, iframe, form, ` +
	`[data-exclude-from-selection="true"], [class^="LyricsHeader"], [class*="Icon"], [role="button"]`

// ExtractLyrics runs strategies against doc and returns the lyrics text and
// the name of the strategy that produced it.
func ExtractLyrics(doc *goquery.Document, strategies []Strategy) (string, string, error) {
	for _, strategy := range strategies {
		containers := doc.Find(strategy.Selector)
		if containers.Length() == 0 {
			log.Tracef("strategy %s: no containers", strategy.Name)
			continue
		}

		containers.Find(nonLyricsSelector).Remove()
		containers.Find("br").ReplaceWithHtml("\n")

		if text := paragraphText(containers); text != "" {
			return text, strategy.Name, nil
		}

		text := cleanText(flattenText(containers))
		if len(text) > minCoarseLength {
			return text, strategy.Name + "/coarse", nil
		}
		log.Tracef("strategy %s: containers had no usable text", strategy.Name)
	}
	return "", "", fmt.Errorf("%w: tried %d strategies", ErrScrapeExtraction, len(strategies))
}

func paragraphText(containers *goquery.Selection) string {
	var paragraphs []string
	containers.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := cleanText(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return strings.Join(paragraphs, "\n\n")
}

func flattenText(containers *goquery.Selection) string {
	var parts []string
	containers.Each(func(_ int, s *goquery.Selection) {
		parts = append(parts, s.Text())
	})
	return strings.Join(parts, "\n")
}

// cleanText trims every line and collapses runs of blank lines.
func cleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(out) > 0 && !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
