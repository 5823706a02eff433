package fetch

import (
	"net/url"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
)

// minReadableRunes is the shortest readability output trusted over the paragraph fallback.
const minReadableRunes = 200

// ReadabilityExtractor pulls the main article text out of an HTML page.
type ReadabilityExtractor struct {
	policy *bluemonday.Policy
}

func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{policy: bluemonday.StrictPolicy()}
}

func (e *ReadabilityExtractor) Extract(raw, pageURL string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if !strings.Contains(trimmed, "<") {
		text := normalizeWhitespace(trimmed)
		return text, text != ""
	}

	cleaned := trimmed
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(trimmed)); err == nil {
		doc.Find("script, style, noscript, template, iframe, embed, object, video, audio, canvas, svg").Remove()
		doc.Find("nav, header, footer, aside, form").Remove()
		doc.Find("[class*='cookie'], [id*='cookie'], [class*='share'], [class*='comment'], [id*='comment']").Remove()
		if html, err := doc.Html(); err == nil && html != "" {
			cleaned = html
		}
	}

	var base *url.URL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		base = u
	}

	if article, err := readability.FromReader(strings.NewReader(cleaned), base); err == nil {
		var buf strings.Builder
		if err := article.RenderText(&buf); err == nil {
			text := normalizeWhitespace(buf.String())
			if len([]rune(text)) >= minReadableRunes {
				return text, true
			}
		}
	}

	if text := paragraphs(cleaned); text != "" {
		return text, true
	}

	text := normalizeWhitespace(e.policy.Sanitize(cleaned))
	return text, text != ""
}

// paragraphs collects headings, paragraphs, code and list items in document order.
func paragraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	var parts []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, pre, li").Each(func(_ int, s *goquery.Selection) {
		if t := normalizeWhitespace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n\n")
}

// normalizeWhitespace collapses runs of spaces inside lines and drops blank lines.
func normalizeWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
