// Package extractor strips page chrome and returns the readable article text
// of a fetched page.
package extractor

import (
	"bytes"
	"fmt"
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"

	"GenAIMonitor/internal/domain"
	"GenAIMonitor/internal/fingerprint"
	"GenAIMonitor/internal/ports"
)

const defaultMinBodyLength = 50

// noiseSelector matches markup that never carries article text.
const noiseSelector = "script, style, noscript, template, svg, iframe, nav, header, footer, aside, form, " +
	"[role=navigation], [role=banner], [role=contentinfo], [aria-hidden=true], " +
	"[class*=cookie], [id*=cookie], [class*=advert], [id*=advert], [class*=ad-slot], " +
	"[class~=share], [class~=social], .share-buttons, .share-bar, .sharing, .social-share, .social-links, .social-icons, " +
	"[class*=newsletter], [class*=breadcrumb]"

// contentSelectors are tried in order; the first that matches wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".content",
	"#content",
	".post",
	".entry",
	".article-content",
	".blog-post",
}

// Config tunes extraction.
type Config struct {
	// MinBodyLength is the shortest body, in runes, accepted as content.
	MinBodyLength int
}

// HTMLExtractor implements ports.Extractor with goquery, falling back to
// readability when no content container is found.
type HTMLExtractor struct {
	minBody int
	policy  *bluemonday.Policy
}

var _ ports.Extractor = (*HTMLExtractor)(nil)

// New returns an extractor; MinBodyLength defaults to 50.
func New(cfg Config) *HTMLExtractor {
	if cfg.MinBodyLength <= 0 {
		cfg.MinBodyLength = defaultMinBodyLength
	}
	return &HTMLExtractor{minBody: cfg.MinBodyLength, policy: bluemonday.StrictPolicy()}
}

// Extract parses raw markup. Bodies below the minimum length fail with an
// extraction-empty error that still carries the body hash.
func (e *HTMLExtractor) Extract(raw []byte, pageURL string) (domain.ExtractedDoc, error) {
	const op = "extract"

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return domain.ExtractedDoc{}, domain.NewError(domain.KindExtractionEmpty, op, fmt.Errorf("parse document: %w", err))
	}

	out := domain.ExtractedDoc{
		Title:       e.title(doc),
		Description: e.description(doc),
		PublishedAt: publishedAt(doc),
	}

	doc.Find(noiseSelector).Remove()

	body := contentText(doc)
	if utf8.RuneCountInString(body) < e.minBody {
		if title, text := e.readable(raw, pageURL); utf8.RuneCountInString(text) > utf8.RuneCountInString(body) {
			body = text
			if out.Title == "" {
				out.Title = title
			}
		}
	}
	if utf8.RuneCountInString(body) < e.minBody {
		if fallback := textOf(doc.Find("body")); utf8.RuneCountInString(fallback) > utf8.RuneCountInString(body) {
			body = fallback
		}
	}

	out.BodyText = body
	out.ContentHash = fingerprint.Hash(body)

	if utf8.RuneCountInString(body) < e.minBody {
		return out, &domain.PipelineError{
			Kind: domain.KindExtractionEmpty,
			Op:   op,
			Err:  fmt.Errorf("%w: %d characters", domain.ErrEmptyContent, utf8.RuneCountInString(body)),
			Hash: out.ContentHash,
		}
	}
	return out, nil
}

// contentText joins the outermost matches of the first content selector that
// yields any text.
func contentText(doc *goquery.Document) string {
	for _, selector := range contentSelectors {
		matches := doc.Find(selector).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return s.ParentsFiltered(selector).Length() == 0
		})
		if matches.Length() == 0 {
			continue
		}
		if text := textOf(matches); text != "" {
			return text
		}
	}
	return ""
}

func (e *HTMLExtractor) readable(raw []byte, pageURL string) (string, string) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", ""
	}
	article, err := readability.FromReader(bytes.NewReader(raw), parsed)
	if err != nil {
		return "", ""
	}
	return fingerprint.Normalize(article.Title), fingerprint.Normalize(article.TextContent)
}

func (e *HTMLExtractor) title(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:title"]`); v != "" {
		return e.clean(v)
	}
	if v := doc.Find("head title").First().Text(); strings.TrimSpace(v) != "" {
		return e.clean(v)
	}
	return e.clean(doc.Find("h1").First().Text())
}

func (e *HTMLExtractor) description(doc *goquery.Document) string {
	if v := metaContent(doc, `meta[property="og:description"]`); v != "" {
		return e.clean(v)
	}
	return e.clean(metaContent(doc, `meta[name="description"]`))
}

// clean strips any markup smuggled into attribute or title text.
func (e *HTMLExtractor) clean(s string) string {
	return fingerprint.Normalize(html.UnescapeString(e.policy.Sanitize(s)))
}

func metaContent(doc *goquery.Document, selector string) string {
	v, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(v)
}
