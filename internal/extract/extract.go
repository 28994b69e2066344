// Package extract turns fetched page HTML into individual job postings for
// scoring. Listing pages carry several postings; detail pages carry one. The
// extractor tries structured selectors first, then heading segmentation, and
// finally falls back to the whole page as a single posting.
package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marek/jobshield/internal/fetch"
)

// Extraction methods reported in results.
const (
	MethodStructured = "structured_selectors"
	MethodHeadings   = "heading_segmentation"
	MethodWholePage  = "whole_page"
)

// minPostingChars is the minimum text length for a segment to count as a posting.
const minPostingChars = 100

// maxPostings caps how many postings one page can yield.
const maxPostings = 20

// cardSelectors identify repeated posting cards on listing pages.
var cardSelectors = []string{
	".job-card",
	".job-listing",
	".posting-card",
	".job_seen_beacon",
	".jobs-search-results__list-item",
	"[data-testid='job-card']",
	"li.job-result",
	".search-result-card",
}

// containerSelectors identify a single posting's content block on pages
// without a recognized platform. Broad fallbacks like main or article are
// deliberately absent here: they match almost any page and would mask the
// segmentation tier.
var containerSelectors = []string{
	".job-description",
	".job-content",
	"#job-description",
	"#job-content",
	".posting-content",
	".job-details",
	"[data-testid='job-description']",
}

// Posting is one extracted job posting.
type Posting struct {
	Index int    `json:"index"`
	Title string `json:"title,omitempty"`
	Text  string `json:"text"`
	Chars int    `json:"chars"`
}

// Result holds the postings extracted from one page.
type Result struct {
	Postings   []Posting `json:"postings"`
	Method     string    `json:"method"`
	Hash       string    `json:"hash"` // SHA256 hex digest of the page text
	TotalChars int       `json:"total_chars"`
	Truncated  bool      `json:"truncated,omitempty"`
}

// EmptyContentError indicates a page had no analyzable text.
type EmptyContentError struct {
	URL   string
	Chars int
}

func (e *EmptyContentError) Error() string {
	return fmt.Sprintf("no analyzable content at %s (%d chars after cleanup)", e.URL, e.Chars)
}

// FromHTML extracts postings from raw page HTML.
func FromHTML(pageURL, html string) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	// Strip scripts, chrome, and platform noise before any segmentation
	doc.Find("script, style, noscript, nav, footer, header").Remove()
	platform := fetch.DetectPlatform(pageURL)
	if noise := fetch.PlatformNoiseSelectors(platform); len(noise) > 0 {
		doc.Find(strings.Join(noise, ", ")).Remove()
	}

	pageText := flatten(doc.Find("body").Text())
	if len(pageText) < minPostingChars {
		return nil, &EmptyContentError{URL: pageURL, Chars: len(pageText)}
	}

	result := &Result{
		Hash:       computeHash(pageText),
		TotalChars: len(pageText),
	}

	// Tier 1: repeated posting cards, then a single structured container
	if postings := fromCards(doc); len(postings) >= 2 {
		result.Method = MethodStructured
		result.Postings, result.Truncated = capPostings(postings)
		return result, nil
	}
	if posting, ok := fromContainer(doc, platform); ok {
		result.Method = MethodStructured
		result.Postings = []Posting{posting}
		return result, nil
	}

	// Tier 2: heading segmentation
	if postings := fromHeadings(doc); len(postings) >= 2 {
		result.Method = MethodHeadings
		result.Postings, result.Truncated = capPostings(postings)
		return result, nil
	}

	// Tier 3: the whole page as one posting
	result.Method = MethodWholePage
	result.Postings = []Posting{{
		Index: 0,
		Title: flatten(doc.Find("title").First().Text()),
		Text:  pageText,
		Chars: len(pageText),
	}}
	return result, nil
}

// FromText wraps pre-extracted text as a single posting. Callers that
// already hold posting text (browser captures, CLI input) use this path.
func FromText(pageURL, text string) (*Result, error) {
	cleaned := flatten(text)
	if len(cleaned) < minPostingChars {
		return nil, &EmptyContentError{URL: pageURL, Chars: len(cleaned)}
	}
	return &Result{
		Postings:   []Posting{{Index: 0, Text: cleaned, Chars: len(cleaned)}},
		Method:     MethodWholePage,
		Hash:       computeHash(cleaned),
		TotalChars: len(cleaned),
	}, nil
}

// fromCards collects repeated posting cards from listing markup.
func fromCards(doc *goquery.Document) []Posting {
	for _, selector := range cardSelectors {
		nodes := doc.Find(selector)
		if nodes.Length() < 2 {
			continue
		}
		var postings []Posting
		nodes.Each(func(_ int, card *goquery.Selection) {
			text := flatten(card.Text())
			if len(text) < minPostingChars {
				return
			}
			postings = append(postings, Posting{
				Index: len(postings),
				Title: flatten(card.Find("h1, h2, h3, h4, a").First().Text()),
				Text:  text,
				Chars: len(text),
			})
		})
		if len(postings) >= 2 {
			return postings
		}
	}
	return nil
}

// fromContainer extracts a single posting from a platform content container.
func fromContainer(doc *goquery.Document, platform fetch.Platform) (Posting, bool) {
	selectors := containerSelectors
	if platform != fetch.PlatformUnknown {
		selectors = append(fetch.PlatformContentSelectors(platform), containerSelectors...)
	}
	for _, selector := range selectors {
		node := doc.Find(selector).First()
		if node.Length() == 0 {
			continue
		}
		text := flatten(node.Text())
		if len(text) < minPostingChars {
			continue
		}
		title := flatten(doc.Find("h1").First().Text())
		if title == "" {
			title = flatten(node.Find("h1, h2, h3").First().Text())
		}
		return Posting{Index: 0, Title: title, Text: text, Chars: len(text)}, true
	}
	return Posting{}, false
}

// fromHeadings splits the page into segments at h2/h3 boundaries. Pages that
// inline several postings under headings (community boards, digest pages)
// segment here when no structured markup exists.
func fromHeadings(doc *goquery.Document) []Posting {
	var postings []Posting
	doc.Find("h2, h3").Each(func(_ int, heading *goquery.Selection) {
		title := flatten(heading.Text())
		body := flatten(heading.NextUntil("h2, h3").Text())
		text := strings.TrimSpace(title + " " + body)
		if len(text) < minPostingChars {
			return
		}
		postings = append(postings, Posting{
			Index: len(postings),
			Title: title,
			Text:  text,
			Chars: len(text),
		})
	})
	return postings
}

// capPostings truncates a posting list to maxPostings.
func capPostings(postings []Posting) ([]Posting, bool) {
	if len(postings) <= maxPostings {
		return postings, false
	}
	return postings[:maxPostings], true
}

// flatten collapses all whitespace runs to single spaces. Scoring matches
// keywords, so line structure carries no signal worth preserving.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}
