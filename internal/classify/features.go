package classify

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/types"
)

// Saturation points turning raw page measurements into [0,1] signals
const (
	densitySaturationChars = 4000
	jobIndicatorSaturation = 6
	semanticSaturation     = 3
	structureSaturation    = 4
	landingSaturation      = 4

	// navLinkTextScale stretches the share of text inside links; listing
	// pages sit well above half once scaled
	navLinkTextScale = 1.5
)

// URL signal values
const (
	urlScoreJob     = 0.9
	urlScoreListing = 0.1
	urlScoreRoot    = 0.3
	urlScoreNeutral = 0.5
)

// ClassifyHTML parses page HTML, computes features, and classifies, with
// the result cached by URL and leading content.
func (c *Classifier) ClassifyHTML(pageURL, html string) (types.Classification, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.Classification{}, fmt.Errorf("parsing page HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	text := normalizeSpace(doc.Find("body").Text())

	key := cacheKey(pageURL, text)
	if cached, ok := c.cache.get(key); ok {
		cached.FromCache = true
		return cached, nil
	}

	result := c.Classify(featuresFromDocument(pageURL, doc, text, c.signals))
	c.cache.put(key, result)
	return result, nil
}

// FeaturesFromHTML computes the classification features for one page
// without classifying
func FeaturesFromHTML(pageURL, html string, signals *patterns.PageSignals) (types.ClassificationFeatures, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.ClassificationFeatures{}, fmt.Errorf("parsing page HTML: %w", err)
	}
	doc.Find("script, style, noscript").Remove()
	text := normalizeSpace(doc.Find("body").Text())
	return featuresFromDocument(pageURL, doc, text, signals), nil
}

func featuresFromDocument(pageURL string, doc *goquery.Document, text string, signals *patterns.PageSignals) types.ClassificationFeatures {
	linkText := normalizeSpace(doc.Find("a").Text())
	titleText := doc.Find("title").Text() + " " + doc.Find("h1").Text()
	headingText := doc.Find("h1, h2, h3, h4, dt, strong, b").Text()

	navigation := 0.0
	if len(text) > 0 {
		navigation = clamp01(float64(len(linkText)) / float64(len(text)) * navLinkTextScale)
	}

	return types.ClassificationFeatures{
		ContentDensity:   saturate(len(text), densitySaturationChars),
		JobIndicators:    saturate(signals.JobIndicatorHits(text), jobIndicatorSaturation),
		NavigationScore:  navigation,
		URLScore:         urlScoreFor(pageURL),
		SemanticScore:    saturate(signals.SemanticHits(titleText), semanticSaturation),
		StructureScore:   saturate(signals.StructureHits(headingText), structureSaturation),
		LandingPageScore: saturate(signals.LandingHits(text), landingSaturation),
	}
}

// urlScoreFor reads the URL path and query for posting vs listing hints
func urlScoreFor(pageURL string) float64 {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return urlScoreNeutral
	}

	pathQuery := strings.ToLower(parsed.Path)
	if parsed.RawQuery != "" {
		pathQuery += "?" + strings.ToLower(parsed.RawQuery)
	}

	jobHint := containsAny(pathQuery, patterns.JobURLHints())
	listingHint := containsAny(pathQuery, patterns.ListingURLHints())
	switch {
	case jobHint && !listingHint:
		return urlScoreJob
	case listingHint && !jobHint:
		return urlScoreListing
	case pathQuery == "" || pathQuery == "/":
		return urlScoreRoot
	default:
		return urlScoreNeutral
	}
}

func containsAny(s string, fragments []string) bool {
	for _, fragment := range fragments {
		if strings.Contains(s, fragment) {
			return true
		}
	}
	return false
}

// saturate maps a count onto [0,1], saturating at the given ceiling
func saturate(count, ceiling int) float64 {
	if count >= ceiling {
		return 1
	}
	if count <= 0 {
		return 0
	}
	return float64(count) / float64(ceiling)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
