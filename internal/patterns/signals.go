package patterns

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// PageSignals bundles the page-type indicator matchers consumed by the
// classifier's feature computation. Hits count distinct dictionary entries.
type PageSignals struct {
	job       *ahocorasick.Matcher
	landing   *ahocorasick.Matcher
	structure *ahocorasick.Matcher
	semantic  *ahocorasick.Matcher
}

var jobIndicatorDict = []string{
	"responsibilities", "qualifications", "apply now", "salary", "benefits",
	"full-time", "part-time", "job description", "what you'll do",
	"we are looking for", "about the role", "requirements", "compensation",
	"apply for this job", "employment type", "experience level",
}

var landingIndicatorDict = []string{
	"view all jobs", "browse jobs", "search jobs", "open positions",
	"job openings", "all departments", "filter by", "load more",
	"results per page", "sort by", "featured jobs", "job alerts",
	"current openings",
}

var structureMarkerDict = []string{
	"salary", "compensation", "requirements", "benefits",
	"responsibilities", "how to apply", "about the company", "about us",
}

var semanticTitleDict = []string{
	"job", "career", "careers", "hiring", "position", "vacancy",
	"opening", "apply", "engineer", "developer", "analyst", "manager",
}

func newPageSignals() *PageSignals {
	return &PageSignals{
		job:       ahocorasick.NewStringMatcher(jobIndicatorDict),
		landing:   ahocorasick.NewStringMatcher(landingIndicatorDict),
		structure: ahocorasick.NewStringMatcher(structureMarkerDict),
		semantic:  ahocorasick.NewStringMatcher(semanticTitleDict),
	}
}

// JobIndicatorHits counts distinct job-posting indicators in page text
func (s *PageSignals) JobIndicatorHits(text string) int {
	return len(s.job.MatchThreadSafe([]byte(strings.ToLower(text))))
}

// LandingHits counts distinct listings-page indicators in page text
func (s *PageSignals) LandingHits(text string) int {
	return len(s.landing.MatchThreadSafe([]byte(strings.ToLower(text))))
}

// StructureHits counts distinct posting section markers in page text
func (s *PageSignals) StructureHits(text string) int {
	return len(s.structure.MatchThreadSafe([]byte(strings.ToLower(text))))
}

// SemanticHits counts distinct job words in title or heading text
func (s *PageSignals) SemanticHits(text string) int {
	return len(s.semantic.MatchThreadSafe([]byte(strings.ToLower(text))))
}

// JobURLHints are path fragments that suggest a single-posting URL
func JobURLHints() []string {
	return []string{"/job/", "/jobs/", "/careers/", "/position/", "/opening/", "/vacancy/", "/posting/", "/apply"}
}

// ListingURLHints are path or query fragments that suggest a listings URL
func ListingURLHints() []string {
	return []string{"/search", "/listings", "/browse", "?page=", "&page=", "?q=", "jobs?", "/departments"}
}
