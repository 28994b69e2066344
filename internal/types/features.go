package types

// PageType labels what kind of page the classifier believes it saw
type PageType string

// Page types recognized by the classifier
const (
	PageJobPosting  PageType = "job_posting"
	PageLandingPage PageType = "landing_page"
	PageUncertain   PageType = "uncertain"
)

// ClassificationFeatures is the flat record of per-page signals, each in [0,1].
// Produced fresh per page; never persisted beyond the classification cache.
type ClassificationFeatures struct {
	ContentDensity   float64 `json:"content_density"`
	JobIndicators    float64 `json:"job_indicators"`
	NavigationScore  float64 `json:"navigation_score"`
	URLScore         float64 `json:"url_score"`
	SemanticScore    float64 `json:"semantic_score"`
	StructureScore   float64 `json:"structure_score"`
	LandingPageScore float64 `json:"landing_page_score"`
}

// Clamped returns a copy with every signal forced into [0,1].
// Callers feeding externally supplied features should clamp before classifying.
func (f ClassificationFeatures) Clamped() ClassificationFeatures {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		if v > 1 {
			return 1
		}
		return v
	}
	return ClassificationFeatures{
		ContentDensity:   clamp(f.ContentDensity),
		JobIndicators:    clamp(f.JobIndicators),
		NavigationScore:  clamp(f.NavigationScore),
		URLScore:         clamp(f.URLScore),
		SemanticScore:    clamp(f.SemanticScore),
		StructureScore:   clamp(f.StructureScore),
		LandingPageScore: clamp(f.LandingPageScore),
	}
}

// Classification is the page-type decision returned by the classifier
type Classification struct {
	PageType      PageType           `json:"page_type"`
	Confidence    float64            `json:"confidence"`
	ShouldAnalyze bool               `json:"should_analyze"`
	Score         float64            `json:"score"`
	Breakdown     map[string]float64 `json:"breakdown,omitempty"`
	FromCache     bool               `json:"from_cache,omitempty"`
}
