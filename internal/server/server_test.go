package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/analysis"
	"github.com/marek/jobshield/internal/classify"
	"github.com/marek/jobshield/internal/factstore"
	"github.com/marek/jobshield/internal/feedback"
	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/reputation"
	"github.com/marek/jobshield/internal/scoring"
	"github.com/marek/jobshield/internal/types"
)

const fraudPostingText = `Work from home data entry position. Earn guaranteed income
from day one. A small registration fee of $50 unlocks your starter kit. Contact our
hiring manager on WhatsApp to start today. No experience needed.`

// testRig wires a full pipeline against the in-memory Fact Store.
type testRig struct {
	server  *Server
	handler http.Handler
	store   *factstore.MemoryStore
	ledger  *feedback.Ledger
}

func newTestRig(t *testing.T, mutate func(*Deps)) *testRig {
	t.Helper()
	// Keep mutating routes open unless a test opted in before building the rig.
	if _, ok := os.LookupEnv("JWT_SECRET"); !ok {
		t.Setenv("JWT_SECRET", "")
	}

	store := factstore.NewMemoryStore()
	source := factstore.NewCachedSource(store, factstore.CacheConfig{FetchTimeout: time.Second})
	library, err := patterns.NewLibrary()
	require.NoError(t, err)

	classifier := classify.NewClassifier(library.Signals(), nil, classify.Config{})
	ledger := feedback.NewLedger(classifier, store, feedback.Config{})
	t.Cleanup(ledger.Close)

	deps := Deps{
		Checker:    reputation.NewChecker(source),
		Classifier: classifier,
		Ledger:     ledger,
		Library:    library,
		Source:     source,
	}

	analyzer, err := analysis.New(analysis.Deps{
		Checker:    deps.Checker,
		Classifier: classifier,
		Scorer:     scoring.NewScorer(library, scoring.Config{}),
		Library:    library,
		Source:     source,
		Store:      store,
		Ledger:     ledger,
	}, analysis.Config{StageTimeout: 2 * time.Second})
	require.NoError(t, err)
	deps.Analyzer = analyzer

	if mutate != nil {
		mutate(&deps)
	}

	srv, err := New(deps, Config{Port: 0, APIKey: "test-key"})
	require.NoError(t, err)

	return &testRig{
		server:  srv,
		handler: srv.httpServer.Handler,
		store:   store,
		ledger:  ledger,
	}
}

func (rig *testRig) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	rig.handler.ServeHTTP(rec, req)
	return rec
}

func jsonBody(t *testing.T, body any) *bytes.Reader {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestNew_RequiresAnalyzer(t *testing.T) {
	_, err := New(Deps{}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "analyzer")
}

func TestHandleHealth(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodGet, "/health", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleAnalyze_FraudPostings(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/analyze", AnalyzeRequest{
		PageURL:  "https://jobs.example.com/postings/17",
		Postings: []string{fraudPostingText},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[types.PageResult](t, rec)
	assert.True(t, result.IsFraud)
	assert.True(t, result.RiskLevel.AtLeast(types.RiskMedium))
	assert.Equal(t, types.VerdictResult, result.Verdict)
}

func TestHandleAnalyze_EmptyRequest(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/analyze", AnalyzeRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyze_InvalidURL(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/analyze", map[string]any{
		"page_url": "not a url",
		"postings": []string{"text"},
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleAnalyze_BlacklistedDomain(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.store.SetBlacklist(types.BlacklistDoc{Domains: []string{"scam-jobs.biz"}})

	rec := rig.do(t, http.MethodPost, "/analyze", AnalyzeRequest{
		PageURL:  "https://scam-jobs.biz/offer",
		Postings: []string{"any text"},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[types.PageResult](t, rec)
	assert.Equal(t, types.VerdictDomainBlacklisted, result.Verdict)
	assert.Equal(t, types.MethodDomainBlacklist, result.Method)
	assert.InDelta(t, 0.95, result.Confidence, 1e-9)
}

func TestHandleAnalyzeStream_EmitsStageEvents(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/analyze/stream", AnalyzeRequest{
		PageURL:  "https://jobs.example.com/postings/18",
		Postings: []string{fraudPostingText},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: stage")
	assert.Contains(t, body, "event: result")
	assert.Contains(t, body, "event: complete")
}

func TestHandleClassify_Features(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/classify", ClassifyRequest{
		Features: &types.ClassificationFeatures{
			ContentDensity: 0.9,
			JobIndicators:  0.9,
			URLScore:       0.8,
			SemanticScore:  0.8,
			StructureScore: 0.7,
		},
	})

	require.Equal(t, http.StatusOK, rec.Code)
	classification := decodeBody[types.Classification](t, rec)
	assert.Equal(t, types.PageJobPosting, classification.PageType)
	assert.True(t, classification.ShouldAnalyze)
}

func TestHandleClassify_MissingInput(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/classify", ClassifyRequest{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitFeedback(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/feedback", FeedbackRequest{
		PageURL:              "https://jobs.example.com/postings/19",
		UserClassification:   types.PageLandingPage,
		SystemClassification: types.PageJobPosting,
		Features:             &types.ClassificationFeatures{NavigationScore: 0.9},
	})

	require.Equal(t, http.StatusAccepted, rec.Code)

	stats := rig.ledger.Stats()
	assert.Equal(t, 1, stats.TotalRecords)
	assert.Equal(t, 0, stats.CorrectRecords)
}

func TestHandleSubmitFeedback_InvalidClassification(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodPost, "/feedback", map[string]string{
		"user_classification":   "banana",
		"system_classification": "job_posting",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSubmitFeedback_NoLedger(t *testing.T) {
	rig := newTestRig(t, func(deps *Deps) { deps.Ledger = nil })

	rec := rig.do(t, http.MethodPost, "/feedback", FeedbackRequest{
		UserClassification:   types.PageJobPosting,
		SystemClassification: types.PageJobPosting,
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleCheckDomain(t *testing.T) {
	rig := newTestRig(t, nil)
	rig.store.SetBlacklist(types.BlacklistDoc{Domains: []string{"scam-jobs.biz"}})

	rec := rig.do(t, http.MethodGet, "/domains/www.scam-jobs.biz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[DomainResponse](t, rec)
	assert.True(t, resp.IsFraudulent)
	assert.Equal(t, "scam-jobs.biz", resp.Domain)
	assert.Nil(t, resp.ReportCount) // no archive configured
}

func TestHandleGetPatterns(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodGet, "/patterns", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[PatternsResponse](t, rec)
	assert.NotEmpty(t, resp.FraudSets)
	assert.NotEmpty(t, resp.LegitSets)
	assert.False(t, resp.HasModel)
}

func TestHandleStats(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodGet, "/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[map[string]any](t, rec)
	assert.Contains(t, stats, "result_cache_entries")
	assert.Contains(t, stats, "feedback")
	assert.Contains(t, stats, "fact_store")
	assert.NotContains(t, stats, "archive")
}

func TestHandleListReports_NoArchive(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodGet, "/reports", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleListAnalyses_NoArchive(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodGet, "/analyses", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitHeaders(t *testing.T) {
	rig := newTestRig(t, nil)

	rec := rig.do(t, http.MethodGet, "/stats", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestCORSPreflight(t *testing.T) {
	rig := newTestRig(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	rec := httptest.NewRecorder()
	rig.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
