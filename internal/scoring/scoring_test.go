package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marek/jobshield/internal/patterns"
	"github.com/marek/jobshield/internal/types"
)

func newScorer(t *testing.T) *Scorer {
	t.Helper()
	library, err := patterns.NewLibrary()
	require.NoError(t, err)
	return NewScorer(library, Config{})
}

// quarterTable gives exact quarter-step scores: one fraud set of four
// keywords at weight 1.0, so each distinct hit adds 0.25.
func quarterTable(t *testing.T) *patterns.Table {
	t.Helper()
	table, err := patterns.Compile("quarters", []patterns.Set{
		{Name: "signals", Category: "test", Keywords: []string{"alpha", "beta", "gamma", "delta"}, Weight: 1.0},
	}, nil)
	require.NoError(t, err)
	return table
}

func TestScorer_ObviousFraudText(t *testing.T) {
	scorer := newScorer(t)

	result, err := scorer.Score("Earn guaranteed income from home! Just pay a one-time " +
		"registration fee and message us on WhatsApp to get started.")
	require.NoError(t, err)

	assert.True(t, result.IsFraud)
	assert.True(t, result.RiskLevel.AtLeast(types.RiskMedium), "got %s", result.RiskLevel)
	assert.Equal(t, types.MethodRuleBased, result.Method)
	assert.NotEmpty(t, result.Reasons)
	assert.NotEmpty(t, result.MatchedFraud)
}

func TestScorer_LegitimatePostingText(t *testing.T) {
	scorer := newScorer(t)

	result, err := scorer.Score("Requirements: 3 years experience with distributed systems. " +
		"Benefits include health insurance and 401(k). Company founded 1998.")
	require.NoError(t, err)

	assert.False(t, result.IsFraud)
	assert.True(t, types.RiskLow.AtLeast(result.RiskLevel), "got %s", result.RiskLevel)
	assert.Zero(t, result.FraudScore)
	assert.Greater(t, result.LegitimateScore, 0.0)
}

func TestScorer_FinalScoreStaysClamped(t *testing.T) {
	scorer := newScorer(t)

	// Every strong indicator at once must still clamp to 1
	result, err := scorer.Score("guaranteed income guaranteed salary registration fee " +
		"processing fee starter kit western union bitcoin gift card whatsapp telegram " +
		"ssn routing number apply immediately act now no experience needed no interview")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, result.FinalScore, 0.0)
	assert.LessOrEqual(t, result.FinalScore, 1.0)
	assert.Equal(t, types.RiskHigh, result.RiskLevel)
}

func TestScorer_MonotonicUnderAddedKeywords(t *testing.T) {
	scorer := newScorer(t)
	base := "Office assistant role in our downtown branch handling mail and scheduling."

	baseResult, err := scorer.Score(base)
	require.NoError(t, err)

	moreFraud, err := scorer.Score(base + " Payment by western union.")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, moreFraud.FraudScore, baseResult.FraudScore)
	assert.GreaterOrEqual(t, moreFraud.FinalScore, baseResult.FinalScore)

	moreLegit, err := scorer.Score(base + " We offer health insurance.")
	require.NoError(t, err)
	assert.LessOrEqual(t, moreLegit.FinalScore, baseResult.FinalScore)
}

func TestScorer_RiskBands(t *testing.T) {
	scorer := NewScorer(nil, Config{})
	profile := RuleProfile(quarterTable(t))

	// Scores step by 0.25 per hit; confidence is 1-score or score, damped
	// by 0.8 inside the low and medium bands
	cases := []struct {
		text      string
		wantLevel types.RiskLevel
		wantFraud bool
		wantConf  float64
	}{
		{"nothing matches here", types.RiskVeryLow, false, 1.0},
		{"alpha only", types.RiskLow, false, 0.6},
		{"alpha beta", types.RiskMedium, true, 0.4},
		{"alpha beta gamma delta", types.RiskHigh, true, 1.0},
	}
	for _, tc := range cases {
		result, err := scorer.ScoreWith(profile, tc.text)
		require.NoError(t, err, tc.text)
		assert.Equal(t, tc.wantLevel, result.RiskLevel, tc.text)
		assert.Equal(t, tc.wantFraud, result.IsFraud, tc.text)
		assert.InDelta(t, tc.wantConf, result.Confidence, 1e-9, tc.text)
	}
}

func TestScorer_ModelThresholdMovesFraudCutoff(t *testing.T) {
	scorer := NewScorer(nil, Config{})
	table, err := patterns.Compile("threshold", []patterns.Set{
		{Name: "pair", Category: "test", Keywords: []string{"alpha", "beta"}, Weight: 0.9},
	}, nil)
	require.NoError(t, err)

	// One hit scores 0.45: fraud under the default 0.4 cutoff, clean under
	// a model threshold of 0.5
	ruleResult, err := scorer.ScoreWith(RuleProfile(table), "alpha")
	require.NoError(t, err)
	assert.True(t, ruleResult.IsFraud)
	assert.Equal(t, types.RiskMedium, ruleResult.RiskLevel)

	modelResult, err := scorer.ScoreWith(ModelProfile(table, patterns.ModelInfo{Threshold: 0.5, Accuracy: 0.9}), "alpha")
	require.NoError(t, err)
	assert.False(t, modelResult.IsFraud)
	assert.Equal(t, types.RiskLow, modelResult.RiskLevel)
}

func TestScorer_ModelAccuracyBlendsIntoConfidence(t *testing.T) {
	scorer := NewScorer(nil, Config{})
	profile := ModelProfile(quarterTable(t), patterns.ModelInfo{Threshold: 0.5, Accuracy: 0.9})

	result, err := scorer.ScoreWith(profile, "alpha beta gamma")
	require.NoError(t, err)

	// score 0.75 lands high; confidence 0.75*0.7 + 0.9*0.3
	require.True(t, result.IsFraud)
	assert.Equal(t, types.RiskHigh, result.RiskLevel)
	assert.InDelta(t, 0.795, result.Confidence, 1e-9)
	assert.Equal(t, types.MethodMLSimulation, result.Method)
}

func TestScorer_FallbackProfileFlagsMethod(t *testing.T) {
	library, err := patterns.NewLibrary()
	require.NoError(t, err)
	scorer := NewScorer(library, Config{})

	result, err := scorer.ScoreWith(FallbackProfile(library.Fallback()),
		"send payment via western union or wire transfer")
	require.NoError(t, err)

	assert.Equal(t, types.MethodRuleBasedFallback, result.Method)
	assert.True(t, result.IsFraud)
}

func TestScorer_ActiveProfileFollowsModelAvailability(t *testing.T) {
	library, err := patterns.NewLibrary()
	require.NoError(t, err)
	scorer := NewScorer(library, Config{})

	assert.Equal(t, types.MethodRuleBased, scorer.ActiveProfile().Method)

	require.NoError(t, library.SetModel(types.ModelBlob{
		FeatureWeights: []types.FeatureWeight{{Pattern: "wire back", Weight: 0.8, Category: "payment"}},
		Threshold:      0.5,
		Accuracy:       0.97,
		Version:        "v1",
	}))
	assert.Equal(t, types.MethodMLSimulation, scorer.ActiveProfile().Method)

	library.ClearModel()
	assert.Equal(t, types.MethodRuleBased, scorer.ActiveProfile().Method)
}

func TestScorer_EmptyTextIsInvalidInput(t *testing.T) {
	scorer := newScorer(t)

	_, err := scorer.Score("   \n\t ")
	var invalid *InvalidInputError
	assert.ErrorAs(t, err, &invalid)
}

func TestScorer_MissingTableIsScoringFailure(t *testing.T) {
	scorer := NewScorer(nil, Config{})

	_, err := scorer.ScoreWith(Profile{Method: types.MethodRuleBased}, "some text")
	var scoringErr *ScoringError
	assert.ErrorAs(t, err, &scoringErr)
}

func TestScorer_ReasonsNameStrongestSetFirst(t *testing.T) {
	scorer := newScorer(t)

	result, err := scorer.Score("pay the registration fee by western union gift card today")
	require.NoError(t, err)

	require.NotEmpty(t, result.MatchedFraud)
	for i := 1; i < len(result.MatchedFraud); i++ {
		assert.GreaterOrEqual(t, result.MatchedFraud[i-1].Contribution, result.MatchedFraud[i].Contribution)
	}
	require.NotEmpty(t, result.Reasons)
	assert.Contains(t, result.Reasons[0], result.MatchedFraud[0].Set)
}
