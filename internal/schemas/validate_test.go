package schemas

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModelBlob_Valid(t *testing.T) {
	doc := []byte(`{
		"version": "1.0",
		"threshold": 0.5,
		"accuracy": 0.974,
		"feature_weights": [
			{"pattern": "registration fee", "weight": 0.8, "category": "payment"},
			{"pattern": "health insurance", "weight": -0.6, "category": "benefits"}
		],
		"top_features": ["registration fee", "wire transfer"]
	}`)
	assert.NoError(t, ValidateModelBlob(doc))
}

func TestValidateModelBlob_MissingRequiredFields(t *testing.T) {
	doc := []byte(`{"threshold": 0.5}`)
	err := ValidateModelBlob(doc)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.NotEmpty(t, validationErr.Errors)
}

func TestValidateModelBlob_RejectsOutOfRangeThreshold(t *testing.T) {
	doc := []byte(`{
		"version": "1.0",
		"threshold": 1.5,
		"feature_weights": [{"pattern": "x", "weight": 0.1}]
	}`)
	err := ValidateModelBlob(doc)
	require.Error(t, err)
}

func TestValidateModelBlob_RejectsEmptyFeatureWeights(t *testing.T) {
	doc := []byte(`{"version": "1.0", "feature_weights": []}`)
	err := ValidateModelBlob(doc)
	require.Error(t, err)
}

func TestValidateModelBlob_MalformedJSON(t *testing.T) {
	err := ValidateModelBlob([]byte(`{not json`))
	require.Error(t, err)
}

func TestValidatePatternTable_Valid(t *testing.T) {
	doc := []byte(`{
		"name": "custom",
		"fraud_sets": [
			{"name": "payment", "category": "payment", "keywords": ["wire transfer"], "weight": 2.0}
		],
		"legit_sets": [
			{"name": "benefits", "keywords": ["health insurance"], "weight": 1.0, "min_matches": 1}
		]
	}`)
	assert.NoError(t, ValidatePatternTable(doc))
}

func TestValidatePatternTable_RejectsNegativeWeight(t *testing.T) {
	doc := []byte(`{
		"fraud_sets": [{"name": "x", "keywords": ["y"], "weight": -1}]
	}`)
	err := ValidatePatternTable(doc)
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}
