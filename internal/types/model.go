package types

import "time"

// FeatureWeight is one weighted pattern from a model blob
type FeatureWeight struct {
	Pattern  string  `json:"pattern"`
	Weight   float64 `json:"weight"`
	Category string  `json:"category"`
}

// ModelBlob is the versioned scoring configuration fetched from the Fact
// Store. It stands in for a trained model: consumed here, never trained.
type ModelBlob struct {
	FeatureWeights []FeatureWeight `json:"feature_weights"`
	Threshold      float64         `json:"threshold"`
	Accuracy       float64         `json:"accuracy"`
	Version        string          `json:"version"`
	TopFeatures    []string        `json:"top_features,omitempty"`
}

// BlacklistDoc is the domain blacklist document fetched from the Fact Store
type BlacklistDoc struct {
	Domains   []string  `json:"domains"`
	Version   string    `json:"version,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}
