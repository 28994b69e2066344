package patterns

import (
	"fmt"
	"math"
	"time"

	"github.com/marek/jobshield/internal/types"
)

// Model blob defaults applied when the source document omits a field
const (
	defaultModelThreshold = 0.5
	defaultModelAccuracy  = 0.974
)

// TableFromModelBlob converts versioned model configuration into a pattern
// table. Each feature weight becomes a singleton set so the weighted-match
// algorithm reduces to the model's linear sum: positive weights are fraud
// signals, negative weights legitimacy signals.
func TableFromModelBlob(blob types.ModelBlob) (*Table, ModelInfo, error) {
	if len(blob.FeatureWeights) == 0 {
		return nil, ModelInfo{}, fmt.Errorf("model blob %q has no feature weights", blob.Version)
	}

	var fraudSets, legitSets []Set
	for _, fw := range blob.FeatureWeights {
		if fw.Pattern == "" || fw.Weight == 0 {
			continue
		}
		set := Set{
			Name:     fw.Pattern,
			Category: fw.Category,
			Keywords: []string{fw.Pattern},
			Weight:   math.Abs(fw.Weight),
		}
		if fw.Weight > 0 {
			fraudSets = append(fraudSets, set)
		} else {
			legitSets = append(legitSets, set)
		}
	}
	if len(fraudSets) == 0 {
		return nil, ModelInfo{}, fmt.Errorf("model blob %q has no positive feature weights", blob.Version)
	}

	name := "model"
	if blob.Version != "" {
		name = "model:" + blob.Version
	}
	table, err := Compile(name, fraudSets, legitSets)
	if err != nil {
		return nil, ModelInfo{}, err
	}

	info := ModelInfo{
		Version:   blob.Version,
		Accuracy:  blob.Accuracy,
		Threshold: blob.Threshold,
		LoadedAt:  time.Now(),
	}
	if info.Threshold <= 0 || info.Threshold >= 1 {
		info.Threshold = defaultModelThreshold
	}
	if info.Accuracy <= 0 || info.Accuracy > 1 {
		info.Accuracy = defaultModelAccuracy
	}

	return table, info, nil
}
