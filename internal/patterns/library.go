package patterns

import (
	"sync"
	"time"

	"github.com/marek/jobshield/internal/types"
)

// ModelInfo describes the model table currently loaded, if any
type ModelInfo struct {
	Version   string    `json:"version"`
	Accuracy  float64   `json:"accuracy"`
	Threshold float64   `json:"threshold"`
	LoadedAt  time.Time `json:"loaded_at"`
}

// Library owns the active pattern tables: the builtin rule table, the
// minimal fallback table, the page-type signal matchers, and the optional
// model-derived table. Tables are replaced wholesale; readers may see the
// previous table during a swap.
type Library struct {
	mu       sync.RWMutex
	rules    *Table
	fallback *Table
	signals  *PageSignals

	model     *Table
	modelInfo ModelInfo

	builtAt time.Time
}

// NewLibrary compiles the builtin tables
func NewLibrary() (*Library, error) {
	rules, err := Compile("builtin_rules", builtinFraudSets(), builtinLegitSets())
	if err != nil {
		return nil, err
	}
	fallback, err := Compile("fallback", fallbackFraudSet(), nil)
	if err != nil {
		return nil, err
	}

	return &Library{
		rules:    rules,
		fallback: fallback,
		signals:  newPageSignals(),
		builtAt:  time.Now(),
	}, nil
}

// Rules returns the builtin rule table
func (l *Library) Rules() *Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rules
}

// Fallback returns the minimal hard-coded table
func (l *Library) Fallback() *Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.fallback
}

// Signals returns the page-type indicator matchers
func (l *Library) Signals() *PageSignals {
	return l.signals
}

// Model returns the model-derived table if one has been loaded
func (l *Library) Model() (*Table, ModelInfo, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.model == nil {
		return nil, ModelInfo{}, false
	}
	return l.model, l.modelInfo, true
}

// SetModel converts a model blob into a pattern table and swaps it in.
// A conversion failure leaves the previous table in place.
func (l *Library) SetModel(blob types.ModelBlob) error {
	table, info, err := TableFromModelBlob(blob)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.model = table
	l.modelInfo = info
	return nil
}

// ClearModel drops the model table, forcing rule-profile scoring
func (l *Library) ClearModel() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.model = nil
	l.modelInfo = ModelInfo{}
}

// AsOf reports when the library content last changed
func (l *Library) AsOf() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.modelInfo.LoadedAt.After(l.builtAt) {
		return l.modelInfo.LoadedAt
	}
	return l.builtAt
}
