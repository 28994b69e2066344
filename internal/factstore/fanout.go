package factstore

import (
	"context"
	"errors"

	"github.com/marek/jobshield/internal/types"
)

// Persister is the write half of Store. Archives that only mirror
// results, such as the Postgres archive, implement just this.
type Persister interface {
	PersistAnalysisResult(ctx context.Context, result *types.PageResult) error
	PersistFeedback(ctx context.Context, record types.FeedbackRecord) error
}

// Fanout is a Store that mirrors every persist to a set of archives.
// Fetches go to the primary store alone. A failing archive never blocks
// the others; all errors are joined for the caller to log.
type Fanout struct {
	Store
	archives []Persister
}

// NewFanout wraps primary so writes also reach every archive
func NewFanout(primary Store, archives ...Persister) *Fanout {
	return &Fanout{Store: primary, archives: archives}
}

// PersistAnalysisResult writes the result to the primary store and every archive
func (f *Fanout) PersistAnalysisResult(ctx context.Context, result *types.PageResult) error {
	errs := []error{f.Store.PersistAnalysisResult(ctx, result)}
	for _, archive := range f.archives {
		errs = append(errs, archive.PersistAnalysisResult(ctx, result))
	}
	return errors.Join(errs...)
}

// PersistFeedback writes the record to the primary store and every archive
func (f *Fanout) PersistFeedback(ctx context.Context, record types.FeedbackRecord) error {
	errs := []error{f.Store.PersistFeedback(ctx, record)}
	for _, archive := range f.archives {
		errs = append(errs, archive.PersistFeedback(ctx, record))
	}
	return errors.Join(errs...)
}
