// Package factstore provides access to the external document store that
// supplies the domain blacklist and model configuration and receives
// analysis results and feedback records.
package factstore

import (
	"context"

	"github.com/marek/jobshield/internal/types"
)

// Store is the four-operation contract the pipeline needs from the Fact
// Store. Fetches may fail; callers go through CachedSource, which converts
// failures into stale-or-unavailable snapshots. Persists are fire-and-forget
// at the call site: a failure never affects a verdict already produced.
type Store interface {
	FetchDomainBlacklist(ctx context.Context) (types.BlacklistDoc, error)
	FetchModelBlob(ctx context.Context) (types.ModelBlob, error)
	PersistAnalysisResult(ctx context.Context, result *types.PageResult) error
	PersistFeedback(ctx context.Context, record types.FeedbackRecord) error
}
