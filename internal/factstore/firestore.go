package factstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/marek/jobshield/internal/schemas"
	"github.com/marek/jobshield/internal/types"
)

// Firestore collection and document names
const (
	blacklistCollection = "fraud_data"
	blacklistDocument   = "fraud_urls"
	modelCollection     = "nlp_models"
	modelDocument       = "current_model"
	resultsCollection   = "analysis_results"
	feedbackCollection  = "user_feedback"
)

// FirestoreConfig configures the Firestore-backed store
type FirestoreConfig struct {
	ProjectID       string
	CredentialsFile string
}

// FirestoreStore implements Store against Google Cloud Firestore
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore connects to Firestore. Credentials fall back to
// application-default when no file is configured.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("firestore project ID is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

type firestoreBlacklistDoc struct {
	URLs     []string `firestore:"urls"`
	Metadata struct {
		Version  string `firestore:"version"`
		URLCount int    `firestore:"url_count"`
	} `firestore:"metadata"`
}

// FetchDomainBlacklist reads the fraud_data/fraud_urls document
func (s *FirestoreStore) FetchDomainBlacklist(ctx context.Context) (types.BlacklistDoc, error) {
	snap, err := s.client.Collection(blacklistCollection).Doc(blacklistDocument).Get(ctx)
	if err != nil {
		return types.BlacklistDoc{}, classifyFirestoreError("blacklist", "fraud_data/fraud_urls", err)
	}

	var doc firestoreBlacklistDoc
	if err := snap.DataTo(&doc); err != nil {
		return types.BlacklistDoc{}, &DataUnavailableError{Doc: "fraud_data/fraud_urls", Cause: err}
	}

	return types.BlacklistDoc{
		Domains:   doc.URLs,
		Version:   doc.Metadata.Version,
		FetchedAt: time.Now(),
	}, nil
}

type firestoreModelDoc struct {
	FeatureWeights []struct {
		Pattern  string  `firestore:"pattern"`
		Weight   float64 `firestore:"weight"`
		Category string  `firestore:"category"`
	} `firestore:"feature_weights"`
	Threshold float64 `firestore:"threshold"`
	Metadata  struct {
		Accuracy    float64  `firestore:"accuracy"`
		Version     string   `firestore:"version"`
		TopFeatures []string `firestore:"top_features"`
	} `firestore:"metadata"`
}

// FetchModelBlob reads the nlp_models/current_model document and validates
// it against the model blob schema before returning. An invalid document is
// reported as DataUnavailable so the caller keeps its previous table.
func (s *FirestoreStore) FetchModelBlob(ctx context.Context) (types.ModelBlob, error) {
	snap, err := s.client.Collection(modelCollection).Doc(modelDocument).Get(ctx)
	if err != nil {
		return types.ModelBlob{}, classifyFirestoreError("model", "nlp_models/current_model", err)
	}

	var doc firestoreModelDoc
	if err := snap.DataTo(&doc); err != nil {
		return types.ModelBlob{}, &DataUnavailableError{Doc: "nlp_models/current_model", Cause: err}
	}

	blob := types.ModelBlob{
		Threshold:   doc.Threshold,
		Accuracy:    doc.Metadata.Accuracy,
		Version:     doc.Metadata.Version,
		TopFeatures: doc.Metadata.TopFeatures,
	}
	for _, fw := range doc.FeatureWeights {
		blob.FeatureWeights = append(blob.FeatureWeights, types.FeatureWeight{
			Pattern:  fw.Pattern,
			Weight:   fw.Weight,
			Category: fw.Category,
		})
	}

	// Threshold is optional in the source document
	if blob.Threshold == 0 {
		blob.Threshold = 0.5
	}

	raw, err := json.Marshal(blob)
	if err != nil {
		return types.ModelBlob{}, &DataUnavailableError{Doc: "nlp_models/current_model", Cause: err}
	}
	if err := schemas.ValidateModelBlob(raw); err != nil {
		return types.ModelBlob{}, &DataUnavailableError{Doc: "nlp_models/current_model", Cause: err}
	}

	return blob, nil
}

// PersistAnalysisResult writes one analysis result document
func (s *FirestoreStore) PersistAnalysisResult(ctx context.Context, result *types.PageResult) error {
	_, err := s.client.Collection(resultsCollection).Doc(result.ID.String()).Set(ctx, map[string]interface{}{
		"page_url":         result.PageURL,
		"verdict":          string(result.Verdict),
		"is_fraud":         result.IsFraud,
		"confidence":       result.Confidence,
		"risk_level":       string(result.RiskLevel),
		"method":           result.Method,
		"reasons":          result.Reasons,
		"posting_count":    result.PostingCount,
		"fraud_percentage": result.FraudPercentage,
		"analyzed_at":      result.CompletedAt,
	})
	if err != nil {
		return classifyFirestoreError("persist_result", "analysis_results", err)
	}
	return nil
}

// PersistFeedback appends one feedback document
func (s *FirestoreStore) PersistFeedback(ctx context.Context, record types.FeedbackRecord) error {
	_, _, err := s.client.Collection(feedbackCollection).Add(ctx, map[string]interface{}{
		"page_url":              record.PageURL,
		"user_classification":   string(record.UserClassification),
		"system_classification": string(record.SystemClassification),
		"was_correct":           record.WasCorrect,
		"reporter_id":           record.ReporterID,
		"timestamp":             record.Timestamp,
	})
	if err != nil {
		return classifyFirestoreError("persist_feedback", "user_feedback", err)
	}
	return nil
}

// classifyFirestoreError maps gRPC status codes onto the error taxonomy
func classifyFirestoreError(op, doc string, err error) error {
	switch status.Code(err) {
	case codes.NotFound:
		return &DataUnavailableError{Doc: doc, Cause: err}
	case codes.DeadlineExceeded:
		return &FetchTimeoutError{Op: op, Timeout: 0}
	default:
		return &NetworkUnavailableError{Op: op, Cause: err}
	}
}
