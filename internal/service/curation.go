package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/metrics"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

const (
	defaultMaxUpdateRetries = 5
	defaultRetryBaseDelay   = 10 * time.Millisecond
)

// CurationRequest is a curator's classification of a registered variant.
type CurationRequest struct {
	Curator              string                   `json:"curator"`
	Comments             string                   `json:"comments,omitempty"`
	Phenotype            string                   `json:"phenotype"`
	InheritanceMode      domain.InheritanceMode   `json:"inheritance_mode,omitempty"`
	Transcript           string                   `json:"transcript,omitempty"`
	Classification       domain.Classification    `json:"classification"`
	ManualConfidence     domain.ManualConfidence  `json:"manual_confidence,omitempty"`
	ConsistencyStatus    domain.ConsistencyStatus `json:"consistency_status,omitempty"`
	Penetrance           *float64                 `json:"penetrance,omitempty"`
	VariableExpressivity bool                     `json:"variable_expressivity,omitempty"`
}

func (r CurationRequest) submission() domain.CurationSubmission {
	return domain.CurationSubmission{
		Curator:  r.Curator,
		Comments: r.Comments,
		HeritablePhenotype: domain.HeritablePhenotype{
			Phenotype:       r.Phenotype,
			InheritanceMode: r.InheritanceMode,
		},
		Transcript:           r.Transcript,
		Classification:       r.Classification,
		ManualConfidence:     r.ManualConfidence,
		ConsistencyStatus:    r.ConsistencyStatus,
		Penetrance:           r.Penetrance,
		VariableExpressivity: r.VariableExpressivity,
	}
}

// EvidenceRequest is a new evidence item for a registered variant. Exactly one of
// Pathogenicity and Benignity must be set.
type EvidenceRequest struct {
	Submitter     string                      `json:"submitter"`
	Source        *domain.EvidenceSource      `json:"source"`
	AlleleOrigin  domain.AlleleOrigin         `json:"allele_origin,omitempty"`
	Phenotypes    []domain.HeritablePhenotype `json:"phenotypes,omitempty"`
	Transcript    string                      `json:"transcript,omitempty"`
	Pathogenicity *domain.EvidenceStrength    `json:"pathogenicity,omitempty"`
	Benignity     *domain.EvidenceStrength    `json:"benignity,omitempty"`
	Study         *domain.Study               `json:"study,omitempty"`
	Description   string                      `json:"description,omitempty"`
}

func (r EvidenceRequest) submission() domain.EvidenceSubmission {
	return domain.EvidenceSubmission{
		Submitter:     r.Submitter,
		Source:        r.Source,
		AlleleOrigin:  r.AlleleOrigin,
		Phenotypes:    r.Phenotypes,
		Transcript:    r.Transcript,
		Pathogenicity: r.Pathogenicity,
		Benignity:     r.Benignity,
		Study:         r.Study,
		Description:   r.Description,
	}
}

// annotationInvalidator is implemented by annotators that cache results.
type annotationInvalidator interface {
	Invalidate(ctx context.Context, variant domain.CanonicalVariant) error
}

// CurationService runs every operation as one load-mutate-persist cycle against a single
// aggregate. Lost compare-and-swap races are retried with exponential backoff.
type CurationService struct {
	normalizer domain.Normalizer
	annotator  domain.Annotator
	store      domain.AggregateStore
	ledger     domain.SubmissionLedger
	metrics    *metrics.Metrics
	logger     *logrus.Logger
	clock      Clock

	maxRetries       int
	retryBaseDelay   time.Duration
	strictAnnotation bool
}

// Option configures a CurationService.
type Option func(*CurationService)

// WithLedger records accepted submissions in ledger.
func WithLedger(ledger domain.SubmissionLedger) Option {
	return func(s *CurationService) { s.ledger = ledger }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *CurationService) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *logrus.Logger) Option {
	return func(s *CurationService) { s.logger = logger }
}

// WithClock replaces time.Now.
func WithClock(clock Clock) Option {
	return func(s *CurationService) { s.clock = clock }
}

// WithRetry bounds conflict retries. Zero retries means one attempt only.
func WithRetry(maxRetries int, baseDelay time.Duration) Option {
	return func(s *CurationService) {
		s.maxRetries = maxRetries
		if baseDelay > 0 {
			s.retryBaseDelay = baseDelay
		}
	}
}

// WithStrictAnnotation makes an annotation failure abort registration.
func WithStrictAnnotation(strict bool) Option {
	return func(s *CurationService) { s.strictAnnotation = strict }
}

// NewCurationService creates a curation service over the given collaborators.
func NewCurationService(
	normalizer domain.Normalizer,
	annotator domain.Annotator,
	store domain.AggregateStore,
	opts ...Option,
) *CurationService {
	s := &CurationService{
		normalizer:     normalizer,
		annotator:      annotator,
		store:          store,
		clock:          func() time.Time { return time.Now().UTC() },
		maxRetries:     defaultMaxUpdateRetries,
		retryBaseDelay: defaultRetryBaseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logrus.New()
	}
	if s.metrics == nil {
		s.metrics = metrics.New(prometheus.NewRegistry())
	}
	return s
}

// CreateVariant registers a new variant: normalize, annotate, insert. Registering a variant
// twice fails with domain.ErrAlreadyExists.
func (s *CurationService) CreateVariant(ctx context.Context, submitter, chromosome string, position int64, reference, alternate string) (agg *domain.VariantAggregate, err error) {
	defer s.observe("create_variant", time.Now(), &err)

	if err := domain.ValidateSubmitter("submitter", submitter); err != nil {
		return nil, err
	}

	variant, err := s.normalize(domain.RawVariant{
		Chromosome: chromosome,
		Position:   position,
		Reference:  reference,
		Alternate:  alternate,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.store.Find(ctx, variant); err == nil {
		return nil, fmt.Errorf("variant %s: %w", variant.Key(), domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NewCollaboratorError("store", "find", err)
	}

	agg, err = domain.NewVariantAggregate(variant, submitter, s.clock())
	if err != nil {
		return nil, err
	}

	result, annotateErr := s.annotator.Annotate(ctx, variant)
	if annotateErr != nil {
		s.metrics.AnnotationFailures.Inc()
		if s.strictAnnotation {
			return nil, domain.NewCollaboratorError("annotator", "annotate", annotateErr)
		}
		s.logger.WithFields(logrus.Fields{
			"variant": variant.Key(),
			"error":   annotateErr.Error(),
		}).Warn("Annotation failed, transcript validation disabled until re-annotation")
	}
	agg.ApplyAnnotation(result, annotateErr, s.clock())

	if err := s.store.Insert(ctx, agg); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, fmt.Errorf("variant %s: %w", variant.Key(), err)
		}
		return nil, domain.NewCollaboratorError("store", "insert", err)
	}

	s.metrics.VariantsRegistered.Inc()
	s.logger.WithFields(logrus.Fields{
		"variant":     variant.Key(),
		"submitter":   submitter,
		"transcripts": len(agg.Annotation.Transcripts),
		"annotation":  agg.Annotation.Status,
	}).Info("Variant registered")

	s.record(ctx, &domain.Submission{
		VariantKey: variant.Key(),
		Kind:       domain.SubmissionRegistration,
		Submitter:  submitter,
		Summary:    fmt.Sprintf("registered %s", variant.Key()),
		CreatedAt:  agg.CreatedAt,
	}, variant.Raw())

	return agg, nil
}

// FindVariant looks a variant up by its coordinates. A missing variant yields an error
// matching domain.ErrNotFound.
func (s *CurationService) FindVariant(ctx context.Context, chromosome string, position int64, reference, alternate string) (agg *domain.VariantAggregate, err error) {
	defer s.observe("find_variant", time.Now(), &err)

	variant, err := s.normalize(domain.RawVariant{
		Chromosome: chromosome,
		Position:   position,
		Reference:  reference,
		Alternate:  alternate,
	})
	if err != nil {
		return nil, err
	}

	agg, err = s.store.Find(ctx, variant)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("variant %s: %w", variant.Key(), domain.ErrNotFound)
		}
		return nil, domain.NewCollaboratorError("store", "find", err)
	}
	return agg, nil
}

// GetVariant loads a variant by key. Unlike FindVariant a missing variant is a validation
// failure wrapping domain.ErrVariantNotFound.
func (s *CurationService) GetVariant(ctx context.Context, variantKey string) (agg *domain.VariantAggregate, err error) {
	defer s.observe("get_variant", time.Now(), &err)

	variant, err := s.resolveKey(variantKey)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, variant)
}

// AddCuration merges a curation into the variant's aggregate and returns the updated aggregate.
func (s *CurationService) AddCuration(ctx context.Context, variantKey string, req CurationRequest) (agg *domain.VariantAggregate, err error) {
	defer s.observe("add_curation", time.Now(), &err)

	var entry domain.CurationEntry
	agg, err = s.mutate(ctx, variantKey, func(a *domain.VariantAggregate) error {
		var err error
		entry, err = a.AddCuration(req.submission(), s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}

	current := entry.Curation
	s.metrics.CurationsRecorded.WithLabelValues(string(current.ClinicalSignificance)).Inc()
	s.logger.WithFields(logrus.Fields{
		"variant":        agg.Key(),
		"curator":        req.Curator,
		"phenotype":      current.HeritablePhenotype.Phenotype,
		"transcript":     current.Transcript,
		"classification": current.Classification,
		"consistency":    current.ConsistencyStatus,
		"history":        len(entry.History),
	}).Info("Curation recorded")

	s.record(ctx, &domain.Submission{
		VariantKey: agg.Key(),
		Kind:       domain.SubmissionCuration,
		Submitter:  req.Curator,
		Phenotype:  current.HeritablePhenotype.Phenotype,
		Summary:    fmt.Sprintf("classified as %s", current.Classification),
		CreatedAt:  agg.UpdatedAt,
	}, req)

	return agg, nil
}

// AddEvidence appends an evidence item to the variant's aggregate, recomputes consistency for
// the curations it names and returns the updated aggregate.
func (s *CurationService) AddEvidence(ctx context.Context, variantKey string, req EvidenceRequest) (agg *domain.VariantAggregate, err error) {
	defer s.observe("add_evidence", time.Now(), &err)

	var entry domain.EvidenceEntry
	var changes []domain.ConsistencyChange
	agg, err = s.mutate(ctx, variantKey, func(a *domain.VariantAggregate) error {
		var err error
		entry, changes, err = a.AddEvidence(req.submission(), s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}

	direction := "benign"
	if entry.IsPathogenic() {
		direction = "pathogenic"
	}
	s.metrics.EvidenceRecorded.WithLabelValues(direction).Inc()

	conflicts := 0
	for _, change := range changes {
		if change.Conflict {
			conflicts++
			s.metrics.ConsistencyConflicts.Inc()
		}
	}

	s.logger.WithFields(logrus.Fields{
		"variant":     agg.Key(),
		"submitter":   req.Submitter,
		"evidence_id": entry.ID,
		"direction":   direction,
		"recomputed":  len(changes),
		"conflicts":   conflicts,
	}).Info("Evidence recorded")

	phenotype := ""
	if len(entry.Phenotypes) > 0 {
		phenotype = entry.Phenotypes[0].Phenotype
	}
	s.record(ctx, &domain.Submission{
		VariantKey: agg.Key(),
		Kind:       domain.SubmissionEvidence,
		Submitter:  req.Submitter,
		Phenotype:  phenotype,
		Summary:    fmt.Sprintf("%s evidence from %s", direction, entry.Source.Name),
		CreatedAt:  entry.Date,
	}, entry)

	return agg, nil
}

// QueryCurationsByPhenotype returns the variant's curation entries for phenotype, optionally
// restricted to the given inheritance modes.
func (s *CurationService) QueryCurationsByPhenotype(ctx context.Context, variantKey, phenotype string, modes ...domain.InheritanceMode) (entries []domain.CurationEntry, err error) {
	defer s.observe("query_curations", time.Now(), &err)

	if err := validateModes(modes); err != nil {
		return nil, err
	}
	agg, err := s.GetVariant(ctx, variantKey)
	if err != nil {
		return nil, err
	}
	return agg.CurationEntriesByPhenotype(phenotype, modes...)
}

// QueryEvidenceByPhenotype returns the variant's evidence entries for phenotype, optionally
// restricted to the given inheritance modes.
func (s *CurationService) QueryEvidenceByPhenotype(ctx context.Context, variantKey, phenotype string, modes ...domain.InheritanceMode) (entries []domain.EvidenceEntry, err error) {
	defer s.observe("query_evidence", time.Now(), &err)

	if err := validateModes(modes); err != nil {
		return nil, err
	}
	agg, err := s.GetVariant(ctx, variantKey)
	if err != nil {
		return nil, err
	}
	return agg.EvidenceEntriesByPhenotype(phenotype, modes...)
}

// ReannotateVariant re-runs annotation and stores the new transcript set. A failed call
// leaves the aggregate untouched and is reported as a collaborator error.
func (s *CurationService) ReannotateVariant(ctx context.Context, variantKey string) (agg *domain.VariantAggregate, err error) {
	defer s.observe("reannotate_variant", time.Now(), &err)

	variant, err := s.resolveKey(variantKey)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, variant); err != nil {
		return nil, err
	}

	if invalidator, ok := s.annotator.(annotationInvalidator); ok {
		if err := invalidator.Invalidate(ctx, variant); err != nil {
			s.logger.WithError(err).WithField("variant", variant.Key()).Warn("Failed to invalidate cached annotation")
		}
	}

	result, err := s.annotator.Annotate(ctx, variant)
	if err != nil {
		s.metrics.AnnotationFailures.Inc()
		s.logger.WithFields(logrus.Fields{
			"variant": variant.Key(),
			"error":   err.Error(),
		}).Error("Re-annotation failed")
		return nil, domain.NewCollaboratorError("annotator", "annotate", err)
	}

	agg, err = s.mutate(ctx, variantKey, func(a *domain.VariantAggregate) error {
		a.ApplyAnnotation(result, nil, s.clock())
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"variant":     agg.Key(),
		"transcripts": len(agg.Annotation.Transcripts),
	}).Info("Variant re-annotated")

	s.record(ctx, &domain.Submission{
		VariantKey: agg.Key(),
		Kind:       domain.SubmissionAnnotation,
		Submitter:  "system",
		Summary:    fmt.Sprintf("annotated with %d transcripts", len(agg.Annotation.Transcripts)),
		CreatedAt:  agg.Annotation.AnnotatedAt,
	}, result)

	return agg, nil
}

// ListSubmissions returns the ledger records of a variant, newest first. Without a ledger the
// list is empty.
func (s *CurationService) ListSubmissions(ctx context.Context, variantKey string, limit, offset int) ([]*domain.Submission, error) {
	variant, err := s.resolveKey(variantKey)
	if err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return []*domain.Submission{}, nil
	}

	submissions, err := s.ledger.ListByVariant(ctx, variant.Key(), limit, offset)
	if err != nil {
		return nil, domain.NewCollaboratorError("ledger", "list", err)
	}
	if submissions == nil {
		submissions = []*domain.Submission{}
	}
	return submissions, nil
}

// ListSubmissionsBySubmitter returns the ledger records of one curator or submitter, newest first.
func (s *CurationService) ListSubmissionsBySubmitter(ctx context.Context, submitter string, limit, offset int) ([]*domain.Submission, error) {
	if err := domain.ValidateSubmitter("submitter", submitter); err != nil {
		return nil, err
	}
	if s.ledger == nil {
		return []*domain.Submission{}, nil
	}

	submissions, err := s.ledger.ListBySubmitter(ctx, submitter, limit, offset)
	if err != nil {
		return nil, domain.NewCollaboratorError("ledger", "list", err)
	}
	if submissions == nil {
		submissions = []*domain.Submission{}
	}
	return submissions, nil
}

// Ping checks the aggregate store.
func (s *CurationService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// mutate loads the aggregate for variantKey, applies fn and persists it with compare-and-swap.
// The whole cycle is retried when another writer won the race.
func (s *CurationService) mutate(ctx context.Context, variantKey string, fn func(*domain.VariantAggregate) error) (*domain.VariantAggregate, error) {
	variant, err := s.resolveKey(variantKey)
	if err != nil {
		return nil, err
	}

	var result *domain.VariantAggregate
	attempt := 0

	operation := func() error {
		attempt++

		agg, err := s.load(ctx, variant)
		if err != nil {
			return backoff.Permanent(err)
		}
		if err := fn(agg); err != nil {
			return backoff.Permanent(err)
		}

		ok, err := s.store.Update(ctx, agg)
		if err != nil {
			return backoff.Permanent(domain.NewCollaboratorError("store", "update", err))
		}
		if !ok {
			s.metrics.UpdateConflicts.Inc()
			s.logger.WithFields(logrus.Fields{
				"variant": variant.Key(),
				"attempt": attempt,
			}).Warn("Aggregate modified concurrently, retrying")
			return domain.ErrUpdateConflict
		}

		result = agg
		return nil
	}

	if err := backoff.Retry(operation, s.backoffPolicy(ctx)); err != nil {
		if errors.Is(err, domain.ErrUpdateConflict) {
			return nil, fmt.Errorf("variant %s after %d attempts: %w", variant.Key(), attempt, err)
		}
		return nil, err
	}
	return result, nil
}

func (s *CurationService) backoffPolicy(ctx context.Context) backoff.BackOff {
	exponential := backoff.NewExponentialBackOff()
	exponential.InitialInterval = s.retryBaseDelay
	exponential.MaxInterval = 50 * s.retryBaseDelay
	exponential.MaxElapsedTime = 0

	retries := s.maxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exponential, uint64(retries)), ctx)
}

// load finds the aggregate, turning a miss into a validation failure.
func (s *CurationService) load(ctx context.Context, variant domain.CanonicalVariant) (*domain.VariantAggregate, error) {
	agg, err := s.store.Find(ctx, variant)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewVariantNotFoundError(variant.Key())
		}
		return nil, domain.NewCollaboratorError("store", "find", err)
	}
	return agg, nil
}

// resolveKey parses and normalizes a variant key so that equivalent spellings of one variant
// address the same aggregate.
func (s *CurationService) resolveKey(variantKey string) (domain.CanonicalVariant, error) {
	raw, err := domain.ParseVariantKey(variantKey)
	if err != nil {
		return domain.CanonicalVariant{}, err
	}
	return s.normalize(raw)
}

func (s *CurationService) normalize(raw domain.RawVariant) (domain.CanonicalVariant, error) {
	variant, err := s.normalizer.Normalize(raw)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return domain.CanonicalVariant{}, err
		}
		return domain.CanonicalVariant{}, domain.NewCollaboratorError("normalizer", "normalize", err)
	}
	return variant, nil
}

// record appends to the ledger. Ledger failures are logged and never fail the request.
func (s *CurationService) record(ctx context.Context, submission *domain.Submission, payload interface{}) {
	if s.ledger == nil {
		return
	}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.WithError(err).Warn("Failed to encode submission payload")
		} else {
			submission.Payload = data
		}
	}

	if err := s.ledger.Record(ctx, submission); err != nil {
		s.logger.WithFields(logrus.Fields{
			"variant": submission.VariantKey,
			"kind":    submission.Kind,
			"error":   err.Error(),
		}).Error("Failed to record submission in ledger")
	}
}

func (s *CurationService) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveOperation(operation, start, *err)
}

func validateModes(modes []domain.InheritanceMode) error {
	for _, mode := range modes {
		if !mode.IsValid() {
			return domain.NewValidationError("inheritance_mode", "unknown mode of inheritance", mode)
		}
	}
	return nil
}
