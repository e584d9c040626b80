// Package annotation resolves the transcripts overlapping a variant.
package annotation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/variant-curation-server/internal/domain"
)

const (
	defaultEnsemblURL = "https://rest.ensembl.org"
	userAgent         = "Variant-Curation-Server/1.0"
)

// ErrServiceUnavailable is returned while the circuit breaker is open.
var ErrServiceUnavailable = errors.New("Ensembl service unavailable (circuit breaker open)")

// EnsemblTranscript is one feature of an Ensembl overlap/region response
type EnsemblTranscript struct {
	ID            string `json:"id"`
	TranscriptID  string `json:"transcript_id"`
	Parent        string `json:"Parent"`
	Biotype       string `json:"biotype"`
	SeqRegionName string `json:"seq_region_name"`
	Start         int64  `json:"start"`
	End           int64  `json:"end"`
	Strand        int    `json:"strand"`
	IsCanonical   int    `json:"is_canonical"`
}

// EnsemblAnnotator queries the Ensembl REST overlap endpoint for the transcripts covering a
// variant. Calls are rate limited and guarded by a circuit breaker.
type EnsemblAnnotator struct {
	baseURL    string
	httpClient *http.Client
	rateLimit  *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
}

// NewEnsemblAnnotator creates a new Ensembl-backed annotator
func NewEnsemblAnnotator(config domain.AnnotationConfig, logger *logrus.Logger) *EnsemblAnnotator {
	if config.BaseURL == "" {
		config.BaseURL = defaultEnsemblURL
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RateLimit == 0 {
		config.RateLimit = 15 // Ensembl allows 15 requests per second
	}
	if config.MaxFailures == 0 {
		config.MaxFailures = 3
	}
	if config.BreakerTimeout == 0 {
		config.BreakerTimeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "Ensembl",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker changed state")
		},
	})

	return &EnsemblAnnotator{
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimit: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		breaker:   breaker,
		logger:    logger,
	}
}

// Annotate implements domain.Annotator
func (e *EnsemblAnnotator) Annotate(ctx context.Context, variant domain.CanonicalVariant) (domain.AnnotationResult, error) {
	result, err := e.breaker.Execute(func() (interface{}, error) {
		return e.fetchTranscripts(ctx, variant)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return domain.AnnotationResult{}, ErrServiceUnavailable
		}
		return domain.AnnotationResult{}, fmt.Errorf("Ensembl overlap query failed: %w", err)
	}

	return domain.AnnotationResult{Transcripts: result.([]string)}, nil
}

// State reports the circuit breaker state.
func (e *EnsemblAnnotator) State() gobreaker.State {
	return e.breaker.State()
}

// Check fails while the circuit breaker is open.
func (e *EnsemblAnnotator) Check(ctx context.Context) error {
	if e.State() == gobreaker.StateOpen {
		return ErrServiceUnavailable
	}
	return nil
}

func (e *EnsemblAnnotator) fetchTranscripts(ctx context.Context, variant domain.CanonicalVariant) ([]string, error) {
	if err := e.rateLimit.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.overlapURL(variant), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("Ensembl API returned status %d: %s", resp.StatusCode, string(body))
	}

	var features []EnsemblTranscript
	if err := json.NewDecoder(resp.Body).Decode(&features); err != nil {
		return nil, fmt.Errorf("failed to decode Ensembl response: %w", err)
	}

	transcripts := make([]string, 0, len(features))
	for _, f := range features {
		id := f.ID
		if id == "" {
			id = f.TranscriptID
		}
		if id != "" {
			transcripts = append(transcripts, id)
		}
	}

	e.logger.WithFields(logrus.Fields{
		"variant":     variant.Key(),
		"transcripts": len(transcripts),
	}).Debug("Fetched overlapping transcripts from Ensembl")

	return transcripts, nil
}

// overlapURL builds the overlap/region query covering the reference allele.
func (e *EnsemblAnnotator) overlapURL(variant domain.CanonicalVariant) string {
	chromosome := variant.Chromosome
	if chromosome == "M" {
		chromosome = "MT"
	}
	end := variant.Position
	if n := int64(len(variant.Reference)); n > 1 {
		end = variant.Position + n - 1
	}

	region := fmt.Sprintf("%s:%d-%d", chromosome, variant.Position, end)
	return fmt.Sprintf("%s/overlap/region/human/%s?feature=transcript", e.baseURL, url.PathEscape(region))
}

// NoopAnnotator reports no transcripts. Transcript references are then never validated.
type NoopAnnotator struct{}

// Annotate implements domain.Annotator
func (NoopAnnotator) Annotate(ctx context.Context, variant domain.CanonicalVariant) (domain.AnnotationResult, error) {
	return domain.AnnotationResult{}, nil
}
