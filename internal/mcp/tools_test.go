package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/variant-curation-server/internal/annotation"
	"github.com/variant-curation-server/internal/domain"
	"github.com/variant-curation-server/internal/ledger"
	"github.com/variant-curation-server/internal/normalize"
	"github.com/variant-curation-server/internal/repository"
	"github.com/variant-curation-server/internal/service"
)

const apoeKey = "19:44908684:T:C"

func newTestServer(t *testing.T) *Server {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	svc := service.NewCurationService(normalize.NewNormalizer(), annotation.NoopAnnotator{}, repository.NewMemoryStore(),
		service.WithLedger(ledger.NewMemoryLedger()),
		service.WithLogger(logger),
	)
	server, err := NewServer(svc, logger)
	require.NoError(t, err)
	return server
}

func resultJSON(t *testing.T, result *mcp.CallToolResult, v any) {
	t.Helper()
	require.NotNil(t, result)
	require.Len(t, result.Content, 1)
	text, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal([]byte(text.Text), v))
}

func register(t *testing.T, s *Server) {
	t.Helper()
	_, _, err := s.handleRegisterVariant(context.Background(), nil, VariantInput{
		Submitter: "alice", Chromosome: "chr19", Position: 44908684, Reference: "T", Alternate: "C",
	})
	require.NoError(t, err)
}

func TestNewServer_RequiresService(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.ErrorIs(t, err, ErrMissingService)
}

func TestServer_RegisterAndFind(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)

	result, _, err := s.handleRegisterVariant(ctx, nil, VariantInput{
		Submitter: "alice", Chromosome: "chr19", Position: 44908684, Reference: "T", Alternate: "C",
	})
	require.NoError(t, err)

	var agg domain.VariantAggregate
	resultJSON(t, result, &agg)
	assert.Equal(t, "19", agg.Variant.Chromosome)
	assert.Equal(t, int64(1), agg.Version)

	result, _, err = s.handleFindVariant(ctx, nil, VariantInput{Chromosome: "19", Position: 44908684, Reference: "T", Alternate: "C"})
	require.NoError(t, err)
	resultJSON(t, result, &agg)
	assert.Equal(t, "alice", agg.CreatedBy)

	_, _, err = s.handleFindVariant(ctx, nil, VariantInput{Chromosome: "2", Position: 1, Reference: "A", Alternate: "G"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Contains(t, err.Error(), domain.ErrCodeNotFound)
}

func TestServer_CurationAndEvidence(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	register(t, s)

	penetrance := 0.8
	_, _, err := s.handleAddCuration(ctx, nil, CurationInput{
		VariantKey:     apoeKey,
		Curator:        "bob",
		Phenotype:      "MONDO:0004975",
		Classification: "pathogenic_variant",
		Penetrance:     &penetrance,
	})
	require.NoError(t, err)

	_, _, err = s.handleAddEvidence(ctx, nil, EvidenceInput{
		VariantKey:    apoeKey,
		Submitter:     "dave",
		SourceName:    "PubMed",
		SourceType:    "literature",
		Phenotypes:    []PhenotypeInput{{Phenotype: "MONDO:0004975"}},
		Pathogenicity: "strong",
		PubMedID:      "8346443",
	})
	require.NoError(t, err)

	result, _, err := s.handleAddEvidence(ctx, nil, EvidenceInput{
		VariantKey: apoeKey,
		Submitter:  "erin",
		SourceName: "gnomAD",
		SourceType: "database",
		Phenotypes: []PhenotypeInput{{Phenotype: "MONDO:0004975"}},
		Benignity:  "supporting",
	})
	require.NoError(t, err)

	var agg domain.VariantAggregate
	resultJSON(t, result, &agg)
	require.Len(t, agg.EvidenceEntries, 2)
	require.NotNil(t, agg.EvidenceEntries[0].Study)
	assert.Equal(t, "8346443", agg.EvidenceEntries[0].Study.PubMedID)
	assert.Equal(t, domain.Conflict, agg.CurationEntries[0].Curation.ConsistencyStatus)

	result, _, err = s.handleQueryCurations(ctx, nil, QueryInput{VariantKey: apoeKey, Phenotype: "MONDO:0004975", InheritanceModes: []string{"na"}})
	require.NoError(t, err)
	var curations struct {
		Count int `json:"count"`
	}
	resultJSON(t, result, &curations)
	assert.Equal(t, 1, curations.Count)

	result, _, err = s.handleQueryEvidence(ctx, nil, QueryInput{VariantKey: apoeKey, Phenotype: "MONDO:0004975"})
	require.NoError(t, err)
	var evidences struct {
		Count int `json:"count"`
	}
	resultJSON(t, result, &evidences)
	assert.Equal(t, 2, evidences.Count)

	result, _, err = s.handleListSubmissions(ctx, nil, SubmissionsInput{Submitter: "bob"})
	require.NoError(t, err)
	var subs struct {
		Submissions []domain.Submission `json:"submissions"`
	}
	resultJSON(t, result, &subs)
	require.Len(t, subs.Submissions, 1)
	assert.Equal(t, domain.SubmissionCuration, subs.Submissions[0].Kind)
}

func TestServer_ToolErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestServer(t)
	register(t, s)

	_, _, err := s.handleAddEvidence(ctx, nil, EvidenceInput{
		VariantKey:    apoeKey,
		Submitter:     "dave",
		SourceName:    "PubMed",
		SourceType:    "literature",
		Pathogenicity: "strong",
		Benignity:     "supporting",
	})
	assert.ErrorIs(t, err, domain.ErrAmbiguousEvidence)

	_, _, err = s.handleAddEvidence(ctx, nil, EvidenceInput{
		VariantKey:    apoeKey,
		Submitter:     "dave",
		Pathogenicity: "strong",
	})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = s.handleAddCuration(ctx, nil, CurationInput{VariantKey: "5:5:A:C", Curator: "bob", Phenotype: "HP:1", Classification: "benign_variant"})
	assert.ErrorIs(t, err, domain.ErrVariantNotFound)

	_, _, err = s.handleListSubmissions(ctx, nil, SubmissionsInput{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, _, err = s.handleGetVariant(ctx, nil, KeyInput{VariantKey: "not-a-key"})
	assert.ErrorIs(t, err, domain.ErrMalformedVariant)
}

func TestServer_Reannotate(t *testing.T) {
	s := newTestServer(t)
	register(t, s)

	result, _, err := s.handleReannotate(context.Background(), nil, KeyInput{VariantKey: apoeKey})
	require.NoError(t, err)

	var agg domain.VariantAggregate
	resultJSON(t, result, &agg)
	assert.Equal(t, domain.AnnotationCompleted, agg.Annotation.Status)
	assert.Empty(t, agg.Annotation.Transcripts)
}
