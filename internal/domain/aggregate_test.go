package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestAggregate(t *testing.T) *VariantAggregate {
	t.Helper()
	agg, err := NewVariantAggregate(CanonicalVariant{
		Chromosome: "19",
		Position:   44908684,
		Reference:  "T",
		Alternate:  "C",
	}, "curator-1", testNow)
	require.NoError(t, err)
	return agg
}

func strength(s EvidenceStrength) *EvidenceStrength {
	return &s
}

func benignCuration(phenotype string) CurationSubmission {
	return CurationSubmission{
		Curator: "curator-1",
		HeritablePhenotype: HeritablePhenotype{
			Phenotype:       phenotype,
			InheritanceMode: MonoallelicMaternallyImprinted,
		},
		Classification: BenignVariant,
	}
}

func evidenceFor(phenotype string, pathogenicity, benignity *EvidenceStrength) EvidenceSubmission {
	return EvidenceSubmission{
		Submitter: "lab-1",
		Source:    &EvidenceSource{Name: "ClinVar", Type: DatabaseSource},
		Phenotypes: []HeritablePhenotype{
			{Phenotype: phenotype, InheritanceMode: MonoallelicMaternallyImprinted},
		},
		Pathogenicity: pathogenicity,
		Benignity:     benignity,
	}
}

func TestNewVariantAggregate(t *testing.T) {
	agg := newTestAggregate(t)

	assert.Equal(t, "19:44908684:T:C", agg.Key())
	assert.Equal(t, "curator-1", agg.CreatedBy)
	assert.Equal(t, AnnotationPending, agg.Annotation.Status)
	assert.Empty(t, agg.CurationEntries)
	assert.Empty(t, agg.EvidenceEntries)

	_, err := NewVariantAggregate(CanonicalVariant{Chromosome: "1", Position: 1, Reference: "A", Alternate: "G"}, " ", testNow)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddCuration_FirstCurationStartsHistory(t *testing.T) {
	agg := newTestAggregate(t)

	entry, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	require.Len(t, agg.CurationEntries, 1)
	require.Len(t, agg.CurationEntries[0].History, 1)
	assert.Nil(t, agg.CurationEntries[0].History[0].Previous)
	assert.Equal(t, Consensus, agg.CurationEntries[0].Curation.ConsistencyStatus)
	assert.Equal(t, SignificanceBenign, entry.Curation.ClinicalSignificance)
	assert.Equal(t, "curator-1", entry.History[0].Curator)
}

func TestAddCuration_SameScopeReplacesAndChainsHistory(t *testing.T) {
	agg := newTestAggregate(t)

	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	sub := benignCuration("HPO:000001")
	sub.Classification = PathogenicVariant
	_, err = agg.AddCuration(sub, testNow.Add(time.Hour))
	require.NoError(t, err)

	require.Len(t, agg.CurationEntries, 1)
	entry := agg.CurationEntries[0]
	require.Len(t, entry.History, 2)
	assert.Equal(t, PathogenicVariant, entry.Curation.Classification)
	assert.Equal(t, SignificancePathogenic, entry.Curation.ClinicalSignificance)
	assert.Equal(t, Consensus, entry.Curation.ConsistencyStatus)

	require.NotNil(t, entry.History[1].Previous)
	assert.Equal(t, BenignVariant, entry.History[1].Previous.Classification)
	assert.Equal(t, PathogenicVariant, entry.History[1].New.Classification)
}

func TestAddEvidence_OpposingEvidenceFlipsConsistency(t *testing.T) {
	agg := newTestAggregate(t)

	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	_, changes, err := agg.AddEvidence(evidenceFor("HPO:000001", strength(Strong), nil), testNow)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.False(t, changes[0].Conflict)
	assert.Equal(t, Consensus, agg.CurationEntries[0].Curation.ConsistencyStatus)

	_, changes, err = agg.AddEvidence(evidenceFor("HPO:000001", nil, strength(Strong)), testNow)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.True(t, changes[0].Conflict)
	assert.Equal(t, Conflict, changes[0].Status)
	assert.Equal(t, Conflict, agg.CurationEntries[0].Curation.ConsistencyStatus)

	// metadata change only
	assert.Len(t, agg.CurationEntries[0].History, 1)
}

func TestAddCuration_EmptyCuratorLeavesAggregateUnchanged(t *testing.T) {
	agg := newTestAggregate(t)
	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	sub := benignCuration("HPO:000002")
	sub.Curator = ""
	_, err = agg.AddCuration(sub, testNow)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Len(t, agg.CurationEntries, 1)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "curator", vErr.Field)
}

func TestAddEvidence_RequiresExactlyOneDirection(t *testing.T) {
	agg := newTestAggregate(t)

	_, _, err := agg.AddEvidence(evidenceFor("HPO:000001", strength(Strong), strength(Strong)), testNow)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrAmbiguousEvidence)

	_, _, err = agg.AddEvidence(evidenceFor("HPO:000001", nil, nil), testNow)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, ErrMissingEvidence)

	assert.Empty(t, agg.EvidenceEntries)
}

func TestAddCuration_Validation(t *testing.T) {
	penetrance := 1.5
	notANumber := math.NaN()

	tests := []struct {
		name   string
		mutate func(*CurationSubmission)
		field  string
	}{
		{"empty phenotype", func(s *CurationSubmission) { s.HeritablePhenotype.Phenotype = "" }, "phenotype"},
		{"unknown inheritance", func(s *CurationSubmission) { s.HeritablePhenotype.InheritanceMode = "dominant" }, "inheritance_mode"},
		{"unknown classification", func(s *CurationSubmission) { s.Classification = "VUS" }, "classification"},
		{"unknown confidence", func(s *CurationSubmission) { s.ManualConfidence = "certain" }, "manual_confidence"},
		{"unknown consistency", func(s *CurationSubmission) { s.ConsistencyStatus = "agreed" }, "consistency_status"},
		{"penetrance out of range", func(s *CurationSubmission) { s.Penetrance = &penetrance }, "penetrance"},
		{"penetrance NaN", func(s *CurationSubmission) { s.Penetrance = &notANumber }, "penetrance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregate(t)
			sub := benignCuration("HPO:000001")
			tt.mutate(&sub)

			_, err := agg.AddCuration(sub, testNow)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, agg.CurationEntries)
		})
	}
}

func TestAddCuration_MissingInheritanceBecomesNotApplicable(t *testing.T) {
	agg := newTestAggregate(t)
	sub := benignCuration("HPO:000001")
	sub.HeritablePhenotype.InheritanceMode = ""

	entry, err := agg.AddCuration(sub, testNow)
	require.NoError(t, err)

	assert.Equal(t, NotApplicableInheritance, entry.Curation.HeritablePhenotype.InheritanceMode)
}

func TestAddCuration_TranscriptScopes(t *testing.T) {
	agg := newTestAggregate(t)
	agg.ApplyAnnotation(AnnotationResult{Transcripts: []string{"ENST0001", "ENST0002"}}, nil, testNow)

	withoutTranscript := benignCuration("HPO:000001")
	withTranscript := benignCuration("HPO:000001")
	withTranscript.Transcript = "ENST0001"

	_, err := agg.AddCuration(withoutTranscript, testNow)
	require.NoError(t, err)
	_, err = agg.AddCuration(withTranscript, testNow)
	require.NoError(t, err)

	assert.Len(t, agg.CurationEntries, 2)

	idx, entry := agg.FindCurationEntry(withTranscript.HeritablePhenotype, "ENST0001")
	require.NotNil(t, entry)
	assert.Equal(t, 1, idx)

	idx, entry = agg.FindCurationEntry(withTranscript.HeritablePhenotype, "ENST0003")
	assert.Nil(t, entry)
	assert.Equal(t, -1, idx)

	unknown := benignCuration("HPO:000001")
	unknown.Transcript = "ENST0003"
	_, err = agg.AddCuration(unknown, testNow)
	assert.ErrorIs(t, err, ErrTranscriptNotFound)
	assert.Len(t, agg.CurationEntries, 2)
}

func TestAddCuration_TranscriptCheckSkippedWithoutAnnotation(t *testing.T) {
	agg := newTestAggregate(t)
	agg.ApplyAnnotation(AnnotationResult{}, errors.New("ensembl unavailable"), testNow)

	sub := benignCuration("HPO:000001")
	sub.Transcript = "ENST0009"

	_, err := agg.AddCuration(sub, testNow)
	require.NoError(t, err)
	assert.Equal(t, AnnotationFailed, agg.Annotation.Status)
	assert.Equal(t, "ensembl unavailable", agg.Annotation.Error)
}

func TestAddCuration_InheritanceModeIsNotPartOfTheKey(t *testing.T) {
	agg := newTestAggregate(t)
	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	sub := benignCuration("HPO:000001")
	sub.HeritablePhenotype.InheritanceMode = BiallelicInheritance
	_, err = agg.AddCuration(sub, testNow)
	require.NoError(t, err)

	require.Len(t, agg.CurationEntries, 1)
	assert.Equal(t, BiallelicInheritance, agg.CurationEntries[0].Curation.HeritablePhenotype.InheritanceMode)
}

func TestAddCuration_ExplicitStatusIsKept(t *testing.T) {
	agg := newTestAggregate(t)
	_, _, err := agg.AddEvidence(evidenceFor("HPO:000001", strength(Strong), nil), testNow)
	require.NoError(t, err)
	_, _, err = agg.AddEvidence(evidenceFor("HPO:000001", nil, strength(Supporting)), testNow)
	require.NoError(t, err)

	sub := benignCuration("HPO:000001")
	sub.ConsistencyStatus = ResolvedConflict
	entry, err := agg.AddCuration(sub, testNow)
	require.NoError(t, err)
	assert.Equal(t, ResolvedConflict, entry.Curation.ConsistencyStatus)

	derived := benignCuration("HPO:000002")
	entry, err = agg.AddCuration(derived, testNow)
	require.NoError(t, err)
	assert.Equal(t, Conflict, entry.Curation.ConsistencyStatus)
}

func TestAddEvidence_Defaults(t *testing.T) {
	agg := newTestAggregate(t)

	entry, changes, err := agg.AddEvidence(evidenceFor("HPO:000001", strength(Moderate), nil), testNow)
	require.NoError(t, err)

	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, testNow, entry.Date)
	assert.Equal(t, UnknownOrigin, entry.AlleleOrigin)
	assert.Empty(t, changes)
	require.Len(t, agg.EvidenceEntries, 1)
}

func TestAddEvidence_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*EvidenceSubmission)
		field  string
	}{
		{"missing submitter", func(s *EvidenceSubmission) { s.Submitter = "" }, "submitter"},
		{"missing source", func(s *EvidenceSubmission) { s.Source = nil }, "source"},
		{"untyped source", func(s *EvidenceSubmission) { s.Source = &EvidenceSource{Name: "x"} }, "source.type"},
		{"unknown source type", func(s *EvidenceSubmission) { s.Source = &EvidenceSource{Type: "blog"} }, "source.type"},
		{"bad pathogenic strength", func(s *EvidenceSubmission) { s.Pathogenicity = strength(StandAlone) }, "pathogenicity"},
		{"bad benign strength", func(s *EvidenceSubmission) {
			s.Pathogenicity = nil
			s.Benignity = strength(VeryStrong)
		}, "benignity"},
		{"empty phenotype", func(s *EvidenceSubmission) {
			s.Phenotypes = []HeritablePhenotype{{Phenotype: ""}}
		}, "phenotype"},
		{"unknown origin", func(s *EvidenceSubmission) { s.AlleleOrigin = "inherited" }, "allele_origin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := newTestAggregate(t)
			sub := evidenceFor("HPO:000001", strength(Strong), nil)
			tt.mutate(&sub)

			_, _, err := agg.AddEvidence(sub, testNow)

			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr), "got %v", err)
			assert.Equal(t, tt.field, vErr.Field)
			assert.Empty(t, agg.EvidenceEntries)
		})
	}
}

func TestAddEvidence_DoesNotAliasSubmission(t *testing.T) {
	agg := newTestAggregate(t)
	p := Strong
	sub := evidenceFor("HPO:000001", &p, nil)

	_, _, err := agg.AddEvidence(sub, testNow)
	require.NoError(t, err)

	p = Supporting
	assert.Equal(t, Strong, *agg.EvidenceEntries[0].Pathogenicity)
}

func TestConsistency_CountsAcrossAllPhenotypes(t *testing.T) {
	agg := newTestAggregate(t)
	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	// benign evidence on another phenotype still counts
	_, _, err = agg.AddEvidence(evidenceFor("HPO:999999", nil, strength(StandAlone)), testNow)
	require.NoError(t, err)
	// evidence with no phenotypes counts too
	unscoped := evidenceFor("HPO:000001", strength(Supporting), nil)
	unscoped.Phenotypes = nil
	_, _, err = agg.AddEvidence(unscoped, testNow)
	require.NoError(t, err)

	pathogenic, benign := agg.EvidenceTally()
	assert.Equal(t, 1, pathogenic)
	assert.Equal(t, 1, benign)
	assert.Equal(t, Consensus, agg.CurationEntries[0].Curation.ConsistencyStatus)

	_, changes, err := agg.AddEvidence(evidenceFor("HPO:000001", strength(Supporting), nil), testNow)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, Conflict, agg.CurationEntries[0].Curation.ConsistencyStatus)
}

func TestAddEvidence_RepeatedPhenotypeRecomputedOnce(t *testing.T) {
	agg := newTestAggregate(t)
	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)
	_, _, err = agg.AddEvidence(evidenceFor("HPO:000001", nil, strength(Strong)), testNow)
	require.NoError(t, err)

	sub := evidenceFor("HPO:000001", strength(Strong), nil)
	sub.Phenotypes = append(sub.Phenotypes,
		HeritablePhenotype{Phenotype: "HPO:000001"},
		HeritablePhenotype{Phenotype: "HPO:000001", InheritanceMode: BiallelicInheritance})

	entry, changes, err := agg.AddEvidence(sub, testNow)
	require.NoError(t, err)

	require.Len(t, changes, 1)
	assert.True(t, changes[0].Conflict)
	assert.Len(t, entry.Phenotypes, 3)
}

func TestConsistency_EvidenceTranscriptScope(t *testing.T) {
	agg := newTestAggregate(t)
	agg.ApplyAnnotation(AnnotationResult{Transcripts: []string{"ENST0001"}}, nil, testNow)

	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)

	_, _, err = agg.AddEvidence(evidenceFor("HPO:000001", strength(Strong), nil), testNow)
	require.NoError(t, err)

	scoped := evidenceFor("HPO:000001", nil, strength(Strong))
	scoped.Transcript = "ENST0001"
	_, changes, err := agg.AddEvidence(scoped, testNow)
	require.NoError(t, err)

	// the only curation has no transcript, so the scoped evidence matches nothing
	assert.Empty(t, changes)
	assert.Equal(t, Consensus, agg.CurationEntries[0].Curation.ConsistencyStatus)
}

func TestRecomputeConsistency_NoMatchingEntry(t *testing.T) {
	agg := newTestAggregate(t)

	conflict := agg.RecomputeConsistency(HeritablePhenotype{Phenotype: "HPO:000001"}, "")

	assert.False(t, conflict)
	assert.Empty(t, agg.CurationEntries)
}

func TestRecomputeConsistency_ExplicitStatusNotDowngraded(t *testing.T) {
	agg := newTestAggregate(t)
	sub := benignCuration("HPO:000001")
	sub.ConsistencyStatus = ResolvedConflict
	_, err := agg.AddCuration(sub, testNow)
	require.NoError(t, err)

	_, _, err = agg.AddEvidence(evidenceFor("HPO:000001", strength(Strong), nil), testNow)
	require.NoError(t, err)

	assert.Equal(t, ResolvedConflict, agg.CurationEntries[0].Curation.ConsistencyStatus)
}

func TestAddCuration_ScopesStayUniqueAndHistoryChains(t *testing.T) {
	agg := newTestAggregate(t)
	agg.ApplyAnnotation(AnnotationResult{Transcripts: []string{"ENST0001", "ENST0002"}}, nil, testNow)

	phenotypes := []string{"HPO:1", "HPO:2", "HPO:3"}
	transcripts := []string{"", "ENST0001", "ENST0002"}
	classifications := []Classification{BenignVariant, PathogenicVariant, LikelyBenignVariant, NotAssessed}

	for i := 0; i < 60; i++ {
		sub := benignCuration(phenotypes[i%len(phenotypes)])
		sub.Transcript = transcripts[(i/3)%len(transcripts)]
		sub.Classification = classifications[i%len(classifications)]
		_, err := agg.AddCuration(sub, testNow.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)

		if i%7 == 0 {
			_, _, err := agg.AddEvidence(evidenceFor(sub.HeritablePhenotype.Phenotype, nil, strength(Supporting)), testNow)
			require.NoError(t, err)
		}
		if i%11 == 0 {
			_, _, err := agg.AddEvidence(evidenceFor(sub.HeritablePhenotype.Phenotype, strength(Moderate), nil), testNow)
			require.NoError(t, err)
		}
	}

	seen := make(map[string]bool)
	total := 0
	for _, entry := range agg.CurationEntries {
		key := fmt.Sprintf("%s|%s", entry.Curation.HeritablePhenotype.Phenotype, entry.Curation.Transcript)
		assert.False(t, seen[key], "duplicate entry for %s", key)
		seen[key] = true

		require.NotEmpty(t, entry.History)
		assert.Nil(t, entry.History[0].Previous)
		for i := 1; i < len(entry.History); i++ {
			require.NotNil(t, entry.History[i].Previous)
			assert.True(t, entry.History[i-1].New.Equal(*entry.History[i].Previous), "broken chain for %s at %d", key, i)
		}
		total += len(entry.History)
	}
	assert.Len(t, agg.CurationEntries, 9)
	assert.Equal(t, 60, total)

	for _, e := range agg.EvidenceEntries {
		assert.True(t, e.IsPathogenic() != e.IsBenign())
	}
}

func TestAddCuration_StoresIndependentCopy(t *testing.T) {
	agg := newTestAggregate(t)
	sub := benignCuration("HPO:000001")
	sub.ManualConfidence = HighConfidence
	penetrance := 0.4
	sub.Penetrance = &penetrance

	written, err := agg.AddCuration(sub, testNow)
	require.NoError(t, err)

	entries, err := agg.CurationEntriesByPhenotype("HPO:000001")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Curation.Equal(written.Curation))

	penetrance = 0.9
	assert.Equal(t, 0.4, *agg.CurationEntries[0].Curation.Penetrance)
}

func TestPhenotypeQueries(t *testing.T) {
	agg := newTestAggregate(t)

	_, err := agg.AddCuration(benignCuration("HPO:000001"), testNow)
	require.NoError(t, err)
	other := benignCuration("HPO:000002")
	other.HeritablePhenotype.InheritanceMode = BiallelicInheritance
	_, err = agg.AddCuration(other, testNow)
	require.NoError(t, err)

	multi := evidenceFor("HPO:000001", strength(Strong), nil)
	multi.Phenotypes = append(multi.Phenotypes,
		HeritablePhenotype{Phenotype: "HPO:000001", InheritanceMode: BiallelicInheritance})
	_, _, err = agg.AddEvidence(multi, testNow)
	require.NoError(t, err)

	curations, err := agg.CurationEntriesByPhenotype("HPO:000001")
	require.NoError(t, err)
	assert.Len(t, curations, 1)

	curations, err = agg.CurationEntriesByPhenotype("HPO:000001", BiallelicInheritance)
	require.NoError(t, err)
	assert.Empty(t, curations)

	curations, err = agg.CurationEntriesByPhenotype("HPO:000002", BiallelicInheritance, MonoallelicInheritance)
	require.NoError(t, err)
	assert.Len(t, curations, 1)

	evidence, err := agg.EvidenceEntriesByPhenotype("HPO:000001")
	require.NoError(t, err)
	assert.Len(t, evidence, 1)

	evidence, err = agg.EvidenceEntriesByPhenotype("HPO:000001", BiallelicInheritance)
	require.NoError(t, err)
	assert.Len(t, evidence, 1)

	evidence, err = agg.EvidenceEntriesByPhenotype("HPO:000002")
	require.NoError(t, err)
	assert.Empty(t, evidence)

	_, err = agg.CurationEntriesByPhenotype("")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = agg.EvidenceEntriesByPhenotype("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestApplyAnnotation(t *testing.T) {
	agg := newTestAggregate(t)

	agg.ApplyAnnotation(AnnotationResult{Transcripts: []string{"ENST1", "", "ENST1", "ENST2"}}, nil, testNow)
	assert.Equal(t, AnnotationCompleted, agg.Annotation.Status)
	assert.Equal(t, []string{"ENST1", "ENST2"}, agg.Transcripts())

	// a later failure keeps the known transcripts
	agg.ApplyAnnotation(AnnotationResult{}, errors.New("timeout"), testNow.Add(time.Hour))
	assert.Equal(t, AnnotationFailed, agg.Annotation.Status)
	assert.Equal(t, []string{"ENST1", "ENST2"}, agg.Transcripts())
	assert.ErrorIs(t, agg.ValidateTranscript("ENST3"), ErrTranscriptNotFound)
	assert.NoError(t, agg.ValidateTranscript("ENST2"))
}

func TestValidateTranscript_AfterReload(t *testing.T) {
	agg := &VariantAggregate{Annotation: Annotation{Status: AnnotationCompleted, Transcripts: []string{"ENST1"}}}

	assert.NoError(t, agg.ValidateTranscript("ENST1"))
	assert.NoError(t, agg.ValidateTranscript(""))
	assert.ErrorIs(t, agg.ValidateTranscript("ENST2"), ErrTranscriptNotFound)
}
