package domain

import (
	"time"

	"github.com/google/uuid"
)

// AnnotationResult is what an Annotator returns for a variant.
type AnnotationResult struct {
	Transcripts []string `json:"transcripts"`
}

// Annotation is the annotation state cached on the aggregate.
type Annotation struct {
	Status      AnnotationStatus `json:"status"`
	Transcripts []string         `json:"transcripts,omitempty"`
	AnnotatedAt time.Time        `json:"annotated_at,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// VariantAggregate is the root entity: one per canonical variant. It is the single owner of
// its curation and evidence collections and every mutation goes through its methods, which
// validate fully before changing any state.
type VariantAggregate struct {
	Variant         CanonicalVariant `json:"variant"`
	CurationEntries []CurationEntry  `json:"curation_entries"`
	EvidenceEntries []EvidenceEntry  `json:"evidence_entries"`
	Annotation      Annotation       `json:"annotation"`
	CreatedBy       string           `json:"created_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`

	// Version is owned by the store and used for compare-and-swap updates.
	Version int64 `json:"version"`

	transcripts map[string]struct{}
}

// NewVariantAggregate creates an empty aggregate awaiting annotation.
func NewVariantAggregate(variant CanonicalVariant, createdBy string, now time.Time) (*VariantAggregate, error) {
	if err := ValidateSubmitter("submitter", createdBy); err != nil {
		return nil, err
	}

	return &VariantAggregate{
		Variant:         variant,
		CurationEntries: []CurationEntry{},
		EvidenceEntries: []EvidenceEntry{},
		Annotation:      Annotation{Status: AnnotationPending},
		CreatedBy:       createdBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Key returns the storage key of the aggregate.
func (a *VariantAggregate) Key() string {
	return a.Variant.Key()
}

// ApplyAnnotation records the outcome of an annotation call. A failed call keeps whatever
// transcripts were known before, so a transient failure never widens validation.
func (a *VariantAggregate) ApplyAnnotation(result AnnotationResult, annotateErr error, now time.Time) {
	if annotateErr != nil {
		a.Annotation.Status = AnnotationFailed
		a.Annotation.Error = annotateErr.Error()
		a.UpdatedAt = now
		return
	}

	transcripts := make([]string, 0, len(result.Transcripts))
	seen := make(map[string]struct{}, len(result.Transcripts))
	for _, t := range result.Transcripts {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		transcripts = append(transcripts, t)
	}

	a.Annotation = Annotation{
		Status:      AnnotationCompleted,
		Transcripts: transcripts,
		AnnotatedAt: now,
	}
	a.transcripts = seen
	a.UpdatedAt = now
}

// Transcripts returns a copy of the annotation-derived transcript identifiers.
func (a *VariantAggregate) Transcripts() []string {
	out := make([]string, len(a.Annotation.Transcripts))
	copy(out, a.Annotation.Transcripts)
	return out
}

// transcriptSet returns the lookup set, rebuilding it after a load from a store.
func (a *VariantAggregate) transcriptSet() map[string]struct{} {
	if a.transcripts == nil || len(a.transcripts) != len(a.Annotation.Transcripts) {
		a.transcripts = make(map[string]struct{}, len(a.Annotation.Transcripts))
		for _, t := range a.Annotation.Transcripts {
			a.transcripts[t] = struct{}{}
		}
	}
	return a.transcripts
}

// FindCurationEntry returns the index of and a pointer to the entry for the
// (phenotype, transcript) scope, or -1 and nil. Only the phenotype identifier takes part in
// the match, and "no transcript" never matches a named transcript.
func (a *VariantAggregate) FindCurationEntry(hp HeritablePhenotype, transcript string) (int, *CurationEntry) {
	for i := range a.CurationEntries {
		current := a.CurationEntries[i].Curation
		if current.HeritablePhenotype.Phenotype == hp.Phenotype && current.Transcript == transcript {
			return i, &a.CurationEntries[i]
		}
	}
	return -1, nil
}

// AddCuration merges a curation submission into the aggregate. A new scope gets a new entry
// whose history starts with Previous == nil; an existing scope gets one more history item
// chained to the current curation, which is then replaced. When the submission carries no
// consistency status it is derived from the evidence; an explicit one is kept.
func (a *VariantAggregate) AddCuration(sub CurationSubmission, now time.Time) (CurationEntry, error) {
	if err := ValidateSubmitter("curator", sub.Curator); err != nil {
		return CurationEntry{}, err
	}
	hp, err := NormalizeHeritablePhenotype(sub.HeritablePhenotype)
	if err != nil {
		return CurationEntry{}, err
	}
	sub.HeritablePhenotype = hp
	if err := ValidateCuration(sub); err != nil {
		return CurationEntry{}, err
	}
	if err := a.ValidateTranscript(sub.Transcript); err != nil {
		return CurationEntry{}, err
	}

	next := sub.curation()
	if next.ConsistencyStatus == "" {
		next.ConsistencyStatus = a.deriveConsistency("")
	}

	record := CurationHistoryEntry{
		Date:     now,
		New:      next.clone(),
		Curator:  sub.Curator,
		Comments: sub.Comments,
	}

	a.UpdatedAt = now

	_, existing := a.FindCurationEntry(hp, sub.Transcript)
	if existing == nil {
		entry := CurationEntry{
			Curation: next,
			History:  []CurationHistoryEntry{record},
		}
		a.CurationEntries = append(a.CurationEntries, entry)
		return entry, nil
	}

	// Previous is the last recorded curation so the chain holds even after consistency
	// recomputation has moved the current status.
	previous := existing.Curation.clone()
	if n := len(existing.History); n > 0 {
		previous = existing.History[n-1].New.clone()
	}
	record.Previous = &previous
	existing.History = append(existing.History, record)
	existing.Curation = next

	return *existing, nil
}

// AddEvidence validates and appends an evidence item, then recomputes consistency for every
// curation scope the evidence names. The returned changes list one item per distinct listed
// phenotype that matched a curation entry.
func (a *VariantAggregate) AddEvidence(sub EvidenceSubmission, now time.Time) (EvidenceEntry, []ConsistencyChange, error) {
	if err := ValidateSubmitter("submitter", sub.Submitter); err != nil {
		return EvidenceEntry{}, nil, err
	}
	if err := ValidateEvidenceSource(sub.Source); err != nil {
		return EvidenceEntry{}, nil, err
	}
	if err := ValidateEvidenceDirection(sub.Pathogenicity, sub.Benignity); err != nil {
		return EvidenceEntry{}, nil, err
	}

	phenotypes := make([]HeritablePhenotype, 0, len(sub.Phenotypes))
	for _, hp := range sub.Phenotypes {
		normalized, err := NormalizeHeritablePhenotype(hp)
		if err != nil {
			return EvidenceEntry{}, nil, err
		}
		phenotypes = append(phenotypes, normalized)
	}

	origin := sub.AlleleOrigin
	if origin == "" {
		origin = UnknownOrigin
	}
	if !origin.IsValid() {
		return EvidenceEntry{}, nil, NewValidationError("allele_origin", "unknown allele origin", origin)
	}

	if err := a.ValidateTranscript(sub.Transcript); err != nil {
		return EvidenceEntry{}, nil, err
	}

	id := sub.ID
	if id == "" {
		id = uuid.NewString()
	}

	entry := EvidenceEntry{
		ID:           id,
		Date:         now,
		Submitter:    sub.Submitter,
		Source:       *sub.Source,
		AlleleOrigin: origin,
		Phenotypes:   phenotypes,
		Transcript:   sub.Transcript,
		Description:  sub.Description,
	}
	if sub.Pathogenicity != nil {
		strength := *sub.Pathogenicity
		entry.Pathogenicity = &strength
	}
	if sub.Benignity != nil {
		strength := *sub.Benignity
		entry.Benignity = &strength
	}
	if sub.Study != nil {
		study := *sub.Study
		entry.Study = &study
	}

	a.EvidenceEntries = append(a.EvidenceEntries, entry)
	a.UpdatedAt = now

	var changes []ConsistencyChange
	recomputed := make(map[string]bool, len(phenotypes))
	for _, hp := range phenotypes {
		// scopes match on phenotype and transcript, and the transcript is shared
		if recomputed[hp.Phenotype] {
			continue
		}
		recomputed[hp.Phenotype] = true

		_, curationEntry := a.FindCurationEntry(hp, entry.Transcript)
		if curationEntry == nil {
			continue
		}
		conflict := a.RecomputeConsistency(hp, entry.Transcript)
		changes = append(changes, ConsistencyChange{
			HeritablePhenotype: hp,
			Transcript:         entry.Transcript,
			Status:             curationEntry.Curation.ConsistencyStatus,
			Conflict:           conflict,
		})
	}

	return entry, changes, nil
}

// CurationEntriesByPhenotype returns the entries whose phenotype matches and, when modes are
// given, whose inheritance mode is one of them.
func (a *VariantAggregate) CurationEntriesByPhenotype(phenotype string, modes ...InheritanceMode) ([]CurationEntry, error) {
	if phenotype == "" {
		return nil, NewValidationError("phenotype", "must not be empty", phenotype)
	}

	result := []CurationEntry{}
	for _, entry := range a.CurationEntries {
		if entry.Curation.HeritablePhenotype.Matches(phenotype, modes...) {
			result = append(result, entry)
		}
	}
	return result, nil
}

// EvidenceEntriesByPhenotype returns each evidence entry at most once when any of its
// phenotypes satisfies the filter.
func (a *VariantAggregate) EvidenceEntriesByPhenotype(phenotype string, modes ...InheritanceMode) ([]EvidenceEntry, error) {
	if phenotype == "" {
		return nil, NewValidationError("phenotype", "must not be empty", phenotype)
	}

	result := []EvidenceEntry{}
	for _, entry := range a.EvidenceEntries {
		if entry.MatchesPhenotype(phenotype, modes...) {
			result = append(result, entry)
		}
	}
	return result, nil
}
