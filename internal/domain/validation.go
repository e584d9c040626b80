package domain

import (
	"strings"
)

// ValidateSubmitter rejects an empty curator or submitter identifier.
func ValidateSubmitter(field, submitter string) error {
	if strings.TrimSpace(submitter) == "" {
		return NewValidationError(field, "must not be empty", submitter)
	}
	return nil
}

// NormalizeHeritablePhenotype validates hp and coerces a missing inheritance mode to
// NotApplicableInheritance.
func NormalizeHeritablePhenotype(hp HeritablePhenotype) (HeritablePhenotype, error) {
	if strings.TrimSpace(hp.Phenotype) == "" {
		return hp, NewValidationError("phenotype", "must not be empty", hp.Phenotype)
	}
	if hp.InheritanceMode == "" {
		hp.InheritanceMode = NotApplicableInheritance
	}
	if !hp.InheritanceMode.IsValid() {
		return hp, NewValidationError("inheritance_mode", "unknown mode of inheritance", hp.InheritanceMode)
	}
	return hp, nil
}

// ValidatePenetrance checks that a supplied penetrance lies in [0,1].
func ValidatePenetrance(penetrance *float64) error {
	if penetrance == nil {
		return nil
	}
	// NaN fails both comparisons
	if !(*penetrance >= 0 && *penetrance <= 1) {
		return NewValidationError("penetrance", "must be between 0 and 1 inclusive", *penetrance)
	}
	return nil
}

// ValidateEvidenceSource requires a source with a known type.
func ValidateEvidenceSource(source *EvidenceSource) error {
	if source == nil {
		return NewValidationError("source", "is required", nil)
	}
	if source.Type == "" {
		return NewValidationError("source.type", "is required", nil)
	}
	if !source.Type.IsValid() {
		return NewValidationError("source.type", "unknown source type", source.Type)
	}
	return nil
}

// ValidateEvidenceDirection requires exactly one of pathogenicity and benignity, graded with
// a strength allowed for that direction.
func ValidateEvidenceDirection(pathogenicity, benignity *EvidenceStrength) error {
	switch {
	case pathogenicity != nil && benignity != nil:
		return newReasonError("pathogenicity", nil, ErrAmbiguousEvidence)
	case pathogenicity == nil && benignity == nil:
		return newReasonError("pathogenicity", nil, ErrMissingEvidence)
	case pathogenicity != nil && !pathogenicity.ValidForPathogenicity():
		return NewValidationError("pathogenicity", "invalid strength for pathogenic evidence", *pathogenicity)
	case benignity != nil && !benignity.ValidForBenignity():
		return NewValidationError("benignity", "invalid strength for benign evidence", *benignity)
	}
	return nil
}

// ValidateCuration checks the enumerated fields and penetrance of a curation submission.
func ValidateCuration(sub CurationSubmission) error {
	if !sub.Classification.IsValid() {
		return NewValidationError("classification", "unknown classification", sub.Classification)
	}
	if sub.ManualConfidence != "" && !sub.ManualConfidence.IsValid() {
		return NewValidationError("manual_confidence", "unknown confidence level", sub.ManualConfidence)
	}
	if sub.ConsistencyStatus != "" && !sub.ConsistencyStatus.IsValid() {
		return NewValidationError("consistency_status", "unknown consistency status", sub.ConsistencyStatus)
	}
	return ValidatePenetrance(sub.Penetrance)
}

// ValidateTranscript checks that transcript, when given, names one of the transcripts the
// variant was annotated with. The check is skipped while no transcripts are known.
func (a *VariantAggregate) ValidateTranscript(transcript string) error {
	if transcript == "" {
		return nil
	}
	known := a.transcriptSet()
	if len(known) == 0 {
		return nil
	}
	if _, ok := known[transcript]; !ok {
		return newReasonError("transcript", transcript, ErrTranscriptNotFound)
	}
	return nil
}
