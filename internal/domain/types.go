// Package domain contains the variant curation aggregate: curation entries with their
// classification history, evidence entries, and the consistency rules that tie them together.
//
// The package has no I/O. Normalization, annotation and persistence are reached through the
// interfaces in interfaces.go and are supplied by the service layer.
package domain

// InheritanceMode is the reported mode of inheritance scoping a phenotype.
type InheritanceMode string

const (
	MonoallelicInheritance            InheritanceMode = "monoallelic"
	MonoallelicNotImprinted           InheritanceMode = "monoallelic_not_imprinted"
	MonoallelicMaternallyImprinted    InheritanceMode = "monoallelic_maternally_imprinted"
	MonoallelicPaternallyImprinted    InheritanceMode = "monoallelic_paternally_imprinted"
	BiallelicInheritance              InheritanceMode = "biallelic"
	MonoallelicAndBiallelic           InheritanceMode = "monoallelic_and_biallelic"
	MonoallelicAndMoreSevereBiallelic InheritanceMode = "monoallelic_and_more_severe_biallelic"
	XLinkedBiallelic                  InheritanceMode = "xlinked_biallelic"
	XLinkedMonoallelic                InheritanceMode = "xlinked_monoallelic"
	MitochondrialInheritance          InheritanceMode = "mitochondrial"
	UnknownInheritance                InheritanceMode = "unknown"
	NotApplicableInheritance          InheritanceMode = "na"
)

// IsValid reports whether the mode is one of the known values, including "na".
func (m InheritanceMode) IsValid() bool {
	switch m {
	case MonoallelicInheritance, MonoallelicNotImprinted, MonoallelicMaternallyImprinted,
		MonoallelicPaternallyImprinted, BiallelicInheritance, MonoallelicAndBiallelic,
		MonoallelicAndMoreSevereBiallelic, XLinkedBiallelic, XLinkedMonoallelic,
		MitochondrialInheritance, UnknownInheritance, NotApplicableInheritance:
		return true
	default:
		return false
	}
}

// Classification is the clinical category submitted by a curator.
type Classification string

const (
	BenignVariant                        Classification = "benign_variant"
	LikelyBenignVariant                  Classification = "likely_benign_variant"
	VariantOfUnknownClinicalSignificance Classification = "variant_of_unknown_clinical_significance"
	LikelyPathogenicVariant              Classification = "likely_pathogenic_variant"
	PathogenicVariant                    Classification = "pathogenic_variant"
	EstablishedRiskAllele                Classification = "established_risk_allele"
	LikelyRiskAllele                     Classification = "likely_risk_allele"
	UncertainRiskAllele                  Classification = "uncertain_risk_allele"
	ProtectiveVariant                    Classification = "protective"
	NotAssessed                          Classification = "not_assessed"
)

// IsValid reports whether the classification is a known category.
func (c Classification) IsValid() bool {
	switch c {
	case BenignVariant, LikelyBenignVariant, VariantOfUnknownClinicalSignificance,
		LikelyPathogenicVariant, PathogenicVariant, EstablishedRiskAllele, LikelyRiskAllele,
		UncertainRiskAllele, ProtectiveVariant, NotAssessed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the classification.
func (c Classification) String() string {
	return string(c)
}

// ClinicalSignificance derives the ontology-style significance term for the classification.
// The derived value is always computed here and never accepted from a submitter.
func (c Classification) ClinicalSignificance() ClinicalSignificance {
	switch c {
	case BenignVariant:
		return SignificanceBenign
	case LikelyBenignVariant:
		return SignificanceLikelyBenign
	case VariantOfUnknownClinicalSignificance:
		return SignificanceUncertain
	case LikelyPathogenicVariant:
		return SignificanceLikelyPathogenic
	case PathogenicVariant:
		return SignificancePathogenic
	case EstablishedRiskAllele, LikelyRiskAllele, UncertainRiskAllele:
		return SignificanceRiskFactor
	case ProtectiveVariant:
		return SignificanceProtective
	default:
		return SignificanceNotAssessed
	}
}

// ClinicalSignificance is the derived, ontology-style counterpart of a Classification.
type ClinicalSignificance string

const (
	SignificanceBenign           ClinicalSignificance = "benign"
	SignificanceLikelyBenign     ClinicalSignificance = "likely_benign"
	SignificanceUncertain        ClinicalSignificance = "uncertain_significance"
	SignificanceLikelyPathogenic ClinicalSignificance = "likely_pathogenic"
	SignificancePathogenic       ClinicalSignificance = "pathogenic"
	SignificanceRiskFactor       ClinicalSignificance = "risk_factor"
	SignificanceProtective       ClinicalSignificance = "protective"
	SignificanceNotAssessed      ClinicalSignificance = "not_assessed"
)

// ManualConfidence is the curator's own confidence in a classification.
type ManualConfidence string

const (
	LowConfidence    ManualConfidence = "low_confidence"
	MediumConfidence ManualConfidence = "medium_confidence"
	HighConfidence   ManualConfidence = "high_confidence"
)

// IsValid validates the confidence level.
func (c ManualConfidence) IsValid() bool {
	switch c {
	case LowConfidence, MediumConfidence, HighConfidence:
		return true
	default:
		return false
	}
}

// ConsistencyStatus summarizes whether stored evidence agrees on direction.
// The zero value means the status has not been set.
type ConsistencyStatus string

const (
	Consensus        ConsistencyStatus = "consensus"
	Conflict         ConsistencyStatus = "conflict"
	ResolvedConflict ConsistencyStatus = "resolved_conflict"
)

// IsValid validates the consistency status.
func (s ConsistencyStatus) IsValid() bool {
	switch s {
	case Consensus, Conflict, ResolvedConflict:
		return true
	default:
		return false
	}
}

// SourceType categorizes where a piece of evidence comes from.
type SourceType string

const (
	LiteratureSource      SourceType = "literature"
	DatabaseSource        SourceType = "database"
	FunctionalStudySource SourceType = "functional_study"
	ClinicalTestingSource SourceType = "clinical_testing"
	ResearchSource        SourceType = "research"
	TrustedPartnerSource  SourceType = "trusted_partner"
	OtherSource           SourceType = "other"
)

// IsValid validates the source type.
func (t SourceType) IsValid() bool {
	switch t {
	case LiteratureSource, DatabaseSource, FunctionalStudySource, ClinicalTestingSource,
		ResearchSource, TrustedPartnerSource, OtherSource:
		return true
	default:
		return false
	}
}

// AlleleOrigin records how the allele was inherited or acquired.
type AlleleOrigin string

const (
	GermlineOrigin AlleleOrigin = "germline_variant"
	DeNovoOrigin   AlleleOrigin = "de_novo_variant"
	MaternalOrigin AlleleOrigin = "maternal_variant"
	PaternalOrigin AlleleOrigin = "paternal_variant"
	SomaticOrigin  AlleleOrigin = "somatic_variant"
	UnknownOrigin  AlleleOrigin = "unknown"
)

// IsValid validates the allele origin.
func (o AlleleOrigin) IsValid() bool {
	switch o {
	case GermlineOrigin, DeNovoOrigin, MaternalOrigin, PaternalOrigin, SomaticOrigin, UnknownOrigin:
		return true
	default:
		return false
	}
}

// EvidenceStrength grades a pathogenic or benign observation.
type EvidenceStrength string

const (
	VeryStrong EvidenceStrength = "very_strong"
	Strong     EvidenceStrength = "strong"
	Moderate   EvidenceStrength = "moderate"
	Supporting EvidenceStrength = "supporting"
	StandAlone EvidenceStrength = "stand_alone"
)

// ValidForPathogenicity reports whether the strength can grade pathogenic evidence.
func (s EvidenceStrength) ValidForPathogenicity() bool {
	switch s {
	case VeryStrong, Strong, Moderate, Supporting:
		return true
	default:
		return false
	}
}

// ValidForBenignity reports whether the strength can grade benign evidence.
func (s EvidenceStrength) ValidForBenignity() bool {
	switch s {
	case StandAlone, Strong, Supporting:
		return true
	default:
		return false
	}
}

// AnnotationStatus tracks whether the transcript set of an aggregate can be trusted.
type AnnotationStatus string

const (
	AnnotationPending   AnnotationStatus = "pending"
	AnnotationCompleted AnnotationStatus = "annotated"
	AnnotationFailed    AnnotationStatus = "failed"
)
