package domain

import (
	"time"
)

// EvidenceSource identifies where an evidence item was obtained.
type EvidenceSource struct {
	Name     string     `json:"name"`
	Type     SourceType `json:"type"`
	Version  string     `json:"version,omitempty"`
	URL      string     `json:"url,omitempty"`
	SourceID string     `json:"source_id,omitempty"`
}

// Study carries optional literature or study metadata for an evidence item.
type Study struct {
	Title               string `json:"title,omitempty"`
	PubMedID            string `json:"pubmed_id,omitempty"`
	DOI                 string `json:"doi,omitempty"`
	StudyType           string `json:"study_type,omitempty"`
	NumberOfIndividuals int    `json:"number_of_individuals,omitempty"`
}

// EvidenceEntry is one stored evidentiary fact. Exactly one of Pathogenicity and Benignity
// is set. Entries are immutable: amendments are new entries.
type EvidenceEntry struct {
	ID            string               `json:"id"`
	Date          time.Time            `json:"date"`
	Submitter     string               `json:"submitter"`
	Source        EvidenceSource       `json:"source"`
	AlleleOrigin  AlleleOrigin         `json:"allele_origin"`
	Phenotypes    []HeritablePhenotype `json:"phenotypes,omitempty"`
	Transcript    string               `json:"transcript,omitempty"`
	Pathogenicity *EvidenceStrength    `json:"pathogenicity,omitempty"`
	Benignity     *EvidenceStrength    `json:"benignity,omitempty"`
	Study         *Study               `json:"study,omitempty"`
	Description   string               `json:"description,omitempty"`
}

// IsPathogenic reports whether the entry supports a pathogenic interpretation.
func (e EvidenceEntry) IsPathogenic() bool {
	return e.Pathogenicity != nil
}

// IsBenign reports whether the entry supports a benign interpretation.
func (e EvidenceEntry) IsBenign() bool {
	return e.Benignity != nil
}

// MatchesPhenotype reports whether any listed phenotype satisfies the filter.
func (e EvidenceEntry) MatchesPhenotype(phenotype string, modes ...InheritanceMode) bool {
	for _, hp := range e.Phenotypes {
		if hp.Matches(phenotype, modes...) {
			return true
		}
	}
	return false
}

// EvidenceSubmission is a request to attach a new evidence item to the variant.
type EvidenceSubmission struct {
	ID            string
	Submitter     string
	Source        *EvidenceSource
	AlleleOrigin  AlleleOrigin
	Phenotypes    []HeritablePhenotype
	Transcript    string
	Pathogenicity *EvidenceStrength
	Benignity     *EvidenceStrength
	Study         *Study
	Description   string
}

// ConsistencyChange reports the outcome of one consistency recomputation triggered by an
// evidence write.
type ConsistencyChange struct {
	HeritablePhenotype HeritablePhenotype `json:"heritable_phenotype"`
	Transcript         string             `json:"transcript,omitempty"`
	Status             ConsistencyStatus  `json:"status"`
	Conflict           bool               `json:"conflict"`
}
