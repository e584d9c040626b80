package domain

import (
	"time"
)

// HeritablePhenotype scopes a curation or an evidence item to a phenotype and a mode of
// inheritance. A missing mode is stored as NotApplicableInheritance, never as "".
type HeritablePhenotype struct {
	Phenotype       string          `json:"phenotype"`
	InheritanceMode InheritanceMode `json:"inheritance_mode"`
}

// Matches reports whether the phenotype equals phenotype and, when modes are given, whether
// its inheritance mode is one of them.
func (hp HeritablePhenotype) Matches(phenotype string, modes ...InheritanceMode) bool {
	if hp.Phenotype != phenotype {
		return false
	}
	if len(modes) == 0 {
		return true
	}
	for _, mode := range modes {
		if hp.InheritanceMode == mode {
			return true
		}
	}
	return false
}

// Curation is a single expert classification of the variant for one scope.
type Curation struct {
	HeritablePhenotype   HeritablePhenotype   `json:"heritable_phenotype"`
	Transcript           string               `json:"transcript,omitempty"`
	Classification       Classification       `json:"classification"`
	ClinicalSignificance ClinicalSignificance `json:"clinical_significance"`
	ManualConfidence     ManualConfidence     `json:"manual_confidence,omitempty"`
	ConsistencyStatus    ConsistencyStatus    `json:"consistency_status,omitempty"`
	Penetrance           *float64             `json:"penetrance,omitempty"`
	VariableExpressivity bool                 `json:"variable_expressivity"`
}

// Equal compares two curations field by field, dereferencing the penetrance.
func (c Curation) Equal(other Curation) bool {
	if c.HeritablePhenotype != other.HeritablePhenotype ||
		c.Transcript != other.Transcript ||
		c.Classification != other.Classification ||
		c.ClinicalSignificance != other.ClinicalSignificance ||
		c.ManualConfidence != other.ManualConfidence ||
		c.ConsistencyStatus != other.ConsistencyStatus ||
		c.VariableExpressivity != other.VariableExpressivity {
		return false
	}
	if c.Penetrance == nil || other.Penetrance == nil {
		return c.Penetrance == nil && other.Penetrance == nil
	}
	return *c.Penetrance == *other.Penetrance
}

// clone returns a copy that shares no pointers with c.
func (c Curation) clone() Curation {
	if c.Penetrance != nil {
		p := *c.Penetrance
		c.Penetrance = &p
	}
	return c
}

// CurationHistoryEntry records one classification change. Entries are never modified once
// appended.
type CurationHistoryEntry struct {
	Date     time.Time `json:"date"`
	Previous *Curation `json:"previous,omitempty"`
	New      Curation  `json:"new"`
	Curator  string    `json:"curator"`
	Comments string    `json:"comments,omitempty"`
}

// CurationEntry holds the current curation for a (phenotype, transcript) scope and the full
// history that produced it, oldest first.
type CurationEntry struct {
	Curation Curation               `json:"curation"`
	History  []CurationHistoryEntry `json:"history"`
}

// CurationSubmission is a curator's request to classify the variant for one scope.
type CurationSubmission struct {
	Curator              string
	Comments             string
	HeritablePhenotype   HeritablePhenotype
	Transcript           string
	Classification       Classification
	ManualConfidence     ManualConfidence
	ConsistencyStatus    ConsistencyStatus
	Penetrance           *float64
	VariableExpressivity bool
}

// curation builds the Curation value stored for the submission.
func (s CurationSubmission) curation() Curation {
	c := Curation{
		HeritablePhenotype:   s.HeritablePhenotype,
		Transcript:           s.Transcript,
		Classification:       s.Classification,
		ClinicalSignificance: s.Classification.ClinicalSignificance(),
		ManualConfidence:     s.ManualConfidence,
		ConsistencyStatus:    s.ConsistencyStatus,
		Penetrance:           s.Penetrance,
		VariableExpressivity: s.VariableExpressivity,
	}
	return c.clone()
}
