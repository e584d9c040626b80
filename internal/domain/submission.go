package domain

import (
	"encoding/json"
	"time"
)

// SubmissionKind names the kind of write recorded in the ledger.
type SubmissionKind string

const (
	SubmissionRegistration SubmissionKind = "registration"
	SubmissionCuration     SubmissionKind = "curation"
	SubmissionEvidence     SubmissionKind = "evidence"
	SubmissionAnnotation   SubmissionKind = "annotation"
)

// IsValid checks if the submission kind is valid
func (k SubmissionKind) IsValid() bool {
	switch k {
	case SubmissionRegistration, SubmissionCuration, SubmissionEvidence, SubmissionAnnotation:
		return true
	default:
		return false
	}
}

// Submission is one ledger record. Payload holds the accepted request as JSON.
type Submission struct {
	ID         string          `json:"id"`
	VariantKey string          `json:"variant_key"`
	Kind       SubmissionKind  `json:"kind"`
	Submitter  string          `json:"submitter"`
	Phenotype  string          `json:"phenotype,omitempty"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
