package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHeritablePhenotype(t *testing.T) {
	hp, err := NormalizeHeritablePhenotype(HeritablePhenotype{Phenotype: "HPO:1"})
	require.NoError(t, err)
	assert.Equal(t, NotApplicableInheritance, hp.InheritanceMode)

	hp, err = NormalizeHeritablePhenotype(HeritablePhenotype{Phenotype: "HPO:1", InheritanceMode: XLinkedMonoallelic})
	require.NoError(t, err)
	assert.Equal(t, XLinkedMonoallelic, hp.InheritanceMode)

	_, err = NormalizeHeritablePhenotype(HeritablePhenotype{Phenotype: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NormalizeHeritablePhenotype(HeritablePhenotype{Phenotype: "HPO:1", InheritanceMode: "dominant"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidatePenetrance(t *testing.T) {
	for _, v := range []float64{0, 0.5, 1} {
		v := v
		assert.NoError(t, ValidatePenetrance(&v))
	}
	for _, v := range []float64{-0.01, 1.01, math.NaN(), math.Inf(1)} {
		v := v
		assert.ErrorIs(t, ValidatePenetrance(&v), ErrValidation)
	}
	assert.NoError(t, ValidatePenetrance(nil))
}

func TestValidateEvidenceDirection(t *testing.T) {
	assert.NoError(t, ValidateEvidenceDirection(strength(VeryStrong), nil))
	assert.NoError(t, ValidateEvidenceDirection(nil, strength(StandAlone)))
	assert.ErrorIs(t, ValidateEvidenceDirection(strength(Strong), strength(Strong)), ErrAmbiguousEvidence)
	assert.ErrorIs(t, ValidateEvidenceDirection(nil, nil), ErrMissingEvidence)
	assert.ErrorIs(t, ValidateEvidenceDirection(strength(StandAlone), nil), ErrValidation)
	assert.ErrorIs(t, ValidateEvidenceDirection(nil, strength(Moderate)), ErrValidation)
}

func TestValidateSubmitter(t *testing.T) {
	assert.NoError(t, ValidateSubmitter("curator", "alice"))
	assert.ErrorIs(t, ValidateSubmitter("curator", ""), ErrValidation)
	assert.ErrorIs(t, ValidateSubmitter("curator", "\t"), ErrValidation)
}
