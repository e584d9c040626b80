package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalVariant_Key(t *testing.T) {
	v := CanonicalVariant{Chromosome: "19", Position: 44908684, Reference: "T", Alternate: "C"}

	assert.Equal(t, "19:44908684:T:C", v.Key())
	assert.Equal(t, v.Key(), v.String())

	raw, err := ParseVariantKey(v.Key())
	require.NoError(t, err)
	assert.Equal(t, v.Raw(), raw)
}

func TestParseVariantKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		want    RawVariant
		wantErr bool
	}{
		{"snv", "1:100:A:G", RawVariant{Chromosome: "1", Position: 100, Reference: "A", Alternate: "G"}, false},
		{"indel", "X:5:AT:A", RawVariant{Chromosome: "X", Position: 5, Reference: "AT", Alternate: "A"}, false},
		{"too few parts", "1:100:A", RawVariant{}, true},
		{"too many parts", "1:100:A:G:T", RawVariant{}, true},
		{"non numeric position", "1:abc:A:G", RawVariant{}, true},
		{"zero position", "1:0:A:G", RawVariant{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVariantKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
				assert.ErrorIs(t, err, ErrMalformedVariant)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
