package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RawVariant is a variant as submitted, before normalization.
type RawVariant struct {
	Chromosome string `json:"chromosome"`
	Position   int64  `json:"position"`
	Reference  string `json:"reference"`
	Alternate  string `json:"alternate"`
}

// CanonicalVariant is the normalized identity of a variant and the aggregate's storage key.
type CanonicalVariant struct {
	Chromosome string `json:"chromosome"`
	Position   int64  `json:"position"`
	Reference  string `json:"reference"`
	Alternate  string `json:"alternate"`
}

// Key renders the variant as chromosome:position:reference:alternate.
func (v CanonicalVariant) Key() string {
	return fmt.Sprintf("%s:%d:%s:%s", v.Chromosome, v.Position, v.Reference, v.Alternate)
}

// String implements fmt.Stringer.
func (v CanonicalVariant) String() string {
	return v.Key()
}

// Raw converts the canonical variant back into submission form.
func (v CanonicalVariant) Raw() RawVariant {
	return RawVariant(v)
}

// ParseVariantKey parses a key produced by CanonicalVariant.Key. An empty reference or
// alternate (a VCF-less deletion or insertion) is allowed and rendered as an empty field.
func ParseVariantKey(key string) (RawVariant, error) {
	parts := strings.Split(key, ":")
	if len(parts) != 4 {
		return RawVariant{}, newReasonError("variant_key", key, ErrMalformedVariant)
	}

	position, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || position <= 0 {
		return RawVariant{}, newReasonError("variant_key", key, ErrMalformedVariant)
	}

	return RawVariant{
		Chromosome: parts[0],
		Position:   position,
		Reference:  parts[2],
		Alternate:  parts[3],
	}, nil
}
