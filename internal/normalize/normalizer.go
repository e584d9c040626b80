// Package normalize maps submitted variant coordinates onto their canonical form.
package normalize

import (
	"strconv"
	"strings"

	"github.com/variant-curation-server/internal/domain"
)

const maxAutosome = 22

// Normalizer canonicalizes human variants. It normalizes chromosome names, validates the
// allele alphabet and trims flanking bases shared by reference and alternate, keeping one
// anchor base for indels. It does not left-align against a reference genome.
type Normalizer struct{}

// NewNormalizer creates a new Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize implements domain.Normalizer
func (n *Normalizer) Normalize(raw domain.RawVariant) (domain.CanonicalVariant, error) {
	chromosome, ok := NormalizeChromosome(raw.Chromosome)
	if !ok {
		return domain.CanonicalVariant{}, malformed("chromosome", raw.Chromosome)
	}
	if raw.Position <= 0 {
		return domain.CanonicalVariant{}, malformed("position", raw.Position)
	}

	ref := normalizeAllele(raw.Reference)
	alt := normalizeAllele(raw.Alternate)

	if strings.Contains(alt, ",") || strings.Contains(ref, ",") {
		return domain.CanonicalVariant{}, &domain.ValidationError{
			Field:   "alternate",
			Message: domain.ErrMultiAllelic.Error(),
			Value:   raw.Alternate,
			Err:     domain.ErrMultiAllelic,
		}
	}
	if ref == "" && alt == "" {
		return domain.CanonicalVariant{}, malformed("reference", raw.Reference)
	}
	if !validBases(ref) {
		return domain.CanonicalVariant{}, malformed("reference", raw.Reference)
	}
	if !validBases(alt) {
		return domain.CanonicalVariant{}, malformed("alternate", raw.Alternate)
	}
	if ref == alt {
		return domain.CanonicalVariant{}, malformed("alternate", raw.Alternate)
	}

	position := raw.Position
	ref, alt, position = trim(ref, alt, position)

	return domain.CanonicalVariant{
		Chromosome: chromosome,
		Position:   position,
		Reference:  ref,
		Alternate:  alt,
	}, nil
}

// NormalizeChromosome strips a "chr" prefix, maps MT to M and reports whether the result
// names a human chromosome (1-22, X, Y, M).
func NormalizeChromosome(text string) (string, bool) {
	c := strings.ToUpper(strings.TrimSpace(text))
	c = strings.TrimPrefix(c, "CHR")
	if c == "MT" {
		c = "M"
	}

	switch c {
	case "X", "Y", "M":
		return c, true
	}

	number, err := strconv.Atoi(c)
	if err != nil || number < 1 || number > maxAutosome {
		return c, false
	}
	// drops leading zeros such as "01"
	return strconv.Itoa(number), true
}

func normalizeAllele(allele string) string {
	a := strings.ToUpper(strings.TrimSpace(allele))
	if a == "-" || a == "." {
		return ""
	}
	return a
}

func validBases(allele string) bool {
	for _, b := range allele {
		switch b {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return false
		}
	}
	return true
}

// trim removes the common suffix, then the common prefix, while both alleles keep at least
// one base. Prefix trimming advances the position.
func trim(ref, alt string, position int64) (string, string, int64) {
	for len(ref) > 1 && len(alt) > 1 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref = ref[:len(ref)-1]
		alt = alt[:len(alt)-1]
	}
	for len(ref) > 1 && len(alt) > 1 && ref[0] == alt[0] {
		ref = ref[1:]
		alt = alt[1:]
		position++
	}
	return ref, alt, position
}

func malformed(field string, value interface{}) error {
	return &domain.ValidationError{
		Field:   field,
		Message: domain.ErrMalformedVariant.Error(),
		Value:   value,
		Err:     domain.ErrMalformedVariant,
	}
}
