package domain

// EvidenceTally counts the pathogenic and benign evidence items attached to the variant.
// Every item counts regardless of the phenotypes it lists, including items that list none.
func (a *VariantAggregate) EvidenceTally() (pathogenic, benign int) {
	for _, e := range a.EvidenceEntries {
		if e.IsPathogenic() {
			pathogenic++
		}
		if e.IsBenign() {
			benign++
		}
	}
	return pathogenic, benign
}

// deriveConsistency applies the consistency rule to a current status: conflicting evidence
// always yields Conflict, otherwise an unset status becomes Consensus and a set one is kept.
func (a *VariantAggregate) deriveConsistency(current ConsistencyStatus) ConsistencyStatus {
	pathogenic, benign := a.EvidenceTally()
	if pathogenic > 0 && benign > 0 {
		return Conflict
	}
	if current == "" {
		return Consensus
	}
	return current
}

// RecomputeConsistency re-derives the consistency status of the curation for the
// (phenotype, transcript) scope and reports whether it is now a conflict. It is a no-op when
// no such curation exists. The change is metadata only: no history item is written.
func (a *VariantAggregate) RecomputeConsistency(hp HeritablePhenotype, transcript string) bool {
	_, entry := a.FindCurationEntry(hp, transcript)
	if entry == nil {
		return false
	}

	entry.Curation.ConsistencyStatus = a.deriveConsistency(entry.Curation.ConsistencyStatus)
	return entry.Curation.ConsistencyStatus == Conflict
}
