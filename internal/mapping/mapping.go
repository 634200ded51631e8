// Package mapping computes the source→destination column mapping used by
// the record migration. Explicit entries take priority over automatic
// same-name mapping, exclusions are honored, and the identity column is
// never dropped when both sides have it.
package mapping

// Mapping is a resolved, ordered source→destination column mapping.
type Mapping struct {
	pairs  []Pair
	byName map[string]string
}

// Result bundles a resolved mapping with any non-fatal warnings produced
// while building it.
type Result struct {
	Mapping  *Mapping
	Warnings []string
}

// Build computes the mapping:
//  1. explicit entries, in their given order, skipping excluded sources and
//     dropping entries whose destination column does not exist;
//  2. same-name mapping for remaining source columns present in the
//     destination;
//  3. the identity column is force-added when present in both schemas but
//     absent from the result.
//
// The result is deterministic for identical inputs.
func Build(srcCols, dstCols []string, explicit *ColumnMap, exclude map[string]bool, idColumn string) Result {
	dstSet := make(map[string]bool, len(dstCols))
	for _, c := range dstCols {
		dstSet[c] = true
	}
	srcSet := make(map[string]bool, len(srcCols))
	for _, c := range srcCols {
		srcSet[c] = true
	}

	m := &Mapping{byName: make(map[string]string)}
	var warnings []string

	if explicit != nil {
		for _, p := range explicit.Pairs() {
			if exclude[p.Source] {
				continue
			}
			if !dstSet[p.Dest] {
				warnings = append(warnings, "explicit mapping "+p.Source+" -> "+p.Dest+" dropped: destination column does not exist")
				continue
			}
			m.add(p.Source, p.Dest)
		}
	}

	for _, src := range srcCols {
		if _, mapped := m.byName[src]; mapped {
			continue
		}
		if exclude[src] {
			continue
		}
		if dstSet[src] {
			m.add(src, src)
		}
	}

	// The identity column carries cross-system linkage and must survive
	// even when listed in the exclusions.
	if idColumn != "" {
		if _, mapped := m.byName[idColumn]; !mapped && srcSet[idColumn] && dstSet[idColumn] {
			m.add(idColumn, idColumn)
		}
	}

	return Result{Mapping: m, Warnings: warnings}
}

func (m *Mapping) add(src, dst string) {
	m.byName[src] = dst
	m.pairs = append(m.pairs, Pair{Source: src, Dest: dst})
}

// Len returns the number of mapped columns.
func (m *Mapping) Len() int {
	return len(m.pairs)
}

// Pairs returns the mapping entries in resolution order.
func (m *Mapping) Pairs() []Pair {
	return m.pairs
}

// Dest returns the destination column for a source column.
func (m *Mapping) Dest(src string) (string, bool) {
	d, ok := m.byName[src]
	return d, ok
}

// SourceColumns returns the mapped source columns in resolution order.
func (m *Mapping) SourceColumns() []string {
	cols := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		cols[i] = p.Source
	}
	return cols
}

// DestColumns returns the mapped destination columns in resolution order.
func (m *Mapping) DestColumns() []string {
	cols := make([]string, len(m.pairs))
	for i, p := range m.pairs {
		cols[i] = p.Dest
	}
	return cols
}
