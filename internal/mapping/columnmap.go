package mapping

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// ColumnMap is an explicit source→destination column mapping that preserves
// the order entries were given in.
type ColumnMap struct {
	pairs []Pair
	index map[string]int
}

// Pair is one source→destination column mapping entry.
type Pair struct {
	Source string
	Dest   string
}

// NewColumnMap returns an empty ColumnMap.
func NewColumnMap() *ColumnMap {
	return &ColumnMap{index: make(map[string]int)}
}

// Set adds or replaces an entry. Order is defined by first insertion.
func (m *ColumnMap) Set(src, dst string) {
	if i, ok := m.index[src]; ok {
		m.pairs[i].Dest = dst
		return
	}
	m.index[src] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{Source: src, Dest: dst})
}

// Pairs returns the entries in insertion order.
func (m *ColumnMap) Pairs() []Pair {
	return m.pairs
}

// Len returns the number of entries.
func (m *ColumnMap) Len() int {
	return len(m.pairs)
}

// LoadColumnMap parses a --column-map value: either inline JSON or a path
// to a JSON file holding an object of source→destination column names.
// Key order in the JSON document is preserved.
func LoadColumnMap(value string) (*ColumnMap, error) {
	if value == "" {
		return NewColumnMap(), nil
	}

	data := []byte(value)
	if _, err := os.Stat(value); err == nil {
		data, err = os.ReadFile(value)
		if err != nil {
			return nil, fmt.Errorf("reading column map file %s: %w", value, err)
		}
	}

	return parseOrderedObject(data)
}

// parseOrderedObject decodes a flat JSON object of string values, keeping
// key order (encoding/json's map decoding would lose it).
func parseOrderedObject(data []byte) (*ColumnMap, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parsing column map as JSON: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("column map must be a JSON object, got %v", tok)
	}

	m := NewColumnMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing column map key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("column map key must be a string, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parsing column map value for %q: %w", key, err)
		}
		val, ok := valTok.(string)
		if !ok {
			return nil, fmt.Errorf("column map value for %q must be a string, got %v", key, valTok)
		}

		m.Set(key, val)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parsing column map: %w", err)
	}

	return m, nil
}
