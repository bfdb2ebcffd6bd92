package artifacts

import (
	"fmt"

	"FerryCast/internal/domain/repository"
)

// Schema is the column contract, scaler and lookback a target's model was trained with.
// It is immutable once built; the column index is computed once here instead of per request.
type Schema struct {
	Target   repository.Target
	Scaler   Scaler
	columns  []string
	index    map[string]int
	lookback int
}

// NewSchema validates the trained column list and precomputes its index.
func NewSchema(target repository.Target, columns []string, scaler Scaler, lookback int) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%s: empty feature column list", target)
	}
	if lookback < 1 {
		return nil, fmt.Errorf("%s: lookback must be positive, got %d", target, lookback)
	}
	if err := scaler.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", target, err)
	}

	cols := make([]string, len(columns))
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if c == "" {
			return nil, fmt.Errorf("%s: empty column name at position %d", target, i)
		}
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("%s: duplicate column %q", target, c)
		}
		cols[i] = c
		index[c] = i
	}

	return &Schema{
		Target:   target,
		Scaler:   scaler,
		columns:  cols,
		index:    index,
		lookback: lookback,
	}, nil
}

// Columns returns the ordered trained columns. Callers must not modify the slice.
func (s *Schema) Columns() []string { return s.columns }

// Index returns column name -> position. Callers must not modify the map.
func (s *Schema) Index() map[string]int { return s.index }

// Lookback returns the sequence length the model expects.
func (s *Schema) Lookback() int { return s.lookback }
