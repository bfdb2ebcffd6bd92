package features

import (
	"fmt"
	"time"

	"FerryCast/internal/domain/models"
	xutil "FerryCast/pkg/util"
)

// Layout is the trained column contract alignment projects onto.
type Layout interface {
	Columns() []string
	Index() map[string]int
	Lookback() int
}

// Matrix is the aligned model input: one row per date, columns in schema order.
type Matrix struct {
	Dates   []time.Time
	Columns []string
	Values  [][]float64
}

// Align keeps the trailing lookback vectors and projects each onto the layout:
// schema columns the generator did not produce are 0, unknown fields are dropped.
func Align(dates []time.Time, vectors []Vector, layout Layout) (Matrix, error) {
	if len(dates) != len(vectors) {
		return Matrix{}, fmt.Errorf("%w: %d dates for %d feature vectors",
			models.ErrSchemaMismatch, len(dates), len(vectors))
	}
	lookback := layout.Lookback()
	if lookback < 1 || len(vectors) < lookback {
		return Matrix{}, fmt.Errorf("%w: %d feature vectors for lookback %d",
			models.ErrSchemaMismatch, len(vectors), lookback)
	}

	columns := layout.Columns()
	index := layout.Index()
	offset := len(vectors) - lookback

	m := Matrix{
		Dates:   dates[offset:],
		Columns: columns,
		Values:  make([][]float64, lookback),
	}
	for i, vec := range vectors[offset:] {
		row := make([]float64, len(columns))
		for name, val := range vec {
			if pos, ok := index[name]; ok {
				row[pos] = val
			}
		}
		m.Values[i] = row
	}
	return m, nil
}

// Anchor is the date the model's prediction refers to.
func (m Matrix) Anchor() time.Time {
	return m.Dates[len(m.Dates)-1]
}

// Tensor returns the backend input of shape (1, lookback, columns).
func (m Matrix) Tensor() [][][]float64 {
	return [][][]float64{m.Values}
}

// Rows returns the matrix keyed by date and column name.
func (m Matrix) Rows() map[string]map[string]float64 {
	rows := make(map[string]map[string]float64, len(m.Dates))
	for i, d := range m.Dates {
		row := make(map[string]float64, len(m.Columns))
		for j, c := range m.Columns {
			row[c] = m.Values[i][j]
		}
		rows[xutil.FormatDate(d)] = row
	}
	return rows
}
