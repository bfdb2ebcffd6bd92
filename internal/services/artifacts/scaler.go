package artifacts

import (
	"encoding/json"
	"fmt"
)

// Scaler is a fitted single-feature min-max scaler with the same arithmetic as
// sklearn's MinMaxScaler.
type Scaler struct {
	DataMin      float64    `json:"data_min"`
	DataMax      float64    `json:"data_max"`
	FeatureRange [2]float64 `json:"feature_range"`
}

// NewMinMaxScaler builds a scaler fitted on [dataMin, dataMax] mapping to [0, 1].
func NewMinMaxScaler(dataMin, dataMax float64) Scaler {
	return Scaler{DataMin: dataMin, DataMax: dataMax, FeatureRange: [2]float64{0, 1}}
}

// UnmarshalJSON accepts both the plain export ({"data_min": 0, "data_max": 1000})
// and sklearn attribute names ({"data_min_": [0], "data_max_": [1000]}).
func (s *Scaler) UnmarshalJSON(b []byte) error {
	var raw struct {
		DataMin      *float64  `json:"data_min"`
		DataMax      *float64  `json:"data_max"`
		SkDataMin    []float64 `json:"data_min_"`
		SkDataMax    []float64 `json:"data_max_"`
		FeatureRange []float64 `json:"feature_range"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	switch {
	case raw.DataMin != nil && raw.DataMax != nil:
		s.DataMin, s.DataMax = *raw.DataMin, *raw.DataMax
	case len(raw.SkDataMin) == 1 && len(raw.SkDataMax) == 1:
		s.DataMin, s.DataMax = raw.SkDataMin[0], raw.SkDataMax[0]
	default:
		return fmt.Errorf("scaler: data_min/data_max missing or not single-feature")
	}

	switch len(raw.FeatureRange) {
	case 0:
		s.FeatureRange = [2]float64{0, 1}
	case 2:
		s.FeatureRange = [2]float64{raw.FeatureRange[0], raw.FeatureRange[1]}
	default:
		return fmt.Errorf("scaler: feature_range must have two values, got %d", len(raw.FeatureRange))
	}
	return nil
}

// Validate rejects degenerate fits that cannot be inverted.
func (s Scaler) Validate() error {
	if !(s.DataMax > s.DataMin) {
		return fmt.Errorf("scaler: data_max (%v) must be greater than data_min (%v)", s.DataMax, s.DataMin)
	}
	if !(s.FeatureRange[1] > s.FeatureRange[0]) {
		return fmt.Errorf("scaler: invalid feature_range %v", s.FeatureRange)
	}
	return nil
}

func (s Scaler) scale() float64 {
	return (s.FeatureRange[1] - s.FeatureRange[0]) / (s.DataMax - s.DataMin)
}

// Transform maps a raw count into the model's normalized scale.
func (s Scaler) Transform(v float64) float64 {
	return (v-s.DataMin)*s.scale() + s.FeatureRange[0]
}

// Inverse maps a normalized model output back to a raw count.
func (s Scaler) Inverse(v float64) float64 {
	return (v-s.FeatureRange[0])/s.scale() + s.DataMin
}
