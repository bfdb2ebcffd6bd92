package models

import "errors"

// Failure kinds of the serving pipeline. Callers wrap them with %w and the HTTP
// edge classifies them with errors.Is.
var (
	// ErrInvalidRange means start_date > end_date or a malformed date. Caller error.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrUnsupportedTarget means the model name is not pasajeros or vehiculos.
	ErrUnsupportedTarget = errors.New("model not supported")
	// ErrArtifactsNotLoaded means scalers and feature columns are not available yet.
	ErrArtifactsNotLoaded = errors.New("model artifacts not loaded")
	// ErrSchemaMismatch is an internal invariant violation: the feature window is
	// shorter than the model lookback or does not line up with its dates.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	// ErrBackend means the inference backend failed or returned a malformed payload.
	ErrBackend = errors.New("inference backend error")
)
