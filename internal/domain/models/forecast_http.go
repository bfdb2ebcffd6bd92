package models

import (
	"encoding/json"
	"fmt"

	xutil "FerryCast/pkg/util"
)

// ForecastRequest is the body accepted by every /predict route.
type ForecastRequest struct {
	StartDate       string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         string `json:"end_date" validate:"required,datetime=2006-01-02"`
	IncludeFeatures bool   `json:"include_features" default:"false"`
}

// Range parses the request dates and enforces start <= end.
func (r ForecastRequest) Range() (DateRange, error) {
	start, err := xutil.ParseDate(r.StartDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	end, err := xutil.ParseDate(r.EndDate)
	if err != nil {
		return DateRange{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: start_date %s is after end_date %s", ErrInvalidRange, r.StartDate, r.EndDate)
	}
	return DateRange{Start: start, End: end}, nil
}

// PredictionRow renders as {"date": "...", "<target>": value}.
type PredictionRow struct {
	Date   string
	Target string
	Value  int
}

func (p PredictionRow) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"date":   p.Date,
		p.Target: p.Value,
	})
}

// CombinedRow is one merged date of the combined response.
type CombinedRow struct {
	Date      string `json:"date"`
	Pasajeros int    `json:"pasajeros"`
	Vehiculos int    `json:"vehiculos"`
}

// ModelInfoDTO is the wire form of ModelInfo.
type ModelInfoDTO struct {
	ModelType string `json:"model_type"`
	Target    string `json:"target"`
	Lookback  int    `json:"lookback"`
}

// ForecastResponse is returned by the single-target routes.
type ForecastResponse struct {
	Predictions []PredictionRow `json:"predictions"`
	ModelInfo   ModelInfoDTO    `json:"model_info"`
	Features    FeatureRows     `json:"features,omitempty"`
}

// CombinedResponse is returned by /predict/combined.
type CombinedResponse struct {
	Predictions []CombinedRow           `json:"predictions"`
	ModelInfo   map[string]ModelInfoDTO `json:"model_info"`
	Features    map[string]FeatureRows  `json:"features,omitempty"`
}

// HealthResponse separates "process up" from "ready to predict".
type HealthResponse struct {
	Status           string `json:"status"`
	ArtifactsLoaded  bool   `json:"artifacts_loaded"`
	ArtifactsVersion string `json:"artifacts_version,omitempty"`
	Lookback         int    `json:"lookback,omitempty"`
}

func toModelInfoDTO(mi ModelInfo) ModelInfoDTO {
	return ModelInfoDTO{ModelType: mi.ModelType, Target: mi.Target, Lookback: mi.Lookback}
}

// NewForecastResponse converts a domain result into its wire form.
func NewForecastResponse(res *ForecastResult) ForecastResponse {
	rows := make([]PredictionRow, 0, len(res.Predictions))
	for _, p := range res.Predictions {
		rows = append(rows, PredictionRow{Date: xutil.FormatDate(p.Date), Target: res.Target, Value: p.Value})
	}
	return ForecastResponse{
		Predictions: rows,
		ModelInfo:   toModelInfoDTO(res.ModelInfo),
		Features:    res.Features,
	}
}

// NewCombinedResponse converts a merged result into its wire form.
func NewCombinedResponse(res *CombinedResult) CombinedResponse {
	rows := make([]CombinedRow, 0, len(res.Predictions))
	for _, p := range res.Predictions {
		rows = append(rows, CombinedRow{Date: xutil.FormatDate(p.Date), Pasajeros: p.Pasajeros, Vehiculos: p.Vehiculos})
	}
	info := make(map[string]ModelInfoDTO, len(res.ModelInfo))
	for k, v := range res.ModelInfo {
		info[k] = toModelInfoDTO(v)
	}
	return CombinedResponse{
		Predictions: rows,
		ModelInfo:   info,
		Features:    res.Features,
	}
}
