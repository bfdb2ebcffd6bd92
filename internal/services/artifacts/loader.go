package artifacts

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"FerryCast/internal/domain/models"
	"FerryCast/internal/domain/repository"
)

// DefaultLookback is used when the training config does not carry one.
const DefaultLookback = 7

// Artifacts is everything the serving path needs from training, per target.
type Artifacts struct {
	Schemas  map[repository.Target]*Schema
	Lookback int
	Version  string
	LoadedAt time.Time
}

// Schema returns the schema of target.
func (a *Artifacts) Schema(target repository.Target) (*Schema, error) {
	s, ok := a.Schemas[target]
	if !ok {
		return nil, fmt.Errorf("%w: no schema for %q", models.ErrUnsupportedTarget, target)
	}
	return s, nil
}

type trainingConfig struct {
	Lookback       *int     `json:"lookback"`
	FeatureColumns []string `json:"feature_columns"`
}

// Load reads, for every target, scaler_<target>.json, feature_columns_<target>.json
// (falling back to feature_columns in config_<target>.json) and the shared lookback
// from config_pasajeros.json.
func Load(dir string, defaultLookback int) (*Artifacts, error) {
	if defaultLookback < 1 {
		defaultLookback = DefaultLookback
	}
	h := sha256.New()

	lookback := defaultLookback
	shared, err := readConfig(dir, repository.TargetPasajeros, h)
	if err != nil {
		return nil, err
	}
	if shared != nil && shared.Lookback != nil {
		lookback = *shared.Lookback
	}

	schemas := make(map[repository.Target]*Schema, len(repository.Targets()))
	for _, target := range repository.Targets() {
		var scaler Scaler
		if err := readJSON(filepath.Join(dir, "scaler_"+string(target)+".json"), &scaler, h); err != nil {
			return nil, fmt.Errorf("load scaler %s: %w", target, err)
		}

		var columns []string
		err := readJSON(filepath.Join(dir, "feature_columns_"+string(target)+".json"), &columns, h)
		if errors.Is(err, fs.ErrNotExist) {
			cfg := shared
			if target != repository.TargetPasajeros {
				if cfg, err = readConfig(dir, target, h); err != nil {
					return nil, err
				}
			}
			if cfg == nil || len(cfg.FeatureColumns) == 0 {
				return nil, fmt.Errorf("load feature columns %s: no feature_columns file or config entry", target)
			}
			columns = cfg.FeatureColumns
		} else if err != nil {
			return nil, fmt.Errorf("load feature columns %s: %w", target, err)
		}

		schema, err := NewSchema(target, columns, scaler, lookback)
		if err != nil {
			return nil, fmt.Errorf("build schema: %w", err)
		}
		schemas[target] = schema
	}

	return &Artifacts{
		Schemas:  schemas,
		Lookback: lookback,
		Version:  hex.EncodeToString(h.Sum(nil))[:12],
		LoadedAt: time.Now().UTC(),
	}, nil
}

// readConfig returns nil, nil when config_<target>.json does not exist.
func readConfig(dir string, target repository.Target, h interface{ Write([]byte) (int, error) }) (*trainingConfig, error) {
	var cfg trainingConfig
	err := readJSON(filepath.Join(dir, "config_"+string(target)+".json"), &cfg, h)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", target, err)
	}
	return &cfg, nil
}

func readJSON(path string, dest interface{}, h interface{ Write([]byte) (int, error) }) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	_, _ = h.Write(b)
	return nil
}
