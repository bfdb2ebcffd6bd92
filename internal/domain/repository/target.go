package repository

import (
	"fmt"

	"FerryCast/internal/domain/models"
)

// Target is one of the independently modeled quantities.
type Target string

const (
	TargetPasajeros Target = "pasajeros"
	TargetVehiculos Target = "vehiculos"
)

// ModeCombined fans out to every target and merges the results.
const ModeCombined = "combined"

// Targets returns the supported targets in a stable order.
func Targets() []Target { return []Target{TargetPasajeros, TargetVehiculos} }

// IsValidTarget returns true if t is a supported target.
func IsValidTarget(t Target) bool {
	switch t {
	case TargetPasajeros, TargetVehiculos:
		return true
	default:
		return false
	}
}

// ParseTarget validates a raw model name.
func ParseTarget(s string) (Target, error) {
	t := Target(s)
	if !IsValidTarget(t) {
		return "", fmt.Errorf("%w: %q", models.ErrUnsupportedTarget, s)
	}
	return t, nil
}
