package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
)

// ErrInvalidWeights is returned when a calibration contains a negative or non-finite weight.
var ErrInvalidWeights = errors.New("invalid ranking weights")

// Weights holds the per-component ranking weights.
type Weights struct {
	SkillOverlap float64 `json:"skill_overlap"` // default: 0.35
	LookingFor   float64 `json:"looking_for"`   // default: 0.35
	Idea         float64 `json:"idea"`          // default: 0.2
	Reachability float64 `json:"reachability"`  // default: 0.1
}

// WeightOverrides is a partial set of weights. A nil field keeps the base
// value; an explicit 0 switches the component off.
type WeightOverrides struct {
	SkillOverlap *float64 `json:"skill_overlap,omitempty"`
	LookingFor   *float64 `json:"looking_for,omitempty"`
	Idea         *float64 `json:"idea,omitempty"`
	Reachability *float64 `json:"reachability,omitempty"`
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string          `json:"version"`
	Weights WeightOverrides `json:"weights"`
}

// DefaultWeights returns the default weights. They sum to 1, so scores fall in [0, 1].
// Skills and complementary roles carry most of the weight. Reachability only
// separates near-ties.
func DefaultWeights() *Weights {
	return &Weights{
		SkillOverlap: 0.35,
		LookingFor:   0.35,
		Idea:         0.2,
		Reachability: 0.1,
	}
}

// Validate reports whether every weight is finite and non-negative.
func (w *Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"skill_overlap", w.SkillOverlap},
		{"looking_for", w.LookingFor},
		{"idea", w.Idea},
		{"reachability", w.Reachability},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeights, f.name, f.value)
		}
	}
	return nil
}

// LoadCalibration loads ranking weights from a JSON calibration file.
// An empty path yields defaults. On any read, parse, or validation error
// the defaults are returned together with the error.
// Partial configurations are merged over the defaults.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	if err := merged.Validate(); err != nil {
		slog.Warn("rejected calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration returns base with every set weight of override applied.
// A nil base merges over the defaults.
func MergeCalibration(base *Weights, override *WeightOverrides) *Weights {
	if base == nil {
		base = DefaultWeights()
	}

	result := *base
	if override == nil {
		return &result
	}

	if override.SkillOverlap != nil {
		result.SkillOverlap = *override.SkillOverlap
	}
	if override.LookingFor != nil {
		result.LookingFor = *override.LookingFor
	}
	if override.Idea != nil {
		result.Idea = *override.Idea
	}
	if override.Reachability != nil {
		result.Reachability = *override.Reachability
	}

	return &result
}

func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	check := func(name string, def, got float64) {
		if def != got {
			overrides = append(overrides, fmt.Sprintf("%s: %.2f -> %.2f", name, def, got))
		}
	}
	check("skill_overlap", defaults.SkillOverlap, loaded.SkillOverlap)
	check("looking_for", defaults.LookingFor, loaded.LookingFor)
	check("idea", defaults.Idea, loaded.Idea)
	check("reachability", defaults.Reachability, loaded.Reachability)

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
