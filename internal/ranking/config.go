package ranking

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// Selection calibration defaults.
const (
	DefaultHighScoreThreshold  = 10
	DefaultHighBandProbability = 0.7
)

// ErrInvalidCalibration is returned when a calibration would starve a band.
var ErrInvalidCalibration = errors.New("invalid selection calibration")

// Calibration tunes the weighted draw.
type Calibration struct {
	// HighScoreThreshold is the score a candidate must exceed to join the high band.
	HighScoreThreshold int `json:"high_score_threshold"`
	// HighBandProbability is the chance of drawing from the high band when both bands are populated.
	HighBandProbability float64 `json:"high_band_probability"`
}

// CalibrationOverride is the JSON shape of a calibration file. Nil fields keep
// the base value, so a file may set zero explicitly.
type CalibrationOverride struct {
	HighScoreThreshold  *int     `json:"high_score_threshold,omitempty"`
	HighBandProbability *float64 `json:"high_band_probability,omitempty"`
}

// CalibrationFile is the top-level structure of the calibration JSON.
type CalibrationFile struct {
	Version   string              `json:"version"`
	Selection CalibrationOverride `json:"selection"`
}

// DefaultCalibration returns the 70/30 skew toward recommendations scoring above 10.
func DefaultCalibration() Calibration {
	return Calibration{
		HighScoreThreshold:  DefaultHighScoreThreshold,
		HighBandProbability: DefaultHighBandProbability,
	}
}

// Validate rejects probabilities that would leave one band unreachable.
func (c Calibration) Validate() error {
	if c.HighBandProbability <= 0 || c.HighBandProbability >= 1 {
		return fmt.Errorf("%w: high_band_probability must be in (0, 1), got %v", ErrInvalidCalibration, c.HighBandProbability)
	}
	return nil
}

// LoadCalibration loads selection calibration from a JSON file.
// An empty path yields the defaults. On any read, parse, or validation error
// the defaults are returned together with the error so callers can degrade.
func LoadCalibration(filePath string) (Calibration, error) {
	if filePath == "" {
		return DefaultCalibration(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read selection calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultCalibration(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var file CalibrationFile
	if err := json.Unmarshal(data, &file); err != nil {
		slog.Warn("failed to parse selection calibration, using defaults",
			"path", filePath,
			"error", err)
		return DefaultCalibration(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultCalibration()
	merged := MergeCalibration(defaults, file.Selection)
	if err := merged.Validate(); err != nil {
		slog.Warn("rejected selection calibration, using defaults",
			"path", filePath,
			"error", err)
		return defaults, err
	}
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration applies the non-nil override fields on top of base.
func MergeCalibration(base Calibration, override CalibrationOverride) Calibration {
	result := base
	if override.HighScoreThreshold != nil {
		result.HighScoreThreshold = *override.HighScoreThreshold
	}
	if override.HighBandProbability != nil {
		result.HighBandProbability = *override.HighBandProbability
	}
	return result
}

func logCalibrationOverrides(defaults, loaded Calibration) {
	var overrides []string

	if loaded.HighScoreThreshold != defaults.HighScoreThreshold {
		overrides = append(overrides, fmt.Sprintf("selection.high_score_threshold: %d -> %d",
			defaults.HighScoreThreshold, loaded.HighScoreThreshold))
	}
	if loaded.HighBandProbability != defaults.HighBandProbability {
		overrides = append(overrides, fmt.Sprintf("selection.high_band_probability: %.2f -> %.2f",
			defaults.HighBandProbability, loaded.HighBandProbability))
	}

	if len(overrides) > 0 {
		slog.Info("loaded selection calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded selection calibration (using all defaults)")
	}
}
