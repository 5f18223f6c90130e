package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the capture heuristics.
// Every threshold and normalization constant of the quality gate is
// configurable here; the hard-coded fallbacks in the Get* methods are the
// values tuned for typical phone camera sensors. Fields omitted from the
// JSON file retain their defaults, so partial configs are safe.
type TuningConfig struct {
	// Cadence gate params
	CaptureInterval   *string  `json:"capture_interval,omitempty"` // duration string like "200ms"
	PollDelay         *string  `json:"poll_delay,omitempty"`       // duration string like "30ms"
	MotionGateEnabled *bool    `json:"motion_gate_enabled,omitempty"`
	MinMotionQuality  *float64 `json:"min_motion_quality,omitempty"`
	MinFrameQuality   *float64 `json:"min_frame_quality,omitempty"`
	MotionReference   *string  `json:"motion_reference,omitempty"` // "observed" or "accepted"

	// Motion scorer params. The ideal ranges are per-frame magnitudes at
	// the baseline interval and scale linearly with the capture interval.
	IdealTranslationMin *float64 `json:"ideal_translation_min_m,omitempty"`
	IdealTranslationMax *float64 `json:"ideal_translation_max_m,omitempty"`
	IdealRotationMin    *float64 `json:"ideal_rotation_min_deg,omitempty"`
	IdealRotationMax    *float64 `json:"ideal_rotation_max_deg,omitempty"`
	BaselineInterval    *string  `json:"baseline_interval,omitempty"`

	// Image scorer params
	SampleStride       *int     `json:"sample_stride,omitempty"`
	BlurDivisor        *float64 `json:"blur_divisor,omitempty"`
	BlurLowThreshold   *float64 `json:"blur_low_threshold,omitempty"`
	BlurLowFactor      *float64 `json:"blur_low_factor,omitempty"`
	BlurHighThreshold  *float64 `json:"blur_high_threshold,omitempty"`
	BlurBoostFactor    *float64 `json:"blur_boost_factor,omitempty"`
	FocusDivisor       *float64 `json:"focus_divisor,omitempty"`
	FocusLowThreshold  *float64 `json:"focus_low_threshold,omitempty"`
	FocusLowFactor     *float64 `json:"focus_low_factor,omitempty"`
	FocusHighThreshold *float64 `json:"focus_high_threshold,omitempty"`
	FocusBoostFactor   *float64 `json:"focus_boost_factor,omitempty"`
	BrightnessIdeal    *float64 `json:"brightness_ideal,omitempty"`
	ContrastTarget     *float64 `json:"contrast_target,omitempty"`
	BrightnessWeight   *float64 `json:"brightness_weight,omitempty"`
	ContrastWeight     *float64 `json:"contrast_weight,omitempty"`
	ExposureWeight     *float64 `json:"exposure_weight,omitempty"`
	ExposureHardLow    *float64 `json:"exposure_hard_low,omitempty"`
	ExposureSoftLow    *float64 `json:"exposure_soft_low,omitempty"`
	ExposureSoftHigh   *float64 `json:"exposure_soft_high,omitempty"`
	ExposureHardHigh   *float64 `json:"exposure_hard_high,omitempty"`
	ExposurePoorScore  *float64 `json:"exposure_poor_score,omitempty"`
	ExposureFairScore  *float64 `json:"exposure_fair_score,omitempty"`
	ExposureGoodScore  *float64 `json:"exposure_good_score,omitempty"`
	LightingBoost      *float64 `json:"lighting_boost,omitempty"`
	BlurWeight         *float64 `json:"blur_weight,omitempty"`
	LightingWeight     *float64 `json:"lighting_weight,omitempty"`
	FocusWeight        *float64 `json:"focus_weight,omitempty"`

	// Export params
	ExportRetries    *int    `json:"export_retries,omitempty"`
	ExportRetryDelay *string `json:"export_retry_delay,omitempty"` // duration string like "2s"
	ThumbnailWidth   *int    `json:"thumbnail_width,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the
// max file size.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.MinMotionQuality != nil {
		if *c.MinMotionQuality < 0 || *c.MinMotionQuality > 1 {
			return fmt.Errorf("min_motion_quality must be between 0 and 1, got %f", *c.MinMotionQuality)
		}
	}
	if c.MinFrameQuality != nil {
		if *c.MinFrameQuality < 0 || *c.MinFrameQuality > 100 {
			return fmt.Errorf("min_frame_quality must be between 0 and 100, got %f", *c.MinFrameQuality)
		}
	}
	if c.MotionReference != nil {
		if *c.MotionReference != "observed" && *c.MotionReference != "accepted" {
			return fmt.Errorf("motion_reference must be \"observed\" or \"accepted\", got %q", *c.MotionReference)
		}
	}
	if c.SampleStride != nil {
		if *c.SampleStride < 1 {
			return fmt.Errorf("sample_stride must be at least 1, got %d", *c.SampleStride)
		}
	}
	if c.IdealTranslationMin != nil && c.IdealTranslationMax != nil {
		if *c.IdealTranslationMin <= 0 || *c.IdealTranslationMax <= *c.IdealTranslationMin {
			return fmt.Errorf("ideal translation range [%f, %f] must be positive and increasing",
				*c.IdealTranslationMin, *c.IdealTranslationMax)
		}
	}
	if c.IdealRotationMin != nil && c.IdealRotationMax != nil {
		if *c.IdealRotationMin <= 0 || *c.IdealRotationMax <= *c.IdealRotationMin {
			return fmt.Errorf("ideal rotation range [%f, %f] must be positive and increasing",
				*c.IdealRotationMin, *c.IdealRotationMax)
		}
	}
	if c.ExportRetries != nil {
		if *c.ExportRetries < 1 {
			return fmt.Errorf("export_retries must be at least 1, got %d", *c.ExportRetries)
		}
	}
	// Partial overrides can reorder the tiers, so check the effective
	// boundaries rather than only the fields that were set.
	hl, sl := c.GetExposureHardLow(), c.GetExposureSoftLow()
	sh, hh := c.GetExposureSoftHigh(), c.GetExposureHardHigh()
	if !(hl < sl && sl < sh && sh < hh) {
		return fmt.Errorf("exposure tier boundaries [%f, %f, %f, %f] must be strictly increasing",
			hl, sl, sh, hh)
	}

	// Validate duration strings can be parsed if set
	for name, v := range map[string]*string{
		"capture_interval":   c.CaptureInterval,
		"poll_delay":         c.PollDelay,
		"baseline_interval":  c.BaselineInterval,
		"export_retry_delay": c.ExportRetryDelay,
	} {
		if v != nil && *v != "" {
			if _, err := time.ParseDuration(*v); err != nil {
				return fmt.Errorf("invalid %s '%s': %w", name, *v, err)
			}
		}
	}

	return nil
}

// GetCaptureInterval parses and returns the CaptureInterval as a time.Duration.
// Observed client variants used 150ms and 200ms; 200ms is the default.
func (c *TuningConfig) GetCaptureInterval() time.Duration {
	return c.duration(c.CaptureInterval, 200*time.Millisecond)
}

// GetPollDelay returns the fixed delay between capture loop polling attempts.
func (c *TuningConfig) GetPollDelay() time.Duration {
	return c.duration(c.PollDelay, 30*time.Millisecond)
}

// GetBaselineInterval returns the cadence the ideal motion ranges were tuned at.
func (c *TuningConfig) GetBaselineInterval() time.Duration {
	return c.duration(c.BaselineInterval, 180*time.Millisecond)
}

// GetExportRetryDelay returns the fixed delay between export attempts.
func (c *TuningConfig) GetExportRetryDelay() time.Duration {
	return c.duration(c.ExportRetryDelay, 2*time.Second)
}

func (c *TuningConfig) duration(v *string, def time.Duration) time.Duration {
	if v == nil || *v == "" {
		return def
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return def // default on parse error
	}
	return d
}

// GetMotionGateEnabled returns whether motion quality gates the capture
// attempt at all. One observed client variant gated on motion, the other
// relied on image quality alone.
func (c *TuningConfig) GetMotionGateEnabled() bool {
	if c.MotionGateEnabled == nil {
		return true
	}
	return *c.MotionGateEnabled
}

// GetMinMotionQuality returns the minimum motion quality to attempt a capture.
func (c *TuningConfig) GetMinMotionQuality() float64 {
	if c.MinMotionQuality == nil {
		return 0.3
	}
	return *c.MinMotionQuality
}

// GetMinFrameQuality returns the image quality acceptance threshold (0-100).
func (c *TuningConfig) GetMinFrameQuality() float64 {
	if c.MinFrameQuality == nil {
		return 65.0
	}
	return *c.MinFrameQuality
}

// GetMotionReference returns the delta estimator reference policy.
func (c *TuningConfig) GetMotionReference() string {
	if c.MotionReference == nil {
		return "observed"
	}
	return *c.MotionReference
}

// GetIdealTranslationMin returns the lower bound of the per-frame translation
// sweet spot in meters.
func (c *TuningConfig) GetIdealTranslationMin() float64 {
	if c.IdealTranslationMin == nil {
		return 0.002
	}
	return *c.IdealTranslationMin
}

// GetIdealTranslationMax returns the upper bound of the per-frame translation
// sweet spot in meters.
func (c *TuningConfig) GetIdealTranslationMax() float64 {
	if c.IdealTranslationMax == nil {
		return 0.02
	}
	return *c.IdealTranslationMax
}

// GetIdealRotationMin returns the lower bound of the per-frame rotation sweet
// spot in degrees.
func (c *TuningConfig) GetIdealRotationMin() float64 {
	if c.IdealRotationMin == nil {
		return 0.1
	}
	return *c.IdealRotationMin
}

// GetIdealRotationMax returns the upper bound of the per-frame rotation sweet
// spot in degrees.
func (c *TuningConfig) GetIdealRotationMax() float64 {
	if c.IdealRotationMax == nil {
		return 1.0
	}
	return *c.IdealRotationMax
}

// GetSampleStride returns the pixel sampling stride for the image scorer.
func (c *TuningConfig) GetSampleStride() int {
	if c.SampleStride == nil {
		return 2
	}
	return *c.SampleStride
}

// GetBlurDivisor returns the empirical normalizer for the Laplacian variance.
func (c *TuningConfig) GetBlurDivisor() float64 {
	if c.BlurDivisor == nil {
		return 1500.0
	}
	return *c.BlurDivisor
}

// GetBlurLowThreshold returns the raw blur score below which the low-score
// penalty applies.
func (c *TuningConfig) GetBlurLowThreshold() float64 {
	if c.BlurLowThreshold == nil {
		return 25.0
	}
	return *c.BlurLowThreshold
}

// GetBlurLowFactor returns the penalty multiplier for very low blur scores.
func (c *TuningConfig) GetBlurLowFactor() float64 {
	if c.BlurLowFactor == nil {
		return 0.7
	}
	return *c.BlurLowFactor
}

// GetBlurHighThreshold returns the raw blur score above which no boost applies.
func (c *TuningConfig) GetBlurHighThreshold() float64 {
	if c.BlurHighThreshold == nil {
		return 70.0
	}
	return *c.BlurHighThreshold
}

// GetBlurBoostFactor returns the boost multiplier for mid-range blur scores.
func (c *TuningConfig) GetBlurBoostFactor() float64 {
	if c.BlurBoostFactor == nil {
		return 1.4
	}
	return *c.BlurBoostFactor
}

// GetFocusDivisor returns the empirical normalizer for the gradient magnitude.
func (c *TuningConfig) GetFocusDivisor() float64 {
	if c.FocusDivisor == nil {
		return 80.0
	}
	return *c.FocusDivisor
}

// GetFocusLowThreshold returns the raw focus score below which the low-score
// penalty applies.
func (c *TuningConfig) GetFocusLowThreshold() float64 {
	if c.FocusLowThreshold == nil {
		return 20.0
	}
	return *c.FocusLowThreshold
}

// GetFocusLowFactor returns the penalty multiplier for very low focus scores.
func (c *TuningConfig) GetFocusLowFactor() float64 {
	if c.FocusLowFactor == nil {
		return 0.75
	}
	return *c.FocusLowFactor
}

// GetFocusHighThreshold returns the raw focus score above which no boost applies.
func (c *TuningConfig) GetFocusHighThreshold() float64 {
	if c.FocusHighThreshold == nil {
		return 65.0
	}
	return *c.FocusHighThreshold
}

// GetFocusBoostFactor returns the boost multiplier for mid-range focus scores.
func (c *TuningConfig) GetFocusBoostFactor() float64 {
	if c.FocusBoostFactor == nil {
		return 1.3
	}
	return *c.FocusBoostFactor
}

// GetBrightnessIdeal returns the ideal mean luma midpoint.
func (c *TuningConfig) GetBrightnessIdeal() float64 {
	if c.BrightnessIdeal == nil {
		return 128.0
	}
	return *c.BrightnessIdeal
}

// GetContrastTarget returns the luma standard deviation that earns a full
// contrast score.
func (c *TuningConfig) GetContrastTarget() float64 {
	if c.ContrastTarget == nil {
		return 50.0
	}
	return *c.ContrastTarget
}

// GetBrightnessWeight returns the brightness weight within the lighting score.
func (c *TuningConfig) GetBrightnessWeight() float64 {
	if c.BrightnessWeight == nil {
		return 0.3
	}
	return *c.BrightnessWeight
}

// GetContrastWeight returns the contrast weight within the lighting score.
func (c *TuningConfig) GetContrastWeight() float64 {
	if c.ContrastWeight == nil {
		return 0.4
	}
	return *c.ContrastWeight
}

// GetExposureWeight returns the exposure weight within the lighting score.
func (c *TuningConfig) GetExposureWeight() float64 {
	if c.ExposureWeight == nil {
		return 0.3
	}
	return *c.ExposureWeight
}

// GetExposureHardLow returns the mean luma below which exposure scores
// the poor tier.
func (c *TuningConfig) GetExposureHardLow() float64 {
	if c.ExposureHardLow == nil {
		return 40.0
	}
	return *c.ExposureHardLow
}

// GetExposureSoftLow returns the mean luma below which exposure scores
// the fair tier.
func (c *TuningConfig) GetExposureSoftLow() float64 {
	if c.ExposureSoftLow == nil {
		return 80.0
	}
	return *c.ExposureSoftLow
}

// GetExposureSoftHigh returns the mean luma above which exposure scores
// the fair tier.
func (c *TuningConfig) GetExposureSoftHigh() float64 {
	if c.ExposureSoftHigh == nil {
		return 180.0
	}
	return *c.ExposureSoftHigh
}

// GetExposureHardHigh returns the mean luma above which exposure scores
// the poor tier.
func (c *TuningConfig) GetExposureHardHigh() float64 {
	if c.ExposureHardHigh == nil {
		return 220.0
	}
	return *c.ExposureHardHigh
}

// GetExposurePoorScore returns the exposure score for severely dark or
// bright frames.
func (c *TuningConfig) GetExposurePoorScore() float64 {
	if c.ExposurePoorScore == nil {
		return 30.0
	}
	return *c.ExposurePoorScore
}

// GetExposureFairScore returns the exposure score for moderately dark or
// bright frames.
func (c *TuningConfig) GetExposureFairScore() float64 {
	if c.ExposureFairScore == nil {
		return 70.0
	}
	return *c.ExposureFairScore
}

// GetExposureGoodScore returns the exposure score for well-exposed frames.
func (c *TuningConfig) GetExposureGoodScore() float64 {
	if c.ExposureGoodScore == nil {
		return 100.0
	}
	return *c.ExposureGoodScore
}

// GetLightingBoost returns the flat boost added to the lighting score.
func (c *TuningConfig) GetLightingBoost() float64 {
	if c.LightingBoost == nil {
		return 5.0
	}
	return *c.LightingBoost
}

// GetBlurWeight returns the blur weight within the overall score.
func (c *TuningConfig) GetBlurWeight() float64 {
	if c.BlurWeight == nil {
		return 0.4
	}
	return *c.BlurWeight
}

// GetLightingWeight returns the lighting weight within the overall score.
func (c *TuningConfig) GetLightingWeight() float64 {
	if c.LightingWeight == nil {
		return 0.3
	}
	return *c.LightingWeight
}

// GetFocusWeight returns the focus weight within the overall score.
func (c *TuningConfig) GetFocusWeight() float64 {
	if c.FocusWeight == nil {
		return 0.3
	}
	return *c.FocusWeight
}

// GetExportRetries returns the number of attempts for a whole-session export.
func (c *TuningConfig) GetExportRetries() int {
	if c.ExportRetries == nil {
		return 3
	}
	return *c.ExportRetries
}

// GetThumbnailWidth returns the width in pixels of exported thumbnails.
func (c *TuningConfig) GetThumbnailWidth() int {
	if c.ThumbnailWidth == nil {
		return 320
	}
	return *c.ThumbnailWidth
}
