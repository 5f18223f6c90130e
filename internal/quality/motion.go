// Package quality scores candidate frames: inter-frame motion against an
// ideal per-frame range, and image sharpness/lighting/focus from sampled
// pixels. All thresholds and normalization constants come from the tuning
// config.
package quality

import (
	"math"
	"time"

	"github.com/openarmap/capture/internal/config"
	"github.com/openarmap/capture/internal/pose"
)

// MotionConfig holds the ideal per-frame motion ranges, already scaled to
// the active capture cadence.
type MotionConfig struct {
	// Translation sweet spot in meters per frame.
	IdealTranslationMin float64
	IdealTranslationMax float64

	// Rotation sweet spot in degrees per frame.
	IdealRotationMin float64
	IdealRotationMax float64
}

// MotionConfigFromTuning derives a MotionConfig from the tuning file. The
// configured ideal ranges were tuned at the baseline cadence and scale
// linearly with the capture interval, so a slower cadence tolerates
// proportionally more motion per frame.
func MotionConfigFromTuning(cfg *config.TuningConfig) MotionConfig {
	scale := 1.0
	if base := cfg.GetBaselineInterval(); base > 0 {
		scale = float64(cfg.GetCaptureInterval()) / float64(base)
	}
	return MotionConfig{
		IdealTranslationMin: cfg.GetIdealTranslationMin() * scale,
		IdealTranslationMax: cfg.GetIdealTranslationMax() * scale,
		IdealRotationMin:    cfg.GetIdealRotationMin() * scale,
		IdealRotationMax:    cfg.GetIdealRotationMax() * scale,
	}
}

// ScaledTo returns the config with both ideal ranges rescaled by the ratio
// of dt to the given baseline.
func (c MotionConfig) ScaledTo(dt, baseline time.Duration) MotionConfig {
	if baseline <= 0 || dt <= 0 {
		return c
	}
	s := float64(dt) / float64(baseline)
	return MotionConfig{
		IdealTranslationMin: c.IdealTranslationMin * s,
		IdealTranslationMax: c.IdealTranslationMax * s,
		IdealRotationMin:    c.IdealRotationMin * s,
		IdealRotationMax:    c.IdealRotationMax * s,
	}
}

// Score maps a motion sample to a [0,1] quality value: the arithmetic mean
// of the translation and rotation range scores. The first frame of a
// session carries no usable motion information and scores a neutral 1.
func (c MotionConfig) Score(s pose.MotionSample) float64 {
	if s.First {
		return 1.0
	}

	tMag := math.Sqrt(s.TranslationDelta[0]*s.TranslationDelta[0] +
		s.TranslationDelta[1]*s.TranslationDelta[1] +
		s.TranslationDelta[2]*s.TranslationDelta[2])
	rMag := pose.AngleDegrees(s.RotationDelta)

	score := (idealRangeScore(tMag, c.IdealTranslationMin, c.IdealTranslationMax) +
		idealRangeScore(rMag, c.IdealRotationMin, c.IdealRotationMax)) / 2

	return clamp(score, 0, 1)
}

// idealRangeScore rates a magnitude against an ideal [lo, hi] range: 1.0
// inside the range, scaled down toward 0 as m falls below lo, and scaled
// down as m grows beyond hi.
func idealRangeScore(m, lo, hi float64) float64 {
	switch {
	case m < lo:
		if lo == 0 {
			return 1.0
		}
		return m / lo
	case m > hi:
		return hi / m
	default:
		return 1.0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
