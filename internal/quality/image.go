package quality

import (
	"errors"
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/openarmap/capture/internal/config"
)

// MinImageDim is the smallest width/height the scorer accepts. Smaller
// bitmaps would underflow the interior sampling loops.
const MinImageDim = 5

// ErrImageTooSmall is returned for bitmaps below MinImageDim on either axis.
var ErrImageTooSmall = errors.New("image smaller than 5x5 pixels")

// ImageQuality holds the per-frame image scores, each in [0,100]. It is
// computed once per candidate frame and never mutated afterwards.
type ImageQuality struct {
	BlurScore     float64 `json:"blur_score"`
	LightingScore float64 `json:"lighting_score"`
	FocusScore    float64 `json:"focus_score"`
	OverallScore  float64 `json:"overall_score"`
}

// ImageConfig holds the image scorer's sampling stride, normalization
// divisors, boost curves, and combination weights.
type ImageConfig struct {
	Stride int

	BlurDivisor       float64
	BlurLowThreshold  float64
	BlurLowFactor     float64
	BlurHighThreshold float64
	BlurBoostFactor   float64

	FocusDivisor       float64
	FocusLowThreshold  float64
	FocusLowFactor     float64
	FocusHighThreshold float64
	FocusBoostFactor   float64

	BrightnessIdeal  float64
	ContrastTarget   float64
	BrightnessWeight float64
	ContrastWeight   float64
	ExposureWeight   float64
	LightingBoost    float64

	// Exposure tier boundaries over mean luma, strictly increasing, and
	// the score each tier earns.
	ExposureHardLow   float64
	ExposureSoftLow   float64
	ExposureSoftHigh  float64
	ExposureHardHigh  float64
	ExposurePoorScore float64
	ExposureFairScore float64
	ExposureGoodScore float64

	BlurWeight     float64
	LightingWeight float64
	FocusWeight    float64
}

// ImageConfigFromTuning copies the image scoring parameters out of the
// tuning file.
func ImageConfigFromTuning(cfg *config.TuningConfig) ImageConfig {
	return ImageConfig{
		Stride:             cfg.GetSampleStride(),
		BlurDivisor:        cfg.GetBlurDivisor(),
		BlurLowThreshold:   cfg.GetBlurLowThreshold(),
		BlurLowFactor:      cfg.GetBlurLowFactor(),
		BlurHighThreshold:  cfg.GetBlurHighThreshold(),
		BlurBoostFactor:    cfg.GetBlurBoostFactor(),
		FocusDivisor:       cfg.GetFocusDivisor(),
		FocusLowThreshold:  cfg.GetFocusLowThreshold(),
		FocusLowFactor:     cfg.GetFocusLowFactor(),
		FocusHighThreshold: cfg.GetFocusHighThreshold(),
		FocusBoostFactor:   cfg.GetFocusBoostFactor(),
		BrightnessIdeal:    cfg.GetBrightnessIdeal(),
		ContrastTarget:     cfg.GetContrastTarget(),
		BrightnessWeight:   cfg.GetBrightnessWeight(),
		ContrastWeight:     cfg.GetContrastWeight(),
		ExposureWeight:     cfg.GetExposureWeight(),
		LightingBoost:      cfg.GetLightingBoost(),
		ExposureHardLow:    cfg.GetExposureHardLow(),
		ExposureSoftLow:    cfg.GetExposureSoftLow(),
		ExposureSoftHigh:   cfg.GetExposureSoftHigh(),
		ExposureHardHigh:   cfg.GetExposureHardHigh(),
		ExposurePoorScore:  cfg.GetExposurePoorScore(),
		ExposureFairScore:  cfg.GetExposureFairScore(),
		ExposureGoodScore:  cfg.GetExposureGoodScore(),
		BlurWeight:         cfg.GetBlurWeight(),
		LightingWeight:     cfg.GetLightingWeight(),
		FocusWeight:        cfg.GetFocusWeight(),
	}
}

// Score computes blur, lighting, focus, and the weighted overall score for
// a decoded frame. The overall score needs no further clamping: each
// component is already within [0,100] and the weights sum to 1.
func (c ImageConfig) Score(img image.Image) (ImageQuality, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < MinImageDim || h < MinImageDim {
		return ImageQuality{}, ErrImageTooSmall
	}

	luma := lumaPlane(img)

	q := ImageQuality{
		BlurScore:     c.blurScore(luma, w, h),
		LightingScore: c.lightingScore(luma),
		FocusScore:    c.focusScore(luma, w, h),
	}
	q.OverallScore = q.BlurScore*c.BlurWeight +
		q.LightingScore*c.LightingWeight +
		q.FocusScore*c.FocusWeight
	return q, nil
}

// lumaPlane extracts the grayscale luma of every pixel as a flat row-major
// slice. Lighting statistics need the full plane; blur and focus sample it
// with the configured stride.
func lumaPlane(img image.Image) []float64 {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	luma := make([]float64, w*h)
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := img.At(x, y).RGBA()
			// Rec. 601 luma from 8-bit channels.
			luma[i] = 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(bl>>8)
			i++
		}
	}
	return luma
}

// blurScore is a Laplacian-variance sharpness proxy: the discrete Laplacian
// is accumulated squared over interior pixels at the sampling stride,
// normalized by the empirical divisor, then shaped by the boost curve.
func (c ImageConfig) blurScore(luma []float64, w, h int) float64 {
	stride := c.Stride
	if stride < 1 {
		stride = 1
	}

	var sum float64
	var n int
	for y := 1; y < h-1; y += stride {
		for x := 1; x < w-1; x += stride {
			center := luma[y*w+x]
			lap := 4*center - luma[(y-1)*w+x] - luma[(y+1)*w+x] - luma[y*w+x-1] - luma[y*w+x+1]
			sum += lap * lap
			n++
		}
	}
	if n == 0 {
		return 0
	}

	raw := sum / float64(n) / c.BlurDivisor * 100
	return clamp(boostCurve(raw, c.BlurLowThreshold, c.BlurLowFactor, c.BlurHighThreshold, c.BlurBoostFactor), 0, 100)
}

// focusScore is a gradient-magnitude proxy using the Manhattan sum of
// horizontal and vertical central differences.
func (c ImageConfig) focusScore(luma []float64, w, h int) float64 {
	stride := c.Stride
	if stride < 1 {
		stride = 1
	}

	var sum float64
	var n int
	for y := 1; y < h-1; y += stride {
		for x := 1; x < w-1; x += stride {
			gx := luma[y*w+x+1] - luma[y*w+x-1]
			gy := luma[(y+1)*w+x] - luma[(y-1)*w+x]
			if gx < 0 {
				gx = -gx
			}
			if gy < 0 {
				gy = -gy
			}
			sum += gx + gy
			n++
		}
	}
	if n == 0 {
		return 0
	}

	raw := sum / float64(n) / c.FocusDivisor * 100
	return clamp(boostCurve(raw, c.FocusLowThreshold, c.FocusLowFactor, c.FocusHighThreshold, c.FocusBoostFactor), 0, 100)
}

// lightingScore combines brightness (distance from the ideal midpoint),
// contrast (luma spread against the target), and tiered exposure into one
// weighted score with a flat boost.
func (c ImageConfig) lightingScore(luma []float64) float64 {
	mean, std := stat.MeanStdDev(luma, nil)

	brightness := 100.0
	if c.BrightnessIdeal > 0 {
		dev := mean - c.BrightnessIdeal
		if dev < 0 {
			dev = -dev
		}
		brightness = clamp(100*(1-dev/c.BrightnessIdeal), 0, 100)
	}

	contrast := 100.0
	if c.ContrastTarget > 0 {
		contrast = clamp(std/c.ContrastTarget*100, 0, 100)
	}

	exposure := c.ExposureGoodScore
	switch {
	case mean < c.ExposureHardLow || mean > c.ExposureHardHigh:
		exposure = c.ExposurePoorScore
	case mean < c.ExposureSoftLow || mean > c.ExposureSoftHigh:
		exposure = c.ExposureFairScore
	}

	score := brightness*c.BrightnessWeight + contrast*c.ContrastWeight + exposure*c.ExposureWeight
	return clamp(score+c.LightingBoost, 0, 100)
}

// boostCurve penalizes very low raw scores and boosts the mid range: below
// low the score shrinks by lowFactor, between low and high it grows by
// boostFactor, above high it passes through unchanged.
func boostCurve(raw, low, lowFactor, high, boostFactor float64) float64 {
	switch {
	case raw < low:
		return raw * lowFactor
	case raw < high:
		return raw * boostFactor
	default:
		return raw
	}
}
