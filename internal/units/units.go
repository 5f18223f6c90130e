// Package units provides shared angle and distance conversions used by the
// motion scorer and CLI output.
package units

import "math"

// Angle unit constants
const (
	Degrees = "deg"
	Radians = "rad"
)

// ValidAngleUnits contains all valid angle unit values
var ValidAngleUnits = []string{Degrees, Radians}

// IsValidAngleUnit checks if the given unit is in the list of valid units
func IsValidAngleUnit(unit string) bool {
	for _, validUnit := range ValidAngleUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// RadToDeg converts an angle from radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// DegToRad converts an angle from degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// ConvertAngle converts an angle in radians to the target units.
// Internal math is done in radians.
func ConvertAngle(rad float64, targetUnits string) float64 {
	switch targetUnits {
	case Degrees:
		return RadToDeg(rad)
	case Radians:
		return rad
	default:
		return rad // default to radians if unknown unit
	}
}

// MetersToCentimeters converts a distance from meters to centimeters.
// Database rows store distances in meters.
func MetersToCentimeters(m float64) float64 {
	return m * 100
}
