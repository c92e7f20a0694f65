package thermal

import (
	"errors"
	"fmt"
	"math"
)

const (
	// AbsoluteZero is the lowest physically valid temperature in Celsius.
	AbsoluteZero = -273.15

	// DefaultMinPercent keeps some airflow even on an idle machine.
	DefaultMinPercent = 20
	// DefaultMaxPercent is full speed.
	DefaultMaxPercent = 100
	// DefaultSlope and DefaultIntercept give the (2x - 60)% curve.
	DefaultSlope     = 2.0
	DefaultIntercept = -60.0
)

var (
	errPercentRange = errors.New("curve percent bounds must be within 0-100")
	errPercentOrder = errors.New("curve min_percent must not exceed max_percent")
	errSlope        = errors.New("curve slope must be a finite non-negative number")
	errIntercept    = errors.New("curve intercept must be finite")
)

// FanCurve maps a representative temperature to a fan duty cycle.
type FanCurve struct {
	MinPercent int     `yaml:"min_percent"`
	MaxPercent int     `yaml:"max_percent"`
	Slope      float64 `yaml:"slope"`
	Intercept  float64 `yaml:"intercept"`
}

// DefaultFanCurve returns the (2x - 60)% curve clamped to 20-100%.
func DefaultFanCurve() FanCurve {
	return FanCurve{
		MinPercent: DefaultMinPercent,
		MaxPercent: DefaultMaxPercent,
		Slope:      DefaultSlope,
		Intercept:  DefaultIntercept,
	}
}

// Validate checks the curve parameters. A negative slope is rejected so the
// curve stays monotonic non-decreasing.
func (c FanCurve) Validate() error {
	if c.MinPercent < 0 || c.MaxPercent > 100 || c.MaxPercent < 0 || c.MinPercent > 100 {
		return errPercentRange
	}

	if c.MinPercent > c.MaxPercent {
		return errPercentOrder
	}

	if math.IsNaN(c.Slope) || math.IsInf(c.Slope, 0) || c.Slope < 0 {
		return errSlope
	}

	if math.IsNaN(c.Intercept) || math.IsInf(c.Intercept, 0) {
		return errIntercept
	}

	return nil
}

// Evaluate returns clamp(round(slope*t + intercept), min, max).
func (c FanCurve) Evaluate(temperature float64) (int, error) {
	if err := CheckTemperature(temperature); err != nil {
		return 0, err
	}

	raw := math.Round(c.Slope*temperature + c.Intercept)

	switch {
	case raw < float64(c.MinPercent):
		return c.MinPercent, nil
	case raw > float64(c.MaxPercent):
		return c.MaxPercent, nil
	default:
		return int(raw), nil
	}
}

// CheckTemperature rejects values no sensor can physically report.
func CheckTemperature(temperature float64) error {
	if math.IsNaN(temperature) || math.IsInf(temperature, 0) {
		return fmt.Errorf("%w: %v is not finite", ErrInvalidReading, temperature)
	}

	if temperature < AbsoluteZero {
		return fmt.Errorf("%w: %v is below absolute zero", ErrInvalidReading, temperature)
	}

	return nil
}
