package thermal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFanCurve_Evaluate checks the default (2x - 60)% curve at and beyond its clamps.
func TestFanCurve_Evaluate(t *testing.T) {
	t.Parallel()

	curve := DefaultFanCurve()

	cases := map[float64]int{
		-40:   20,
		0:     20,
		40:    20,
		45.2:  30,
		50:    40,
		55:    50,
		70:    80,
		72.25: 85,
		80:    100,
		120:   100,
	}

	for temperature, want := range cases {
		got, err := curve.Evaluate(temperature)
		require.NoError(t, err)
		require.Equal(t, want, got, "temperature %v", temperature)
	}
}

// TestFanCurve_EvaluateRejectsGarbage ensures non-physical inputs are never coerced.
func TestFanCurve_EvaluateRejectsGarbage(t *testing.T) {
	t.Parallel()

	curve := DefaultFanCurve()

	for _, temperature := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -300} {
		_, err := curve.Evaluate(temperature)
		require.ErrorIs(t, err, ErrInvalidReading)
	}

	_, err := curve.Evaluate(AbsoluteZero)
	require.NoError(t, err)
}

// TestFanCurve_MonotonicAndBounded sweeps the curve for ordering and clamping.
func TestFanCurve_MonotonicAndBounded(t *testing.T) {
	t.Parallel()

	curves := []FanCurve{
		DefaultFanCurve(),
		{MinPercent: 0, MaxPercent: 100, Slope: 0.5, Intercept: 10},
		{MinPercent: 35, MaxPercent: 60, Slope: 3.3, Intercept: -120},
		{MinPercent: 50, MaxPercent: 50, Slope: 0, Intercept: 0},
	}

	for _, curve := range curves {
		require.NoError(t, curve.Validate())

		previous := math.MinInt

		for temperature := -50.0; temperature <= 150; temperature += 0.25 {
			got, err := curve.Evaluate(temperature)
			require.NoError(t, err)
			require.GreaterOrEqual(t, got, previous)
			require.GreaterOrEqual(t, got, curve.MinPercent)
			require.LessOrEqual(t, got, curve.MaxPercent)

			again, err := curve.Evaluate(temperature)
			require.NoError(t, err)
			require.Equal(t, got, again)

			previous = got
		}
	}
}

// TestFanCurve_Validate rejects parameter sets that break the curve's guarantees.
func TestFanCurve_Validate(t *testing.T) {
	t.Parallel()

	bad := []FanCurve{
		{MinPercent: -1, MaxPercent: 100, Slope: 2},
		{MinPercent: 20, MaxPercent: 101, Slope: 2},
		{MinPercent: 80, MaxPercent: 20, Slope: 2},
		{MinPercent: 20, MaxPercent: 100, Slope: -1},
		{MinPercent: 20, MaxPercent: 100, Slope: math.NaN()},
		{MinPercent: 20, MaxPercent: 100, Slope: 2, Intercept: math.Inf(-1)},
	}

	for _, curve := range bad {
		require.Error(t, curve.Validate(), "%+v", curve)
	}

	require.NoError(t, DefaultFanCurve().Validate())
}
