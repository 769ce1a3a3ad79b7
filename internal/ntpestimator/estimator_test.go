package ntpestimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	ts := Encode(in)
	out := Decode(ts)
	require.WithinDuration(t, in, out, time.Millisecond)
}

func TestEstimatorOffsetIsMedianOfMeasurements(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	t1 := Encode(base)
	t2 := Encode(base.Add(10 * time.Millisecond))
	t3 := Encode(base.Add(11 * time.Millisecond))
	t4 := Encode(base.Add(2 * time.Millisecond))
	e.AddMeasurement(t1, t2, t3, t4)

	offset, ok := e.OffsetNanos()
	require.True(t, ok)
	require.InDelta(t, 9_500_000, offset, 1_000_000)
}

func TestEstimatorNoMeasurementsYieldsFalse(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	_, ok := e.OffsetNanos()
	require.False(t, ok)
}

func TestEstimatorWindowTrims(t *testing.T) {
	e := NewEstimator(Config{MaxMeasurements: 2})
	base := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		t1 := Encode(base)
		t4 := Encode(base.Add(time.Duration(i) * time.Millisecond))
		e.AddMeasurement(t1, t1, t1, t4)
	}
	_, ok := e.OffsetNanos()
	require.True(t, ok)
}
