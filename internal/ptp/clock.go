// Package ptp implements the IEEE 1588 clock engine and node loop AirPlay 2
// uses to synchronize receivers against a grandmaster: an offset/RTT filter
// fed by Sync/Follow_Up/Delay_Req/Delay_Resp exchanges, and a simplified
// Best Master Clock Algorithm for role arbitration.
package ptp

import (
	"sort"
	"sync"
	"time"
)

// Timestamp is a PTP-domain instant, nanoseconds since the PTP epoch.
type Timestamp int64

// measurement is one accepted (t1,t2,t3,t4) exchange, reduced to the two
// derived quantities the filter actually needs.
type measurement struct {
	offsetNs int64
	rttNs    int64
	at       time.Time // wall-clock receipt time, for drift slope
}

// Config bounds the clock's measurement window and acceptance criteria
// (§4.5).
type Config struct {
	MaxMeasurements    int
	MaxRTT             time.Duration
	MinSyncMeasurements int
}

// DefaultConfig matches spec.md's stated defaults.
func DefaultConfig() Config {
	return Config{MaxMeasurements: 8, MaxRTT: 0, MinSyncMeasurements: 1}
}

// Clock is the shared, single-writer/multi-reader PTP offset estimator
// (§5 "SharedPtpClock"). Zero value is not usable; build with NewClock.
type Clock struct {
	mu   sync.RWMutex
	cfg  Config
	meas []measurement
}

// NewClock builds a Clock with the given bounds, clamping MaxMeasurements
// to a floor of 1 per §4.5.
func NewClock(cfg Config) *Clock {
	if cfg.MaxMeasurements < 1 {
		cfg.MaxMeasurements = 1
	}
	return &Clock{cfg: cfg}
}

// AddMeasurement computes offset/RTT from the four PTP exchange
// timestamps and records it, dropping the measurement if RTT exceeds
// MaxRTT (when configured) or trimming the oldest entry once the window
// is full.
func (c *Clock) AddMeasurement(t1, t2, t3, t4 Timestamp) bool {
	offset := ((int64(t2) - int64(t1)) + (int64(t3) - int64(t4))) / 2
	rtt := (int64(t4) - int64(t1)) - (int64(t3) - int64(t2))
	if rtt < 0 {
		rtt = 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.MaxRTT > 0 && time.Duration(rtt) > c.cfg.MaxRTT {
		return false
	}

	c.meas = append(c.meas, measurement{offsetNs: offset, rttNs: rtt, at: time.Now()})
	if len(c.meas) > c.cfg.MaxMeasurements {
		c.meas = c.meas[len(c.meas)-c.cfg.MaxMeasurements:]
	}
	return true
}

// OffsetNanos returns the median offset of all stored measurements, and
// false if fewer than MinSyncMeasurements have been accepted.
func (c *Clock) OffsetNanos() (int64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.meas) < c.cfg.MinSyncMeasurements || len(c.meas) == 0 {
		return 0, false
	}

	offsets := make([]int64, len(c.meas))
	for i, m := range c.meas {
		offsets[i] = m.offsetNs
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	mid := len(offsets) / 2
	if len(offsets)%2 == 1 {
		return offsets[mid], true
	}
	return (offsets[mid-1] + offsets[mid]) / 2, true
}

// OffsetMillis is OffsetNanos scaled to milliseconds, for callers working
// in the same units as spec §2's test suite.
func (c *Clock) OffsetMillis() (float64, bool) {
	ns, ok := c.OffsetNanos()
	if !ok {
		return 0, false
	}
	return float64(ns) / 1e6, true
}

// IsSynchronized reports whether enough measurements are present to trust
// the offset.
func (c *Clock) IsSynchronized() bool {
	_, ok := c.OffsetNanos()
	return ok
}

// DriftPPM computes the offset slope between the oldest and newest kept
// measurements, only when they are separated by more than 0.1s of
// wall-clock time (§4.5); returns false otherwise.
func (c *Clock) DriftPPM() (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.meas) < 2 {
		return 0, false
	}
	oldest, newest := c.meas[0], c.meas[len(c.meas)-1]
	dt := newest.at.Sub(oldest.at)
	if dt <= 100*time.Millisecond {
		return 0, false
	}
	dOffset := float64(newest.offsetNs - oldest.offsetNs)
	ppm := (dOffset / float64(dt.Nanoseconds())) * 1e6
	return ppm, true
}

// RemoteToLocal converts a remote (grandmaster-domain) timestamp to the
// local clock's corresponding instant.
func (c *Clock) RemoteToLocal(ts Timestamp) Timestamp {
	offset, _ := c.OffsetNanos()
	return Timestamp(int64(ts) - offset)
}

// LocalToRemote is the inverse of RemoteToLocal.
func (c *Clock) LocalToRemote(ts Timestamp) Timestamp {
	offset, _ := c.OffsetNanos()
	return Timestamp(int64(ts) + offset)
}

// RTPToLocalPTP converts an RTP timestamp to a local PTP instant given an
// anchor (rtp, ptp) pair established at stream start. The RTP-to-anchor
// distance is treated as a signed 32-bit difference so sample-count
// wrap-around resolves correctly (§4.5).
func RTPToLocalPTP(rtp uint32, sampleRate uint32, anchorRTP uint32, anchorPTP Timestamp) Timestamp {
	diff := int64(int32(rtp - anchorRTP))
	deltaNs := diff * 1e9 / int64(sampleRate)
	return Timestamp(int64(anchorPTP) + deltaNs)
}
