// Package ntpestimator implements the timing-request/response offset/RTT
// filter (§4.9): structurally identical to the PTP clock's (t1,t2,t3,t4)
// measurement filter, but operating on 64-bit NTP timestamps exchanged
// over the timing UDP port rather than PTP's nanosecond instants.
package ntpestimator

import (
	"sort"
	"sync"
	"time"
)

// ntpEpochOffset is the number of seconds between the NTP epoch
// (1900-01-01) and the Unix epoch (1970-01-01).
const ntpEpochOffset = 2208988800

// Timestamp is a 64-bit NTP timestamp: 32 bits of seconds since the NTP
// epoch, 32 bits of fractional seconds.
type Timestamp uint64

// Encode converts a wall-clock time to its NTP 64-bit representation.
func Encode(t time.Time) Timestamp {
	secs := uint64(t.Unix()+ntpEpochOffset) << 32
	frac := uint64(float64(t.Nanosecond()) * (1 << 32) / 1e9)
	return Timestamp(secs | frac)
}

// Decode converts an NTP 64-bit timestamp back to a wall-clock time.
func Decode(ts Timestamp) time.Time {
	secs := int64(ts>>32) - ntpEpochOffset
	frac := uint32(ts)
	nanos := int64(float64(frac) * 1e9 / (1 << 32))
	return time.Unix(secs, nanos)
}

// measurement is one accepted timing request/response exchange.
type measurement struct {
	offsetNs int64
	rttNs    int64
}

// Config bounds the estimator's measurement window, mirroring
// ptp.Clock's Config.
type Config struct {
	MaxMeasurements int
}

// DefaultConfig matches the PTP clock's default window.
func DefaultConfig() Config {
	return Config{MaxMeasurements: 8}
}

// Estimator tracks the NTP-domain offset/RTT between this receiver and a
// sender's timing port, fed by Timing Request/Response exchanges at
// roughly 3 s intervals (§4.9).
type Estimator struct {
	mu   sync.RWMutex
	cfg  Config
	meas []measurement
}

// NewEstimator builds an Estimator with the given config, clamping
// MaxMeasurements to a floor of 1.
func NewEstimator(cfg Config) *Estimator {
	if cfg.MaxMeasurements < 1 {
		cfg.MaxMeasurements = 1
	}
	return &Estimator{cfg: cfg}
}

// AddMeasurement computes offset/RTT from a (t1,t2,t3,t4) exchange: t1 is
// our send time of the Timing Request, t2/t3 are the peer's receive/send
// times echoed in the Timing Response, t4 is our receipt time of that
// response.
func (e *Estimator) AddMeasurement(t1, t2, t3, t4 Timestamp) {
	toNs := func(ts Timestamp) int64 { return Decode(ts).UnixNano() }
	n1, n2, n3, n4 := toNs(t1), toNs(t2), toNs(t3), toNs(t4)

	offset := ((n2 - n1) + (n3 - n4)) / 2
	rtt := (n4 - n1) - (n3 - n2)
	if rtt < 0 {
		rtt = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.meas = append(e.meas, measurement{offsetNs: offset, rttNs: rtt})
	if len(e.meas) > e.cfg.MaxMeasurements {
		e.meas = e.meas[len(e.meas)-e.cfg.MaxMeasurements:]
	}
}

// OffsetNanos returns the median offset of all stored measurements.
func (e *Estimator) OffsetNanos() (int64, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.meas) == 0 {
		return 0, false
	}

	offsets := make([]int64, len(e.meas))
	for i, m := range e.meas {
		offsets[i] = m.offsetNs
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	mid := len(offsets) / 2
	if len(offsets)%2 == 1 {
		return offsets[mid], true
	}
	return (offsets[mid-1] + offsets[mid]) / 2, true
}
