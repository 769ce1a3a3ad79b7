// Package metrics exposes a Prometheus-compatible /metrics endpoint for
// the receiver: active session counts and per-session loss/retransmit
// totals, PTP clock sync state, and multi-room group role.
package metrics

import (
	"io"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/airtunes2/airplay2/internal/logger"
)

func sortedKeys(m map[string]string) []string {
	ret := make([]string, 0, len(m))
	for k := range m {
		ret = append(ret, k)
	}
	sort.Strings(ret)
	return ret
}

func tags(m map[string]string) string {
	o := "{"
	first := true
	for _, k := range sortedKeys(m) {
		if first {
			first = false
		} else {
			o += ","
		}
		o += k + "=\"" + m[k] + "\""
	}
	o += "}"
	return o
}

func metric(key string, tags string, value int64) string {
	return key + tags + " " + strconv.FormatInt(value, 10) + "\n"
}

func metricFloat(key string, tags string, value float64) string {
	return key + tags + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"
}

func metricBool(key string, tags string, value bool) string {
	v := int64(0)
	if value {
		v = 1
	}
	return metric(key, tags, v)
}

// SessionSnapshot is the metrics-relevant projection of one tracked
// session.
type SessionSnapshot struct {
	ID              string
	State           string
	RemoteAddr      string
	LossTotal       uint64
	RetransmitTotal uint64
}

// SessionStore is implemented by the session manager.
type SessionStore interface {
	MetricsSessionsList() []SessionSnapshot
}

// ClockStore is implemented by the PTP clock; ptp.Clock satisfies this
// directly.
type ClockStore interface {
	OffsetMillis() (float64, bool)
	DriftPPM() (float64, bool)
	IsSynchronized() bool
}

// GroupStore reports this receiver's multi-room role.
type GroupStore interface {
	MetricsGroupRole() string
}

type metricsParent interface {
	logger.Writer
}

// Metrics is the /metrics HTTP provider.
type Metrics struct {
	Address     string
	AllowOrigin string
	Sessions    SessionStore
	Clock       ClockStore
	Groups      GroupStore
	Parent      metricsParent

	httpServer *http.Server
	mutex      sync.Mutex
}

// Initialize starts listening.
func (m *Metrics) Initialize() error {
	router := gin.New()
	router.Use(m.middlewareOrigin)
	router.GET("/metrics", m.onMetrics)

	m.mutex.Lock()
	m.httpServer = &http.Server{
		Addr:    m.Address,
		Handler: router,
	}
	m.mutex.Unlock()

	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return err
	}

	go m.httpServer.Serve(ln) //nolint:errcheck

	m.Log(logger.Info, "listener opened on "+m.Address)
	return nil
}

// Close closes Metrics.
func (m *Metrics) Close() {
	m.Log(logger.Info, "listener is closing")
	m.mutex.Lock()
	srv := m.httpServer
	m.mutex.Unlock()
	if srv != nil {
		srv.Close() //nolint:errcheck
	}
}

// Log implements logger.Writer.
func (m *Metrics) Log(level logger.Level, format string, args ...interface{}) {
	m.Parent.Log(level, "[metrics] "+format, args...)
}

func (m *Metrics) middlewareOrigin(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", m.AllowOrigin)
	if ctx.Request.Method == http.MethodOptions {
		ctx.Header("Access-Control-Allow-Methods", "OPTIONS, GET")
		ctx.AbortWithStatus(http.StatusNoContent)
		return
	}
}

func (m *Metrics) onMetrics(ctx *gin.Context) {
	out := ""

	sessions := m.Sessions.MetricsSessionsList()
	out += metric("airplay_sessions", "", int64(len(sessions)))

	var lossTotal, retransmitTotal int64
	for _, s := range sessions {
		ta := tags(map[string]string{
			"id":         s.ID,
			"state":      s.State,
			"remoteAddr": s.RemoteAddr,
		})
		out += metric("airplay_session_packets_lost", ta, int64(s.LossTotal))
		out += metric("airplay_session_packets_retransmitted", ta, int64(s.RetransmitTotal))
		lossTotal += int64(s.LossTotal)
		retransmitTotal += int64(s.RetransmitTotal)
	}
	out += metric("airplay_packets_lost_total", "", lossTotal)
	out += metric("airplay_packets_retransmitted_total", "", retransmitTotal)

	out += metricBool("airplay_ptp_synchronized", "", m.Clock.IsSynchronized())
	if offset, ok := m.Clock.OffsetMillis(); ok {
		out += metricFloat("airplay_ptp_offset_ms", "", offset)
	}
	if drift, ok := m.Clock.DriftPPM(); ok {
		out += metricFloat("airplay_ptp_drift_ppm", "", drift)
	}

	out += metric("airplay_group", tags(map[string]string{"role": m.Groups.MetricsGroupRole()}), 1)

	ctx.Writer.WriteHeader(http.StatusOK)
	io.WriteString(ctx.Writer, out) //nolint:errcheck
}
