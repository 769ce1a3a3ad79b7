// Package conf holds the core's own configuration: listen addresses, the
// device identity, pairing PIN, and the tunables of the PTP clock, the
// RTSP session timeout, and the retransmit buffer. Loading this struct
// from a file, environment, or flags is the host application's job; conf
// only defines the struct, its defaults, and its validation.
package conf

import (
	"fmt"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"github.com/airtunes2/airplay2/internal/logger"
)

// Conf is the core's configuration.
type Conf struct {
	// RTSPAddress is the TCP listen address for the RTSP control connection.
	RTSPAddress string `yaml:"rtspAddress"`

	// UDPPortMin/UDPPortMax bound the ephemeral audio/control/timing port
	// triple allocated at SETUP (§4.8).
	UDPPortMin int `yaml:"udpPortMin"`
	UDPPortMax int `yaml:"udpPortMax"`

	// PTPEventPort/PTPGeneralPort default to 319/320 (§4.6).
	PTPEventPort   int `yaml:"ptpEventPort"`
	PTPGeneralPort int `yaml:"ptpGeneralPort"`

	// DeviceID is the 17-ASCII-char accessory identifier advertised in
	// pairing and /info.
	DeviceID string `yaml:"deviceID"`

	// PIN is the Pair-Setup SRP password. Empty disables PIN pairing.
	PIN string `yaml:"pin"`

	// DeviceEd25519Seed is the 32-byte seed of the long-term identity key,
	// hex-encoded.
	DeviceEd25519Seed string `yaml:"deviceEd25519Seed"`

	// GroupUUID identifies this receiver's multi-room group (§4.12). A zero
	// value means the receiver does not participate in a group.
	GroupUUID string `yaml:"groupUUID"`

	// SessionTimeout tears down an idle RTSP session (§5).
	SessionTimeout Duration `yaml:"sessionTimeout"`

	// PTP tunables (§4.5, §5).
	PTPMaxMeasurements  int     `yaml:"ptpMaxMeasurements"`
	PTPMaxRTTMillis     float64 `yaml:"ptpMaxRTTMillis"`
	PTPMinSyncReadings  int     `yaml:"ptpMinSyncReadings"`
	PTPAnnounceTimeout  Duration `yaml:"ptpAnnounceTimeout"`

	// RetransmitCapacity bounds the sender's sequence-indexed ring (§4.10).
	RetransmitCapacity int `yaml:"retransmitCapacity"`

	// Hooks fire external commands on session lifecycle events.
	OnConnectHook  string `yaml:"runOnConnect"`
	OnRecordHook   string `yaml:"runOnRecord"`
	OnTeardownHook string `yaml:"runOnTeardown"`
	OnResyncHook   string `yaml:"runOnResync"`

	// APIAddress, when non-empty, serves the read-only status/events HTTP
	// and WebSocket surface.
	APIAddress string `yaml:"apiAddress"`

	// MetricsAddress, when non-empty, serves a Prometheus-compatible
	// /metrics endpoint separate from the status API.
	MetricsAddress string `yaml:"metricsAddress"`

	// LogLevel/LogDestinations/LogFile configure the core's logger.
	LogLevel        LogLevel        `yaml:"logLevel"`
	LogDestinations LogDestinations `yaml:"logDestinations"`
	LogFile         string          `yaml:"logFile"`

	// DeviceRSAKeyPath points at the PEM-encoded 2048-bit RSA private key
	// used to unwrap the AES key in an encrypted ANNOUNCE (§6). A fresh
	// key is generated and written there on first run if absent.
	DeviceRSAKeyPath string `yaml:"deviceRSAKeyPath"`
}

// Default returns a Conf with the spec's defaults filled in.
func Default() Conf {
	return Conf{
		RTSPAddress:        ":7000",
		UDPPortMin:         6000,
		UDPPortMax:         6999,
		PTPEventPort:       319,
		PTPGeneralPort:     320,
		DeviceID:           randomDeviceID(),
		SessionTimeout:     Duration(60e9),
		PTPMaxMeasurements: 8,
		PTPMaxRTTMillis:    100,
		PTPMinSyncReadings: 1,
		PTPAnnounceTimeout: Duration(6e9),
		RetransmitCapacity: 1000,
		APIAddress:         "",
		MetricsAddress:     "",
		LogLevel:           LogLevel(logger.Info),
		LogDestinations:    LogDestinations{LogDestinationStdout},
		LogFile:            "airplay2.log",
		DeviceRSAKeyPath:   "airplay2_device.pem",
	}
}

func randomDeviceID() string {
	id := uuid.New()
	s := id.String()
	// 17 ASCII chars, the conventional AirPlay device-id length.
	if len(s) > 17 {
		s = s[:17]
	}
	return s
}

// Load unmarshals YAML bytes over the defaults and validates the result.
func Load(b []byte) (Conf, error) {
	c := Default()
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Conf{}, fmt.Errorf("parsing configuration: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Conf{}, err
	}
	return c, nil
}

// Validate checks internal consistency.
func (c Conf) Validate() error {
	if c.UDPPortMin <= 0 || c.UDPPortMax <= 0 || c.UDPPortMin > c.UDPPortMax {
		return fmt.Errorf("invalid UDP port range [%d, %d]", c.UDPPortMin, c.UDPPortMax)
	}
	if c.UDPPortMax-c.UDPPortMin < 2 {
		return fmt.Errorf("UDP port range too small to allocate audio/control/timing triple")
	}
	if c.PTPMaxMeasurements < 1 {
		return fmt.Errorf("ptpMaxMeasurements must be >= 1")
	}
	if c.PTPMinSyncReadings < 1 {
		return fmt.Errorf("ptpMinSyncReadings must be >= 1")
	}
	if c.RetransmitCapacity < 1 {
		return fmt.Errorf("retransmitCapacity must be >= 1")
	}
	return nil
}
