package conf

import (
	"fmt"

	"github.com/airtunes2/airplay2/internal/logger"
)

// LogLevel is the logLevel parameter.
type LogLevel logger.Level

// MarshalYAML implements yaml.Marshaler.
func (d LogLevel) MarshalYAML() (interface{}, error) {
	switch logger.Level(d) {
	case logger.Error:
		return "error", nil
	case logger.Warn:
		return "warn", nil
	case logger.Info:
		return "info", nil
	default:
		return "debug", nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *LogLevel) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var in string
	if err := unmarshal(&in); err != nil {
		return err
	}

	switch in {
	case "error":
		*d = LogLevel(logger.Error)
	case "warn":
		*d = LogLevel(logger.Warn)
	case "info":
		*d = LogLevel(logger.Info)
	case "debug":
		*d = LogLevel(logger.Debug)
	default:
		return fmt.Errorf("invalid log level: '%s'", in)
	}
	return nil
}
