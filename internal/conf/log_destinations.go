package conf

import (
	"fmt"

	"github.com/airtunes2/airplay2/internal/logger"
)

// LogDestination is one yaml-friendly name for a logger.Destination.
type LogDestination string

// Allowed destination names.
const (
	LogDestinationStdout LogDestination = "stdout"
	LogDestinationFile   LogDestination = "file"
	LogDestinationSyslog LogDestination = "syslog"
)

func (d LogDestination) toDestination() (logger.Destination, error) {
	switch d {
	case LogDestinationStdout:
		return logger.DestinationStdout, nil
	case LogDestinationFile:
		return logger.DestinationFile, nil
	case LogDestinationSyslog:
		return logger.DestinationSyslog, nil
	default:
		return 0, fmt.Errorf("invalid log destination: '%s'", d)
	}
}

// LogDestinations is the logDestinations parameter.
type LogDestinations []LogDestination

// ToDestinations converts to a []logger.Destination, for logger.New.
func (d LogDestinations) ToDestinations() ([]logger.Destination, error) {
	out := make([]logger.Destination, len(d))
	for i, v := range d {
		dest, err := v.toDestination()
		if err != nil {
			return nil, err
		}
		out[i] = dest
	}
	return out, nil
}
