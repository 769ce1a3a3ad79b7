package logger

import "time"

// Destination is a log output target.
type Destination int

// Destinations.
const (
	DestinationStdout Destination = iota
	DestinationFile
	DestinationSyslog
)

type destination interface {
	log(t time.Time, level Level, format string, args ...interface{})
	close()
}
