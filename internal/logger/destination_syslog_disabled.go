//go:build darwin || windows

package logger

import "fmt"

func newDestinationSyslog() (destination, error) {
	return nil, fmt.Errorf("syslog is not available on macOS and Windows")
}
