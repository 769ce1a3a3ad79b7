//go:build !darwin && !windows

package logger

import (
	"bytes"
	"fmt"
	"log/syslog"
	"time"
)

type destinationSyslog struct {
	inner *syslog.Writer
	buf   bytes.Buffer
}

func newDestinationSyslog() (destination, error) {
	w, err := syslog.New(syslog.LOG_DAEMON, "airplay2")
	if err != nil {
		return nil, err
	}
	return &destinationSyslog{inner: w}, nil
}

func (d *destinationSyslog) log(_ time.Time, level Level, format string, args ...interface{}) {
	d.buf.Reset()
	fmt.Fprintf(&d.buf, format, args...)

	switch level {
	case Debug:
		d.inner.Debug(d.buf.String()) //nolint:errcheck
	case Info:
		d.inner.Info(d.buf.String()) //nolint:errcheck
	case Warn:
		d.inner.Warning(d.buf.String()) //nolint:errcheck
	case Error:
		d.inner.Err(d.buf.String()) //nolint:errcheck
	}
}

func (d *destinationSyslog) close() {
	d.inner.Close() //nolint:errcheck
}
