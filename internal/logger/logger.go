// Package logger contains the leveled logger used by every core component.
package logger

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gookit/color"
)

// Logger is a log handler writing to one or more destinations.
type Logger struct {
	level Level

	mutex        sync.Mutex
	destinations []destination
}

// New allocates a Logger writing to the given destinations. filePath is
// only consulted when destinations includes DestinationFile.
func New(level Level, destinations []Destination, filePath string) (*Logger, error) {
	lh := &Logger{level: level}

	for _, d := range destinations {
		switch d {
		case DestinationStdout:
			lh.destinations = append(lh.destinations, newDestinationStdout())

		case DestinationFile:
			dest, err := newDestinationFile(filePath)
			if err != nil {
				lh.Close()
				return nil, err
			}
			lh.destinations = append(lh.destinations, dest)

		case DestinationSyslog:
			dest, err := newDestinationSyslog()
			if err != nil {
				lh.Close()
				return nil, err
			}
			lh.destinations = append(lh.destinations, dest)
		}
	}

	return lh, nil
}

// Close closes every destination.
func (lh *Logger) Close() {
	for _, d := range lh.destinations {
		d.close()
	}
}

// Log implements Writer.
func (lh *Logger) Log(level Level, format string, args ...interface{}) {
	if level < lh.level {
		return
	}

	lh.mutex.Lock()
	defer lh.mutex.Unlock()

	t := time.Now()
	for _, d := range lh.destinations {
		d.log(t, level, format, args...)
	}
}

func writeTime(buf *bytes.Buffer, t time.Time, useColor bool) {
	s := t.Format("2006/01/02 15:04:05")
	if useColor {
		buf.WriteString(color.RenderString(color.Gray.Code(), s))
	} else {
		buf.WriteString(s)
	}
	buf.WriteByte(' ')
}

func writeLevel(buf *bytes.Buffer, level Level, useColor bool) {
	if !useColor {
		buf.WriteString(level.String())
		buf.WriteByte(' ')
		return
	}

	code := color.Info
	switch level {
	case Debug:
		code = color.Debug
	case Warn:
		code = color.Warn
	case Error:
		code = color.Error
	}
	buf.WriteString(color.RenderString(code.Code(), level.String()))
	buf.WriteByte(' ')
}

func writeContent(buf *bytes.Buffer, format string, args []interface{}) {
	fmt.Fprintf(buf, format, args...)
	buf.WriteByte('\n')
}
