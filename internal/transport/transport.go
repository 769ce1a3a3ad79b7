// Package transport parses and builds the RTSP Transport header
// exchanged during SETUP (§4.5): "RTP/AVP/UDP;unicast;mode=record;
// control_port=X;timing_port=Y" on the way in, echoed back with the
// server's allocated ports on the way out.
package transport

import (
	"fmt"
	"strconv"
	"strings"
)

// Params is a parsed Transport header.
type Params struct {
	Protocol    string // e.g. "RTP/AVP/UDP"
	Unicast     bool
	ModeRecord  bool
	ControlPort int
	TimingPort  int
	ServerPort  int
}

// Parse decodes a client-sent Transport header value.
func Parse(header string) (Params, error) {
	fields := strings.Split(header, ";")
	if len(fields) == 0 {
		return Params{}, fmt.Errorf("transport: empty header")
	}

	p := Params{Protocol: fields[0]}

	for _, f := range fields[1:] {
		f = strings.TrimSpace(f)
		switch {
		case f == "unicast":
			p.Unicast = true
		case f == "mode=record":
			p.ModeRecord = true
		case strings.HasPrefix(f, "control_port="):
			v, err := strconv.Atoi(strings.TrimPrefix(f, "control_port="))
			if err != nil {
				return Params{}, fmt.Errorf("transport: bad control_port: %w", err)
			}
			p.ControlPort = v
		case strings.HasPrefix(f, "timing_port="):
			v, err := strconv.Atoi(strings.TrimPrefix(f, "timing_port="))
			if err != nil {
				return Params{}, fmt.Errorf("transport: bad timing_port: %w", err)
			}
			p.TimingPort = v
		case strings.HasPrefix(f, "server_port="):
			v, err := strconv.Atoi(strings.TrimPrefix(f, "server_port="))
			if err != nil {
				return Params{}, fmt.Errorf("transport: bad server_port: %w", err)
			}
			p.ServerPort = v
		}
	}

	return p, nil
}

// BuildServerResponse formats the header the server echoes back in its
// SETUP response, substituting its own allocated ports (§4.5).
func BuildServerResponse(audioPort, controlPort, timingPort int) string {
	return fmt.Sprintf(
		"RTP/AVP/UDP;unicast;mode=record;server_port=%d;control_port=%d;timing_port=%d",
		audioPort, controlPort, timingPort,
	)
}
