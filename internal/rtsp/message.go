// Package rtsp implements a sans-IO RTSP/1.0 codec (§4.3): callers feed
// raw bytes in, and pull out complete Requests or Responses once enough
// data has arrived. No socket I/O happens in this package.
package rtsp

import (
	"fmt"
	"strconv"
	"strings"
)

// Header is a case-insensitively keyed, order-preserving header set.
type Header struct {
	names  []string
	values []string
}

// Set adds or replaces a header.
func (h *Header) Set(name, value string) {
	lname := strings.ToLower(name)
	for i, n := range h.names {
		if strings.ToLower(n) == lname {
			h.values[i] = value
			return
		}
	}
	h.names = append(h.names, name)
	h.values = append(h.values, value)
}

// Get performs a case-insensitive lookup.
func (h *Header) Get(name string) (string, bool) {
	lname := strings.ToLower(name)
	for i, n := range h.names {
		if strings.ToLower(n) == lname {
			return h.values[i], true
		}
	}
	return "", false
}

// GetInt parses the header value as an integer.
func (h *Header) GetInt(name string) (int, bool) {
	v, ok := h.Get(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func (h *Header) entries() []string {
	out := make([]string, len(h.names))
	for i := range h.names {
		out[i] = fmt.Sprintf("%s: %s", h.names[i], h.values[i])
	}
	return out
}

// Request is a parsed RTSP request.
type Request struct {
	Method  string
	URI     string
	Header  Header
	Body    []byte
}

// Response is a parsed RTSP response.
type Response struct {
	StatusCode int
	Reason     string
	Header     Header
	Body       []byte
}

// CSeq is a convenience accessor used by the session state machine (§5:
// "the CSeq in responses matches the request's").
func (r *Request) CSeq() (int, bool) { return r.Header.GetInt("CSeq") }

// CSeq mirrors Request.CSeq for responses.
func (r *Response) CSeq() (int, bool) { return r.Header.GetInt("CSeq") }
