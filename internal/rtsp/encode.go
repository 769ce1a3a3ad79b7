package rtsp

import (
	"fmt"
	"strconv"
	"strings"
)

var statusText = map[int]string{
	200: "OK",
	400: "Bad Request",
	404: "Not Found",
	451: "Parameter Not Understood",
	455: "Method Not Valid in This State",
	470: "Connection Authorization Required",
	500: "Internal Server Error",
	501: "Not Implemented",
}

// StatusText returns the canonical reason phrase for code.
func StatusText(code int) string {
	if t, ok := statusText[code]; ok {
		return t
	}
	return "Unknown"
}

// EncodeResponse serializes resp as `STATUS-LINE CRLF (NAME: VALUE CRLF)*
// CRLF BODY`. If resp.Header has no Content-Length and the body is
// non-empty, one is added automatically.
func EncodeResponse(resp *Response) []byte {
	var b strings.Builder

	reason := resp.Reason
	if reason == "" {
		reason = StatusText(resp.StatusCode)
	}
	fmt.Fprintf(&b, "RTSP/1.0 %d %s\r\n", resp.StatusCode, reason)

	hdr := resp.Header
	if _, ok := hdr.Get("Content-Length"); !ok && len(resp.Body) > 0 {
		hdr.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	for _, line := range hdr.entries() {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	out := []byte(b.String())
	out = append(out, resp.Body...)
	return out
}

// EncodeRequest serializes req as `METHOD URI RTSP/1.0 CRLF ...`.
func EncodeRequest(req *Request) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s RTSP/1.0\r\n", req.Method, req.URI)

	hdr := req.Header
	if _, ok := hdr.Get("Content-Length"); !ok && len(req.Body) > 0 {
		hdr.Set("Content-Length", strconv.Itoa(len(req.Body)))
	}
	for _, line := range hdr.entries() {
		b.WriteString(line)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")

	out := []byte(b.String())
	out = append(out, req.Body...)
	return out
}
