package rtsp

import (
	"strconv"
	"strings"
)

// ClientCodec decodes inbound Responses. Defaults to a 1 MiB body cap per
// §4.3 ("1 MiB total on the client response codec (configurable)").
type ClientCodec struct {
	Codec
}

// NewClientCodec allocates a ClientCodec.
func NewClientCodec() *ClientCodec {
	c := &ClientCodec{Codec: *NewCodec()}
	c.maxBody = 1024 * 1024
	return c
}

// Decode attempts to parse one complete Response from buffered bytes.
func (c *ClientCodec) Decode() (*Response, error) {
	if c.state == stateStartLine {
		line, rest, found := splitLine(c.buf)
		if !found {
			if len(c.buf) > c.maxHeaderSection {
				return nil, ErrHeaderSectionTooLarge
			}
			return nil, nil
		}
		if _, _, err := parseStatusLine(string(line)); err != nil {
			return nil, err
		}
		c.startLine = string(line)
		c.buf = rest
		c.state = stateHeaders
	}

	if c.state == stateHeaders {
		ok, err := c.tryParseHeaders()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		c.state = stateBody
	}

	body, ok := c.tryConsumeBody()
	if !ok {
		return nil, nil
	}

	code, reason, _ := parseStatusLine(c.startLine)
	resp := &Response{StatusCode: code, Reason: reason, Header: c.headers, Body: body}
	c.resetMessageState()
	return resp, nil
}

func parseStatusLine(line string) (code int, reason string, err error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "RTSP/") {
		return 0, "", ErrInvalidStatusLine
	}
	n, perr := strconv.Atoi(parts[1])
	if perr != nil {
		return 0, "", ErrInvalidStatusLine
	}
	if len(parts) == 3 {
		reason = parts[2]
	}
	return n, reason, nil
}
