package rtsp

import "strings"

// ServerCodec decodes inbound Requests. One per accepted TCP connection.
type ServerCodec struct {
	Codec
}

// NewServerCodec allocates a ServerCodec.
func NewServerCodec() *ServerCodec {
	return &ServerCodec{Codec: *NewCodec()}
}

// Decode attempts to parse one complete Request from buffered bytes.
// Returns (nil, nil) when more data is needed, (req, nil) on success, or
// (nil, err) on a parse error — callers close the connection on err.
func (c *ServerCodec) Decode() (*Request, error) {
	if c.state == stateStartLine {
		line, rest, found := splitLine(c.buf)
		if !found {
			if len(c.buf) > c.maxHeaderSection {
				return nil, ErrHeaderSectionTooLarge
			}
			return nil, nil
		}
		method, uri, err := parseRequestLine(string(line))
		if err != nil {
			return nil, err
		}
		c.startLine = string(line)
		c.buf = rest
		c.state = stateHeaders

		_ = method
		_ = uri
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

	method, uri, _ := parseRequestLine(c.startLine)
	req := &Request{Method: method, URI: uri, Header: c.headers, Body: body}
	c.resetMessageState()
	return req, nil
}

func parseRequestLine(line string) (method, uri string, err error) {
	parts := strings.Fields(line)
	if len(parts) != 3 {
		return "", "", ErrInvalidRequestLine
	}
	if !strings.HasPrefix(parts[2], "RTSP/") {
		return "", "", ErrInvalidRequestLine
	}
	return parts[0], parts[1], nil
}
