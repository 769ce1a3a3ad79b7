package rtsp

import "errors"

// Parse errors, returned by Codec.Decode. The caller decides whether to
// close the connection (§7: Parse errors are local).
var (
	ErrInvalidRequestLine  = errors.New("rtsp: invalid request line")
	ErrInvalidStatusLine   = errors.New("rtsp: invalid status line")
	ErrInvalidHeader       = errors.New("rtsp: invalid header line")
	ErrInvalidContentLength = errors.New("rtsp: invalid Content-Length")
	ErrHeaderSectionTooLarge = errors.New("rtsp: header section exceeds limit")
	ErrBodyTooLarge        = errors.New("rtsp: body exceeds limit")
)
