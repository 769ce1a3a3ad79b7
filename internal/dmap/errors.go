package dmap

import "errors"

// ErrTruncated is returned when a buffer ends mid-entry.
var ErrTruncated = errors.New("dmap: truncated entry")
