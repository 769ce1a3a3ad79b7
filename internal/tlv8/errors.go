package tlv8

import "errors"

// ErrTruncated is returned when the input ends mid-TLV.
var ErrTruncated = errors.New("tlv8: truncated input")
