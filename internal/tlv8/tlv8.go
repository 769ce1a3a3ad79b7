// Package tlv8 implements HomeKit's length-fragmented type-length-value
// encoding used to frame Pair-Setup/Pair-Verify bodies (§6, §4.1).
package tlv8

const maxFragment = 255

// Item is a single decoded TLV entry (fragments of the same type are
// already reassembled into one Item by Decode).
type Item struct {
	Type  byte
	Value []byte
}

// Encode serializes items, fragmenting any value longer than 255 bytes
// into consecutive TLVs of the same type.
func Encode(items []Item) []byte {
	var out []byte
	for _, it := range items {
		v := it.Value
		if len(v) == 0 {
			out = append(out, it.Type, 0)
			continue
		}
		wroteFull255 := false
		for len(v) > 0 {
			n := len(v)
			if n > maxFragment {
				n = maxFragment
			}
			out = append(out, it.Type, byte(n))
			out = append(out, v[:n]...)
			v = v[n:]
			wroteFull255 = n == maxFragment
		}
		// a value whose length is an exact multiple of 255 needs a trailing
		// zero-length fragment so a same-typed item right after it is not
		// mistaken for a continuation.
		if wroteFull255 {
			out = append(out, it.Type, 0)
		}
	}
	return out
}

// Decode parses a TLV8 byte stream, reassembling fragments: if a fragment's
// length is exactly 255, the following TLV of the same type is considered
// a continuation rather than a new item.
func Decode(data []byte) ([]Item, error) {
	var items []Item
	lastWasFullFragment := false

	i := 0
	for i < len(data) {
		if i+2 > len(data) {
			return nil, ErrTruncated
		}
		typ := data[i]
		length := int(data[i+1])
		i += 2
		if i+length > len(data) {
			return nil, ErrTruncated
		}
		value := data[i : i+length]
		i += length

		if lastWasFullFragment && len(items) > 0 && items[len(items)-1].Type == typ {
			items[len(items)-1].Value = append(items[len(items)-1].Value, value...)
		} else {
			items = append(items, Item{Type: typ, Value: append([]byte(nil), value...)})
		}

		lastWasFullFragment = length == maxFragment
	}

	return items, nil
}

// Get returns the first item of the given type, if present.
func Get(items []Item, typ byte) ([]byte, bool) {
	for _, it := range items {
		if it.Type == typ {
			return it.Value, true
		}
	}
	return nil, false
}

// GetByte returns the first byte of the item of the given type.
func GetByte(items []Item, typ byte) (byte, bool) {
	v, ok := Get(items, typ)
	if !ok || len(v) == 0 {
		return 0, false
	}
	return v[0], true
}
