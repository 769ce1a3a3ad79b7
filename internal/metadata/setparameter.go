// Package metadata routes SET_PARAMETER request bodies by Content-Type
// (§4.11): volume, playback progress, DMAP track metadata, and artwork.
package metadata

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/airtunes2/airplay2/internal/dmap"
)

// ArtworkFormat identifies the image format inferred from magic bytes.
type ArtworkFormat int

// Formats.
const (
	ArtworkUnknown ArtworkFormat = iota
	ArtworkJPEG
	ArtworkPNG
)

// Progress is the three RTP-timestamp sample counts from a "progress"
// text/parameters body.
type Progress struct {
	Start, Current, End uint32
}

// Artwork is a sniffed artwork payload.
type Artwork struct {
	Format        ArtworkFormat
	Width, Height int
	Data          []byte
}

// Update is the decoded result of one SET_PARAMETER body, with exactly
// one field populated depending on Content-Type.
type Update struct {
	VolumeDB *float64
	Progress *Progress
	Track    []dmap.Item
	Artwork  *Artwork
}

// Dispatch parses body according to contentType (§4.11).
func Dispatch(contentType string, body []byte) (Update, error) {
	switch {
	case strings.HasPrefix(contentType, "text/parameters"):
		return dispatchTextParameters(body)
	case contentType == "application/x-dmap-tagged":
		items, err := dmap.Decode(body)
		if err != nil {
			return Update{}, err
		}
		return Update{Track: items}, nil
	case contentType == "image/jpeg" || contentType == "image/png":
		return Update{Artwork: sniffArtwork(body)}, nil
	default:
		return Update{}, fmt.Errorf("metadata: unsupported content-type %q", contentType)
	}
}

func dispatchTextParameters(body []byte) (Update, error) {
	text := strings.TrimSpace(string(body))
	key, value, ok := strings.Cut(text, ":")
	if !ok {
		return Update{}, fmt.Errorf("metadata: malformed text/parameters body")
	}
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	switch key {
	case "volume":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Update{}, err
		}
		if v < -144 {
			v = -144
		}
		if v > 0 {
			v = 0
		}
		return Update{VolumeDB: &v}, nil
	case "progress":
		fields := strings.Split(value, "/")
		if len(fields) != 3 {
			return Update{}, fmt.Errorf("metadata: progress needs 3 fields")
		}
		start, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return Update{}, err
		}
		cur, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Update{}, err
		}
		end, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Update{}, err
		}
		return Update{Progress: &Progress{Start: uint32(start), Current: uint32(cur), End: uint32(end)}}, nil
	default:
		return Update{}, fmt.Errorf("metadata: unknown text/parameters key %q", key)
	}
}

func sniffArtwork(data []byte) *Artwork {
	if len(data) >= 4 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF && data[3] == 0xE0 {
		w, h := sniffJPEGDimensions(data)
		return &Artwork{Format: ArtworkJPEG, Width: w, Height: h, Data: data}
	}
	if len(data) >= 4 && data[0] == 0x89 && data[1] == 0x50 && data[2] == 0x4E && data[3] == 0x47 {
		w, h := sniffPNGDimensions(data)
		return &Artwork{Format: ArtworkPNG, Width: w, Height: h, Data: data}
	}
	return &Artwork{Format: ArtworkUnknown, Data: data}
}

// sniffJPEGDimensions scans for the SOF0 marker (0xFFC0) and reads the
// following height then width (§4.11).
func sniffJPEGDimensions(data []byte) (width, height int) {
	i := 2 // skip SOI
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xC0 {
			if i+9 > len(data) {
				return 0, 0
			}
			height = int(data[i+5])<<8 | int(data[i+6])
			width = int(data[i+7])<<8 | int(data[i+8])
			return width, height
		}
		if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if i+4 > len(data) {
			return 0, 0
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		i += 2 + segLen
	}
	return 0, 0
}

// sniffPNGDimensions reads the 13-byte IHDR payload after the 8-byte
// signature (§4.11).
func sniffPNGDimensions(data []byte) (width, height int) {
	const ihdrOffset = 8 + 8 // signature + chunk length/type
	if len(data) < ihdrOffset+8 {
		return 0, 0
	}
	width = int(data[ihdrOffset])<<24 | int(data[ihdrOffset+1])<<16 | int(data[ihdrOffset+2])<<8 | int(data[ihdrOffset+3])
	height = int(data[ihdrOffset+4])<<24 | int(data[ihdrOffset+5])<<16 | int(data[ihdrOffset+6])<<8 | int(data[ihdrOffset+7])
	return width, height
}
