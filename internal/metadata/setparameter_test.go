package metadata

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVolumeClamped(t *testing.T) {
	u, err := Dispatch("text/parameters", []byte("volume: 10.0"))
	require.NoError(t, err)
	require.NotNil(t, u.VolumeDB)
	require.Equal(t, float64(0), *u.VolumeDB)

	u, err = Dispatch("text/parameters", []byte("volume: -200.0"))
	require.NoError(t, err)
	require.Equal(t, float64(-144), *u.VolumeDB)
}

func TestProgressParsing(t *testing.T) {
	u, err := Dispatch("text/parameters", []byte("progress: 100/200/300"))
	require.NoError(t, err)
	require.NotNil(t, u.Progress)
	require.Equal(t, uint32(100), u.Progress.Start)
	require.Equal(t, uint32(200), u.Progress.Current)
	require.Equal(t, uint32(300), u.Progress.End)
}

func TestDmapTrackMetadata(t *testing.T) {
	u, err := Dispatch("application/x-dmap-tagged", []byte("minm\x00\x00\x00\x05Title"))
	require.NoError(t, err)
	require.Len(t, u.Track, 1)
	require.Equal(t, "minm", u.Track[0].Tag)
}

func TestArtworkJPEGMagicAndDimensions(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0}
	// append an SOF0 segment: marker FFC0, length(2), precision(1), height(2), width(2)
	jpeg = append(jpeg, 0xFF, 0xC0, 0x00, 0x0B, 0x08, 0x00, 0x64, 0x00, 0xC8, 0, 0)
	u, err := Dispatch("image/jpeg", jpeg)
	require.NoError(t, err)
	require.Equal(t, ArtworkJPEG, u.Artwork.Format)
	require.Equal(t, 100, u.Artwork.Height)
	require.Equal(t, 200, u.Artwork.Width)
}

func TestArtworkPNGMagicAndDimensions(t *testing.T) {
	png := make([]byte, 8+8+13)
	copy(png[0:4], []byte{0x89, 0x50, 0x4E, 0x47})
	// width=640, height=480 at ihdrOffset
	ihdr := 16
	png[ihdr+0], png[ihdr+1], png[ihdr+2], png[ihdr+3] = 0, 0, 2, 0x80  // 640
	png[ihdr+4], png[ihdr+5], png[ihdr+6], png[ihdr+7] = 0, 0, 1, 0xE0 // 480

	u, err := Dispatch("image/png", png)
	require.NoError(t, err)
	require.Equal(t, ArtworkPNG, u.Artwork.Format)
	require.Equal(t, 640, u.Artwork.Width)
	require.Equal(t, 480, u.Artwork.Height)
}

func TestUnsupportedContentType(t *testing.T) {
	_, err := Dispatch("application/octet-stream", nil)
	require.Error(t, err)
}
