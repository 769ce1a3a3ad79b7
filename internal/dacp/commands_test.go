package dacp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromPath(t *testing.T) {
	require.Equal(t, Play, FromPath("/ctrl-int/1/play"))
	require.Equal(t, PlayPause, FromPath("/ctrl-int/1/playpause"))
	require.Equal(t, NextItem, FromPath("/ctrl-int/1/nextitem"))
	require.Equal(t, CommandUnknown, FromPath("/invalid"))
	require.Equal(t, CommandUnknown, FromPath("/ctrl-int/1/unknown"))
}

func TestCommandPathRoundTrip(t *testing.T) {
	cmds := []Command{
		Play, Pause, PlayPause, PlayResume, Stop, NextItem, PrevItem,
		BeginFastForward, BeginRewind, VolumeUp, VolumeDown, MuteToggle, ShuffleSongs,
	}
	for _, c := range cmds {
		got := FromPath(c.Path())
		require.Equal(t, c, got, "failed to round trip %v", c)
	}
}

func TestPlayResume2SharesPlayResumePath(t *testing.T) {
	require.Equal(t, PlayResume.Path(), PlayResume2.Path())
	require.Equal(t, PlayResume, FromPath(PlayResume2.Path()))
}

func TestInvalidPaths(t *testing.T) {
	require.Equal(t, CommandUnknown, FromPath("/ctrl-int/2/play"))
	require.Equal(t, CommandUnknown, FromPath("/api/1/play"))
	require.Equal(t, CommandUnknown, FromPath("play"))
	require.Equal(t, CommandUnknown, FromPath(""))
	require.Equal(t, CommandUnknown, FromPath("/ctrl-int/1/jump"))
	require.Equal(t, CommandUnknown, FromPath("/ctrl-int/1/"))
}

func TestDescriptionsAreNonEmpty(t *testing.T) {
	cmds := []Command{
		Play, Pause, PlayPause, PlayResume, PlayResume2, Stop, NextItem, PrevItem,
		BeginFastForward, BeginRewind, VolumeUp, VolumeDown, MuteToggle, ShuffleSongs,
	}
	for _, c := range cmds {
		require.NotEmpty(t, c.Description())
	}
}
