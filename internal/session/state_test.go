package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMethodLegalityByState(t *testing.T) {
	require.NoError(t, CheckMethod(Init, "OPTIONS"))
	require.NoError(t, CheckMethod(Init, "POST"))
	require.Error(t, CheckMethod(Init, "SETUP"))

	require.NoError(t, CheckMethod(Ready, "SETUP"))
	require.Error(t, CheckMethod(Ready, "RECORD"))

	require.NoError(t, CheckMethod(Setup, "RECORD"))
	require.NoError(t, CheckMethod(Setup, "PLAY"))

	require.NoError(t, CheckMethod(Playing, "PAUSE"))
	require.NoError(t, CheckMethod(Playing, "FLUSH"))
	require.Error(t, CheckMethod(Playing, "SETUP"))

	require.NoError(t, CheckMethod(Paused, "RECORD"))
}

func TestOptionsAndTeardownAlwaysLegal(t *testing.T) {
	for _, s := range []State{Init, Ready, Setup, Playing, Paused, Terminated} {
		require.NoError(t, CheckMethod(s, "OPTIONS"))
		require.NoError(t, CheckMethod(s, "TEARDOWN"))
	}
}

func TestAdvanceOnSuccessOnly(t *testing.T) {
	require.Equal(t, Setup, Advance(Ready, "SETUP"))
	require.Equal(t, Playing, Advance(Setup, "RECORD"))
	require.Equal(t, Playing, Advance(Setup, "PLAY"))
	require.Equal(t, Paused, Advance(Playing, "PAUSE"))
	require.Equal(t, Terminated, Advance(Playing, "TEARDOWN"))
	require.Equal(t, Playing, Advance(Playing, "FLUSH")) // no-op methods don't move state
}

func TestSessionIDIsSixteenHexChars(t *testing.T) {
	id, err := NewSessionID()
	require.NoError(t, err)
	require.Len(t, id, 16)
}
