package api

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/session"
)

func TestSessionInfoFromReceiver(t *testing.T) {
	s, err := session.NewReceiverSession(nil)
	require.NoError(t, err)
	s.VolumeDB = -20
	s.Paired = true

	id := uuid.New()
	info := SessionInfoFromReceiver(id, time.Now(), "10.0.0.5:1234", s)
	require.Equal(t, id, info.ID)
	require.Equal(t, "10.0.0.5:1234", info.RemoteAddr)
	require.Equal(t, float64(-20), info.VolumeDB)
	require.True(t, info.Paired)
	require.Equal(t, "Init", info.State)
}
