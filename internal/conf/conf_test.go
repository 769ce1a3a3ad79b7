package conf

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverlaysDefaults(t *testing.T) {
	c, err := Load([]byte("pin: \"3939\"\nrtspAddress: \":7100\"\n"))
	require.NoError(t, err)
	require.Equal(t, "3939", c.PIN)
	require.Equal(t, ":7100", c.RTSPAddress)
	require.Equal(t, 8, c.PTPMaxMeasurements)
}

func TestValidateRejectsBadPortRange(t *testing.T) {
	c := Default()
	c.UDPPortMin = 100
	c.UDPPortMax = 50
	require.Error(t, c.Validate())
}
