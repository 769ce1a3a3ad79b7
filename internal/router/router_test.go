package router

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyRTSPMethods(t *testing.T) {
	for _, m := range []string{"OPTIONS", "SETUP", "RECORD", "PAUSE", "FLUSH",
		"TEARDOWN", "GET_PARAMETER", "SET_PARAMETER", "ANNOUNCE"} {
		c := Classify(m, "rtsp://anything/")
		require.Equal(t, KindRTSP, c.Kind)
		require.Equal(t, m, c.Method)
	}
}

func TestClassifyEndpoints(t *testing.T) {
	cases := []struct {
		method, path string
		want         Endpoint
	}{
		{"GET", "/info", EndpointInfo},
		{"POST", "/pair-setup", EndpointPairSetup},
		{"POST", "/pair-verify", EndpointPairVerify},
		{"POST", "/fp-setup", EndpointFairPlay},
		{"POST", "/auth-setup", EndpointAuthSetup},
		{"POST", "/command", EndpointCommand},
		{"POST", "/feedback", EndpointFeedback},
		{"POST", "/audioMode", EndpointAudioMode},
	}
	for _, tc := range cases {
		c := Classify(tc.method, tc.path)
		require.Equal(t, KindEndpoint, c.Kind)
		require.Equal(t, tc.want, c.Endpoint)
	}
}

func TestClassifyUnknownPath(t *testing.T) {
	c := Classify("POST", "/something-else")
	require.Equal(t, KindEndpoint, c.Kind)
	require.Equal(t, EndpointUnknown, c.Endpoint)
}

func TestClassifyTrimsTrailingSlash(t *testing.T) {
	c := Classify("GET", "/info/")
	require.Equal(t, EndpointInfo, c.Endpoint)
}

func TestRequiresAuth(t *testing.T) {
	require.True(t, RequiresAuth(EndpointCommand))
	require.True(t, RequiresAuth(EndpointFeedback))
	require.True(t, RequiresAuth(EndpointAudioMode))
	require.False(t, RequiresAuth(EndpointInfo))
	require.False(t, RequiresAuth(EndpointPairSetup))
	require.False(t, RequiresAuth(EndpointFairPlay))
}
