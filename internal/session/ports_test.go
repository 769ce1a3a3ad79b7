package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPortAllocatorReturnsDistinctPorts(t *testing.T) {
	a := NewPortAllocator(34000, 34100)
	triple, err := a.AllocateTriple()
	require.NoError(t, err)

	require.NotEqual(t, triple.Audio, triple.Control)
	require.NotEqual(t, triple.Control, triple.Timing)
	require.NotEqual(t, triple.Audio, triple.Timing)

	require.GreaterOrEqual(t, triple.Audio, 34000)
	require.LessOrEqual(t, triple.Audio, 34100)
}
