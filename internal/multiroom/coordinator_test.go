package multiroom

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/airtunes2/airplay2/internal/ptp"
)

func TestLeaderAlwaysNoAction(t *testing.T) {
	c := NewCoordinator()
	c.JoinAsLeader("group-1")
	action := c.CheckDrift(ptp.Timestamp(1_000_000_000))
	require.Equal(t, NoAction{}, action)
}

func TestFollowerWithinToleranceNoAction(t *testing.T) {
	c := NewCoordinator()
	c.JoinAsFollower("group-1", 42, ptp.Timestamp(1_000_000_000))
	action := c.CheckDrift(ptp.Timestamp(1_000_000_000 + 500_000)) // 0.5ms off
	require.Equal(t, NoAction{}, action)
}

func TestFollowerModerateDriftAdjustsRate(t *testing.T) {
	c := NewCoordinator()
	c.JoinAsFollower("group-1", 42, ptp.Timestamp(1_000_000_000))
	// local is 5ms ahead of target
	action := c.CheckDrift(ptp.Timestamp(1_000_000_000 + 5_000_000))
	adj, ok := action.(AdjustRate)
	require.True(t, ok)
	require.Less(t, adj.RatePPM, int32(0)) // ahead -> slow down -> negative
}

func TestFollowerLargeDriftForcesResync(t *testing.T) {
	c := NewCoordinator()
	target := ptp.Timestamp(1_000_000_000)
	c.JoinAsFollower("group-1", 42, target)
	action := c.CheckDrift(ptp.Timestamp(1_000_000_000 + 50_000_000)) // 50ms off
	resync, ok := action.(StartAt)
	require.True(t, ok)
	require.Equal(t, target, resync.Target)
}

func TestRatePPMClamped(t *testing.T) {
	c := NewCoordinator()
	c.JoinAsFollower("group-1", 42, ptp.Timestamp(0))
	action := c.CheckDrift(ptp.Timestamp(9_000_000)) // 9ms ahead, within moderate band
	adj, ok := action.(AdjustRate)
	require.True(t, ok)
	require.GreaterOrEqual(t, adj.RatePPM, int32(-500))
	require.LessOrEqual(t, adj.RatePPM, int32(500))
}
