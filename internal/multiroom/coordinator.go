// Package multiroom implements the group-synchronization coordinator
// that keeps AirPlay 2 multi-room followers aligned to a leader's
// playback clock (§4.12).
package multiroom

import "github.com/airtunes2/airplay2/internal/ptp"

// Role is a receiver's position within a sync group.
type Role int

// Roles.
const (
	RoleNone Role = iota
	RoleLeader
	RoleFollower
)

// Action is the correction a Follower must apply after a drift check.
type Action interface{ isAction() }

// NoAction means drift is within tolerance; nothing to do.
type NoAction struct{}

func (NoAction) isAction() {}

// AdjustRate asks the audio pipeline to nudge its playback rate.
type AdjustRate struct {
	RatePPM int32
}

func (AdjustRate) isAction() {}

// StartAt forces a hard resync to the given target time.
type StartAt struct {
	Target ptp.Timestamp
}

func (StartAt) isAction() {}

const (
	driftNoActionNs  = 1_000_000  // 1ms
	driftHardResyncNs = 10_000_000 // 10ms
)

// Coordinator holds one receiver's group membership and drift state.
type Coordinator struct {
	GroupUUID        string
	Role             Role
	LeaderClockID    uint64
	TargetPlaybackTime ptp.Timestamp
}

// NewCoordinator builds an unaffiliated (Role=None) coordinator.
func NewCoordinator() *Coordinator {
	return &Coordinator{Role: RoleNone}
}

// JoinAsLeader affiliates this receiver as the group's timing leader.
func (c *Coordinator) JoinAsLeader(groupUUID string) {
	c.GroupUUID = groupUUID
	c.Role = RoleLeader
}

// JoinAsFollower affiliates this receiver as a follower of leaderClockID,
// with target as the playback time it must converge to.
func (c *Coordinator) JoinAsFollower(groupUUID string, leaderClockID uint64, target ptp.Timestamp) {
	c.GroupUUID = groupUUID
	c.Role = RoleFollower
	c.LeaderClockID = leaderClockID
	c.TargetPlaybackTime = target
}

// CheckDrift compares localNowInRemoteTime (the current local PTP
// instant, already converted to the leader's clock domain) against the
// target and returns the correction to apply, per §4.12's thresholds.
// Leaders always return NoAction.
func (c *Coordinator) CheckDrift(localNowInRemoteTime ptp.Timestamp) Action {
	if c.Role != RoleFollower {
		return NoAction{}
	}

	drift := int64(c.TargetPlaybackTime) - int64(localNowInRemoteTime)
	absDrift := drift
	if absDrift < 0 {
		absDrift = -absDrift
	}

	switch {
	case absDrift < driftNoActionNs:
		return NoAction{}
	case absDrift < driftHardResyncNs:
		// drift = target - local: negative when local is ahead of target,
		// so a negative rate_ppm (slow down) falls out of the formula
		// directly with no extra sign flip.
		driftUs := drift / 1000
		ratePPM := clamp(driftUs/10, -500, 500)
		return AdjustRate{RatePPM: int32(ratePPM)}
	default:
		return StartAt{Target: c.TargetPlaybackTime}
	}
}

func clamp(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
