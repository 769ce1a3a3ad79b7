package pairing

import "fmt"

// DeviceError wraps a peer-reported TagError code (§7 "Authentication").
type DeviceError struct {
	Code byte
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("pairing: device error code %d", e.Code)
}

// InvalidStateError is returned when a message arrives for the wrong
// M-number (§4.1: "inputs for the wrong M-number fail with InvalidState").
type InvalidStateError struct {
	Expected, Got int
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("pairing: expected state M%d, got M%d", e.Expected, e.Got)
}

// AuthFailure covers signature/proof mismatches (§7 "Authentication").
type AuthFailure struct {
	Reason string
}

func (e AuthFailure) Error() string {
	return "pairing: authentication failed: " + e.Reason
}
