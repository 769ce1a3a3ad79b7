package dacp

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ServiceConfig is the identity a sender advertises (via mDNS, outside
// this package's scope) so a receiver can locate its DACP control
// server: the DACP-ID and Active-Remote headers sent on the RTSP
// connection, and the Bonjour instance name built from them.
type ServiceConfig struct {
	DACPID       string
	ActiveRemote string
}

// NewServiceConfig generates a fresh identity pair.
func NewServiceConfig() (ServiceConfig, error) {
	id, err := randomHexID(8)
	if err != nil {
		return ServiceConfig{}, err
	}
	remote, err := randomHexID(4)
	if err != nil {
		return ServiceConfig{}, err
	}
	return ServiceConfig{DACPID: id, ActiveRemote: remote}, nil
}

// InstanceName is the Bonjour service instance name iTunes-compatible
// controllers look for.
func (c ServiceConfig) InstanceName() string {
	return fmt.Sprintf("iTunes_Ctrl_%s", c.DACPID)
}

func randomHexID(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
