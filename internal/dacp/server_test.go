package dacp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type testHandler struct {
	token      string
	playCalled bool
}

func (h *testHandler) HandleCommand(cmd Command) Result {
	if cmd == Play {
		h.playCalled = true
		return ResultSuccess
	}
	return ResultNotSupported
}

func (h *testHandler) VerifyToken(token string) bool {
	return token == h.token
}

func TestProcessRequestSuccess(t *testing.T) {
	h := &testHandler{token: "12345"}
	s := NewServer(h, "12345", 3689)

	resp := s.ProcessRequest("GET", "/ctrl-int/1/play", "12345")
	require.Equal(t, 204, resp.Status)
	require.True(t, h.playCalled)
}

func TestProcessRequestBadToken(t *testing.T) {
	h := &testHandler{token: "12345"}
	s := NewServer(h, "12345", 3689)

	resp := s.ProcessRequest("GET", "/ctrl-int/1/play", "wrong")
	require.Equal(t, 403, resp.Status)
}

func TestProcessRequestUnknownCommand(t *testing.T) {
	h := &testHandler{token: "12345"}
	s := NewServer(h, "12345", 3689)

	resp := s.ProcessRequest("GET", "/ctrl-int/1/unknown", "12345")
	require.Equal(t, 404, resp.Status)
}

func TestServiceConfig(t *testing.T) {
	cfg, err := NewServiceConfig()
	require.NoError(t, err)
	require.NotEmpty(t, cfg.DACPID)
	require.NotEmpty(t, cfg.ActiveRemote)
	require.True(t, len(cfg.InstanceName()) > len("iTunes_Ctrl_"))
	require.Equal(t, "iTunes_Ctrl_"+cfg.DACPID, cfg.InstanceName())
}
