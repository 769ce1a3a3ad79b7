package rtsp

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestEncodeDecodeRoundTrip(t *testing.T) {
	req := &Request{Method: "OPTIONS", URI: "*"}
	req.Header.Set("CSeq", "1")
	req.Header.Set("Apple-Challenge", "abcd")

	enc := EncodeRequest(req)

	c := NewServerCodec()
	c.Feed(enc)
	got, err := c.Decode()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "OPTIONS", got.Method)
	require.Equal(t, "*", got.URI)
	cseq, ok := got.Header.Get("CSeq")
	require.True(t, ok)
	require.Equal(t, "1", cseq)
}

func TestResponseEncodeDecodeRoundTrip(t *testing.T) {
	resp := &Response{StatusCode: 200, Body: []byte("volume: -15.000000\r\n")}
	resp.Header.Set("CSeq", "17")
	resp.Header.Set("Content-Type", "text/parameters")

	enc := EncodeResponse(resp)

	c := NewClientCodec()
	c.Feed(enc)
	got, err := c.Decode()
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, 200, got.StatusCode)
	require.Equal(t, resp.Body, got.Body)
}

func TestDecodeReturnsNilNilWhenIncomplete(t *testing.T) {
	c := NewServerCodec()
	c.Feed([]byte("OPTIONS * RTSP/1.0\r\nCSeq: 1\r\n"))
	got, err := c.Decode()
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestDecodeFeedInChunks(t *testing.T) {
	req := &Request{Method: "SETUP", URI: "rtsp://x/y"}
	req.Header.Set("CSeq", "2")
	req.Body = []byte("hello")
	req.Header.Set("Content-Length", "5")
	enc := EncodeRequest(req)

	c := NewServerCodec()
	var got *Request
	for i := 0; i < len(enc); i++ {
		c.Feed(enc[i : i+1])
		var err error
		got, err = c.Decode()
		require.NoError(t, err)
		if got != nil {
			break
		}
	}
	require.NotNil(t, got)
	require.Equal(t, []byte("hello"), got.Body)
}

func TestInvalidRequestLineErrors(t *testing.T) {
	c := NewServerCodec()
	c.Feed([]byte("GARBAGE\r\n\r\n"))
	_, err := c.Decode()
	require.ErrorIs(t, err, ErrInvalidRequestLine)
}

func TestFuzzNeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		n := rng.Intn(1024)
		buf := make([]byte, n)
		rng.Read(buf)

		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("panic on random input: %v", r)
				}
			}()
			c := NewServerCodec()
			c.Feed(buf)
			_, _ = c.Decode()
		}()
	}
}
