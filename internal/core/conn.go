package core

import (
	"encoding/base64"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/airtunes2/airplay2/internal/conf"
	"github.com/airtunes2/airplay2/internal/cryptoutil"
	"github.com/airtunes2/airplay2/internal/logger"
	"github.com/airtunes2/airplay2/internal/metadata"
	"github.com/airtunes2/airplay2/internal/pairing"
	"github.com/airtunes2/airplay2/internal/plist"
	"github.com/airtunes2/airplay2/internal/router"
	"github.com/airtunes2/airplay2/internal/rtpcodec"
	"github.com/airtunes2/airplay2/internal/rtsp"
	"github.com/airtunes2/airplay2/internal/sdp"
	"github.com/airtunes2/airplay2/internal/securechannel"
	"github.com/airtunes2/airplay2/internal/session"
	"github.com/airtunes2/airplay2/internal/streamer"
	"github.com/airtunes2/airplay2/internal/transport"
)

// conn handles one accepted RTSP control connection end to end: the
// plaintext-then-encrypted byte stream, the pairing handshakes, and
// every RTSP method/HTTP-style endpoint a session can exercise (§4.4).
type conn struct {
	netConn net.Conn
	log     logger.Writer

	ident     *identity
	conf      *conf.Conf
	sessions  *SessionManager
	peers     *PeerStore
	portAlloc *session.PortAllocator

	codec  *rtsp.ServerCodec
	secure *securechannel.Channel

	recv *session.ReceiverSession

	setupServer  *pairing.SetupServer
	verifyServer *pairing.VerifyServer

	pendingCipher *rtpcodec.Cipher
	audio         *audioChannel

	lastStatus int

	sessID uuid.UUID
}

// newConn builds a handler for a freshly accepted connection.
func newConn(nc net.Conn, log logger.Writer, ident *identity, c *conf.Conf, sessions *SessionManager, peers *PeerStore, portAlloc *session.PortAllocator) (*conn, error) {
	recv, err := session.NewReceiverSession(nc.RemoteAddr())
	if err != nil {
		return nil, err
	}
	return &conn{
		netConn:   nc,
		log:       log,
		ident:     ident,
		conf:      c,
		sessions:  sessions,
		peers:     peers,
		portAlloc: portAlloc,
		codec:     rtsp.NewServerCodec(),
		recv:      recv,
	}, nil
}

// serve runs the connection's read loop until the peer disconnects or a
// parse error forces closure (§7: "parse errors are local, close the
// connection").
func (c *conn) serve() {
	c.sessID = c.sessions.Add(c.recv, c.recv.PeerAddr.String(), func() { c.netConn.Close() })
	defer c.cleanup()

	buf := make([]byte, 4096)
	for {
		var data []byte
		var err error
		if c.secure != nil {
			data, err = c.secure.ReadFrame()
		} else {
			var n int
			n, err = c.netConn.Read(buf)
			if err == nil {
				data = buf[:n]
			}
		}
		if err != nil {
			return
		}
		c.codec.Feed(data)

		for {
			req, derr := c.codec.Decode()
			if derr != nil {
				c.log.Log(logger.Warn, "rtsp parse error from %v: %v", c.recv.PeerAddr, derr)
				return
			}
			if req == nil {
				break
			}
			c.handleRequest(req)
		}
	}
}

func (c *conn) cleanup() {
	if c.audio != nil {
		c.audio.Stop()
	}
	c.sessions.Remove(c.sessID)
	c.netConn.Close()
}

func (c *conn) writeResponse(resp *rtsp.Response) {
	c.lastStatus = resp.StatusCode
	raw := rtsp.EncodeResponse(resp)
	if c.secure == nil {
		_, _ = c.netConn.Write(raw)
		return
	}
	for len(raw) > 0 {
		n := len(raw)
		if n > securechannel.MaxFramePlaintext {
			n = securechannel.MaxFramePlaintext
		}
		if err := c.secure.WriteFrame(raw[:n]); err != nil {
			return
		}
		raw = raw[n:]
	}
}

func (c *conn) respond(req *rtsp.Request, status int, body []byte) {
	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	c.writeResponse(&rtsp.Response{StatusCode: status, Header: hdr, Body: body})
}

func (c *conn) handleRequest(req *rtsp.Request) {
	path := req.URI
	if idx := strings.Index(path, "://"); idx >= 0 {
		if slash := strings.Index(path[idx+3:], "/"); slash >= 0 {
			path = path[idx+3+slash:]
		} else {
			path = "/"
		}
	}

	class := router.Classify(req.Method, path)

	if class.Kind == router.KindEndpoint && router.RequiresAuth(class.Endpoint) && !c.recv.Paired {
		c.respond(req, 470, nil)
		return
	}

	if class.Kind == router.KindRTSP {
		c.handleRTSP(req)
		return
	}

	switch class.Endpoint {
	case router.EndpointInfo:
		c.handleInfo(req)
	case router.EndpointPairSetup:
		c.handlePairSetup(req)
	case router.EndpointPairVerify:
		c.handlePairVerify(req)
	case router.EndpointAuthSetup:
		c.respond(req, 200, nil)
	case router.EndpointFairPlay:
		c.respond(req, 501, nil)
	case router.EndpointCommand, router.EndpointFeedback, router.EndpointAudioMode:
		c.respond(req, 200, nil)
	default:
		c.respond(req, 404, nil)
	}
}

func (c *conn) handleRTSP(req *rtsp.Request) {
	if err := session.CheckMethod(c.recv.State, req.Method); err != nil {
		c.respond(req, 455, nil)
		return
	}

	prevState := c.recv.State
	c.lastStatus = 0

	switch req.Method {
	case "OPTIONS":
		c.handleOptions(req)
	case "ANNOUNCE":
		c.handleAnnounce(req)
	case "SETUP":
		c.handleSetup(req)
	case "RECORD":
		c.handleRecord(req)
	case "PAUSE", "FLUSH":
		c.respond(req, 200, nil)
	case "TEARDOWN":
		if c.audio != nil {
			c.audio.Stop()
			c.audio = nil
		}
		c.respond(req, 200, nil)
	case "GET_PARAMETER":
		c.handleGetParameter(req)
	case "SET_PARAMETER":
		c.handleSetParameter(req)
	default:
		c.respond(req, 501, nil)
	}

	// §4.8: state only advances on a 2xx outcome; failed SETUP/ANNOUNCE
	// etc. must leave the session in its prior state.
	if c.lastStatus >= 200 && c.lastStatus < 300 {
		c.recv.State = session.Advance(prevState, req.Method)
	}
}

// handleOptions answers the Public header every RTSP server must
// advertise and, if present, the legacy Apple-Challenge/Apple-Response
// handshake (§6).
func (c *conn) handleOptions(req *rtsp.Request) {
	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	hdr.Set("Public", "ANNOUNCE, SETUP, RECORD, PAUSE, FLUSH, TEARDOWN, OPTIONS, GET_PARAMETER, SET_PARAMETER, POST, GET")

	if challengeB64, ok := req.Header.Get("Apple-Challenge"); ok {
		challenge, err := base64.StdEncoding.DecodeString(challengeB64)
		if err == nil {
			ip := localIPBytes(c.netConn.LocalAddr())
			devID := deviceIDBytes(c.conf.DeviceID)
			sig, err := cryptoutil.SignAppleChallenge(c.ident.rsaPriv, challenge, ip, devID)
			if err == nil {
				hdr.Set("Apple-Response", base64.StdEncoding.EncodeToString(sig))
			}
		}
	}

	c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr})
}

// localIPBytes extracts the 4-byte IPv4 (or first 4 bytes of an IPv6)
// address a net.Addr carries, for the Apple-Challenge digest.
func localIPBytes(addr net.Addr) []byte {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		host = addr.String()
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return make([]byte, 4)
	}
	if v4 := ip.To4(); v4 != nil {
		return v4
	}
	return ip.To16()[:4]
}

// deviceIDBytes reduces the configured DeviceID string to the 6-byte
// field the legacy Apple-Challenge digest expects (conventionally a MAC
// address; our DeviceID is a UUID prefix, so it's truncated/padded
// instead).
func deviceIDBytes(deviceID string) []byte {
	b := []byte(deviceID)
	out := make([]byte, 6)
	copy(out, b)
	return out
}

func (c *conn) handleAnnounce(req *rtsp.Request) {
	params, err := sdp.Parse(req.Body)
	if err != nil {
		c.respond(req, 400, nil)
		return
	}
	c.recv.Stream = params

	if len(params.RSAAESKey) > 0 {
		key, err := cryptoutil.UnwrapAESKey(c.ident.rsaPriv, params.RSAAESKey)
		if err != nil {
			c.respond(req, 400, nil)
			return
		}
		c.pendingCipher = rtpcodec.NewCBCCipher(key, params.AESIV)
	}

	c.respond(req, 200, nil)
}

func (c *conn) handleSetup(req *rtsp.Request) {
	transportHeader, _ := req.Header.Get("Transport")
	params, err := transport.Parse(transportHeader)
	if err != nil {
		c.respond(req, 400, nil)
		return
	}

	ports, err := c.portAlloc.AllocateTriple()
	if err != nil {
		c.respond(req, 500, nil)
		return
	}
	c.recv.Ports = ports

	audioConn, controlConn, timingConn, err := bindTriple(ports)
	if err != nil {
		c.respond(req, 500, nil)
		return
	}

	cipher := c.pendingCipher
	if cipher == nil && c.verifyServer != nil && c.verifyServer.Phase() == pairing.VerifyComplete {
		if audioKey, kerr := c.verifyServer.AudioKey(); kerr == nil {
			if ch, cerr := rtpcodec.NewChaChaCipher(audioKey); cerr == nil {
				cipher = ch
			}
		}
	}

	ssrc := randomSSRC()
	c.audio = newAudioChannel(c.log, audioConn, controlConn, timingConn, ssrc, cipher)
	if peerIP := peerHost(c.recv.PeerAddr); peerIP != "" && params.ControlPort > 0 && params.TimingPort > 0 {
		c.audio.SetPeers(
			&net.UDPAddr{IP: net.ParseIP(peerIP), Port: params.ControlPort},
			&net.UDPAddr{IP: net.ParseIP(peerIP), Port: params.TimingPort},
		)
	}
	c.audio.Start(
		func(streamer.Frame) {},
		func(n uint64) { c.sessions.AddLoss(c.sessID, n) },
		func(n uint64) { c.sessions.AddRetransmit(c.sessID, n) },
		func(n uint64, last error) { c.log.Log(logger.Warn, "session %s: %d decode errors, last: %v", c.sessID, n, last) },
	)

	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	hdr.Set("Session", c.recv.SessionID)
	hdr.Set("Transport", transport.BuildServerResponse(ports.Audio, ports.Control, ports.Timing))
	c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr})
}

// peerHost extracts the bare IP from a net.Addr's string form.
func peerHost(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func bindTriple(ports session.PortTriple) (audio, control, timing *net.UDPConn, err error) {
	audio, err = net.ListenUDP("udp", &net.UDPAddr{Port: ports.Audio})
	if err != nil {
		return nil, nil, nil, err
	}
	control, err = net.ListenUDP("udp", &net.UDPAddr{Port: ports.Control})
	if err != nil {
		audio.Close()
		return nil, nil, nil, err
	}
	timing, err = net.ListenUDP("udp", &net.UDPAddr{Port: ports.Timing})
	if err != nil {
		audio.Close()
		control.Close()
		return nil, nil, nil, err
	}
	return audio, control, timing, nil
}

func randomSSRC() uint32 {
	id := uuid.New()
	b := id[:4]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func (c *conn) handleRecord(req *rtsp.Request) {
	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	hdr.Set("Audio-Latency", "11025")
	c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr})
}

func (c *conn) handleGetParameter(req *rtsp.Request) {
	contentType, _ := req.Header.Get("Content-Type")
	text := strings.TrimSpace(string(req.Body))
	if contentType == "text/parameters" && text == "volume" {
		body := []byte(fmt.Sprintf("volume: %.6f\r\n", c.recv.VolumeDB))
		var hdr rtsp.Header
		if cseq, ok := req.CSeq(); ok {
			hdr.Set("CSeq", strconv.Itoa(cseq))
		}
		hdr.Set("Content-Type", "text/parameters")
		c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr, Body: body})
		return
	}
	c.respond(req, 451, nil)
}

func (c *conn) handleSetParameter(req *rtsp.Request) {
	contentType, _ := req.Header.Get("Content-Type")
	update, err := metadata.Dispatch(contentType, req.Body)
	if err != nil {
		c.respond(req, 451, nil)
		return
	}
	if update.VolumeDB != nil {
		c.recv.SetVolume(*update.VolumeDB)
	}
	c.respond(req, 200, nil)
}

func (c *conn) handleInfo(req *rtsp.Request) {
	d := plist.NewDict()
	d.Set("deviceid", c.conf.DeviceID)
	d.Set("features", int64(0x1C340405)) // a representative AirPlay 2 feature bitmask
	d.Set("model", "AirPlay2Receiver")
	d.Set("pi", c.conf.DeviceID)
	d.Set("protovers", "1.1")
	d.Set("srcvers", "377.40.00")
	d.Set("statusFlags", int64(4))

	body, err := plist.Marshal(d)
	if err != nil {
		c.respond(req, 500, nil)
		return
	}

	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	hdr.Set("Content-Type", "application/x-apple-binary-plist")
	c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr, Body: body})
}

func (c *conn) handlePairSetup(req *rtsp.Request) {
	if c.setupServer == nil {
		c.setupServer = pairing.NewSetupServer(c.conf.PIN, c.conf.DeviceID, c.ident.ed25519Priv, c.ident.ed25519Pub)
	}

	var out []byte
	var err error

	switch c.setupServer.Phase() {
	case pairing.SetupAwaitingM1:
		out, err = c.setupServer.HandleM1(req.Body)
	case pairing.SetupAwaitingM3:
		out, err = c.setupServer.HandleM3(req.Body)
	case pairing.SetupAwaitingM5:
		var keys pairing.PairingKeys
		out, keys, err = c.setupServer.HandleM5(req.Body)
		if err == nil {
			c.peers.SetLastPeer(keys.PeerIdentifier, keys.PeerPublicKey)
			c.recv.Paired = true
		}
	default:
		c.respond(req, 400, nil)
		return
	}
	if err != nil {
		c.log.Log(logger.Warn, "pair-setup: %v", err)
	}

	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	hdr.Set("Content-Type", "application/octet-stream")
	c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr, Body: out})
}

func (c *conn) handlePairVerify(req *rtsp.Request) {
	if c.verifyServer == nil {
		knownPeer, _ := c.peers.LastPeer()
		c.verifyServer = pairing.NewVerifyServer(c.conf.DeviceID, c.ident.ed25519Priv, c.ident.ed25519Pub, knownPeer)
	}

	var out []byte
	var err error
	var newSecure *securechannel.Channel

	switch c.verifyServer.Phase() {
	case pairing.VerifyAwaitingM1:
		out, err = c.verifyServer.HandleM1(req.Body)
	case pairing.VerifyAwaitingM3:
		var keys pairing.SessionKeys
		out, keys, err = c.verifyServer.HandleM3(req.Body)
		if err == nil {
			newSecure, _ = securechannel.NewChannel(c.netConn, c.netConn, keys.ReadKey[:], keys.WriteKey[:])
		}
	default:
		c.respond(req, 400, nil)
		return
	}
	if err != nil {
		c.log.Log(logger.Warn, "pair-verify: %v", err)
	}

	var hdr rtsp.Header
	if cseq, ok := req.CSeq(); ok {
		hdr.Set("CSeq", strconv.Itoa(cseq))
	}
	hdr.Set("Content-Type", "application/octet-stream")
	// M4 is sent in the clear; only traffic after it runs through the
	// secure channel, so the switch happens after this write.
	c.writeResponse(&rtsp.Response{StatusCode: 200, Header: hdr, Body: out})
	if newSecure != nil {
		c.secure = newSecure
	}
}
