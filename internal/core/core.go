// Package core ties every protocol layer into one running receiver: RTSP
// control connections, the PTP clock node, multi-room coordination, the
// DACP remote-control surface, and the optional status API, all wired
// from a single loaded Conf.
package core

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/alecthomas/kong"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/airtunes2/airplay2/internal/api"
	"github.com/airtunes2/airplay2/internal/conf"
	"github.com/airtunes2/airplay2/internal/confenv"
	"github.com/airtunes2/airplay2/internal/confwatcher"
	"github.com/airtunes2/airplay2/internal/dacp"
	"github.com/airtunes2/airplay2/internal/externalcmd"
	"github.com/airtunes2/airplay2/internal/logger"
	"github.com/airtunes2/airplay2/internal/metrics"
	"github.com/airtunes2/airplay2/internal/multiroom"
	"github.com/airtunes2/airplay2/internal/ptp"
	"github.com/airtunes2/airplay2/internal/rlimit"
	"github.com/airtunes2/airplay2/internal/session"
	"github.com/airtunes2/airplay2/internal/wsevents"
)

var version = "v0.0.0"

var defaultConfPaths = []string{
	"airplay2.yml",
	"/usr/local/etc/airplay2.yml",
	"/etc/airplay2/airplay2.yml",
}

const apiReadTimeout = 10 * time.Second

// maxPacketSizeEstimate is a rough Ethernet-MTU-sized RTP audio packet,
// used only to size the startup retransmit-buffer log line.
const maxPacketSizeEstimate = 1500

var cli struct {
	Version  bool   `help:"print version"`
	Confpath string `arg:"" default:""`
}

// Core is one running receiver instance, owning every long-lived
// resource and the RTSP accept loop.
type Core struct {
	confPath string
	conf     *conf.Conf
	logger   *logger.Logger

	externalCmdPool *externalcmd.Pool
	hooks           externalcmd.Hooks
	ident           *identity

	sessions  *SessionManager
	peers     *PeerStore
	portAlloc *session.PortAllocator
	events    *wsevents.Hub

	rtspListener net.Listener

	ptpClock       *ptp.Clock
	ptpNode        *ptp.Node
	ptpEventConn   net.PacketConn
	ptpGeneralConn net.PacketConn
	ptpStop        chan struct{}

	coordinator *multiroom.Coordinator

	dacpService dacp.ServiceConfig
	dacpServer  *dacp.Server
	dacpHTTP    *http.Server

	api     *api.API
	metrics *metrics.Metrics

	confWatcher *confwatcher.ConfWatcher

	stop chan struct{}
	done chan struct{}
}

// New parses args, loads configuration, and starts a Core. ok is false
// if startup failed; the caller should exit non-zero.
func New(args []string) (*Core, bool) {
	parser, err := kong.New(&cli,
		kong.Description("airplay2 "+version),
		kong.UsageOnError(),
		kong.ValueFormatter(func(value *kong.Value) string {
			if value.Name == "confpath" {
				return "path to a config file. The default is airplay2.yml."
			}
			return kong.DefaultHelpValueFormatter(value)
		}))
	if err != nil {
		panic(err)
	}

	_, err = parser.Parse(args)
	parser.FatalIfErrorf(err)

	if cli.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	p := &Core{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	loadedConf, confPath, err := loadConf(cli.Confpath, defaultConfPaths)
	if err != nil {
		fmt.Printf("ERR: %s\n", err)
		return nil, false
	}
	p.conf = &loadedConf
	p.confPath = confPath

	if err := p.createResources(true); err != nil {
		if p.logger != nil {
			p.Log(logger.Error, "%s", err)
		} else {
			fmt.Printf("ERR: %s\n", err)
		}
		p.closeResources()
		return nil, false
	}

	go p.run()

	return p, true
}

// loadConf reads confPath, or the first readable entry of defaultPaths
// if confPath is empty, and parses it. A missing file at every default
// path is not an error: the receiver starts with Conf's defaults.
func loadConf(confPath string, defaultPaths []string) (conf.Conf, string, error) {
	var c conf.Conf
	var path string
	var err error

	switch {
	case confPath != "":
		var b []byte
		b, err = os.ReadFile(confPath)
		if err != nil {
			return conf.Conf{}, "", err
		}
		c, err = conf.Load(b)
		path = confPath

	default:
		found := false
		for _, p := range defaultPaths {
			var b []byte
			b, rerr := os.ReadFile(p)
			if rerr != nil {
				continue
			}
			c, err = conf.Load(b)
			path = p
			found = true
			break
		}
		if !found {
			c, err = conf.Load(nil)
		}
	}
	if err != nil {
		return conf.Conf{}, "", err
	}

	if envErr := confenv.Load("AIRPLAY2", &c); envErr != nil {
		return conf.Conf{}, "", envErr
	}

	return c, path, nil
}

// Close stops the Core and waits for it to fully shut down.
func (p *Core) Close() {
	close(p.stop)
	<-p.done
}

// Wait blocks until the Core exits on its own (signal or fatal error).
func (p *Core) Wait() {
	<-p.done
}

// Log implements logger.Writer.
func (p *Core) Log(level logger.Level, format string, args ...interface{}) {
	p.logger.Log(level, format, args...)
}

func (p *Core) run() {
	defer close(p.done)

	confChanged := func() chan struct{} {
		if p.confWatcher != nil {
			return p.confWatcher.Watch()
		}
		return make(chan struct{})
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

outer:
	for {
		select {
		case <-confChanged:
			p.Log(logger.Info, "reloading configuration (file changed)")

			newConf, _, err := loadConf(p.confPath, nil)
			if err != nil {
				p.Log(logger.Error, "%s", err)
				break outer
			}

			p.closeResources()
			p.conf = &newConf
			if err := p.createResources(false); err != nil {
				p.Log(logger.Error, "%s", err)
				break outer
			}

		case <-interrupt:
			p.Log(logger.Info, "shutting down gracefully")
			break outer

		case <-p.stop:
			break outer
		}
	}

	p.closeResources()
}

func (p *Core) createResources(initial bool) error {
	if p.logger == nil {
		destinations, err := p.conf.LogDestinations.ToDestinations()
		if err != nil {
			return err
		}
		l, err := logger.New(logger.Level(p.conf.LogLevel), destinations, p.conf.LogFile)
		if err != nil {
			return err
		}
		p.logger = l
	}

	if initial {
		p.Log(logger.Info, "airplay2 %s", version)

		if p.confPath != "" {
			a, _ := filepath.Abs(p.confPath)
			p.Log(logger.Info, "configuration loaded from %s", a)
		} else {
			p.Log(logger.Warn, "configuration file not found, using defaults")
		}

		if rerr := rlimit.Raise(); rerr != nil {
			p.Log(logger.Warn, "could not raise file descriptor limit: %s", rerr)
		}

		p.Log(logger.Info, "retransmit buffer: %d packets/session, ~%s/session at MTU-sized packets",
			p.conf.RetransmitCapacity,
			bytefmt.ByteSize(uint64(p.conf.RetransmitCapacity)*maxPacketSizeEstimate))

		gin.SetMode(gin.ReleaseMode)

		p.externalCmdPool = &externalcmd.Pool{}
		p.externalCmdPool.Initialize()

		ident, err := loadIdentity(p.conf.DeviceEd25519Seed, p.conf.DeviceRSAKeyPath)
		if err != nil {
			return err
		}
		p.ident = ident

		p.events = wsevents.NewHub()
		p.sessions = NewSessionManager(p.events)
		p.peers = NewPeerStore()
		p.portAlloc = session.NewPortAllocator(p.conf.UDPPortMin, p.conf.UDPPortMax)
		p.coordinator = multiroom.NewCoordinator()
	}

	p.hooks = externalcmd.Hooks{
		OnConnect:  p.conf.OnConnectHook,
		OnRecord:   p.conf.OnRecordHook,
		OnTeardown: p.conf.OnTeardownHook,
		OnResync:   p.conf.OnResyncHook,
	}

	if p.rtspListener == nil {
		ln, err := net.Listen("tcp", p.conf.RTSPAddress)
		if err != nil {
			return err
		}
		p.rtspListener = ln
		go p.acceptLoop(ln)
		p.Log(logger.Info, "RTSP listener opened on %s", p.conf.RTSPAddress)
	}

	if p.ptpNode == nil {
		if err := p.startPTP(); err != nil {
			return err
		}
	}

	if p.dacpServer == nil {
		if err := p.startDACP(); err != nil {
			return err
		}
	}

	if p.conf.APIAddress != "" && p.api == nil {
		i := &api.API{
			Address:     p.conf.APIAddress,
			AllowOrigin: "*",
			ReadTimeout: apiReadTimeout,
			Sessions:    p.sessions,
			Groups:      &groupStore{coordinator: p.coordinator},
			Events:      p.events,
			Parent:      p,
		}
		if err := i.Initialize(); err != nil {
			return err
		}
		p.api = i
	}

	if p.conf.MetricsAddress != "" && p.metrics == nil {
		mt := &metrics.Metrics{
			Address:     p.conf.MetricsAddress,
			AllowOrigin: "*",
			Sessions:    p.sessions,
			Clock:       p.ptpClock,
			Groups:      &groupStore{coordinator: p.coordinator},
			Parent:      p,
		}
		if err := mt.Initialize(); err != nil {
			return err
		}
		p.metrics = mt
	}

	if initial && p.confPath != "" {
		w, err := confwatcher.New(p.confPath)
		if err != nil {
			return err
		}
		p.confWatcher = w
	}

	return nil
}

func (p *Core) closeResources() {
	if p.api != nil {
		p.api.Close()
		p.api = nil
	}

	if p.metrics != nil {
		p.metrics.Close()
		p.metrics = nil
	}

	if p.dacpHTTP != nil {
		p.dacpHTTP.Close() //nolint:errcheck
		p.dacpHTTP = nil
		p.dacpServer = nil
	}

	if p.ptpNode != nil {
		close(p.ptpStop)
		if p.ptpEventConn != nil {
			p.ptpEventConn.Close()
			p.ptpEventConn = nil
		}
		if p.ptpGeneralConn != nil {
			p.ptpGeneralConn.Close()
			p.ptpGeneralConn = nil
		}
		p.ptpNode = nil
		p.ptpClock = nil
	}

	if p.rtspListener != nil {
		p.rtspListener.Close()
		p.rtspListener = nil
	}

	if p.confWatcher != nil {
		p.confWatcher.Close()
		p.confWatcher = nil
	}

	if p.externalCmdPool != nil {
		p.Log(logger.Info, "waiting for running hooks")
		p.externalCmdPool.Close()
		p.externalCmdPool = nil
	}

	if p.logger != nil {
		p.logger.Close()
		p.logger = nil
	}
}

// startPTP builds the Clock/Node pair and binds the PTP event (and, if
// configured, general) UDP sockets, then launches the Node's own
// read/timer loop (§4.6).
func (p *Core) startPTP() error {
	eventConn, err := net.ListenUDP("udp", &net.UDPAddr{Port: p.conf.PTPEventPort})
	if err != nil {
		return err
	}

	var generalConn net.PacketConn
	if p.conf.PTPGeneralPort != 0 {
		generalConn, err = net.ListenUDP("udp", &net.UDPAddr{Port: p.conf.PTPGeneralPort})
		if err != nil {
			eventConn.Close()
			return err
		}
	}

	clock := ptp.NewClock(ptp.Config{
		MaxMeasurements:     p.conf.PTPMaxMeasurements,
		MaxRTT:              time.Duration(p.conf.PTPMaxRTTMillis * float64(time.Millisecond)),
		MinSyncMeasurements: p.conf.PTPMinSyncReadings,
	})

	cfg := ptp.DefaultNodeConfig(deviceClockID(p.conf.DeviceID))
	cfg.AnnounceTimeout = time.Duration(p.conf.PTPAnnounceTimeout)

	node := ptp.NewNode(cfg, clock, eventConn, generalConn)

	p.ptpClock = clock
	p.ptpNode = node
	p.ptpEventConn = eventConn
	p.ptpGeneralConn = generalConn
	p.ptpStop = make(chan struct{})

	go func() {
		if err := node.Run(p.ptpStop); err != nil {
			p.Log(logger.Warn, "PTP node exited: %s", err)
		}
	}()

	p.Log(logger.Info, "PTP node listening on event port %d", p.conf.PTPEventPort)
	return nil
}

// startDACP hosts this receiver's ctrl-int surface (§3 "DACP"): a
// freshly generated DACP-ID/Active-Remote identity, served over HTTP via
// gin for consistency with the status API.
func (p *Core) startDACP() error {
	service, err := dacp.NewServiceConfig()
	if err != nil {
		return err
	}
	p.dacpService = service

	ln, err := net.Listen("tcp", ":0")
	if err != nil {
		return err
	}
	port := ln.Addr().(*net.TCPAddr).Port

	handler := &dacpHandler{core: p, token: service.ActiveRemote}
	server := dacp.NewServer(handler, service.ActiveRemote, port)
	p.dacpServer = server

	router := gin.New()
	router.NoRoute(func(ctx *gin.Context) {
		resp := server.ProcessRequest(ctx.Request.Method, ctx.Request.URL.Path, ctx.GetHeader("Active-Remote"))
		ctx.Status(resp.Status)
	})

	p.dacpHTTP = &http.Server{Handler: router}
	go p.dacpHTTP.Serve(ln) //nolint:errcheck

	p.Log(logger.Info, "DACP ctrl-int listening on %s (instance %s)", ln.Addr().String(), service.InstanceName())
	return nil
}

func (p *Core) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			return
		}

		c, err := newConn(nc, p, p.ident, p.conf, p.sessions, p.peers, p.portAlloc)
		if err != nil {
			nc.Close()
			continue
		}

		p.hooks.Fire(p.externalCmdPool, "on-connect", externalcmd.Environment{
			"PEER_ADDR": nc.RemoteAddr().String(),
		}, nil)

		go c.serve()
	}
}

func deviceClockID(deviceID string) uint64 {
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(deviceID))
	return binary.BigEndian.Uint64(id[:8])
}

// groupStore adapts a single multiroom.Coordinator (this receiver never
// belongs to more than one group at a time) to api.GroupStore and
// metrics.GroupStore.
type groupStore struct {
	coordinator *multiroom.Coordinator
}

// MetricsGroupRole implements metrics.GroupStore.
func (g *groupStore) MetricsGroupRole() string {
	switch g.coordinator.Role {
	case multiroom.RoleLeader:
		return "leader"
	case multiroom.RoleFollower:
		return "follower"
	default:
		return "none"
	}
}

func (g *groupStore) APIGroupsList() []*api.GroupInfo {
	if g.coordinator.Role == multiroom.RoleNone {
		return nil
	}
	return []*api.GroupInfo{api.GroupInfoFromCoordinator(g.coordinator)}
}

// dacpHandler adapts Core to dacp.Handler: it verifies the Active-Remote
// token this receiver itself generated and logs recognized commands.
// There is no local transport state to drive since this receiver only
// ever renders audio it is sent (§3 "DACP").
type dacpHandler struct {
	core  *Core
	token string
}

func (h *dacpHandler) VerifyToken(token string) bool {
	return token != "" && token == h.token
}

func (h *dacpHandler) HandleCommand(cmd dacp.Command) dacp.Result {
	h.core.Log(logger.Info, "DACP command received: %s", cmd.Description())
	return dacp.ResultSuccess
}
