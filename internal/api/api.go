// Package api contains the status/control HTTP API, separate from the
// AirPlay RTSP control channel itself: a small gin server that exposes
// the receiver's active sessions and multi-room group state for
// monitoring and external tooling.
package api

import (
	"errors"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/airtunes2/airplay2/internal/logger"
	"github.com/airtunes2/airplay2/internal/multiroom"
	"github.com/airtunes2/airplay2/internal/session"
	"github.com/airtunes2/airplay2/internal/wsevents"
)

// SessionInfo is the JSON projection of one active receiver session.
type SessionInfo struct {
	ID         uuid.UUID `json:"id"`
	Created    time.Time `json:"created"`
	RemoteAddr string    `json:"remoteAddr"`
	State      string    `json:"state"`
	VolumeDB   float64   `json:"volumeDb"`
	Paired     bool      `json:"paired"`
}

// SessionList is a page of sessions.
type SessionList struct {
	ItemCount int            `json:"itemCount"`
	Items     []*SessionInfo `json:"items"`
}

// GroupInfo is the JSON projection of a multi-room coordination group.
type GroupInfo struct {
	GroupUUID      string `json:"groupUuid"`
	Role           string `json:"role"`
	LeaderClockID  uint64 `json:"leaderClockId"`
	TargetPlayback int64  `json:"targetPlaybackTime"`
}

// APIError is a generic error payload.
type APIError struct {
	Error string `json:"error"`
}

// SessionStore is implemented by the receiver core; it is the only thing
// the API needs in order to list and kick sessions.
type SessionStore interface {
	APISessionsList() []*SessionInfo
	APISessionsGet(uuid.UUID) (*SessionInfo, bool)
	APISessionsKick(uuid.UUID) bool
}

// GroupStore is implemented by the multi-room manager.
type GroupStore interface {
	APIGroupsList() []*GroupInfo
}

type apiParent interface {
	logger.Writer
}

var errNotFound = errors.New("not found")

// API is the status/control HTTP server.
type API struct {
	Address      string
	AllowOrigin  string
	ReadTimeout  time.Duration
	Sessions     SessionStore
	Groups       GroupStore
	Events       *wsevents.Hub
	Parent       apiParent

	httpServer *http.Server
	mutex      sync.RWMutex
}

// Initialize starts listening.
func (a *API) Initialize() error {
	if a.Events == nil {
		a.Events = wsevents.NewHub()
	}

	router := gin.New()
	router.Use(a.middlewareOrigin)

	group := router.Group("/v1")
	group.GET("/sessions/list", a.onSessionsList)
	group.GET("/sessions/get/:id", a.onSessionsGet)
	group.POST("/sessions/kick/:id", a.onSessionsKick)
	group.GET("/events", a.onEvents)
	group.GET("/groups/list", a.onGroupsList)

	pprof.Register(router)

	a.mutex.Lock()
	a.httpServer = &http.Server{
		Addr:        a.Address,
		Handler:     router,
		ReadTimeout: a.ReadTimeout,
	}
	a.mutex.Unlock()

	ln, err := net.Listen("tcp", a.Address)
	if err != nil {
		return err
	}

	go a.httpServer.Serve(ln) //nolint:errcheck

	a.Log(logger.Info, "listener opened on "+a.Address)
	return nil
}

// Close shuts down the listener.
func (a *API) Close() {
	a.Log(logger.Info, "listener is closing")
	a.mutex.RLock()
	srv := a.httpServer
	a.mutex.RUnlock()
	if srv != nil {
		srv.Close() //nolint:errcheck
	}
}

// Log implements logger.Writer.
func (a *API) Log(level logger.Level, format string, args ...interface{}) {
	a.Parent.Log(level, "[API] "+format, args...)
}

func (a *API) middlewareOrigin(ctx *gin.Context) {
	ctx.Header("Access-Control-Allow-Origin", a.AllowOrigin)
	if ctx.Request.Method == http.MethodOptions {
		ctx.Header("Access-Control-Allow-Methods", "OPTIONS, GET, POST")
		ctx.AbortWithStatus(http.StatusNoContent)
		return
	}
}

func (a *API) writeError(ctx *gin.Context, status int, err error) {
	a.Log(logger.Error, err.Error())
	ctx.JSON(status, APIError{Error: err.Error()})
}

func (a *API) onSessionsList(ctx *gin.Context) {
	items := a.Sessions.APISessionsList()
	sort.Slice(items, func(i, j int) bool { return items[i].Created.Before(items[j].Created) })
	ctx.JSON(http.StatusOK, SessionList{ItemCount: len(items), Items: items})
}

func (a *API) onSessionsGet(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		a.writeError(ctx, http.StatusBadRequest, err)
		return
	}
	s, ok := a.Sessions.APISessionsGet(id)
	if !ok {
		a.writeError(ctx, http.StatusNotFound, errNotFound)
		return
	}
	ctx.JSON(http.StatusOK, s)
}

func (a *API) onSessionsKick(ctx *gin.Context) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		a.writeError(ctx, http.StatusBadRequest, err)
		return
	}
	if !a.Sessions.APISessionsKick(id) {
		a.writeError(ctx, http.StatusNotFound, errNotFound)
		return
	}
	ctx.Status(http.StatusOK)
}

func (a *API) onGroupsList(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, a.Groups.APIGroupsList())
}

// onEvents upgrades to a WebSocket and streams session/group events
// live until the client disconnects.
func (a *API) onEvents(ctx *gin.Context) {
	conn, err := wsevents.NewConn(ctx.Writer, ctx.Request)
	if err != nil {
		a.Log(logger.Warn, "events upgrade failed: %s", err)
		return
	}
	a.Events.Subscribe(conn)
	defer a.Events.Unsubscribe(conn)

	conn.ReadLoop()
	conn.Close()
}

// SessionInfoFromReceiver projects a receiver session into its API shape.
func SessionInfoFromReceiver(id uuid.UUID, created time.Time, remoteAddr string, s *session.ReceiverSession) *SessionInfo {
	return &SessionInfo{
		ID:         id,
		Created:    created,
		RemoteAddr: remoteAddr,
		State:      s.State.String(),
		VolumeDB:   s.VolumeDB,
		Paired:     s.Paired,
	}
}

// GroupInfoFromCoordinator projects a multiroom coordinator into its API shape.
func GroupInfoFromCoordinator(c *multiroom.Coordinator) *GroupInfo {
	return &GroupInfo{
		GroupUUID:      c.GroupUUID,
		Role:           roleString(c.Role),
		LeaderClockID:  c.LeaderClockID,
		TargetPlayback: int64(c.TargetPlaybackTime),
	}
}

func roleString(r multiroom.Role) string {
	switch r {
	case multiroom.RoleLeader:
		return "leader"
	case multiroom.RoleFollower:
		return "follower"
	default:
		return "none"
	}
}
