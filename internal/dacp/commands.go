// Package dacp implements the Digital Audio Control Protocol remote
// control surface (§3 "DACP", §4.13 supplement): the small HTTP control
// interface a sender exposes at its Active-Remote/DACP-ID so the
// receiver can send transport commands back (play/pause/volume/skip).
package dacp

import "strings"

// Command is one DACP transport command.
type Command int

// Commands, mirroring the ctrl-int path vocabulary iTunes/HomePod use.
const (
	CommandUnknown Command = iota
	Play
	Pause
	PlayPause
	PlayResume
	PlayResume2
	Stop
	NextItem
	PrevItem
	BeginFastForward
	BeginRewind
	VolumeUp
	VolumeDown
	MuteToggle
	ShuffleSongs
)

const pathPrefix = "/ctrl-int/1/"

// commandPaths is the canonical path for each command. PlayResume2 has
// no entry of its own: it shares PlayResume's wire path, so only one
// direction of the round trip is bijective (FromPath prefers PlayResume).
var commandPaths = map[Command]string{
	Play:             "play",
	Pause:            "pause",
	PlayPause:        "playpause",
	PlayResume:       "playresume",
	Stop:             "stop",
	NextItem:         "nextitem",
	PrevItem:         "previtem",
	BeginFastForward: "beginff",
	BeginRewind:      "beginrew",
	VolumeUp:         "volumeup",
	VolumeDown:       "volumedown",
	MuteToggle:       "mutetoggle",
	ShuffleSongs:     "shuffle_songs",
}

var pathCommands = func() map[string]Command {
	m := make(map[string]Command, len(commandPaths))
	for c, p := range commandPaths {
		m[p] = c
	}
	return m
}()

// Path returns the ctrl-int path for cmd. PlayResume2 maps to the same
// path as PlayResume.
func (c Command) Path() string {
	if c == PlayResume2 {
		c = PlayResume
	}
	return pathPrefix + commandPaths[c]
}

// Description returns a short human-readable label, used in logs.
func (c Command) Description() string {
	switch c {
	case Play:
		return "play"
	case Pause:
		return "pause"
	case PlayPause:
		return "toggle play/pause"
	case PlayResume, PlayResume2:
		return "resume playback"
	case Stop:
		return "stop"
	case NextItem:
		return "skip to next item"
	case PrevItem:
		return "skip to previous item"
	case BeginFastForward:
		return "begin fast forward"
	case BeginRewind:
		return "begin rewind"
	case VolumeUp:
		return "increase volume"
	case VolumeDown:
		return "decrease volume"
	case MuteToggle:
		return "toggle mute"
	case ShuffleSongs:
		return "shuffle songs"
	default:
		return "unknown"
	}
}

// FromPath classifies an incoming ctrl-int request path. Only the
// literal "/ctrl-int/1/..." prefix is accepted (§3): any other
// instance number or a malformed path is rejected.
func FromPath(path string) Command {
	if !strings.HasPrefix(path, pathPrefix) {
		return CommandUnknown
	}
	suffix := strings.TrimPrefix(path, pathPrefix)
	if suffix == "" {
		return CommandUnknown
	}
	if c, ok := pathCommands[suffix]; ok {
		return c
	}
	return CommandUnknown
}

// Result is the outcome of dispatching a Command to a Handler.
type Result int

// Results.
const (
	ResultSuccess Result = iota
	ResultNotSupported
)

// Handler executes DACP commands against the local playback engine and
// authorizes incoming tokens.
type Handler interface {
	HandleCommand(cmd Command) Result
	VerifyToken(token string) bool
}
