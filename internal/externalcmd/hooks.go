package externalcmd

// Hooks holds the configured command lines for each session lifecycle
// event. An empty string disables the hook.
type Hooks struct {
	OnConnect  string
	OnRecord   string
	OnTeardown string
	OnResync   string
}

// Fire launches the hook configured for event, if any, substituting env
// into both the command line and the child process environment. It does
// not block waiting for the command to exit.
func (h Hooks) Fire(pool *Pool, event string, env Environment, onExit func(error)) *Cmd {
	var cmdstr string
	switch event {
	case "on-connect":
		cmdstr = h.OnConnect
	case "on-record":
		cmdstr = h.OnRecord
	case "on-teardown":
		cmdstr = h.OnTeardown
	case "on-resync":
		cmdstr = h.OnResync
	}

	if cmdstr == "" {
		return nil
	}

	if onExit == nil {
		onExit = func(error) {}
	}

	return NewCmd(pool, cmdstr, false, env, onExit)
}
