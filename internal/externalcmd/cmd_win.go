//go:build windows

package externalcmd

import (
	"os"
	"os/exec"

	"github.com/kballard/go-shellquote"
)

func (e *Cmd) runOSSpecific() error {
	// on Windows the shell is not used and the command is started directly;
	// variable substitution already happened in NewCmd.
	parts, err := shellquote.Split(e.cmdstr)
	if err != nil {
		return err
	}

	cmd := exec.Command(parts[0], parts[1:]...)

	env := os.Environ()
	for k, v := range e.env {
		env = append(env, k+"="+v)
	}
	cmd.Env = env

	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Start()
	if err != nil {
		return err
	}

	cmdDone := make(chan error, 1)
	go func() {
		cmdDone <- cmd.Wait()
	}()

	select {
	case <-e.terminate:
		// on Windows it's not possible to send os.Interrupt to a process;
		// Kill() is the only supported way.
		cmd.Process.Kill()
		<-cmdDone
		return errTerminated

	case err := <-cmdDone:
		return err
	}
}
