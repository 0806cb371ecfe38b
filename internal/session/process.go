// internal/session/process.go
package session

import (
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// processHandle abstracts the launched browser process so Release logic can
// be tested without spawning Chrome.
type processHandle interface {
	terminate(grace time.Duration) error
}

// osProcess wraps a Chrome process we started ourselves.
type osProcess struct {
	cmd *exec.Cmd
}

// terminate asks the process to exit and waits up to grace before killing it.
func (p *osProcess) terminate(grace time.Duration) error {
	if p.cmd.Process == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	// SIGTERM first so Chrome can flush its profile.
	_ = p.cmd.Process.Signal(syscall.SIGTERM)

	select {
	case <-done:
		return nil
	case <-time.After(grace):
		if err := p.cmd.Process.Kill(); err != nil {
			return err
		}
		<-done
		return nil
	}
}

// killByPort finds processes bound to the debug port and signals them. Used
// when the launch mechanism detached Chrome from our process tree.
func killByPort(ctx context.Context, port int) error {
	out, err := exec.CommandContext(ctx, "lsof", "-ti", ":"+strconv.Itoa(port)).Output()
	if err != nil {
		// No listener left on the port, or lsof unavailable. Either way there
		// is nothing more to signal.
		return nil
	}

	for _, line := range strings.Split(strings.TrimSpace(string(out)), "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			continue
		}
		if proc, err := os.FindProcess(pid); err == nil {
			_ = proc.Signal(syscall.SIGTERM)
		}
	}
	return nil
}
