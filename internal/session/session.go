// internal/session/session.go
package session

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Origin records how a Session came to exist. Only self-launched sessions own
// a Chrome process and a temporary profile.
type Origin string

const (
	OriginSelfLaunched Origin = "self-launched"
	OriginExternal     Origin = "externally-supplied"
)

// Session is a handle to one controlled browser. It is an explicit value
// passed to every component that needs browser access; nothing reads it from
// ambient state. At most one self-launched Session occupies a given debug
// port at a time, and its temporary profile directory is exclusively owned
// and removed exactly once, on Release.
type Session struct {
	id       string
	origin   Origin
	port     int
	endpoint string

	// profileDir is the temporary profile clone; empty for external sessions.
	profileDir string

	// proc is the launched Chrome process handle. Nil for external sessions
	// and for launch mechanisms that detach the child from our process tree
	// (macOS `open`); Release then falls back to kill-by-port.
	proc processHandle

	releaseGrace time.Duration
	logger       *zap.Logger

	releaseOnce sync.Once
	releaseErr  error
}

// ID returns the unique identifier for the session.
func (s *Session) ID() string { return s.id }

// Origin reports whether this session was self-launched or supplied by the
// caller.
func (s *Session) Origin() Origin { return s.origin }

// Endpoint returns the CDP endpoint this session is reachable at.
func (s *Session) Endpoint() string { return s.endpoint }

// NewPage opens a fresh tab in the session's browser and returns a chromedp
// context targeting it. The returned cancel closes the tab; the browser
// itself stays up until Release. The controlled page is a serially shared
// resource: callers must not run concurrent operations against it.
func (s *Session) NewPage(ctx context.Context) (context.Context, context.CancelFunc, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(ctx, s.endpoint)
	pageCtx, pageCancel := chromedp.NewContext(allocCtx)

	cancel := func() {
		pageCancel()
		allocCancel()
	}

	// Force target creation so failures surface here, not mid-extraction.
	if err := chromedp.Run(pageCtx); err != nil {
		cancel()
		return nil, nil, fmt.Errorf("failed to attach to browser at %s: %w", s.endpoint, err)
	}

	s.logger.Debug("Opened browser page.", zap.String("endpoint", s.endpoint))
	return pageCtx, cancel, nil
}

// Release tears the session down. For self-launched sessions it terminates
// the Chrome process (bounded grace period, then kill; kill-by-port when the
// launch detached the child) and always removes the temporary profile
// directory. Safe to call multiple times and on every exit path; only the
// first call does work.
func (s *Session) Release(ctx context.Context) error {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.release(ctx)
	})
	return s.releaseErr
}

func (s *Session) release(ctx context.Context) error {
	if s.origin == OriginExternal {
		// The caller owns the browser; nothing to tear down.
		s.logger.Debug("Released external session (no-op).")
		return nil
	}

	var termErr error
	if s.proc != nil {
		termErr = s.proc.terminate(s.releaseGrace)
	} else {
		// Launch was detached from our process tree; locate whatever still
		// holds the debug port and signal it.
		termErr = killByPort(ctx, s.port)
	}
	if termErr != nil {
		s.logger.Warn("Could not terminate browser process.",
			zap.Int("port", s.port), zap.Error(termErr))
	}

	if s.profileDir != "" {
		if err := os.RemoveAll(s.profileDir); err != nil {
			return fmt.Errorf("remove temporary profile %s: %w", s.profileDir, err)
		}
		s.logger.Debug("Removed temporary profile.", zap.String("dir", s.profileDir))
	}

	s.logger.Info("Session released.", zap.String("session_id", s.id))
	return termErr
}

func newSessionID() string {
	return uuid.New().String()
}
