// internal/session/manager.go
package session

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/docgrab/internal/config"
	"github.com/xkilldash9x/docgrab/internal/profile"
)

// Manager owns the lifecycle of self-launched browser sessions: profile
// cloning, process launch, debug-port readiness, and teardown.
type Manager struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewManager creates a new session manager.
func NewManager(cfg *config.Config, logger *zap.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		logger: logger.Named("session_manager"),
	}
}

// Acquire launches Chrome against a temporary clone of the caller's
// authenticated profile and waits for its debug port to come up. Missing
// Chrome binary or profile directory are fatal environment errors; they are
// surfaced as-is and must not be retried.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	execPath := m.cfg.Browser.ExecPath
	if execPath == "" {
		var err error
		if execPath, err = profile.FindChrome(); err != nil {
			return nil, err
		}
	}

	profileDir := m.cfg.Browser.ProfileDir
	if profileDir == "" {
		var err error
		if profileDir, err = profile.FindProfileDir(); err != nil {
			return nil, err
		}
	}

	tmpDir, err := os.MkdirTemp("", "docgrab_chrome_")
	if err != nil {
		return nil, fmt.Errorf("create temporary profile dir: %w", err)
	}

	start := time.Now()
	m.logger.Info("Cloning Chrome profile.", zap.String("source", profileDir))
	if err := profile.Clone(profileDir, tmpDir); err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	m.logger.Info("Profile cloned.", zap.Duration("took", time.Since(start)))

	port := m.cfg.Browser.DebugPort
	s := &Session{
		id:           newSessionID(),
		origin:       OriginSelfLaunched,
		port:         port,
		endpoint:     fmt.Sprintf("http://127.0.0.1:%d", port),
		profileDir:   tmpDir,
		releaseGrace: m.cfg.Browser.ReleaseGrace,
	}
	s.logger = m.logger.With(zap.String("session_id", s.id))

	m.logger.Info("Launching Chrome.", zap.Int("port", port))
	proc, err := launchChrome(execPath, tmpDir, port, m.cfg.Grab.Headless)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("launch Chrome: %w", err)
	}
	s.proc = proc

	if err := m.awaitReady(ctx, s); err != nil {
		// Tear down whatever came up; Release removes the temp profile.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.Release(releaseCtx)
		return nil, err
	}

	m.logger.Info("Chrome ready.",
		zap.Int("port", port), zap.Duration("took", time.Since(start)))
	return s, nil
}

// Wrap adopts an externally supplied CDP endpoint as a Session. The caller
// keeps ownership of the browser; Release is a no-op.
func (m *Manager) Wrap(endpoint string) *Session {
	s := &Session{
		id:       newSessionID(),
		origin:   OriginExternal,
		endpoint: endpoint,
	}
	s.logger = m.logger.With(zap.String("session_id", s.id))
	m.logger.Info("Wrapped external browser session.", zap.String("endpoint", endpoint))
	return s
}

// awaitReady polls the debug endpoint until Chrome answers or the launch
// window elapses.
func (m *Manager) awaitReady(ctx context.Context, s *Session) error {
	deadline := m.cfg.Browser.LaunchWait
	pollCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	versionURL := s.endpoint + "/json/version"
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(pollCtx, http.MethodGet, versionURL, nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-pollCtx.Done():
			return fmt.Errorf("Chrome did not become reachable on port %d within %s: %w",
				s.port, deadline, pollCtx.Err())
		case <-ticker.C:
		}
	}
}

// launchChrome starts Chrome bound to the cloned profile and debug port.
// On macOS it goes through `open -gjn` to keep the window hidden, which
// detaches Chrome from our process tree; the returned handle is then nil and
// Release falls back to kill-by-port.
func launchChrome(execPath, userDataDir string, port int, headless bool) (processHandle, error) {
	args := []string{
		"--remote-debugging-port=" + strconv.Itoa(port),
		"--no-first-run",
		"--no-default-browser-check",
		"--user-data-dir=" + userDataDir,
	}
	if headless {
		args = append(args, "--headless=new")
	}
	args = append(args, "about:blank")

	if runtime.GOOS == "darwin" && !headless {
		openArgs := append([]string{"-gjn", "-a", "Google Chrome", "--args"}, args...)
		cmd := exec.Command("open", openArgs...)
		cmd.Stdout = nil
		cmd.Stderr = nil
		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("open -a Google Chrome: %w", err)
		}
		return nil, nil
	}

	cmd := exec.Command(execPath, args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &osProcess{cmd: cmd}, nil
}
