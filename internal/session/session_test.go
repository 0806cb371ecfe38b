package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProc struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeProc) terminate(time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return nil
}

func newTestSession(t *testing.T, proc processHandle) *Session {
	t.Helper()
	profileDir, err := os.MkdirTemp("", "docgrab_test_profile_")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(profileDir, "Cookies"), []byte("x"), 0o644))

	return &Session{
		id:           newSessionID(),
		origin:       OriginSelfLaunched,
		port:         9222,
		endpoint:     "http://127.0.0.1:9222",
		profileDir:   profileDir,
		proc:         proc,
		releaseGrace: time.Second,
		logger:       zap.NewNop(),
	}
}

func TestReleaseRemovesProfileAndTerminatesOnce(t *testing.T) {
	proc := &fakeProc{}
	s := newTestSession(t, proc)

	require.NoError(t, s.Release(context.Background()))

	_, err := os.Stat(s.profileDir)
	assert.True(t, os.IsNotExist(err), "profile dir should be removed")
	assert.Equal(t, 1, proc.calls)

	// Second release is a no-op with the same result.
	require.NoError(t, s.Release(context.Background()))
	assert.Equal(t, 1, proc.calls)
}

func TestReleaseConcurrent(t *testing.T) {
	proc := &fakeProc{}
	s := newTestSession(t, proc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Release(context.Background())
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, proc.calls, "terminate must run exactly once")
}

func TestReleaseExternalIsNoop(t *testing.T) {
	s := &Session{
		id:       newSessionID(),
		origin:   OriginExternal,
		endpoint: "http://127.0.0.1:9222",
		logger:   zap.NewNop(),
	}
	require.NoError(t, s.Release(context.Background()))
}

func TestWrapProducesExternalSession(t *testing.T) {
	m := NewManager(testManagerConfig(), zap.NewNop())
	s := m.Wrap("http://127.0.0.1:9333")

	assert.Equal(t, OriginExternal, s.Origin())
	assert.Equal(t, "http://127.0.0.1:9333", s.Endpoint())
	assert.NotEmpty(t, s.ID())
}
