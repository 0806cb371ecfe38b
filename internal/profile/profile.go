// internal/profile/profile.go
// Package profile locates the system Chrome binary and the user's
// authenticated profile directory, and clones the profile into a disposable
// copy. The upstream viewer rejects fresh or anonymous profiles, so a session
// is only useful when launched from a clone carrying the caller's cookies.
package profile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	homedir "github.com/mitchellh/go-homedir"
)

// Environment errors. Both are fatal and user-actionable; nothing in the
// pipeline retries them.
var (
	ErrChromeNotFound = errors.New(
		"could not find Google Chrome on this system; " +
			"install Chrome, set browser.exec_path, or use --cdp / --url-file instead")
	ErrProfileNotFound = errors.New(
		"could not find a Chrome profile directory; " +
			"open Chrome and visit the viewer once so session cookies exist, " +
			"or use --cdp / --url-file instead")
)

// cacheSubtrees are the large profile subdirectories that carry no session
// state. Leaving them out keeps the clone to the files needed to replay an
// authenticated session.
var cacheSubtrees = map[string]bool{
	"Cache":          true,
	"Code Cache":     true,
	"GPUCache":       true,
	"Service Worker": true,
	"Storage":        true,
	"blob_storage":   true,
	"File System":    true,
	"IndexedDB":      true,
	"Sessions":       true,
}

// FindChrome locates the system Chrome binary.
func FindChrome() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		path := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	case "linux":
		for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium-browser", "chromium"} {
			if path, err := exec.LookPath(name); err == nil {
				return path, nil
			}
		}
	case "windows":
		for _, base := range []string{
			os.Getenv("PROGRAMFILES"),
			os.Getenv("PROGRAMFILES(X86)"),
			os.Getenv("LOCALAPPDATA"),
		} {
			if base == "" {
				continue
			}
			path := filepath.Join(base, "Google", "Chrome", "Application", "chrome.exe")
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", ErrChromeNotFound
}

// FindProfileDir returns the user's default Chrome profile directory.
func FindProfileDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}

	var dir string
	switch runtime.GOOS {
	case "darwin":
		dir = filepath.Join(home, "Library", "Application Support", "Google", "Chrome")
	case "linux":
		dir = filepath.Join(home, ".config", "google-chrome")
	case "windows":
		local := os.Getenv("LOCALAPPDATA")
		if local == "" {
			return "", ErrProfileNotFound
		}
		dir = filepath.Join(local, "Google", "Chrome", "User Data")
	default:
		return "", ErrProfileNotFound
	}

	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return "", ErrProfileNotFound
	}
	return dir, nil
}

// Clone copies the minimal authenticated state from profileDir into dst:
// the Default profile (minus cache subtrees) and Local State. profileDir is
// only read; dst must already exist and is owned by the caller.
func Clone(profileDir, dst string) error {
	srcDefault := filepath.Join(profileDir, "Default")
	dstDefault := filepath.Join(dst, "Default")

	if info, err := os.Stat(srcDefault); err == nil && info.IsDir() {
		if err := copyTree(srcDefault, dstDefault); err != nil {
			return fmt.Errorf("clone Default profile: %w", err)
		}
	} else {
		if err := os.MkdirAll(dstDefault, 0o755); err != nil {
			return fmt.Errorf("create Default profile dir: %w", err)
		}
	}

	localState := filepath.Join(profileDir, "Local State")
	if _, err := os.Stat(localState); err == nil {
		if err := copyFile(localState, filepath.Join(dst, "Local State")); err != nil {
			return fmt.Errorf("clone Local State: %w", err)
		}
	}
	return nil
}

// copyTree copies src into dst recursively, skipping cache subtrees at any
// depth. Unreadable entries (locked databases, sockets) are skipped rather
// than failing the clone.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if cacheSubtrees[d.Name()] {
				return filepath.SkipDir
			}
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if err := copyFile(path, target); err != nil {
			// Chrome keeps some files locked while running; skip them.
			return nil
		}
		return nil
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
