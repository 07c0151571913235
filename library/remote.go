package library

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dockhand/logging"

	"go.uber.org/zap"
)

// Remote syncs the template library directory from a git source, with an
// optional mirror tried when the primary clone fails.
type Remote struct {
	URL    string
	Mirror string
	Dir    string
}

// Sync brings Dir up to date with the remote source. If Dir already holds a
// clone of URL it pulls; if the tracked URL changed or the directory is not a
// git repository, the old contents are moved aside and the source is cloned
// fresh. A failed primary clone falls back to the mirror when one is set.
func (r *Remote) Sync(ctx context.Context) error {
	if r.URL == "" {
		return fmt.Errorf("no template remote configured")
	}

	gitDir := filepath.Join(r.Dir, ".git")
	if _, err := os.Stat(gitDir); err == nil {
		current, err := r.remoteURL(ctx)
		if err == nil && current == r.URL {
			return r.pull(ctx)
		}
		logging.Named("library").Info("template remote changed, re-cloning",
			zap.String("old", current), zap.String("new", r.URL))
		if err := r.backup(); err != nil {
			return err
		}
	} else if _, err := os.Stat(r.Dir); err == nil {
		// Directory exists but is not a repository.
		if err := r.backup(); err != nil {
			return err
		}
	}

	if err := r.clone(ctx, r.URL); err != nil {
		if r.Mirror == "" || r.Mirror == r.URL {
			return err
		}
		logging.Named("library").Warn("primary clone failed, trying mirror",
			zap.String("mirror", r.Mirror), zap.Error(err))
		r.cleanupPartial()
		if mirrErr := r.clone(ctx, r.Mirror); mirrErr != nil {
			return fmt.Errorf("clone failed (primary: %v): %w", err, mirrErr)
		}
	}
	return nil
}

func (r *Remote) remoteURL(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, "git", "remote", "get-url", "origin")
	cmd.Dir = r.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to read remote URL: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Remote) pull(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "git", "pull")
	cmd.Dir = r.Dir
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git pull failed: %w\n%s", err, string(output))
	}
	return nil
}

func (r *Remote) clone(ctx context.Context, url string) error {
	if err := os.MkdirAll(filepath.Dir(r.Dir), 0700); err != nil {
		return fmt.Errorf("failed to create library parent directory: %w", err)
	}
	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", url, r.Dir)
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git clone failed: %w\n%s", err, string(output))
	}
	return nil
}

// backup moves the existing library directory aside so a fresh clone can
// replace it. A previous backup at the same path is discarded.
func (r *Remote) backup() error {
	backupPath := r.Dir + ".old"
	if err := os.RemoveAll(backupPath); err != nil {
		return fmt.Errorf("failed to remove stale backup: %w", err)
	}
	if err := os.Rename(r.Dir, backupPath); err != nil {
		return fmt.Errorf("failed to back up library directory: %w", err)
	}
	logging.Named("library").Info("backed up old library", zap.String("path", backupPath))
	return nil
}

// cleanupPartial removes the remnants of a failed clone so the mirror clone
// starts from an empty path.
func (r *Remote) cleanupPartial() {
	if _, err := os.Stat(filepath.Join(r.Dir, ".git")); err != nil {
		os.RemoveAll(r.Dir)
	}
}
