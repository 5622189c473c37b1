package reload

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// absPatterns makes every pattern absolute against the working directory.
func absPatterns(patterns []string) []string {
	out := make([]string, 0, len(patterns))
	wd, _ := os.Getwd()
	for _, p := range patterns {
		if !filepath.IsAbs(p) && wd != "" {
			p = filepath.Join(wd, p)
		}
		out = append(out, filepath.Clean(p))
	}
	return out
}

// watchDirs returns the static directory prefix of each pattern, for
// fsnotify. Watches are not recursive, so a "**" pattern only notices changes
// directly under its prefix; the poll job covers the rest.
func watchDirs(patterns []string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, pattern := range patterns {
		dir := staticPrefix(pattern)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	return dirs
}

// staticPrefix returns the longest directory path before the first glob character.
func staticPrefix(pattern string) string {
	for i, c := range pattern {
		if c == '*' || c == '?' || c == '[' || c == '{' {
			return filepath.Dir(pattern[:i])
		}
	}
	// Literal file path; watch its directory.
	return filepath.Dir(pattern)
}

// matchesAny reports whether path matches any of the (absolute) patterns.
func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if pattern == path {
			return true
		}
		if ok, _ := doublestar.PathMatch(pattern, path); ok {
			return true
		}
		if strings.Contains(pattern, "**") {
			if ok, _ := doublestar.Match(pattern, path); ok {
				return true
			}
		}
	}
	return false
}

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// watch marks the reloader dirty whenever a file matching the data patterns
// changes. It returns when ctx is done.
func (r *Reloader) watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	patterns := absPatterns(r.cfg.Source.Patterns())
	for _, dir := range watchDirs(patterns) {
		if err := watcher.Add(dir); err != nil {
			r.logger.Warn("failed to watch directory", "dir", dir, "error", err)
			continue
		}
		r.logger.Debug("watching directory", "dir", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&changeOps == 0 || !matchesAny(event.Name, patterns) {
				continue
			}
			r.MarkDirty("file " + strings.ToLower(event.Op.String()) + ": " + event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Warn("fsnotify error", "error", err)
		}
	}
}
