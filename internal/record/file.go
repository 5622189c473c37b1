package record

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// maxLineSize bounds a single line of input.
const maxLineSize = 1 << 20

// ctxCheckInterval is how many lines are read between context checks.
const ctxCheckInterval = 4096

// FileSource reads rows from one or more line-delimited files. Patterns may
// be literal paths or doublestar globs; matched files are read in sorted
// order. Files ending in .zst, .gz or .br are decompressed transparently.
type FileSource struct {
	patterns []string
}

// NewFileSource creates a source over the files matching patterns.
func NewFileSource(patterns ...string) *FileSource {
	return &FileSource{patterns: slices.Clone(patterns)}
}

// Patterns returns the configured path patterns.
func (s *FileSource) Patterns() []string {
	return slices.Clone(s.patterns)
}

// Paths resolves the patterns to deduplicated absolute paths of regular files.
// It fails with ErrSourceUnavailable when nothing matches.
func (s *FileSource) Paths() ([]string, error) {
	seen := make(map[string]bool)
	var result []string

	for _, pattern := range s.patterns {
		// Make pattern absolute for consistent paths.
		if !filepath.IsAbs(pattern) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
			}
			pattern = filepath.Join(wd, pattern)
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: bad pattern %q: %v", ErrSourceUnavailable, pattern, err)
		}

		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				continue
			}
			info, err := os.Stat(abs)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			if !seen[abs] {
				seen[abs] = true
				result = append(result, abs)
			}
		}
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no files match %s", ErrSourceUnavailable, strings.Join(s.patterns, ", "))
	}
	slices.Sort(result)
	return result, nil
}

// Fingerprint identifies the current state of the data: it changes whenever a
// file is added, removed, resized or modified.
func (s *FileSource) Fingerprint() (string, error) {
	paths, err := s.Paths()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}
		h.Write([]byte(p))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(info.Size(), 10)))
		h.Write([]byte{0})
		h.Write([]byte(strconv.FormatInt(info.ModTime().UnixNano(), 10)))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))[:32], nil
}

// Partitions returns one source per matched file, in scan order.
func (s *FileSource) Partitions() ([]Source, error) {
	paths, err := s.Paths()
	if err != nil {
		return nil, err
	}
	parts := make([]Source, len(paths))
	for i, p := range paths {
		parts[i] = &FileSource{patterns: []string{p}}
	}
	return parts, nil
}

// Scan implements Source.
func (s *FileSource) Scan(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		paths, err := s.Paths()
		if err != nil {
			yield(nil, err)
			return
		}
		for _, path := range paths {
			if !scanFile(ctx, path, yield) {
				return
			}
		}
	}
}

// scanFile yields every non-blank line of path. It returns false once the
// consumer stops or an error has been yielded.
func scanFile(ctx context.Context, path string, yield func(Row, error) bool) bool {
	rc, err := openDecoded(path)
	if err != nil {
		yield(nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err))
		return false
	}
	defer func() { _ = rc.Close() }()

	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	n := 0
	for sc.Scan() {
		n++
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return false
			}
		}

		line := sc.Text()
		if n == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !yield(ParseLine(line), nil) {
			return false
		}
	}
	if err := sc.Err(); err != nil {
		yield(nil, fmt.Errorf("%w: %s: %v", ErrSourceUnavailable, path, err))
		return false
	}
	return true
}
