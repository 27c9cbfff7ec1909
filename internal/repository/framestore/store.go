// Package framestore lists keyframe images on the local filesystem.
package framestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions are the image types served as keyframes.
var DefaultExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Store reads video directories under a keyframe root.
type Store struct {
	root string
	exts map[string]struct{}
}

// New creates a frame store rooted at root. Extensions match case-insensitively.
func New(root string, extensions []string) *Store {
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	exts := make(map[string]struct{}, len(extensions))
	for _, e := range extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts[e] = struct{}{}
	}
	return &Store{root: root, exts: exts}
}

// ListImages returns the image file names in dir, naturally sorted.
// dir is slash-separated and relative to the root. A missing directory yields
// an empty list; any other I/O failure is returned.
func (s *Store) ListImages(ctx context.Context, dir string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context error
	}

	entries, err := os.ReadDir(s.resolve(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list frames %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := s.exts[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			names = append(names, e.Name())
		}
	}
	slices.SortFunc(names, Compare)
	return names, nil
}

// DirectoryExists reports whether dir exists under the root.
func (s *Store) DirectoryExists(_ context.Context, dir string) (bool, error) {
	info, err := os.Stat(s.resolve(dir))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", dir, err)
	}
	return info.IsDir(), nil
}

// Ping checks that the root directory is readable.
func (s *Store) Ping(ctx context.Context) error {
	ok, err := s.DirectoryExists(ctx, ".")
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("frames root %s not found", s.root)
	}
	return nil
}

// resolve maps a relative slash path onto the root without escaping it.
func (s *Store) resolve(dir string) string {
	clean := path.Clean("/" + strings.ReplaceAll(dir, `\`, "/"))
	return filepath.Join(s.root, filepath.FromSlash(clean))
}
