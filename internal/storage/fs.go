package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/starford/outline/internal/apperr"
	"github.com/starford/outline/internal/checksum"
)

const tempPattern = ".outline-tmp-*"

var _ Provider = (*FS)(nil)

// FS implements Provider on a local directory.
type FS struct {
	root string
	fsys fs.FS
}

// NewFS opens the vault at root, creating the directory when create is set.
func NewFS(root string, create bool) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	if create {
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create root: %w", err)
		}
	}
	switch info, err := os.Stat(abs); {
	case err != nil:
		return nil, fmt.Errorf("storage: stat root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, fsys: os.DirFS(abs)}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string { return f.root }

// clean converts a vault-relative path to slash form. Empty and "." name the
// root; anything absolute or climbing out of the vault is rejected.
func clean(rel string) (string, error) {
	if rel == "" || rel == "." {
		return ".", nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("storage: path %q outside vault: %w", rel, apperr.ErrInvalidInput)
	}
	return path.Clean(filepath.ToSlash(rel)), nil
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// List describes every .md file under dir. Hidden files and directories are
// skipped.
func (f *FS) List(dir string) ([]FileInfo, error) {
	start, err := clean(dir)
	if err != nil {
		return nil, err
	}
	out := []FileInfo{}
	err = fs.WalkDir(f.fsys, start, func(p string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil:
			return walkErr
		case p != start && hidden(d.Name()):
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		case d.IsDir() || path.Ext(p) != ".md":
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		data, err := fs.ReadFile(f.fsys, p)
		if err != nil {
			return err
		}
		out = append(out, FileInfo{
			Path:      p,
			Checksum:  checksum.Sum(data),
			Size:      info.Size(),
			UpdatedAt: info.ModTime().UTC(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", start, err)
	}
	return out, nil
}

// Read returns the raw bytes of a vault file.
func (f *FS) Read(rel string) ([]byte, error) {
	p, err := clean(rel)
	if err != nil {
		return nil, err
	}
	data, err := fs.ReadFile(f.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", p, err)
	}
	return data, nil
}

// Write replaces the file at rel. Readers see either the old or the new
// content, never a partial write.
func (f *FS) Write(rel string, content []byte) error {
	p, err := clean(rel)
	if err != nil {
		return err
	}
	if p == "." {
		return fmt.Errorf("storage: write to vault root: %w", apperr.ErrInvalidInput)
	}
	dst := filepath.Join(f.root, filepath.FromSlash(p))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}
	if err := writeAtomic(dst, content); err != nil {
		return fmt.Errorf("storage: write %s: %w", p, err)
	}
	return nil
}

// writeAtomic stages content next to dst, syncs it and renames it over dst.
func writeAtomic(dst string, content []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), tempPattern)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tmp.Close(), os.Remove(tmp.Name()))
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dst)
}
