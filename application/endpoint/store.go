package endpoint

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidName = errors.New("invalid file name")
	ErrOutsideRoot = errors.New("path escapes the root directory")
	ErrNotDir      = errors.New("root is not a directory")
)

// fileMode is the mode of written files.
const fileMode fs.FileMode = 0o644

// Store reads and writes whole files under a root directory.
// Names never resolve to a path outside of the root.
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", root)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(err, "inspecting root")
	}
	if !info.IsDir() {
		return nil, errors.Wrapf(ErrNotDir, "%q", abs)
	}

	return &Store{root: filepath.Clean(abs)}, nil
}

func (s *Store) Root() string { return s.root }

// Resolve joins name onto the root and cleans the result.
// Names resolving to the root itself are invalid.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}

	p := filepath.Join(s.root, filepath.FromSlash(name))

	rel, err := filepath.Rel(s.root, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Wrapf(ErrOutsideRoot, "%q", name)
	}
	if rel == "." {
		return "", errors.Wrapf(ErrInvalidName, "%q", name)
	}

	return p, nil
}

func (s *Store) Read(name string) ([]byte, error) {
	p, err := s.Resolve(name)
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(p)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", name)
	}

	return b, nil
}

// Write replaces the whole file. Readers see either the old or the new content.
// Concurrent writers to the same name race, and the last rename wins.
func (s *Store) Write(name string, data []byte) (err error) {
	p, err := s.Resolve(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return errors.Wrapf(err, "creating temporary file for %q", name)
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()

	// CreateTemp makes the file owner-only.
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "setting mode of %q", name)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing %q", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "writing %q", name)
	}

	if err := os.Rename(tmp.Name(), p); err != nil {
		return errors.Wrapf(err, "replacing %q", name)
	}

	return nil
}
