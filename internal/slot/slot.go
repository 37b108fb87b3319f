// Package slot persists input method identifiers in named slot files.
//
// Each slot is a single file holding one identifier. The file layout is read
// by editor plugins directly, so it stays one identifier per file.
package slot

import (
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/go-errors/errors"
)

// Well-known slot names.
const (
	// A holds the method used in insert mode.
	A = "a"
	// B holds the method used in normal mode.
	B = "b"
	// Current is the default name of the legacy path builder. No command uses it.
	Current = "current"
)

const (
	dirMode  fs.FileMode = 0o700
	fileMode fs.FileMode = 0o600
)

var (
	// ErrInvalidName is returned for slot names outside [A-Za-z0-9_-].
	ErrInvalidName = errors.New("invalid slot name")
	// ErrStorage is returned when a slot file cannot be written.
	ErrStorage = errors.New("slot storage error")
	// ErrEmptyIdentifier is returned when writing an empty identifier.
	ErrEmptyIdentifier = errors.New("empty input source identifier")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidateName checks that name can be safely used to derive a file name.
func ValidateName(name string) error {
	if !validName.MatchString(name) {
		return errors.Errorf("%w: %q (only letters, digits, underscore and dash are allowed)", ErrInvalidName, name)
	}
	return nil
}

// FileName returns the base file name for a slot.
func FileName(name string) string {
	return "saved-ime-" + name + ".txt"
}

// Store reads and writes slot files under a single state directory.
type Store struct {
	dir    string
	logger *log.Logger
}

// NewStore creates a store rooted at dir. The directory is created lazily.
func NewStore(dir string, logger *log.Logger) *Store {
	return &Store{dir: dir, logger: logger}
}

// Path validates name, makes sure the state directory exists and returns the
// slot's file path.
func (s *Store) Path(name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if err := s.ensureDir(); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, FileName(name)), nil
}

func (s *Store) ensureDir() error {
	if _, err := os.Stat(s.dir); err == nil {
		return nil
	}
	if err := os.MkdirAll(s.dir, dirMode); err != nil {
		return errors.Errorf("%w: create directory %s: %w", ErrStorage, s.dir, err)
	}
	// MkdirAll is subject to umask.
	if err := os.Chmod(s.dir, dirMode); err != nil {
		return errors.Errorf("%w: chmod %s: %w", ErrStorage, s.dir, err)
	}
	return nil
}

// Write atomically replaces the slot's contents with identifier.
func (s *Store) Write(identifier, name string) error {
	if identifier == "" {
		return errors.Errorf("%w: slot %s", ErrEmptyIdentifier, name)
	}
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := atomicWrite(path, []byte(identifier)); err != nil {
		return errors.Errorf("%w: write slot %s: %w", ErrStorage, name, err)
	}
	s.logger.Debug("slot written", "slot", name, "id", identifier, "path", path)
	return nil
}

// Read returns the identifier stored in the slot. The second result is false
// when the slot is absent. Unreadable or non-text files count as absent, and
// so does an invalid name, which is logged at warn level since it is a caller
// bug rather than a storage state.
func (s *Store) Read(name string) (string, bool) {
	if err := ValidateName(name); err != nil {
		s.logger.Warn("slot read rejected", "slot", name, "err", err)
		return "", false
	}
	path := filepath.Join(s.dir, FileName(name))
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			// Collapsed into "absent"; logged so a storage fault stays visible.
			s.logger.Debug("slot unreadable, treating as absent", "slot", name, "err", err)
		}
		return "", false
	}
	if !utf8.Valid(data) {
		s.logger.Debug("slot is not valid text, treating as absent", "slot", name)
		return "", false
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", false
	}
	return id, true
}

// atomicWrite writes content to a temp file in the destination directory and
// renames it into place.
func atomicWrite(path string, content []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(content); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmpName, fileMode); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
