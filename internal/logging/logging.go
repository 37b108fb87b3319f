// Package logging builds the process logger.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-errors/errors"
)

// Options configures New.
type Options struct {
	// Debug turns on debug-level records. Without it everything is discarded.
	Debug bool
	// Path is the log file, appended to when Debug is set. Empty skips the file.
	Path string
	// Stderr receives a copy of every record when Debug is set. Nil means os.Stderr.
	Stderr io.Writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a closer for its file. The closer is never nil.
func New(opts Options) (*log.Logger, io.Closer, error) {
	if !opts.Debug {
		return log.New(io.Discard), nopCloser{}, nil
	}

	stderr := opts.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	var (
		out    io.Writer = stderr
		closer io.Closer = nopCloser{}
	)
	if opts.Path != "" {
		f, err := openLogFile(opts.Path)
		if err != nil {
			return nil, nil, err
		}
		out = io.MultiWriter(f, stderr)
		closer = f
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           log.DebugLevel,
		ReportTimestamp: true,
		Prefix:          "ime-tool",
	})
	return logger, closer, nil
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, errors.Errorf("open log file: %w", err)
	}
	return f, nil
}
