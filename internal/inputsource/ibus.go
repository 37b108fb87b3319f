package inputsource

import (
	"bytes"
	"os/exec"
	"strings"

	"github.com/go-errors/errors"
)

// IBus implements Registry on top of the ibus command line tool.
type IBus struct {
	command string
}

// NewIBus creates an IBus registry using the ibus binary from PATH.
func NewIBus() *IBus {
	return &IBus{command: "ibus"}
}

func (c *IBus) run(args ...string) (string, error) {
	cmd := exec.Command(c.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Errorf("ibus %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Current returns the active ibus engine.
func (c *IBus) Current() (string, error) {
	out, err := c.run("engine")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// Sources returns all engines reported by ibus list-engine.
func (c *IBus) Sources() ([]Source, error) {
	out, err := c.run("list-engine")
	if err != nil {
		return nil, err
	}
	return parseEngineList(out), nil
}

// Select switches the global engine.
func (c *IBus) Select(id string) error {
	_, err := c.run("engine", id)
	return err
}

// parseEngineList parses ibus list-engine output. Engines are indented
// "name - description" lines grouped under "language: X" headers.
func parseEngineList(output string) []Source {
	var sources []Source
	for _, line := range strings.Split(output, "\n") {
		if line == "" || (line[0] != ' ' && line[0] != '\t') {
			continue
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		id, name, _ := strings.Cut(line, " - ")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		sources = append(sources, Source{ID: id, Name: strings.TrimSpace(name)})
	}
	return sources
}
