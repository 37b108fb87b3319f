package config

import (
	"fmt"
	"strings"

	"github.com/go-errors/errors"
)

// Validate checks option values and reports all problems at once.
func (c *Config) Validate() error {
	var problems []string

	if !oneOf(c.ForceMode, validForceModes) {
		problems = append(problems, fmt.Sprintf("force_mode %q must be one of %s", c.ForceMode, strings.Join(validForceModes, ", ")))
	}
	if !oneOf(c.Backend, validBackends) {
		problems = append(problems, fmt.Sprintf("backend %q must be one of %s", c.Backend, strings.Join(validBackends, ", ")))
	}
	if c.SettleIntervalMS < 0 {
		problems = append(problems, fmt.Sprintf("settle_interval_ms must not be negative, got %d", c.SettleIntervalMS))
	}
	if c.RetryCount() < 0 {
		problems = append(problems, fmt.Sprintf("retries must not be negative, got %d", c.RetryCount()))
	}
	if strings.TrimSpace(c.StateDir) == "" {
		problems = append(problems, "state_dir must not be empty")
	}
	if dup := overlap(c.Keyboard.DualMode, c.Keyboard.SingleMode); len(dup) > 0 {
		problems = append(problems, fmt.Sprintf("keyboard type codes listed as both dual and single mode: %v", dup))
	}

	if len(problems) > 0 {
		return errors.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func overlap(a, b []int) []int {
	seen := make(map[int]bool, len(a))
	for _, x := range a {
		seen[x] = true
	}
	var dup []int
	for _, y := range b {
		if seen[y] {
			dup = append(dup, y)
		}
	}
	return dup
}
