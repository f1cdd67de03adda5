// Package scan runs phase-shifter delay scans: for every delay of a plan the phase shifter is
// set, a recording is opened, a synchronous measurement is taken and the recording is
// closed again.
package scan

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	// MinDelay is the smallest phase-shifter delay in picoseconds.
	MinDelay = 0
	// MaxDelay is the largest phase-shifter delay in picoseconds.
	MaxDelay = 5000
	// DelayResolution is the delay of one phase-shifter code step in picoseconds.
	DelayResolution = 5
)

// PhaseShifter delays the detector trigger.
type PhaseShifter interface {
	// SetDelay sets the delay in picoseconds, between MinDelay and MaxDelay.
	SetDelay(ctx context.Context, delay int) error
}

// Analyzer is the electron analyzer whose voltages frame a scan.
type Analyzer interface {
	SetVoltages(ctx context.Context, kinetic float64, pass float64) error
	// SetSafeState ramps every voltage down.
	SetSafeState(ctx context.Context) error
}

// Range is one row of a scan table, in picoseconds.
type Range struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
	Step  int `yaml:"step"`
}

// Validate checks that r describes a non-empty ascending range.
func (r Range) Validate() error {
	if r.Step <= 0 {
		return fmt.Errorf("%w: step %d", ErrInvalidRange, r.Step)
	}
	if r.End < r.Start {
		return fmt.Errorf("%w: end %d before start %d", ErrInvalidRange, r.End, r.Start)
	}

	return nil
}

// Plan expands ranges into the delays of a scan. Every range contributes (End-Start)/Step
// steps from Start; the last range contributes one more, so its end is included when it
// lies on the step grid. Delays are clamped to [MinDelay, MaxDelay].
func Plan(ranges []Range) ([]int, error) {
	var delays []int
	for i, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("range %d: %w", i, err)
		}

		steps := (r.End - r.Start) / r.Step
		if i == len(ranges)-1 {
			steps++
		}
		for step := range steps {
			delays = append(delays, ClampDelay(r.Start+step*r.Step))
		}
	}

	return delays, nil
}

// ClampDelay limits delay to [MinDelay, MaxDelay].
func ClampDelay(delay int) int {
	return min(max(delay, MinDelay), MaxDelay)
}

// DelayCode returns the phase-shifter code of delay.
func DelayCode(delay int) int {
	return ClampDelay(delay) / DelayResolution
}

// ParseRanges decodes a YAML list of ranges.
func ParseRanges(data []byte) ([]Range, error) {
	var ranges []Range
	if err := yaml.Unmarshal(data, &ranges); err != nil {
		return nil, fmt.Errorf("failed to parse scan ranges: %w", err)
	}
	for i, r := range ranges {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("range %d: %w", i, err)
		}
	}

	return ranges, nil
}

// LoadRanges reads a scan table saved by SaveRanges.
func LoadRanges(path string) ([]Range, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scan ranges: %w", err)
	}

	return ParseRanges(data)
}

// SaveRanges writes ranges as YAML to path.
func SaveRanges(path string, ranges []Range) error {
	data, err := yaml.Marshal(ranges)
	if err != nil {
		return fmt.Errorf("failed to encode scan ranges: %w", err)
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec
}
