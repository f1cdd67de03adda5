package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Calibration is a small dictionary of human-entered coefficients, for example the time
// zero offset or the pixel size of a detector.
type Calibration struct {
	mu     sync.RWMutex
	values map[string]float64
}

// NewCalibration creates an empty calibration.
func NewCalibration() *Calibration {
	return &Calibration{values: make(map[string]float64)}
}

// LoadCalibration reads a calibration from a YAML file. A missing file yields an empty
// calibration.
func LoadCalibration(path string) (*Calibration, error) {
	c := NewCalibration()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration: %w", err)
	}

	if err := yaml.Unmarshal(data, &c.values); err != nil {
		return nil, fmt.Errorf("failed to decode calibration: %w", err)
	}
	if c.values == nil {
		c.values = make(map[string]float64)
	}

	return c, nil
}

// Save writes the calibration to path. The file is replaced atomically.
func (c *Calibration) Save(path string) error {
	c.mu.RLock()
	data, err := yaml.Marshal(c.values)
	c.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode calibration: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create calibration file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)

		return fmt.Errorf("failed to write calibration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write calibration: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace calibration: %w", err)
	}

	return nil
}

// Get returns the coefficient name and whether it is set.
func (c *Calibration) Get(name string) (float64, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.values[name]

	return v, ok
}

// GetOr returns the coefficient name, or def when it is not set.
func (c *Calibration) GetOr(name string, def float64) float64 {
	if v, ok := c.Get(name); ok {
		return v
	}

	return def
}

// Set stores the coefficient name.
func (c *Calibration) Set(name string, value float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.values[name] = value
}

// Delete removes the coefficient name.
func (c *Calibration) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.values, name)
}

// Names returns the sorted coefficient names.
func (c *Calibration) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
