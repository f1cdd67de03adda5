// Package config loads the device binding configuration and persists the calibration
// dictionary.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDevice indicates a malformed device configuration.
var ErrInvalidDevice = errors.New("invalid device configuration")

// Device is a named device binding. The content beyond the name is opaque to the
// acquisition core and is passed through to the driver.
type Device struct {
	// Name identifies the configuration.
	Name string `yaml:"name"`
	// IniFile is the path of the vendor configuration file, if any.
	IniFile string `yaml:"ini_file,omitempty"`
	// Params holds free-form driver parameters.
	Params map[string]string `yaml:"params,omitempty"`
}

// Validate checks that d can be passed to a driver.
func (d *Device) Validate() error {
	if d == nil {
		return fmt.Errorf("%w: nil", ErrInvalidDevice)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDevice)
	}

	return nil
}

// Param returns the value of the parameter key and whether it is set.
func (d *Device) Param(key string) (string, bool) {
	v, ok := d.Params[key]
	return v, ok
}

// ParseDevice decodes and validates a YAML device configuration.
func ParseDevice(data []byte) (*Device, error) {
	var d Device
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDevice, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}

	return &d, nil
}

// LoadDevice reads a YAML device configuration from path.
func LoadDevice(path string) (*Device, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device config: %w", err)
	}

	return ParseDevice(data)
}
