package buffered

import (
	"fmt"

	"github.com/arloliu/go-tdc/event"
)

const (
	// DefaultMaxBufferedLength is the batch length used when Config.MaxBufferedLength is 0.
	DefaultMaxBufferedLength = 1 << 16
	// MaxBufferedLengthLimit is the largest accepted batch length.
	MaxBufferedLengthLimit = 1 << 24
)

// Config configures a buffered channel.
type Config struct {
	// Fields selects the event data fields the batches carry.
	Fields event.Field
	// MaxBufferedLength is the number of events that triggers a flush.
	// Defaults to DefaultMaxBufferedLength.
	MaxBufferedLength int
	// DLDEvents selects the DLD event stream when true, the TDC stream otherwise.
	DLDEvents bool
}

// Validate applies defaults and checks the configuration.
func (cfg *Config) Validate() error {
	if cfg.MaxBufferedLength == 0 {
		cfg.MaxBufferedLength = DefaultMaxBufferedLength
	}
	if cfg.MaxBufferedLength < 1 || cfg.MaxBufferedLength > MaxBufferedLengthLimit {
		return fmt.Errorf("%w: %d", ErrInvalidLength, cfg.MaxBufferedLength)
	}
	if cfg.Fields == 0 {
		return fmt.Errorf("%w: no field selected", ErrNoFields)
	}
	if unknown := cfg.Fields &^ event.AllFields; unknown != 0 {
		return fmt.Errorf("%w: unknown bits 0x%x", ErrNoFields, uint32(unknown))
	}

	return nil
}

// Available returns the selected fields that the configured event stream provides.
func (cfg *Config) Available() event.Field {
	if cfg.DLDEvents {
		return cfg.Fields & event.AllFields
	}

	return cfg.Fields & event.TDCFields
}
