package rudp

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v2"
)

// Config is the recognised configuration surface of a pipeline stage. It is
// small enough to hand-build in code (see DefaultConfig) or load from a
// YAML document with LoadConfig.
type Config struct {
	// WindowSize is the maximum number of unacknowledged packets in flight
	// per direction, and the capacity of every ring and timer buffer.
	// Must be in [1,64]. Defaults to 32.
	WindowSize int `yaml:"window_size"`

	// MinimumResendTime is the floor of the adaptive resend timeout, in
	// milliseconds. Runtime-settable. Defaults to 64.
	MinimumResendTime int `yaml:"minimum_resend_time_ms"`

	// MaximumResendTime is the ceiling of the adaptive resend timeout, in
	// milliseconds. Fixed at 200 by protocol default; exposed here mainly
	// so tests can shrink it.
	MaximumResendTime int `yaml:"maximum_resend_time_ms"`
}

// DefaultConfig returns the protocol's default configuration:
// WindowSize=32, MinimumResendTime=64ms, MaximumResendTime=200ms.
func DefaultConfig() Config {
	return Config{
		WindowSize:        32,
		MinimumResendTime: 64,
		MaximumResendTime: 200,
	}
}

// Validate reports whether c is usable by NewContext. WindowSize outside
// [1,64] or a minimum resend time at or above the maximum both fail.
func (c Config) Validate() error {
	if c.WindowSize < 1 || c.WindowSize > 64 {
		return fmt.Errorf("rudp: window size %d out of range [1,64]", c.WindowSize)
	}
	if c.MinimumResendTime <= 0 {
		return fmt.Errorf("rudp: minimum resend time %dms must be positive", c.MinimumResendTime)
	}
	if c.MinimumResendTime >= c.MaximumResendTime {
		return fmt.Errorf("rudp: minimum resend time %dms must be below maximum %dms", c.MinimumResendTime, c.MaximumResendTime)
	}
	return nil
}

// LoadConfig reads a YAML configuration document from r, applying
// DefaultConfig for any field left unset. It does not call Validate; the
// caller should do so (NewContext does this automatically).
func LoadConfig(r io.Reader) (Config, error) {
	c := DefaultConfig()

	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("rudp: reading config: %w", err)
	}
	if len(data) == 0 {
		return c, nil
	}

	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, fmt.Errorf("rudp: parsing config: %w", err)
	}
	return c, nil
}
