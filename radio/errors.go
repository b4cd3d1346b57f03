package radio

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrNoConnection is returned when an operation needs the I2C
	// connection before Start acquired it.
	ErrNoConnection = errors.New("no i2c connection to the receiver, call Start first")

	// ErrNotPoweredUp is returned when tuning or configuring a receiver
	// that has not been powered up.
	ErrNotPoweredUp = errors.New("receiver is not powered up")
)

// BusError wraps a failed I2C transaction or reset line write.
// The device is in an indeterminate state afterwards; Reset and power
// up again to recover.
type BusError struct {
	Op  string
	Err error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("bus error during %s: %v", e.Op, e.Err)
}

func (e *BusError) Unwrap() error { return e.Err }

// Cause lets github.com/pkg/errors reach the transport error.
func (e *BusError) Cause() error { return e.Err }

// TimeoutError reports a status wait that ran out of attempts.
type TimeoutError struct {
	Op       string
	Attempts int
	Status   byte
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout waiting for %s after %d attempts, last status 0x%02x",
		e.Op, e.Attempts, e.Status)
}

// ConfigError reports an argument rejected before anything was sent.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}
