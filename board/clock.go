package board

import (
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// RefClockPin is the general purpose clock pin wired to RCLK.
const RefClockPin = "GPIO4"

// RefClock is a square wave on a GPCLK pin used as the receiver reference clock.
type RefClock struct {
	pin  gpio.PinIO
	freq physic.Frequency
}

// StartRefClock initialises the periph host drivers and starts a clock
// of freqHz on the named pin.
func StartRefClock(pinName string, freqHz uint16) (*RefClock, error) {
	if _, err := host.Init(); err != nil {
		return nil, errors.Wrap(err, "periph host init")
	}

	p := gpioreg.ByName(pinName)
	if p == nil {
		return nil, errors.Errorf("no such pin %q", pinName)
	}
	return startOn(p, physic.Frequency(freqHz)*physic.Hertz)
}

func startOn(p gpio.PinIO, freq physic.Frequency) (*RefClock, error) {
	if freq <= 0 {
		return nil, errors.Errorf("invalid reference clock frequency %s", freq)
	}
	if err := p.PWM(gpio.DutyHalf, freq); err != nil {
		return nil, errors.Wrapf(err, "start %s clock on %s", freq, p)
	}
	return &RefClock{pin: p, freq: freq}, nil
}

// Frequency of the running clock.
func (c *RefClock) Frequency() physic.Frequency {
	return c.freq
}

// Stop halts the clock output.
func (c *RefClock) Stop() error {
	return errors.Wrap(c.pin.Halt(), "stop reference clock")
}
