// Package display drives a SunFounder LCD1602 behind a PCF8574 backpack
// to show what the receiver is tuned to.
package display

import (
	"fmt"
	"time"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	// command selects the instruction register, EN high
	command = 0x04

	// data selects the data register, EN high
	data = 0x05

	// address is our default address
	address = 0x27

	backlight = 0x08
	enable    = 0x04

	columns = 16
)

// Station is what the display shows.
type Station struct {
	Band      string
	Frequency uint16
	Volume    uint8
	RSSI      uint8
	SNR       uint8
}

// Lines renders the station on the two display rows.
// FM frequencies are in 10 kHz steps, everything else in kHz.
func (s Station) Lines() (string, string) {
	var freq string
	if s.Band == "FM" {
		freq = fmt.Sprintf("%d.%02d MHz", s.Frequency/100, s.Frequency%100)
	} else {
		freq = fmt.Sprintf("%d kHz", s.Frequency)
	}

	top := fmt.Sprintf("%-3s%13s", s.Band, freq)
	bottom := fmt.Sprintf("V%-2d %3ddBu %2ddB", s.Volume, s.RSSI, s.SNR)
	return fit(top), fit(bottom)
}

func fit(line string) string {
	if len(line) > columns {
		return line[:columns]
	}
	return fmt.Sprintf("%-16s", line)
}

// LCD1602Driver controls the LCD 1602 from SunFounder.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type LCD1602Driver struct {
	name         string
	i2cConnector i2c.Connector
	i2c.Config

	conn  i2c.Connection
	sleep func(time.Duration)

	backlightEnabled bool
}

// Name of our device
func (lcd *LCD1602Driver) Name() string {
	return lcd.name
}

// SetName set the name of our device
func (lcd *LCD1602Driver) SetName(name string) {
	lcd.name = name
}

// Start puts the controller in 4 bit, 2 line mode with the cursor hidden.
func (lcd *LCD1602Driver) Start() error {
	bus := lcd.GetBusOrDefault(lcd.i2cConnector.GetDefaultBus())

	var err error
	lcd.conn, err = lcd.i2cConnector.GetConnection(lcd.GetAddressOrDefault(address), bus)
	if err != nil {
		return err
	}

	for _, cmd := range []byte{0x33, 0x32, 0x28, 0x0C} {
		if err = lcd.transfer(command, cmd); err != nil {
			return err
		}
		lcd.sleep(5 * time.Millisecond)
	}

	return lcd.Clear()
}

// Halt blanks the screen and turns the backlight off.
func (lcd *LCD1602Driver) Halt() error {
	if lcd.conn == nil {
		return nil
	}
	lcd.backlightEnabled = false
	return lcd.Clear()
}

// Connection retrieves the i2c connection to the device
func (lcd *LCD1602Driver) Connection() gobot.Connection {
	return lcd.i2cConnector.(gobot.Connection)
}

// write puts one byte on the PCF8574 outputs.
func (lcd *LCD1602Driver) write(b byte) error {
	if lcd.backlightEnabled {
		b |= backlight
	}
	return lcd.conn.WriteByte(b)
}

// transfer clocks a byte into the controller high nibble first,
// pulsing EN for each nibble.
func (lcd *LCD1602Driver) transfer(register byte, b byte) error {
	for _, nibble := range []byte{b & 0xF0, (b & 0x0F) << 4} {
		if err := lcd.write(nibble | register); err != nil {
			return err
		}
		lcd.sleep(2 * time.Millisecond)

		if err := lcd.write((nibble | register) &^ enable); err != nil {
			return err
		}
	}
	return nil
}

// Clear removes any message from the screen.
func (lcd *LCD1602Driver) Clear() error {
	if err := lcd.transfer(command, 0x01); err != nil {
		return err
	}
	lcd.sleep(2 * time.Millisecond)
	return lcd.write(0)
}

// Print writes msg on row 0 or 1 starting at column x. Text past the
// end of the row is dropped.
func (lcd *LCD1602Driver) Print(x, y int, msg string) error {
	if x < 0 {
		x = 0
	}
	if x > columns-1 {
		x = columns - 1
	}
	if y < 0 {
		y = 0
	}
	if y > 1 {
		y = 1
	}

	if err := lcd.transfer(command, byte(0x80+0x40*y+x)); err != nil {
		return err
	}

	if len(msg) > columns-x {
		msg = msg[:columns-x]
	}
	for i := 0; i < len(msg); i++ {
		if err := lcd.transfer(data, msg[i]); err != nil {
			return err
		}
	}
	return nil
}

// ShowStation renders the station on both rows.
func (lcd *LCD1602Driver) ShowStation(s Station) error {
	top, bottom := s.Lines()
	if err := lcd.Print(0, 0, top); err != nil {
		return err
	}
	return lcd.Print(0, 1, bottom)
}

// NewLCD1602Driver creates a new GoBot driver for the status display.
func NewLCD1602Driver(connector i2c.Connector, options ...func(i2c.Config)) *LCD1602Driver {
	lcd := &LCD1602Driver{
		name:             gobot.DefaultName("LCD1602Driver"),
		i2cConnector:     connector,
		Config:           i2c.NewConfig(),
		sleep:            time.Sleep,
		backlightEnabled: true,
	}

	for _, option := range options {
		option(lcd)
	}

	return lcd
}
