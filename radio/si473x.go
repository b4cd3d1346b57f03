// Package radio implements a driver for the Silicon Labs Si473x family of
// AM/FM/SW/LW receivers, optionally running the SSB patch.
//
// The main implementation is under the Si473xDriver and it requires
// some additional configuration via Si473xConfig structure.
//
// Every command is a write transaction followed by polling the status
// byte for CTS. Tuning additionally polls the interrupt status for STCINT.
// Both waits are bounded, see Si473xConfig.
//
// To read about the specifications of the receiver, read the following documents:
// https://www.silabs.com/documents/public/data-sheets/Si4730-31-34-35-D60.pdf
// https://www.silabs.com/documents/public/application-notes/AN332.pdf
package radio

import (
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/gpio"
	"gobot.io/x/gobot/drivers/i2c"
)

const (
	low  = 0x0
	high = 0x1
)

// State of the receiver as seen by the driver.
type State uint8

// Driver states, in the order a session moves through them.
const (
	StateUninitialized State = iota
	StateReset
	StatePoweredUp
	StateConfigured
	StateTuned
	StatePoweredDown
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateReset:
		return "reset"
	case StatePoweredUp:
		return "powered up"
	case StateConfigured:
		return "configured"
	case StateTuned:
		return "tuned"
	case StatePoweredDown:
		return "powered down"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

func (s State) poweredUp() bool {
	return s == StatePoweredUp || s == StateConfigured || s == StateTuned
}

// TuneStatus is the answer to the tune status command.
type TuneStatus struct {
	Frequency uint16
	RSSI      uint8 // dBuV
	SNR       uint8 // dB
	AntCap    uint16
	Valid     bool
}

// SignalQuality is the answer to the RSQ status command.
type SignalQuality struct {
	RSSI uint8 // dBuV
	SNR  uint8 // dB
}

// Revision is the answer to the GET_REV command.
type Revision struct {
	PartNumber uint8
	Firmware   string
	PatchID    uint16
	Component  string
	ChipRev    byte
}

// Si473xDriver holds the implementation to talk to a Si473x receiver.
// All exported operations are serialised, the chip has a single command pipeline.
//
//goland:noinspection GoUnnecessarilyExportedIdentifiers
type Si473xDriver struct {
	mu sync.Mutex

	name     string
	resetPin string

	conn         i2c.Connection
	i2cConnector i2c.Connector
	i2c.Config

	debugMode bool
	debugLog  func(format string, v ...interface{})
	log       func(format string, v ...interface{})
	sleep     func(time.Duration)

	mode           Mode
	frequency      uint16
	volume         uint8
	avcMaxGain     uint8
	sideband       Sideband
	ssb            SSBConfig
	patch          []byte
	refClkFreq     uint16
	refClkPrescale uint16

	resetHold             time.Duration
	patchPowerUpSettle    time.Duration
	patchSettle           time.Duration
	chunkDelay            time.Duration
	ctsPollInterval       time.Duration
	interruptPollInterval time.Duration
	ctsAttempts           int
	interruptAttempts     int

	state    State
	status   byte
	lastTune TuneStatus
}

// Name of our device.
func (s *Si473xDriver) Name() string {
	return s.name
}

// SetName set the name of our device.
func (s *Si473xDriver) SetName(name string) {
	s.name = name
}

// Connection retrieves the i2c connection to the device.
func (s *Si473xDriver) Connection() gobot.Connection {
	return s.i2cConnector.(gobot.Connection)
}

// Start acquires the bus connection, powers the receiver up and tunes
// to the configured frequency. With a patch configured the SSB power up
// path is used.
func (s *Si473xDriver) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bus := s.GetBusOrDefault(s.i2cConnector.GetDefaultBus())
	addr := s.GetAddressOrDefault(Address)
	var err error
	s.conn, err = s.i2cConnector.GetConnection(addr, bus)
	if err != nil {
		return &BusError{Op: "connect", Err: err}
	}

	if s.patch != nil {
		err = s.powerUpWithPatch()
	} else {
		err = s.powerUp()
		if err == nil {
			err = s.setVolume(s.volume)
		}
	}
	if err != nil {
		return err
	}

	if s.debugMode {
		rev, err := s.revision()
		if err != nil {
			return err
		}
		s.debugLog("Part # Si47%d firmware %s patch %x component %s chip rev %c\n",
			rev.PartNumber, rev.Firmware, rev.PatchID, rev.Component, rev.ChipRev)
	}

	if s.frequency == 0 {
		return nil
	}
	return s.setFrequency(s.frequency)
}

// Halt powers the receiver down and holds it in reset.
func (s *Si473xDriver) Halt() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result *multierror.Error
	if s.conn != nil && s.state.poweredUp() {
		if err := s.powerDown(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if dw, ok := s.i2cConnector.(gpio.DigitalWriter); ok {
		if err := dw.DigitalWrite(s.resetPin, low); err != nil {
			result = multierror.Append(result, &BusError{Op: "reset line", Err: err})
		}
	}
	return result.ErrorOrNil()
}

// State returns where the receiver is in its power up sequence.
func (s *Si473xDriver) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Mode returns the band in use.
func (s *Si473xDriver) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Frequency returns the last frequency tuned to, 0 before any tuning.
func (s *Si473xDriver) Frequency() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateTuned {
		return 0
	}
	return s.frequency
}

// Volume returns the last volume written.
func (s *Si473xDriver) Volume() uint8 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Status returns the last status byte read from the device.
func (s *Si473xDriver) Status() byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// LastTune returns the tune status read after the last SetFrequency.
func (s *Si473xDriver) LastTune() TuneStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastTune
}

// Reset pulses the reset line low then high.
func (s *Si473xDriver) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset()
}

// PowerUp resets the receiver, powers it up in the configured mode
// and writes the reference clock properties.
func (s *Si473xDriver) PowerUp() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNoConnection
	}
	return s.powerUp()
}

// PowerUpWithPatch powers the receiver up with the patch image applied,
// then sets the AVC gain, the volume and the SSB mode.
func (s *Si473xDriver) PowerUpWithPatch() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNoConnection
	}
	if s.patch == nil {
		return &ConfigError{Field: "patch", Value: "none", Reason: "no patch image configured"}
	}
	return s.powerUpWithPatch()
}

// PowerDown turns off the device.
func (s *Si473xDriver) PowerDown() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return ErrNoConnection
	}
	return s.powerDown()
}

// SetFrequency tunes to freq, in kHz for LW/AM/SW or 10 kHz steps for FM.
func (s *Si473xDriver) SetFrequency(freq uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return err
	}
	return s.setFrequency(freq)
}

// SetVolume sets the audio output volume, 0 to 63.
func (s *Si473xDriver) SetVolume(vol uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return err
	}
	return s.setVolume(vol)
}

// SetProperty writes a chip property.
func (s *Si473xDriver) SetProperty(property, value uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return err
	}
	return s.setProperty(property, value)
}

// SetAvcAmMaxGain sets the maximum gain of the AM automatic volume control, in dB.
func (s *Si473xDriver) SetAvcAmMaxGain(gain uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return err
	}
	return s.setAvcAmMaxGain(gain)
}

// SetSSBConfig writes the SSB_MODE property. Only meaningful with the SSB patch applied.
func (s *Si473xDriver) SetSSBConfig(cfg SSBConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return err
	}
	return s.setSSBConfig(cfg)
}

// SetMode switches band. Moving between FM and the AM family needs a
// different receive function, so the receiver is power cycled through
// the standard path and the volume restored. The patch is not reloaded.
func (s *Si473xDriver) SetMode(mode Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !mode.valid() {
		return &ConfigError{Field: "mode", Value: mode, Reason: "unknown mode"}
	}
	if err := s.checkPoweredUp(); err != nil {
		return err
	}
	if mode == s.mode {
		return nil
	}

	if mode.IsAM() == s.mode.IsAM() {
		s.mode = mode
		if s.state == StateTuned {
			s.state = StateConfigured
		}
		return nil
	}

	if err := s.powerDown(); err != nil {
		return err
	}
	s.mode = mode
	s.patch = nil
	s.sideband = SidebandNone
	if err := s.powerUp(); err != nil {
		return err
	}
	if err := s.setVolume(s.volume); err != nil {
		return err
	}
	s.state = StateConfigured
	return nil
}

// Revision reads the part number, firmware and chip revision.
func (s *Si473xDriver) Revision() (Revision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return Revision{}, err
	}
	return s.revision()
}

// SignalQuality reads the RSSI and SNR of the current station.
func (s *Si473xDriver) SignalQuality() (SignalQuality, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkPoweredUp(); err != nil {
		return SignalQuality{}, err
	}
	return s.signalQuality()
}

// Loop traces the signal quality of the current station when debugging.
func (s *Si473xDriver) Loop() error {
	if !s.debugMode {
		return nil
	}

	q, err := s.SignalQuality()
	if err != nil {
		return err
	}
	s.debugLog("%s %d RSSI: %d dBuV SNR: %d dB\n", s.Mode(), s.Frequency(), q.RSSI, q.SNR)
	return nil
}

func (s *Si473xDriver) checkPoweredUp() error {
	if s.conn == nil {
		return ErrNoConnection
	}
	if !s.state.poweredUp() {
		return ErrNotPoweredUp
	}
	return nil
}

// Resets the registers to default settings by pulsing the reset line.
func (s *Si473xDriver) reset() (err error) {
	dw, ok := s.i2cConnector.(gpio.DigitalWriter)
	if !ok {
		return fmt.Errorf("i2c connector does not have a digital writer capability")
	}

	if err = dw.DigitalWrite(s.resetPin, low); err != nil {
		return &BusError{Op: "reset line", Err: err}
	}
	s.sleep(s.resetHold)

	if err = dw.DigitalWrite(s.resetPin, high); err != nil {
		return &BusError{Op: "reset line", Err: err}
	}
	s.sleep(s.resetHold)

	s.state = StateReset
	s.lastTune = TuneStatus{}
	return nil
}

// Sends the power up command for the configured mode, then sets
// PROP_REFCLK_FREQ and PROP_REFCLK_PRESCALE.
func (s *Si473xDriver) powerUp() error {
	if s.debugMode {
		s.debugLog("Powering up in %s mode\n", s.mode)
	}
	if err := s.reset(); err != nil {
		return err
	}
	return s.powerUpNoReset()
}

func (s *Si473xDriver) powerUpNoReset() error {
	if err := s.sendWait(encodePowerUp(s.mode)); err != nil {
		return err
	}
	if err := s.setProperty(PROP_REFCLK_FREQ, s.refClkFreq); err != nil {
		return err
	}
	if err := s.setProperty(PROP_REFCLK_PRESCALE, s.refClkPrescale); err != nil {
		return err
	}

	s.state = StatePoweredUp
	return nil
}

// The patch lives in the chip RAM, so the reset is done once before the
// patch power up and not again before the regular power up command.
// A reset here would drop the patch, see AN332 "Powerup from a
// component patch" (POWER_UP with PATCH=1, download, then POWER_UP).
func (s *Si473xDriver) powerUpWithPatch() error {
	if s.debugMode {
		s.debugLog("Powering up in %s mode with a %d byte patch\n", s.mode, len(s.patch))
	}
	if err := s.reset(); err != nil {
		return err
	}
	if err := s.sendWait(encodePatchPowerUp()); err != nil {
		return err
	}
	s.sleep(s.patchPowerUpSettle)

	if err := s.downloadPatch(s.patch); err != nil {
		return err
	}
	s.sleep(s.patchSettle)

	if err := s.powerUpNoReset(); err != nil {
		return err
	}
	if err := s.setAvcAmMaxGain(s.avcMaxGain); err != nil {
		return err
	}
	if err := s.setVolume(s.volume); err != nil {
		return err
	}
	if err := s.setSSBConfig(s.ssb); err != nil {
		return err
	}

	s.state = StateConfigured
	return nil
}

func (s *Si473xDriver) powerDown() error {
	if err := s.sendCommand(encodePowerDown()); err != nil {
		return err
	}
	s.state = StatePoweredDown
	return nil
}

func (s *Si473xDriver) setFrequency(freq uint16) error {
	cmd, err := encodeSetFrequency(s.mode, freq, s.sideband)
	if err != nil {
		return err
	}

	if s.debugMode {
		s.debugLog("Setting %s frequency to %d (0x%02x 0x%02x)\n", s.mode, freq, byteHigh(freq), byteLow(freq))
	}
	if err = s.sendWait(cmd); err != nil {
		return err
	}

	if s.debugMode {
		s.debugLog("Frequency set, just waiting for tuning to complete\n")
	}
	if err = s.waitForInterrupt(STATUS_STCINT); err != nil {
		return err
	}

	if err = s.sendCommand(encodeTuneStatus(s.mode)); err != nil {
		return err
	}
	values, err := s.readResponse("tune status", 8)
	if err != nil {
		return err
	}

	s.frequency = freq
	s.state = StateTuned
	s.lastTune = parseTuneStatus(s.mode, values)
	if s.debugMode {
		s.debugLog("Curr freq: %d RSSI: %d dBuV SNR: %d dB ANT cap: %d\n",
			s.lastTune.Frequency, s.lastTune.RSSI, s.lastTune.SNR, s.lastTune.AntCap)
	}
	return nil
}

// FM: STATUS, RESP1, FREQH, FREQL, RSSI, SNR, MULT, ANTCAP.
// AM: STATUS, RESP1, FREQH, FREQL, RSSI, SNR, ANTCAPH, ANTCAPL.
func parseTuneStatus(mode Mode, values []byte) TuneStatus {
	ts := TuneStatus{
		Frequency: uint16(values[2])<<8 | uint16(values[3]),
		RSSI:      values[4],
		SNR:       values[5],
		Valid:     values[1]&0x01 != 0,
	}
	if mode == ModeFM {
		ts.AntCap = uint16(values[7])
	} else {
		ts.AntCap = uint16(values[6])<<8 | uint16(values[7])
	}
	return ts
}

func (s *Si473xDriver) setVolume(vol uint8) error {
	cmd, err := encodeSetVolume(vol)
	if err != nil {
		return err
	}
	if s.debugMode {
		s.debugLog("Setting volume to 0x%02x\n", vol)
	}
	if err = s.sendWait(cmd); err != nil {
		return err
	}
	s.volume = vol
	return nil
}

// Set chip property over I2C.
func (s *Si473xDriver) setProperty(property, value uint16) error {
	if s.debugMode {
		s.debugLog("Set Prop 0x%04x = 0x%04x (%d)\n", property, value, value)
	}
	return s.sendWait(encodeSetProperty(property, value))
}

func (s *Si473xDriver) setAvcAmMaxGain(gain uint8) error {
	cmd, err := encodeAvcMaxGain(gain)
	if err != nil {
		return err
	}
	if err = s.sendWait(cmd); err != nil {
		return err
	}
	s.avcMaxGain = gain
	return nil
}

func (s *Si473xDriver) setSSBConfig(cfg SSBConfig) error {
	cmd, err := encodeSSBConfig(cfg)
	if err != nil {
		return err
	}
	if err = s.sendWait(cmd); err != nil {
		return err
	}
	s.ssb = cfg
	return nil
}

// Get the hardware revision code from the device using CMD_GET_REV.
func (s *Si473xDriver) revision() (Revision, error) {
	if err := s.sendCommand(encodeGetRev()); err != nil {
		return Revision{}, err
	}

	values, err := s.readResponse("revision", 9)
	if err != nil {
		return Revision{}, err
	}

	return Revision{
		PartNumber: values[1],
		Firmware:   string([]byte{values[2], '.', values[3]}),
		PatchID:    uint16(values[4])<<8 | uint16(values[5]),
		Component:  string([]byte{values[6], '.', values[7]}),
		ChipRev:    values[8],
	}, nil
}

func (s *Si473xDriver) signalQuality() (SignalQuality, error) {
	if err := s.sendCommand(encodeRSQStatus(s.mode)); err != nil {
		return SignalQuality{}, err
	}

	values, err := s.readResponse("signal quality", 6)
	if err != nil {
		return SignalQuality{}, err
	}

	return SignalQuality{RSSI: values[4], SNR: values[5]}, nil
}

// NewSi473xDriver creates a new GoBot driver for our receiver.
func NewSi473xDriver(connector i2c.Connector, cfg Si473xConfig, options ...func(i2c.Config)) (*Si473xDriver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res := &Si473xDriver{
		name:         gobot.DefaultName("Si473xDriver"),
		i2cConnector: connector,
		Config:       i2c.NewConfig(),

		mode:           cfg.Mode,
		frequency:      cfg.Frequency,
		volume:         cfg.Volume,
		avcMaxGain:     cfg.AvcMaxGain,
		sideband:       cfg.Sideband,
		ssb:            cfg.SSB,
		patch:          cfg.Patch,
		refClkFreq:     cfg.RefClkFreq,
		refClkPrescale: cfg.RefClkPrescale,
		resetPin:       cfg.ResetPin,

		resetHold:             cfg.ResetHold,
		patchPowerUpSettle:    cfg.PatchPowerUpSettle,
		patchSettle:           cfg.PatchSettle,
		chunkDelay:            cfg.ChunkDelay,
		ctsPollInterval:       cfg.CTSPollInterval,
		interruptPollInterval: cfg.InterruptPollInterval,
		ctsAttempts:           cfg.CTSAttempts,
		interruptAttempts:     cfg.InterruptAttempts,
		sleep:                 cfg.Sleep,

		debugMode: cfg.DebugMode,
		debugLog:  cfg.DebugLog,
		log:       cfg.Log,
	}

	for _, option := range options {
		option(res)
	}

	return res, nil
}
