package radio

import (
	"fmt"
	"strings"
)

// Misc constants.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// Address is the device default address when SEN is low.
	Address = 0x11

	// AlternativeAddress if SEN is high.
	AlternativeAddress = 0x63

	// DEFAULT_REFCLK_FREQ is the frequency of the external reference clock in Hz.
	DEFAULT_REFCLK_FREQ = 32768

	// DEFAULT_REFCLK_PRESCALE divides RCLK down to the reference clock.
	DEFAULT_REFCLK_PRESCALE = 1
)

// Command identifiers understood by the receiver.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// CMD_POWER_UP powers up the device and selects the receive function.
	CMD_POWER_UP = 0x01

	// CMD_GET_REV returns revision information on the device.
	CMD_GET_REV = 0x10

	// CMD_POWER_DOWN powers down the device.
	CMD_POWER_DOWN = 0x11

	// CMD_SET_PROPERTY sets the value of a property.
	CMD_SET_PROPERTY = 0x12

	// CMD_GET_PROPERTY retrieves a property's value.
	CMD_GET_PROPERTY = 0x13

	// CMD_GET_INT_STATUS reads the interrupt status bits.
	CMD_GET_INT_STATUS = 0x14

	// CMD_FM_TUNE_FREQ selects the FM tuning frequency.
	CMD_FM_TUNE_FREQ = 0x20

	// CMD_FM_TUNE_STATUS queries the status of the last FM tune or seek.
	CMD_FM_TUNE_STATUS = 0x22

	// CMD_FM_RSQ_STATUS queries the FM received signal quality.
	CMD_FM_RSQ_STATUS = 0x23

	// CMD_AM_TUNE_FREQ selects the AM/SW/LW tuning frequency.
	// With the SSB patch applied it also selects the side band.
	CMD_AM_TUNE_FREQ = 0x40

	// CMD_AM_TUNE_STATUS queries the status of the last AM tune or seek.
	CMD_AM_TUNE_STATUS = 0x42

	// CMD_AM_RSQ_STATUS queries the AM received signal quality.
	CMD_AM_RSQ_STATUS = 0x43
)

// Status byte bits.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	STATUS_CTS    = 0x80
	STATUS_ERR    = 0x40
	STATUS_RSQINT = 0x08
	STATUS_STCINT = 0x01
)

// Command arguments.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// ARG_POWER_UP_FM selects FM receive.
	ARG_POWER_UP_FM = 0x00

	// ARG_POWER_UP_AM selects AM/SW/LW receive with the CTS interrupt enabled.
	ARG_POWER_UP_AM = 0x81

	// ARG_POWER_UP_PATCH selects AM receive with the crystal oscillator
	// enabled and the patch bit set, so the next writes load a patch.
	ARG_POWER_UP_PATCH = 0x31

	// OUT_ANALOG routes audio to the analog LOUT/ROUT pins.
	OUT_ANALOG = 0x05

	// FLG_INTACK clears the seek/tune complete interrupt.
	FLG_INTACK = 0x01
)

// Properties used by the driver.
//
//goland:noinspection GoUnusedConst,GoUnnecessarilyExportedIdentifiers,GoSnakeCaseUsage
const (
	// PROP_SSB_MODE configures the SSB demodulator. Needs the SSB patch.
	PROP_SSB_MODE = 0x0101

	// PROP_REFCLK_FREQ sets frequency of the reference clock in Hz.
	// The range is 31130 to 34406 Hz.
	PROP_REFCLK_FREQ = 0x0201

	// PROP_REFCLK_PRESCALE sets the prescaler value for the reference clock.
	PROP_REFCLK_PRESCALE = 0x0202

	// PROP_AM_AVC_MAX_GAIN sets the maximum gain of the automatic volume control.
	// Units are 1/340 dB.
	PROP_AM_AVC_MAX_GAIN = 0x3103

	// PROP_RX_VOLUME sets the audio output volume, 0 to 63.
	PROP_RX_VOLUME = 0x4000
)

const (
	maxVolume     = 63
	minAvcMaxGain = 12
	maxAvcMaxGain = 90
	avcGainStep   = 340

	minRefClkFreq = 31130
	maxRefClkFreq = 34406
)

// Mode selects the receive band, and through it the tune command encoding.
type Mode uint8

// The bands supported by the receiver.
const (
	ModeLW Mode = iota
	ModeAM
	ModeSW
	ModeFM
)

type band struct {
	min, max uint16
	unit     string
}

// Frequencies are in kHz for the AM family and in 10 kHz steps for FM.
var bands = map[Mode]band{
	ModeLW: {149, 519, "kHz"},
	ModeAM: {520, 1710, "kHz"},
	ModeSW: {1711, 30000, "kHz"},
	ModeFM: {6400, 10800, "x10 kHz"},
}

func (m Mode) String() string {
	switch m {
	case ModeLW:
		return "LW"
	case ModeAM:
		return "AM"
	case ModeSW:
		return "SW"
	case ModeFM:
		return "FM"
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// IsAM reports whether the mode runs on the AM receive function.
func (m Mode) IsAM() bool {
	return m == ModeLW || m == ModeAM || m == ModeSW
}

func (m Mode) valid() bool {
	_, ok := bands[m]
	return ok
}

// ParseMode converts a band name such as "am" or "FM" to a Mode.
func ParseMode(s string) (Mode, error) {
	for m := ModeLW; m <= ModeFM; m++ {
		if strings.EqualFold(s, m.String()) {
			return m, nil
		}
	}
	return 0, &ConfigError{Field: "mode", Value: s, Reason: "must be one of LW, AM, SW, FM"}
}

// Sideband selects the SSB side band when the SSB patch is loaded.
type Sideband uint8

// Side band selections, as encoded in bits 7:6 of the AM tune argument.
const (
	SidebandNone Sideband = iota
	SidebandLSB
	SidebandUSB
)

func (s Sideband) String() string {
	switch s {
	case SidebandNone:
		return "none"
	case SidebandLSB:
		return "LSB"
	case SidebandUSB:
		return "USB"
	}
	return fmt.Sprintf("Sideband(%d)", uint8(s))
}

// ParseSideband converts "", "none", "lsb" or "usb" to a Sideband.
func ParseSideband(s string) (Sideband, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return SidebandNone, nil
	case "lsb":
		return SidebandLSB, nil
	case "usb":
		return SidebandUSB, nil
	}
	return 0, &ConfigError{Field: "sideband", Value: s, Reason: "must be none, LSB or USB"}
}

// SSBConfig holds the fields of the SSB_MODE property.
type SSBConfig struct {
	// AudioBandwidth: 0 = 1.2kHz, 1 = 2.2kHz, 2 = 3kHz, 3 = 4kHz, 4 = 500Hz, 5 = 1kHz.
	AudioBandwidth uint8
	// SidebandCutoffFilter selects the band pass (0) or low pass (1) filter.
	SidebandCutoffFilter uint8
	// AvcDivider is 0 for SSB mode and 3 for SYNC mode.
	AvcDivider uint8
	AvcEnable  bool
	// SoftMuteSNR bases the soft mute on SNR instead of RSSI.
	SoftMuteSNR bool
	// DisableAFC is set for SSB mode and cleared for SYNC mode.
	DisableAFC bool
}

// DefaultSSBConfig is 3kHz audio, AVC on, AFC off.
func DefaultSSBConfig() SSBConfig {
	return SSBConfig{
		AudioBandwidth: 2,
		AvcEnable:      true,
		DisableAFC:     true,
	}
}

// Value packs the configuration into the SSB_MODE property value.
func (c SSBConfig) Value() (uint16, error) {
	if c.AudioBandwidth > 5 {
		return 0, &ConfigError{Field: "ssb audio bandwidth", Value: c.AudioBandwidth, Reason: "must be 0..5"}
	}
	if c.SidebandCutoffFilter > 1 {
		return 0, &ConfigError{Field: "ssb cutoff filter", Value: c.SidebandCutoffFilter, Reason: "must be 0 or 1"}
	}
	if c.AvcDivider != 0 && c.AvcDivider != 3 {
		return 0, &ConfigError{Field: "ssb avc divider", Value: c.AvcDivider, Reason: "must be 0 (SSB) or 3 (SYNC)"}
	}

	v := uint16(c.AudioBandwidth) | uint16(c.SidebandCutoffFilter)<<4 | uint16(c.AvcDivider)<<8
	if c.AvcEnable {
		v |= 1 << 12
	}
	if c.SoftMuteSNR {
		v |= 1 << 13
	}
	if c.DisableAFC {
		v |= 1 << 15
	}
	return v, nil
}

// Define the format for the command to send to the receiver.
type command []uint8

func (c command) String() string {
	parts := make([]string, len(c))
	for i, b := range c {
		parts[i] = fmt.Sprintf("0x%02x", b)
	}
	return strings.Join(parts, " ")
}

func byteHigh(val uint16) uint8 {
	return uint8(val >> 8)
}

func byteLow(val uint16) uint8 {
	return uint8(val & 0xFF)
}

func checkFrequency(mode Mode, freq uint16) error {
	b, ok := bands[mode]
	if !ok {
		return &ConfigError{Field: "mode", Value: mode, Reason: "unknown mode"}
	}
	if freq < b.min || freq > b.max {
		return &ConfigError{
			Field:  "frequency",
			Value:  freq,
			Reason: fmt.Sprintf("%s band is %d..%d %s", mode, b.min, b.max, b.unit),
		}
	}
	return nil
}

func encodePowerUp(mode Mode) command {
	arg := uint8(ARG_POWER_UP_FM)
	if mode.IsAM() {
		arg = ARG_POWER_UP_AM
	}
	return command{CMD_POWER_UP, arg, OUT_ANALOG}
}

func encodePatchPowerUp() command {
	return command{CMD_POWER_UP, ARG_POWER_UP_PATCH, OUT_ANALOG}
}

func encodePowerDown() command {
	return command{CMD_POWER_DOWN}
}

func encodeGetRev() command {
	return command{CMD_GET_REV}
}

func encodeGetIntStatus() command {
	return command{CMD_GET_INT_STATUS, 0x00}
}

// FM: opcode, FAST/FREEZE, FREQH, FREQL, ANTCAP.
// AM: opcode, FAST/USBLSB, FREQH, FREQL, ANTCAPH, ANTCAPL.
// ANTCAPL = 1 selects automatic antenna capacitor tuning.
func encodeSetFrequency(mode Mode, freq uint16, sb Sideband) (command, error) {
	if err := checkFrequency(mode, freq); err != nil {
		return nil, err
	}

	if mode == ModeFM {
		return command{CMD_FM_TUNE_FREQ, 0x00, byteHigh(freq), byteLow(freq), 0x00}, nil
	}

	if sb > SidebandUSB {
		return nil, &ConfigError{Field: "sideband", Value: sb, Reason: "unknown side band"}
	}
	return command{CMD_AM_TUNE_FREQ, uint8(sb) << 6, byteHigh(freq), byteLow(freq), 0x00, 0x01}, nil
}

func encodeTuneStatus(mode Mode) command {
	if mode == ModeFM {
		return command{CMD_FM_TUNE_STATUS, FLG_INTACK}
	}
	return command{CMD_AM_TUNE_STATUS, FLG_INTACK}
}

func encodeRSQStatus(mode Mode) command {
	if mode == ModeFM {
		return command{CMD_FM_RSQ_STATUS, FLG_INTACK}
	}
	return command{CMD_AM_RSQ_STATUS, FLG_INTACK}
}

// SET_PROPERTY: opcode, reserved zero, PROPH, PROPL, PROPDH, PROPDL.
func encodeSetProperty(property, value uint16) command {
	return command{
		CMD_SET_PROPERTY,
		0x00,
		byteHigh(property),
		byteLow(property),
		byteHigh(value),
		byteLow(value),
	}
}

func encodeSetVolume(vol uint8) (command, error) {
	if vol > maxVolume {
		return nil, &ConfigError{Field: "volume", Value: vol, Reason: fmt.Sprintf("must be 0..%d", maxVolume)}
	}
	return encodeSetProperty(PROP_RX_VOLUME, uint16(vol)), nil
}

func encodeAvcMaxGain(gain uint8) (command, error) {
	if gain < minAvcMaxGain || gain > maxAvcMaxGain {
		return nil, &ConfigError{
			Field:  "avc max gain",
			Value:  gain,
			Reason: fmt.Sprintf("must be %d..%d dB", minAvcMaxGain, maxAvcMaxGain),
		}
	}
	return encodeSetProperty(PROP_AM_AVC_MAX_GAIN, uint16(gain)*avcGainStep), nil
}

func encodeSSBConfig(cfg SSBConfig) (command, error) {
	v, err := cfg.Value()
	if err != nil {
		return nil, err
	}
	return encodeSetProperty(PROP_SSB_MODE, v), nil
}
