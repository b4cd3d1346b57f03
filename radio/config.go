package radio

import (
	"time"
)

// Default timings. They come from experimenting with the hardware and
// are not load-bearing, so every one of them can be overridden.
const (
	DefaultResetHold             = 10 * time.Millisecond
	DefaultPatchPowerUpSettle    = 10 * time.Millisecond
	DefaultPatchSettle           = 2500 * time.Millisecond
	DefaultCTSPollInterval       = 1 * time.Millisecond
	DefaultInterruptPollInterval = 125 * time.Millisecond
	DefaultCTSAttempts           = 500
	DefaultInterruptAttempts     = 40
	DefaultAvcMaxGain            = 30
	DefaultVolume                = 50
)

// Si473xConfig holds the additional configuration needed for Si473xDriver.
type Si473xConfig struct {
	Mode Mode
	// Frequency to tune to on Start, 0 to stay untuned.
	Frequency uint16
	Volume    uint8

	// Patch, when set, is downloaded during Start and the SSB settings
	// below are applied.
	Patch      []byte
	AvcMaxGain uint8
	Sideband   Sideband
	SSB        SSBConfig

	RefClkFreq     uint16
	RefClkPrescale uint16
	ResetPin       string

	ResetHold             time.Duration
	PatchPowerUpSettle    time.Duration
	PatchSettle           time.Duration
	ChunkDelay            time.Duration
	CTSPollInterval       time.Duration
	InterruptPollInterval time.Duration
	CTSAttempts           int
	InterruptAttempts     int

	// Sleep replaces time.Sleep, mostly for tests.
	Sleep func(time.Duration)

	DebugMode bool
	DebugLog  func(format string, v ...interface{})
	Log       func(format string, v ...interface{})
}

// Validate ensures that our Si473xDriver configuration is valid.
// Soft values are adjusted with a log line, everything else is an error.
//noinspection GoUnnecessarilyExportedIdentifiers
func (c *Si473xConfig) Validate() error {
	if c.Log == nil {
		panic("logging function cannot be nil. Use something like log.Printf or an empty function instead")
	}
	if c.DebugMode && c.DebugLog == nil {
		panic("cannot use debugging mode without configuring a DebugLog function, e.g. log.Printf")
	}

	if !c.Mode.valid() {
		return &ConfigError{Field: "mode", Value: c.Mode, Reason: "unknown mode"}
	}
	if c.Frequency != 0 {
		if err := checkFrequency(c.Mode, c.Frequency); err != nil {
			return err
		}
	}

	if c.ResetPin == "" {
		// Header pin 13, BCM GPIO 27.
		c.ResetPin = "13"
	}

	if c.Volume > maxVolume {
		c.Log("Volume %d > %d. Adjusting to maximum of %d.\n", c.Volume, maxVolume, maxVolume)
		c.Volume = maxVolume
	}

	if c.RefClkFreq == 0 {
		c.RefClkFreq = DEFAULT_REFCLK_FREQ
	}
	if c.RefClkFreq < minRefClkFreq || c.RefClkFreq > maxRefClkFreq {
		return &ConfigError{Field: "refclk frequency", Value: c.RefClkFreq, Reason: "must be 31130..34406 Hz"}
	}
	if c.RefClkPrescale == 0 {
		c.RefClkPrescale = DEFAULT_REFCLK_PRESCALE
	}
	if c.RefClkPrescale > 4095 {
		return &ConfigError{Field: "refclk prescale", Value: c.RefClkPrescale, Reason: "must be 1..4095"}
	}

	if c.Patch != nil {
		if len(c.Patch) == 0 {
			return &ConfigError{Field: "patch", Value: "empty", Reason: "patch image has no bytes"}
		}
		if !c.Mode.IsAM() {
			return &ConfigError{Field: "mode", Value: c.Mode, Reason: "the SSB patch needs an AM family mode"}
		}
		if c.AvcMaxGain == 0 {
			c.AvcMaxGain = DefaultAvcMaxGain
		}
		if c.AvcMaxGain < minAvcMaxGain {
			c.Log("AVC max gain %d < %d. Adjusting to minimum of %d.\n", c.AvcMaxGain, minAvcMaxGain, minAvcMaxGain)
			c.AvcMaxGain = minAvcMaxGain
		} else if c.AvcMaxGain > maxAvcMaxGain {
			c.Log("AVC max gain %d > %d. Adjusting to maximum of %d.\n", c.AvcMaxGain, maxAvcMaxGain, maxAvcMaxGain)
			c.AvcMaxGain = maxAvcMaxGain
		}
		if c.SSB == (SSBConfig{}) {
			c.SSB = DefaultSSBConfig()
		}
		if _, err := c.SSB.Value(); err != nil {
			return err
		}
	} else if c.Sideband != SidebandNone {
		return &ConfigError{Field: "sideband", Value: c.Sideband, Reason: "side band selection needs the SSB patch"}
	}
	if c.Sideband > SidebandUSB {
		return &ConfigError{Field: "sideband", Value: c.Sideband, Reason: "unknown side band"}
	}

	if c.ResetHold <= 0 {
		c.ResetHold = DefaultResetHold
	}
	if c.PatchPowerUpSettle <= 0 {
		c.PatchPowerUpSettle = DefaultPatchPowerUpSettle
	}
	if c.PatchSettle <= 0 {
		c.PatchSettle = DefaultPatchSettle
	}
	if c.ChunkDelay < 0 {
		c.ChunkDelay = 0
	}
	if c.CTSPollInterval <= 0 {
		c.CTSPollInterval = DefaultCTSPollInterval
	}
	if c.InterruptPollInterval <= 0 {
		c.InterruptPollInterval = DefaultInterruptPollInterval
	}
	if c.CTSAttempts <= 0 {
		c.CTSAttempts = DefaultCTSAttempts
	}
	if c.InterruptAttempts <= 0 {
		c.InterruptAttempts = DefaultInterruptAttempts
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}

	return nil
}
