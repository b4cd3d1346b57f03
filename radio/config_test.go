package radio

import (
	"errors"
	"testing"
	"time"

	"gobot.io/x/gobot/gobottest"
)

func TestSi473xConfigDefaults(t *testing.T) {
	cfg := Si473xConfig{Mode: ModeAM, Log: t.Logf}
	gobottest.Assert(t, cfg.Validate(), nil)

	gobottest.Assert(t, cfg.ResetPin, "13")
	gobottest.Assert(t, cfg.RefClkFreq, uint16(DEFAULT_REFCLK_FREQ))
	gobottest.Assert(t, cfg.RefClkPrescale, uint16(DEFAULT_REFCLK_PRESCALE))
	gobottest.Assert(t, cfg.ResetHold, DefaultResetHold)
	gobottest.Assert(t, cfg.PatchSettle, DefaultPatchSettle)
	gobottest.Assert(t, cfg.InterruptPollInterval, DefaultInterruptPollInterval)
	gobottest.Assert(t, cfg.CTSAttempts, DefaultCTSAttempts)
	gobottest.Assert(t, cfg.InterruptAttempts, DefaultInterruptAttempts)
	gobottest.Assert(t, cfg.ChunkDelay, time.Duration(0))
	gobottest.Refute(t, cfg.Sleep, nil)
}

func TestSi473xConfigKeepsOverrides(t *testing.T) {
	cfg := Si473xConfig{
		Mode:                  ModeFM,
		Frequency:             9550,
		ResetPin:              "29",
		RefClkFreq:            34406,
		ResetHold:             time.Millisecond,
		PatchSettle:           time.Second,
		InterruptPollInterval: 50 * time.Millisecond,
		CTSAttempts:           3,
		Log:                   t.Logf,
	}
	gobottest.Assert(t, cfg.Validate(), nil)

	gobottest.Assert(t, cfg.ResetPin, "29")
	gobottest.Assert(t, cfg.RefClkFreq, uint16(34406))
	gobottest.Assert(t, cfg.ResetHold, time.Millisecond)
	gobottest.Assert(t, cfg.PatchSettle, time.Second)
	gobottest.Assert(t, cfg.InterruptPollInterval, 50*time.Millisecond)
	gobottest.Assert(t, cfg.CTSAttempts, 3)
}

func TestSi473xConfigClampsVolume(t *testing.T) {
	var logged []string
	cfg := Si473xConfig{
		Mode:   ModeAM,
		Volume: 0x50,
		Log:    func(format string, v ...interface{}) { logged = append(logged, format) },
	}
	gobottest.Assert(t, cfg.Validate(), nil)
	gobottest.Assert(t, cfg.Volume, uint8(63))
	gobottest.Assert(t, len(logged), 1)
}

func TestSi473xConfigPatchDefaults(t *testing.T) {
	cfg := Si473xConfig{Mode: ModeSW, Patch: []byte{1}, AvcMaxGain: 200, Log: t.Logf}
	gobottest.Assert(t, cfg.Validate(), nil)
	gobottest.Assert(t, cfg.AvcMaxGain, uint8(90))
	gobottest.Assert(t, cfg.SSB, DefaultSSBConfig())

	cfg = Si473xConfig{Mode: ModeSW, Patch: []byte{1}, Log: t.Logf}
	gobottest.Assert(t, cfg.Validate(), nil)
	gobottest.Assert(t, cfg.AvcMaxGain, uint8(DefaultAvcMaxGain))
}

func TestSi473xConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Si473xConfig
		field string
	}{
		{"unknown mode", Si473xConfig{Mode: Mode(4)}, "mode"},
		{"frequency out of band", Si473xConfig{Mode: ModeFM, Frequency: 792}, "frequency"},
		{"refclk too low", Si473xConfig{Mode: ModeAM, RefClkFreq: 30000}, "refclk frequency"},
		{"refclk prescale", Si473xConfig{Mode: ModeAM, RefClkPrescale: 5000}, "refclk prescale"},
		{"empty patch", Si473xConfig{Mode: ModeAM, Patch: []byte{}}, "patch"},
		{"patch in FM", Si473xConfig{Mode: ModeFM, Patch: []byte{1}}, "mode"},
		{"side band without patch", Si473xConfig{Mode: ModeSW, Sideband: SidebandUSB}, "sideband"},
		{"unknown side band", Si473xConfig{Mode: ModeSW, Patch: []byte{1}, Sideband: Sideband(5)}, "sideband"},
		{"bad ssb config", Si473xConfig{Mode: ModeSW, Patch: []byte{1}, SSB: SSBConfig{AvcDivider: 2}}, "ssb avc divider"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cfg.Log = t.Logf
			var cfgErr *ConfigError
			gobottest.Assert(t, errors.As(tt.cfg.Validate(), &cfgErr), true)
			gobottest.Assert(t, cfgErr.Field, tt.field)
		})
	}
}

func TestSi473xConfigPanicsWithoutLog(t *testing.T) {
	defer func() {
		gobottest.Refute(t, recover(), nil)
	}()

	cfg := Si473xConfig{Mode: ModeAM}
	_ = cfg.Validate()
}

func TestSi473xConfigPanicsWithoutDebugLog(t *testing.T) {
	defer func() {
		gobottest.Refute(t, recover(), nil)
	}()

	cfg := Si473xConfig{Mode: ModeAM, DebugMode: true, Log: t.Logf}
	_ = cfg.Validate()
}

func TestNewSi473xDriverRejectsConfig(t *testing.T) {
	d, err := NewSi473xDriver(NewI2cTestAdaptor(), Si473xConfig{Mode: ModeFM, Frequency: 1, Log: t.Logf})
	gobottest.Refute(t, err, nil)
	gobottest.Assert(t, d == nil, true)
}
