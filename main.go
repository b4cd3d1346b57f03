package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"sipiradio/board"
	"sipiradio/display"
	"sipiradio/radio"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"gobot.io/x/gobot"
	"gobot.io/x/gobot/drivers/i2c"
	"gobot.io/x/gobot/platforms/raspi"
)

var log = logrus.New()

var flags = []cli.Flag{
	cli.StringFlag{Name: "mode, m", Value: "AM", Usage: "band: LW, AM, SW or FM"},
	cli.UintFlag{Name: "frequency, f", Value: 792, Usage: "kHz for LW/AM/SW, 10 kHz steps for FM"},
	cli.UintFlag{Name: "volume, v", Value: radio.DefaultVolume, Usage: "audio volume, 0..63"},
	cli.StringFlag{Name: "patch", Usage: "SSB patch image, binary or a text list of bytes"},
	cli.StringFlag{Name: "sideband", Value: "none", Usage: "SSB side band with --patch: none, LSB or USB"},
	cli.UintFlag{Name: "avc-gain", Value: radio.DefaultAvcMaxGain, Usage: "AM AVC maximum gain in dB, with --patch"},
	cli.StringFlag{Name: "reset-pin", Value: "13", Usage: "header pin wired to RST"},
	cli.IntFlag{Name: "bus", Value: -1, Usage: "i2c bus, guessed from the board revision when negative"},
	cli.UintFlag{Name: "refclk", Value: radio.DEFAULT_REFCLK_FREQ, Usage: "reference clock in Hz"},
	cli.StringFlag{Name: "refclk-pin", Value: board.RefClockPin, Usage: "clock pin feeding RCLK, empty when an external oscillator is used"},
	cli.DurationFlag{Name: "patch-settle", Value: radio.DefaultPatchSettle, Usage: "wait after the patch download"},
	cli.DurationFlag{Name: "poll", Value: radio.DefaultInterruptPollInterval, Usage: "tune complete polling interval"},
	cli.BoolFlag{Name: "lcd", Usage: "show the station on a LCD1602 at 0x27"},
	cli.BoolFlag{Name: "debug", Usage: "trace every command and status byte"},
}

func main() {
	log.Formatter = new(logrus.TextFormatter)

	app := cli.NewApp()
	app.Name = "sipiradio"
	app.Usage = "drive a Si473x AM/FM/SSB receiver from a Raspberry Pi"
	app.Flags = flags
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		log.Fatalln(err)
	}
}

func run(c *cli.Context) error {
	if c.Bool("debug") {
		log.Level = logrus.DebugLevel
	}

	cfg, err := receiverConfig(c)
	if err != nil {
		return err
	}

	bus := c.Int("bus")
	if bus < 0 {
		rev := board.Revision()
		bus = board.DefaultI2CBus(rev)
		log.WithFields(logrus.Fields{"revision": rev, "bus": bus}).Info("board detected")
	}

	var clk *board.RefClock
	if pin := c.String("refclk-pin"); pin != "" {
		clk, err = board.StartRefClock(pin, cfg.RefClkFreq)
		if err != nil {
			return err
		}
		log.WithField("frequency", clk.Frequency()).Info("reference clock running")
	}

	adaptor := raspi.NewAdaptor()
	rdio, err := radio.NewSi473xDriver(adaptor, cfg, i2c.WithBus(bus))
	if err != nil {
		return err
	}

	devices := []gobot.Device{rdio}
	var lcd *display.LCD1602Driver
	if c.Bool("lcd") {
		lcd = display.NewLCD1602Driver(adaptor, i2c.WithBus(bus))
		devices = append(devices, lcd)
	}

	work := func() {
		showStation(rdio, lcd)
		gobot.Every(5*time.Second, func() {
			if err := rdio.Loop(); err != nil {
				log.WithError(err).Warn("signal quality")
			}
			showStation(rdio, lcd)
		})
	}

	robot := gobot.NewRobot("Si473x receiver",
		[]gobot.Connection{adaptor},
		devices,
		work,
	)
	robot.AutoRun = false

	if err = robot.Start(); err != nil {
		return stop(robot, clk, err)
	}

	waitForQuit(os.Stdin, os.Stdout)
	return stop(robot, clk, nil)
}

func receiverConfig(c *cli.Context) (radio.Si473xConfig, error) {
	mode, err := radio.ParseMode(c.String("mode"))
	if err != nil {
		return radio.Si473xConfig{}, err
	}
	sideband, err := radio.ParseSideband(c.String("sideband"))
	if err != nil {
		return radio.Si473xConfig{}, err
	}

	freq, err := uintFlag(c, "frequency", math.MaxUint16)
	if err != nil {
		return radio.Si473xConfig{}, err
	}
	vol, err := uintFlag(c, "volume", math.MaxUint8)
	if err != nil {
		return radio.Si473xConfig{}, err
	}
	gain, err := uintFlag(c, "avc-gain", math.MaxUint8)
	if err != nil {
		return radio.Si473xConfig{}, err
	}
	refClk, err := uintFlag(c, "refclk", math.MaxUint16)
	if err != nil {
		return radio.Si473xConfig{}, err
	}

	cfg := radio.Si473xConfig{
		Mode:                  mode,
		Frequency:             uint16(freq),
		Volume:                uint8(vol),
		Sideband:              sideband,
		AvcMaxGain:            uint8(gain),
		RefClkFreq:            uint16(refClk),
		ResetPin:              c.String("reset-pin"),
		PatchSettle:           c.Duration("patch-settle"),
		InterruptPollInterval: c.Duration("poll"),
		DebugMode:             c.Bool("debug"),
	}

	entry := log.WithField("device", "si473x")
	cfg.Log = entry.Infof
	cfg.DebugLog = entry.Debugf

	if path := c.String("patch"); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return cfg, errors.Wrap(err, "open patch")
		}
		defer f.Close()

		if cfg.Patch, err = radio.LoadPatch(f); err != nil {
			return cfg, err
		}
		log.WithFields(logrus.Fields{"path": path, "bytes": len(cfg.Patch)}).Info("patch loaded")
	}

	return cfg, nil
}

// uintFlag reads an unsigned flag that must fit in a narrower field.
func uintFlag(c *cli.Context, name string, max uint) (uint, error) {
	v := c.Uint(name)
	if v > max {
		return 0, &radio.ConfigError{Field: name, Value: v, Reason: fmt.Sprintf("must be at most %d", max)}
	}
	return v, nil
}

func showStation(rdio *radio.Si473xDriver, lcd *display.LCD1602Driver) {
	if lcd == nil {
		return
	}

	station := display.Station{
		Band:      rdio.Mode().String(),
		Frequency: rdio.Frequency(),
		Volume:    rdio.Volume(),
		RSSI:      rdio.LastTune().RSSI,
		SNR:       rdio.LastTune().SNR,
	}
	if err := lcd.ShowStation(station); err != nil {
		log.WithError(err).Warn("display")
	}
}

// waitForQuit blocks until "q" is entered or the input ends.
func waitForQuit(in io.Reader, out io.Writer) {
	_, _ = io.WriteString(out, "q=quit\n")
	scanner := bufio.NewScanner(in)
	for {
		_, _ = io.WriteString(out, "Command: ")
		if !scanner.Scan() {
			return
		}
		if strings.TrimSpace(scanner.Text()) == "q" {
			return
		}
	}
}

func stop(robot *gobot.Robot, clk *board.RefClock, cause error) error {
	var result *multierror.Error
	if cause != nil {
		result = multierror.Append(result, cause)
	}
	if err := robot.Stop(); err != nil {
		result = multierror.Append(result, err)
	}
	if clk != nil {
		if err := clk.Stop(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
