package radio_test

import (
	"log"
	"strings"
	"time"

	"sipiradio/radio"

	"gobot.io/x/gobot"
	"gobot.io/x/gobot/platforms/raspi"
)

func ExampleSi473xDriver() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	adaptor := raspi.NewAdaptor()

	radioConfig := radio.Si473xConfig{
		Mode:      radio.ModeAM,
		Frequency: 792,
		Volume:    0x3f,
		ResetPin:  "13",
		DebugMode: true,
		Log:       log.Printf,
		DebugLog:  log.Printf,
	}
	rdio, err := radio.NewSi473xDriver(adaptor, radioConfig)
	if err != nil {
		log.Fatalln(err)
	}

	work := func() {
		gobot.Every(5*time.Second, func() {
			if err = rdio.Loop(); err != nil {
				log.Fatalln(err)
			}
		})
	}

	robot := gobot.NewRobot("AM receiver demo",
		[]gobot.Connection{adaptor},
		[]gobot.Device{rdio},
		work,
	)

	if err = robot.Start(); err != nil {
		log.Fatalln(err)
	}
}

func ExampleLoadPatch() {
	patch, err := radio.LoadPatch(strings.NewReader("0xF3, 0x22, 0x00, 0x00"))
	if err != nil {
		log.Fatalln(err)
	}

	rdio, err := radio.NewSi473xDriver(raspi.NewAdaptor(), radio.Si473xConfig{
		Mode:      radio.ModeSW,
		Frequency: 28074,
		Patch:     patch,
		Sideband:  radio.SidebandUSB,
		Log:       log.Printf,
	})
	if err != nil {
		log.Fatalln(err)
	}

	if err = rdio.Start(); err != nil {
		log.Fatalln(err)
	}
}
