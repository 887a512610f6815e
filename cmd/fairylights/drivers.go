package main

import (
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"

	"github.com/coreman2200/fairylights/internal/channel"
	"github.com/coreman2200/fairylights/internal/config"
	diag "github.com/coreman2200/fairylights/internal/diagnostics"
	"github.com/coreman2200/fairylights/internal/driver/gpio"
	"github.com/coreman2200/fairylights/internal/driver/sim"
	"github.com/coreman2200/fairylights/internal/driver/strip"
	"github.com/coreman2200/fairylights/internal/effect"
	"github.com/coreman2200/fairylights/internal/layout"
	"github.com/coreman2200/fairylights/internal/pattern"
)

// openBank opens the configured driver, falling back to the simulator if the
// hardware cannot be reached. It returns the name of the driver in use.
func openBank(cfg *config.Config, sink diag.Sink) (channel.Bank, string) {
	fallback := func(err error) (channel.Bank, string) {
		log.Warn().Err(err).Str("driver", cfg.Driver).Msg("driver init failed; falling back to SIM")
		sink.Push(diag.Diagnostic{
			Severity:       diag.Warn,
			Code:           diag.CodeDriverFallback,
			Summary:        "Hardware unavailable, simulating",
			Detail:         err.Error(),
			LikelyCauses:   []string{"not running on the target board", "pin or SPI port names wrong", "insufficient permissions"},
			SuggestedFixes: []string{"check pwm.pins / SPI wiring in config.yaml", "run with access to /dev/gpiomem and /dev/spidev*"},
			Evidence:       map[string]any{"driver": cfg.Driver},
		})
		return sim.NewBank(cfg.Channels), config.DriverSim
	}

	switch cfg.Driver {
	case config.DriverGPIO:
		if len(cfg.PWM.Pins) != cfg.Channels {
			return fallback(errors.Errorf("%d pin pairs for %d channels", len(cfg.PWM.Pins), cfg.Channels))
		}
		names := make([]gpio.PinNames, len(cfg.PWM.Pins))
		for i, p := range cfg.PWM.Pins {
			names[i] = gpio.PinNames{White: p.White, Colour: p.Colour}
		}
		b, err := gpio.Open(names, physic.Frequency(cfg.PWM.FreqHz)*physic.Hertz)
		if err != nil {
			return fallback(err)
		}
		log.Info().Int("channels", len(names)).Int("freq_hz", cfg.PWM.FreqHz).Msg("PWM driver ready")
		return b, config.DriverGPIO

	case config.DriverStrip:
		opts := strip.DefaultOptions(cfg.Channels, cfg.Strip.PixelsPerChannel)
		opts.Layout = layout.Layout{
			Channels:         cfg.Channels,
			PixelsPerChannel: cfg.Strip.PixelsPerChannel,
			Serpentine:       cfg.Strip.Serpentine,
		}
		if c, err := strip.ParseColour(cfg.Strip.White); err == nil {
			opts.White = c
		}
		if c, err := strip.ParseColour(cfg.Strip.Colour); err == nil {
			opts.Colour = c
		}
		b, console, err := strip.Open(opts)
		if err != nil {
			return fallback(err)
		}
		if console {
			log.Warn().Msg("no SPI port found; printing the strip to the console")
		}
		return b, config.DriverStrip

	case config.DriverSim:
		return sim.NewBank(cfg.Channels), config.DriverSim
	}
	log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
	return sim.NewBank(cfg.Channels), config.DriverSim
}

// applyKindDefaults fills the parameters a kind needs when it is chosen on
// the command line without a config.
func applyKindDefaults(s *pattern.Spec) {
	switch s.Kind {
	case pattern.KindSolid:
		s.Brightness = 128
	case pattern.KindSequence:
		s.PeriodMs, s.Brightness = 1000, 255
	case pattern.KindWave:
		s.Frequency = 0.25
	case pattern.KindChaos:
		s.Speed = effect.NominalChaosSpeed
	case pattern.KindAlternate:
		s.Frequency, s.Brightness = 1, 200
	}
}
