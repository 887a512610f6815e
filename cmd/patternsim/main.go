// patternsim runs a pattern or program against simulated channels on a
// virtual clock and prints every frame.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/fairylights/internal/channel"
	diag "github.com/coreman2200/fairylights/internal/diagnostics"
	"github.com/coreman2200/fairylights/internal/driver/sim"
	"github.com/coreman2200/fairylights/internal/effect"
	"github.com/coreman2200/fairylights/internal/engine"
	"github.com/coreman2200/fairylights/internal/pattern"
	"github.com/coreman2200/fairylights/internal/sequence"
)

func main() {
	var (
		spec        pattern.Spec
		kind, rail  string
		mode        string
		programPath string
		n           int
		duration    time.Duration
		step        time.Duration
		start       uint32
	)
	flag.StringVar(&kind, "pattern", "wave", "pattern kind: "+kinds())
	flag.IntVar(&n, "channels", 6, "number of simulated channels")
	flag.IntVar(&spec.Brightness, "brightness", 255, "brightness 0..255 (solid, sequence, alternate)")
	flag.StringVar(&rail, "rail", "white", "rail: white | colour")
	flag.Float64Var(&spec.PeriodMs, "period-ms", 1000, "sequence period (ms)")
	flag.Float64Var(&spec.Frequency, "frequency", 0.5, "wave / alternate frequency (Hz)")
	flag.Float64Var(&spec.Speed, "speed", effect.NominalChaosSpeed, "chaos speed")
	flag.StringVar(&mode, "mode", "multi", "chaos mode: multi | single")
	flag.StringVar(&programPath, "program", "", "YAML or JSON program to play instead of --pattern")
	flag.DurationVar(&duration, "duration", 2*time.Second, "simulated time to run")
	flag.DurationVar(&step, "step", 50*time.Millisecond, "simulated time between frames")
	flag.Uint32Var(&start, "start-ms", 0, "clock value of the first frame (try 4294966000 to cross the wrap)")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	r, err := channel.ParseRail(rail)
	if err != nil {
		log.Fatal().Err(err).Msg("bad --rail")
	}
	spec.Kind, spec.Rail, spec.Mode = pattern.Kind(kind), r, pattern.ChaosMode(mode)

	bank := sim.NewBank(n)
	sink := diag.Sink(func(d diag.Diagnostic) {
		log.Warn().Str("code", d.Code).Str("detail", d.Detail).Msg(d.Summary)
	})
	eng, err := engine.New(bank, nil, log.Logger.Level(zerolog.WarnLevel), sink)
	if err != nil {
		log.Fatal().Err(err).Msg("engine")
	}
	eng.Observe(func(f engine.Frame) { printFrame(os.Stdout, f) })

	var player *sequence.Player
	if programPath != "" {
		prog, err := loadProgram(programPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", programPath).Msg("program")
		}
		player = sequence.NewPlayer(sequence.Hooks{SetPattern: eng.Install})
		if err := player.Load(prog); err != nil {
			log.Fatal().Err(err).Msg("program rejected")
		}
		player.Start()
	} else if err := eng.Install(spec); err != nil {
		log.Error().Err(err).Msg("pattern rejected; running all-off")
	}

	t := effect.Millis(start)
	for elapsed := time.Duration(0); elapsed <= duration; elapsed += step {
		if player != nil && elapsed > 0 {
			player.Tick(step.Seconds())
		}
		if err := eng.RenderOnce(t); err != nil {
			log.Error().Err(err).Msg("frame")
		}
		t += effect.Millis(step.Milliseconds())
	}
}

func loadProgram(path string) (sequence.Program, error) {
	var prog sequence.Program
	b, err := os.ReadFile(path)
	if err != nil {
		return prog, err
	}
	// JSON is a subset of YAML.
	err = yaml.Unmarshal(b, &prog)
	return prog, err
}

func kinds() string {
	ks := pattern.DefaultRegistry().List()
	out := make([]string, len(ks))
	for i, k := range ks {
		out[i] = string(k)
	}
	return strings.Join(out, " | ")
}

// printFrame writes one line per frame: W/C marks the active rail, followed
// by the level.
func printFrame(w io.Writer, f engine.Frame) {
	var b strings.Builder
	fmt.Fprintf(&b, "t=%010d %-28s", f.T, f.Pattern)
	for _, s := range f.States {
		r := "W"
		if s.Rail == channel.Colour {
			r = "C"
		}
		fmt.Fprintf(&b, " %s%3d", r, s.Level)
	}
	fmt.Fprintln(w, b.String())
}
