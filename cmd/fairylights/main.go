package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/coreman2200/fairylights/internal/config"
	diag "github.com/coreman2200/fairylights/internal/diagnostics"
	"github.com/coreman2200/fairylights/internal/engine"
	"github.com/coreman2200/fairylights/internal/metrics"
	"github.com/coreman2200/fairylights/internal/pattern"
	"github.com/coreman2200/fairylights/internal/selftest"
	"github.com/coreman2200/fairylights/internal/sequence"
	"github.com/coreman2200/fairylights/internal/ws"
)

func main() {
	// ---- Flags (config.yaml overrides these where set) ----
	var (
		configPath = flag.StringP("config", "c", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", config.DriverSim, "driver: gpio | strip | sim")
		channels   = flag.Int("channels", 6, "number of light channels")
		fps        = flag.Int("fps", engine.DefaultFPS, "frames per second")
		addr       = flag.String("addr", ":8080", "HTTP address for preview, health and metrics (empty disables)")
		kind       = flag.String("pattern", "", "pattern kind to start with (overrides config)")
		selfTest   = flag.String("self-test", "", "run a wiring self-test first: channel_sweep | rail_flip | ramp")
		simOnly    = flag.Bool("sim-only", false, "force simulation (no hardware output)")
		watch      = flag.Bool("watch", true, "reload config.yaml when it changes")
		level      = flag.String("log-level", "", "log level (overrides config)")
	)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg := config.Default()
	cfg.Driver, cfg.Channels, cfg.FPS, cfg.Addr = *driver, *channels, *fps, *addr
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with flags")
	} else {
		cfg = c
	}
	if *kind != "" {
		cfg.Pattern = pattern.Spec{Kind: pattern.Kind(*kind)}
		applyKindDefaults(&cfg.Pattern)
	}
	if *selfTest != "" {
		cfg.SelfTest = *selfTest
	}
	if *level != "" {
		cfg.LogLevel = *level
	}
	if *simOnly {
		cfg.Driver = config.DriverSim
	}
	zerolog.SetGlobalLevel(cfg.Level())
	if cfg.Channels <= 0 {
		log.Fatal().Int("channels", cfg.Channels).Msg("at least one channel is required")
	}

	hub := ws.NewHub(cfg.Driver, cfg.Channels, 30)
	sink := diag.Sink(hub.PushDiag)

	if err := cfg.Validate(); err != nil {
		// A bad pattern or program still lets the lights come up dark.
		log.Error().Err(err).Msg("config invalid")
		sink.Push(diag.FromError(diag.CodeConfigInvalid, "Configuration rejected", err))
	}

	// ---- Driver ----
	bank, selected := openBank(cfg, sink)
	hub.SetDriver(selected)
	defer func() {
		if err := bank.Close(); err != nil {
			log.Warn().Err(err).Msg("driver close")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ---- Self-test ----
	if cfg.SelfTest != "" {
		if k, err := selftest.ParseKind(cfg.SelfTest); err == nil {
			log.Info().Str("test", string(k)).Msg("self-test running")
			if err := selftest.Run(ctx, bank, selftest.Plan{Kind: k}, 400*time.Millisecond); err != nil {
				log.Warn().Err(err).Msg("self-test failed")
			}
			sink.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeSelfTestDone, Summary: "Self-test complete", Detail: string(k)})
		}
	}

	// ---- Engine ----
	eng, err := engine.New(bank, pattern.DefaultRegistry(), log.Logger, sink)
	if err != nil {
		log.Fatal().Err(err).Msg("engine init failed")
	}
	eng.Observe(hub.Publish)

	player := sequence.NewPlayer(sequence.Hooks{
		SetPattern: eng.Install,
		Done: func() {
			sink.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeProgramDone, Summary: "Program finished"})
		},
	})
	apply := func(c *config.Config) {
		if c.Program != nil {
			if err := player.Load(*c.Program); err != nil {
				log.Error().Err(err).Msg("program rejected")
				sink.Push(diag.FromError(diag.CodePatternRejected, "Program rejected", err))
			} else {
				player.Start()
				return
			}
		}
		player.Stop()
		if c.Pattern.Kind != "" {
			_ = eng.Install(c.Pattern)
		}
	}
	apply(cfg)
	hub.SetStatus(func() any {
		return map[string]any{"program": player.Status(), "pattern": eng.Active().String()}
	})

	// ---- Config hot reload ----
	if *watch {
		w := config.NewWatcher(*configPath, log.Logger,
			config.WithErrorHandler(func(err error) {
				sink.Push(diag.FromError(diag.CodeConfigInvalid, "Config reload rejected", err))
			}))
		w.OnReload(func(c *config.Config) {
			sink.Push(diag.Diagnostic{Severity: diag.Info, Code: diag.CodeConfigReload, Summary: "Config reloaded", Detail: c.Pattern.String()})
			apply(c)
		})
		if err := w.Start(); err != nil {
			log.Warn().Err(err).Str("path", *configPath).Msg("config watch disabled")
		} else {
			defer w.Stop()
		}
	}

	// ---- Run ----
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return eng.Run(gctx, cfg.FPS) })
	g.Go(func() error { return player.Run(gctx, 10) })
	g.Go(func() error { return hub.Run(gctx) })

	if cfg.Addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.HandleFramesWS)
		mux.HandleFunc("/diag", hub.HandleDiagWS)
		mux.HandleFunc("/health", hub.HandleHealth)
		mux.Handle("/metrics", metrics.Handler())

		srv := &http.Server{
			Addr:         cfg.Addr,
			Handler:      withCORS(mux),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		g.Go(func() error {
			log.Info().Str("addr", cfg.Addr).Str("driver", selected).Msg("HTTP server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("stopped with error")
	}
	log.Info().Msg("shutting down")
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(200)
			return
		}
		h.ServeHTTP(w, r)
	})
}
