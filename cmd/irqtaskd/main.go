package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"dspirq/internal/ipc"
	"dspirq/internal/irqtask"
	"dspirq/internal/job"
	"dspirq/internal/platform"
	"dspirq/internal/sched"
)

func main() {
	path := flag.String("config", "config.yml", "platform config file")
	flag.Parse()

	// Read the configuration
	cfg, err := platform.Load(*path)
	log := newLogger(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("path", *path).Msg("load config")
	}
	log.Info().Interface("config", cfg).Msg("loaded config")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("firmware stopped")
	}
}

func newLogger(cfg platform.Config) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || cfg.LogLevel == "" {
		lvl = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.LogFormat == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.StampMilli})
	}
	return log.Level(lvl).With().Timestamp().Logger()
}

func run(ctx context.Context, cfg platform.Config, log zerolog.Logger) error {
	p := platform.New(cfg, log)
	s := sched.New(log)
	b := irqtask.New(p, s, irqtask.WithLogger(log), irqtask.WithDebug(cfg.Debug))
	s.Bind(b)

	coresCtx, stopCores := context.WithCancel(context.Background())
	coresDone := make(chan error, 1)
	go func() { coresDone <- p.Run(coresCtx) }()
	defer func() {
		stopCores()
		<-coresDone
	}()

	// no queues means no scheduling substrate, so this is fatal
	if err := p.Boot(ctx, b.Boot); err != nil {
		return err
	}
	log.Info().Int("cores", len(p.Cores())).Int("levels", b.Registry().Levels()).Msg("boot complete")

	primary := p.Core(0)
	h := ipc.NewHandler(s, log, ipc.WithPeriodWork(job.SpinWork(50)))
	if err := primary.Do(ctx, func(cctx context.Context) {
		for _, m := range demoMessages() {
			if err := h.Process(cctx, m); err != nil {
				log.Error().Err(err).Uint32("primary", m.Primary).Msg("ipc message failed")
			}
		}
	}); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Run(gctx) })
	g.Go(func() error {
		clock := sched.NewTickClock(time.Duration(cfg.TickMS) * time.Millisecond)
		return clock.Run(gctx, func(tctx context.Context, tick int64) {
			s.Tick(tctx)
			err := primary.Do(tctx, func(cctx context.Context) {
				if err := h.Tick(cctx); err != nil {
					log.Error().Err(err).Int64("tick", tick).Msg("period scheduling failed")
				}
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("primary core unavailable")
			}
		})
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// teardown runs on every core, then the whole queue pool is reclaimed
	if err := p.Boot(context.Background(), b.FreeAll); err != nil {
		return err
	}
	b.Reclaim()

	st := s.Stats()
	log.Info().
		Uint64("scheduled", st.Scheduled).
		Uint64("finished", st.Finished).
		Uint64("skipped", st.Skipped).
		Uint64("dropped_events", st.Dropped).
		Msg("shutdown complete")
	return nil
}

// demoMessages is the host sequence replayed at boot: three pipelines, one
// per urgency band, and a two block configuration transfer.
func demoMessages() []ipc.Message {
	return []ipc.Message{
		ipc.CreatePipeline{Instance: 1, Priority: sched.PriorityHigh, MemSize: 64}.Encode(),
		ipc.CreatePipeline{Instance: 2, Priority: sched.PriorityMed, MemSize: 64}.Encode(),
		ipc.CreatePipeline{Instance: 3, Priority: sched.PriorityLow, MemSize: 32, LowPower: true}.Encode(),
		ipc.SetPipelineState{Instance: 1, State: ipc.PipeRunning}.Encode(),
		ipc.SetPipelineState{Instance: 2, State: ipc.PipeRunning}.Encode(),
		ipc.SetPipelineState{Instance: 3, State: ipc.PipeRunning}.Encode(),
		ipc.LargeConfig{ModuleID: 1, Instance: 0, ParamID: 1, Size: 4, First: true, Data: []byte{0, 1}}.Encode(),
		ipc.LargeConfig{ModuleID: 1, Instance: 0, ParamID: 1, Size: 2, Last: true, Data: []byte{2, 3}}.Encode(),
	}
}
