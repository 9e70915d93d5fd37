package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/patchbay"
	"github.com/aretw0/patchbay/internal/config"
	"github.com/aretw0/patchbay/internal/input"
	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/pkg/adapters/file"
	"github.com/aretw0/patchbay/pkg/adapters/redis"
	"github.com/aretw0/patchbay/pkg/observability"
	"github.com/aretw0/patchbay/pkg/ports"
)

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	// Path is a patch file or a directory of node notes. Empty runs the demo.
	Path string
	// Frames evaluates exactly this many frames at 1/fps steps and returns.
	// Zero runs in real time until interrupted.
	Frames int
	// OutDir receives PNG previews of Nodes (every node when empty).
	OutDir   string
	Nodes    []string
	Sequence bool
	Watch    bool
	Keys     bool
	Debug    bool

	// Out receives console lines and operator logs (default: stderr).
	Out io.Writer
}

// Run loads a patch and evaluates it, either for a fixed number of frames or
// until ctx is done.
func Run(ctx context.Context, cfg *config.Config, opts RunOptions) error {
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	logger, err := createLogger(out, cfg.Log, opts.Debug)
	if err != nil {
		return err
	}
	for _, w := range cfg.Validate() {
		logger.Warn("config", "warning", w)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sinks := []ports.LogSink{logging.NewConsoleSink(out)}
	if cfg.Redis.Addr != "" {
		feed := redis.NewFeed(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithCapacity(cfg.Redis.Capacity),
			redis.WithLogger(logger),
		)
		defer feed.Close()
		sinks = append(sinks, feed)
	}
	extra := []patchbay.Option{patchbay.WithLogSink(ports.MultiSink(sinks...))}

	var previews *file.Presenter
	if opts.OutDir != "" {
		previews = file.NewPresenter(opts.OutDir, opts.Nodes...)
		previews.Sequence = opts.Sequence
		extra = append(extra, patchbay.WithPresenter(previews))
	}
	if opts.Keys {
		extra = append(extra, patchbay.WithKeySource(input.NewTerminalSource(os.Stdin, input.WithInterrupt(cancel))))
	}

	tp, err := observability.InitTracing(ctx, tracingConfig(cfg))
	if err != nil {
		return err
	}
	defer tp.Shutdown(context.WithoutCancel(ctx))
	if tp.Enabled() {
		extra = append(extra, patchbay.WithTracer(tp.Tracer()))
	}

	engine, err := createEngine(cfg, logger, opts.Debug, extra...)
	if err != nil {
		return err
	}
	defer engine.Close()

	src, err := openSource(opts.Path)
	if err != nil {
		return err
	}
	if err := engine.Load(ctx, src); err != nil {
		return err
	}
	logger.Info("Patch loaded", "path", opts.Path, "nodes", len(engine.Snapshot().Nodes))

	if opts.Watch {
		if err := engine.Watch(ctx, src); err != nil {
			return err
		}
		printSystemMessage(out, "Watching '%s' for changes.", opts.Path)
	}

	if opts.Frames > 0 {
		step := 1 / float64(cfg.Engine.FPS)
		for i := 0; i < opts.Frames; i++ {
			if err := engine.FrameAt(ctx, float64(i)*step); err != nil {
				return err
			}
		}
	} else if err := engine.Run(ctx); err != nil {
		return err
	}

	if previews != nil {
		if err := previews.Flush(); err != nil {
			return fmt.Errorf("failed to write previews: %w", err)
		}
		printSystemMessage(out, "Previews written to '%s'.", opts.OutDir)
	}
	return nil
}

func tracingConfig(cfg *config.Config) *observability.TracingConfig {
	tc := observability.DefaultTracingConfig()
	tc.ServiceVersion = patchbay.Version
	tc.OTLPEndpoint = cfg.Tracing.Endpoint
	tc.SampleRate = cfg.Tracing.SampleRate
	return tc
}
