package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/patchbay/internal/config"
	"github.com/aretw0/patchbay/internal/logging"
	"github.com/aretw0/patchbay/pkg/domain"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.setSignal(sig)
				sc.Cancel()
			case <-sc.Context.Done():
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Interrupt cancels the context as if SIGINT had been received. Raw terminal
// mode delivers Ctrl+C as a key instead of a signal.
func (sc *SignalContext) Interrupt() {
	sc.setSignal(os.Interrupt)
	sc.Cancel()
}

func (sc *SignalContext) setSignal(sig os.Signal) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.sigVal == nil {
		sc.sigVal = sig
	}
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// createLogger configures the operator logger. Debug forces the debug level
// regardless of the configured one.
func createLogger(w io.Writer, cfg config.LogConfig, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.NewWithFormat(w, slog.LevelDebug, cfg.Format), nil
	}
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	return logging.NewWithFormat(w, level, cfg.Format), nil
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func createDebugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFrameEnd: func(ctx context.Context, e *domain.FrameEvent) {
			logger.Debug("Frame", "version", e.Version, "nodes", e.Nodes, "duration", e.Duration)
		},
		OnNodeError: func(ctx context.Context, e *domain.NodeErrorEvent) {
			logger.Debug("Node Error", "node_id", e.NodeID, "compile", e.Compile, "err", e.Err)
		},
		OnCompile: func(ctx context.Context, e *domain.CompileEvent) {
			logger.Debug("Compile", "cached", e.Cached, "duration", e.Duration)
		},
	}
}
