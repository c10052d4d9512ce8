package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// State is the lifecycle state of a ShutdownCoordinator.
type State int32

const (
	StateRunning State = iota
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ShutdownSignals are the signals that trigger a shutdown.
var ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// ShutdownCoordinator runs a shutdown routine exactly once, either when
// called or when the process receives a termination signal.
type ShutdownCoordinator struct {
	shutdown func(context.Context) error

	state atomic.Int32
	once  sync.Once
	err   error
	done  chan struct{}

	signalOnce sync.Once

	notify func(c chan<- os.Signal, sig ...os.Signal)
	stop   func(c chan<- os.Signal)
	exit   func(code int)
	stderr io.Writer
}

// NewShutdownCoordinator returns a running coordinator for fn.
func NewShutdownCoordinator(fn func(context.Context) error) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		shutdown: fn,
		done:     make(chan struct{}),
		notify:   signal.Notify,
		stop:     signal.Stop,
		exit:     os.Exit,
		stderr:   os.Stderr,
	}
}

// State returns the current lifecycle state.
func (c *ShutdownCoordinator) State() State {
	return State(c.state.Load())
}

// Done is closed once the shutdown routine has returned.
func (c *ShutdownCoordinator) Done() <-chan struct{} {
	return c.done
}

// Shutdown runs the shutdown routine on the first call and returns its
// result to every caller. Failures wrap ErrShutdownFailure.
func (c *ShutdownCoordinator) Shutdown(ctx context.Context) error {
	c.once.Do(func() {
		c.state.Store(int32(StateShuttingDown))
		if err := c.shutdown(ctx); err != nil {
			c.err = fmt.Errorf("%w: %w", ErrShutdownFailure, err)
		}
		c.state.Store(int32(StateStopped))
		close(c.done)
	})
	return c.err
}

// NotifySignals shuts down on SIGINT or SIGTERM, bounded by timeout, then
// exits the process: 0 on success, 1 after reporting the failure on stderr.
// Only the first call registers the handler.
func (c *ShutdownCoordinator) NotifySignals(timeout time.Duration) {
	c.signalOnce.Do(func() {
		sigCh := make(chan os.Signal, 1)
		c.notify(sigCh, ShutdownSignals...)

		go func() {
			defer c.stop(sigCh)

			select {
			case <-sigCh:
			case <-c.done:
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			if err := c.Shutdown(ctx); err != nil {
				fmt.Fprintf(c.stderr, "Error shutting down Telemetry: %v\n", err)
				c.exit(1)
				return
			}
			c.exit(0)
		}()
	})
}
