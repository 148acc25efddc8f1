package viewer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"portfoliorisk/internal/infrastructure"
)

var (
	// ErrNoRegenerator is returned by Refresh when no regenerate capability is wired.
	ErrNoRegenerator = errors.New("report regeneration is not configured")
	// ErrRegenerateFailed wraps any failure of the regenerate capability.
	ErrRegenerateFailed = errors.New("report regeneration failed")
)

// Regenerator rebuilds the report artifact on disk.
type Regenerator interface {
	Regenerate(ctx context.Context) error
}

// RegeneratorFunc adapts a function to Regenerator.
type RegeneratorFunc func(ctx context.Context) error

func (f RegeneratorFunc) Regenerate(ctx context.Context) error { return f(ctx) }

// CommandRegenerator runs the generator as a subprocess.
type CommandRegenerator struct {
	Args    []string
	Dir     string
	Timeout time.Duration
	Logger  *zap.Logger
}

func NewCommandRegenerator(args []string, logger *zap.Logger) *CommandRegenerator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandRegenerator{Args: args, Timeout: 5 * time.Minute, Logger: logger}
}

func (c *CommandRegenerator) Regenerate(ctx context.Context) error {
	if len(c.Args) == 0 {
		return ErrNoRegenerator
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	began := time.Now()
	cmd := exec.CommandContext(ctx, c.Args[0], c.Args[1:]...)
	cmd.Dir = c.Dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	c.Logger.Info("regenerate: starting", zap.Strings("cmd", c.Args))
	err := cmd.Run()
	elapsed := time.Since(began)
	infrastructure.RegenerateLatency.Observe(elapsed.Seconds())
	if err != nil {
		infrastructure.RegenerateRuns.WithLabelValues("error").Inc()
		c.Logger.Error("regenerate: failed",
			zap.Error(err),
			zap.Duration("elapsed", elapsed),
			zap.String("output", tail(out.String(), 2000)))
		return fmt.Errorf("%w: %w: %s", ErrRegenerateFailed, err, tail(strings.TrimSpace(out.String()), 300))
	}
	infrastructure.RegenerateRuns.WithLabelValues("ok").Inc()
	c.Logger.Info("regenerate: done",
		zap.Duration("elapsed", elapsed),
		zap.String("output", strings.TrimSpace(out.String())))
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "…" + s[len(s)-n:]
}
