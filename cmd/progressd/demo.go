package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/progress-relay/internal/progress"
)

type demoOptions struct {
	workers     int
	steps       int
	delay       time.Duration
	minInterval time.Duration
}

func newDemoCmd() *cobra.Command {
	opts := demoOptions{}
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Runs concurrent workers against an in-process tracker",
		Long: `Spawns --workers goroutines that each report --steps increments
toward a shared target of workers*steps and prints the report stream
until the target is reached.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			return runDemo(cmd.Context(), cmd.OutOrStdout(), opts, rt.logger)
		},
	}
	cmd.Flags().IntVar(&opts.workers, "workers", 4, "number of concurrent producers")
	cmd.Flags().IntVar(&opts.steps, "steps", 25, "increments per producer")
	cmd.Flags().DurationVar(&opts.delay, "delay", 20*time.Millisecond, "pause between increments")
	cmd.Flags().DurationVar(&opts.minInterval, "min-interval", 0, "throttle the printed stream")
	return cmd
}

func runDemo(ctx context.Context, out io.Writer, opts demoOptions, logger *zap.Logger) error {
	if opts.workers <= 0 || opts.steps <= 0 {
		return fmt.Errorf("workers and steps must be > 0")
	}
	tracker := progress.New(progress.WithLogger(logger))
	defer func() {
		if err := tracker.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("tracker close failed", zap.Error(err))
		}
	}()
	sub := tracker.Subscribe(ctx, progress.WithMinInterval(opts.minInterval))

	tracker.SetTarget(int64(opts.workers * opts.steps))
	var wg sync.WaitGroup
	for w := 0; w < opts.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < opts.steps; i++ {
				if opts.delay > 0 {
					select {
					case <-ctx.Done():
						return
					case <-time.After(opts.delay):
					}
				}
				tracker.Increment()
			}
		}()
	}

	var last progress.Report
	for r := range sub.Reports() {
		last = r
		pct, _ := r.Percent()
		fmt.Fprintf(out, "%s %s\n", drawProgressBar(pct, 40), r)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("demo interrupted: %w", err)
	}
	if !last.Done() {
		return fmt.Errorf("demo ended before completion at %s", last)
	}
	return nil
}

func drawProgressBar(percent int64, width int) string {
	filled := int(percent) * width / 100
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
