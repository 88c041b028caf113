// Package benchmark implements the timed repeated-capture command.
package benchmark

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/conf"
	"github.com/thewriterben/wildcam-go/internal/hardware"
)

var captureCount int

// Command returns the benchmark command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run a repeated-capture latency benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			if captureCount < 1 || captureCount > 10000 {
				return fmt.Errorf("capture count must be between 1 and 10000, got %d", captureCount)
			}
			return runBenchmark(settings, captureCount)
		},
	}
	cmd.Flags().IntVarP(&captureCount, "count", "n", 100, "number of captures (1-10000)")
	return cmd
}

func runBenchmark(settings *conf.Settings, count int) error {
	port := hardware.NewSimulatedPort(hardware.SimulatedPortConfig{
		FrameSize: camera.FrameSizeVGA,
		Jitter:    20 * time.Millisecond,
	})

	pipeline, err := camera.NewPipeline(port, 3, settings.CaptureDeadline())
	if err != nil {
		return err
	}

	fmt.Printf("capturing %d frames with deadline %s\n", count, pipeline.Deadline())

	latencies := make([]time.Duration, 0, count)
	failures := 0
	ctx := context.Background()
	start := time.Now()

	for i := 0; i < count; i++ {
		capStart := time.Now()
		if err := pipeline.Capture(ctx); err != nil {
			failures++
			continue
		}
		latencies = append(latencies, time.Since(capStart))

		handle, err := pipeline.GetNextFrame()
		if err != nil {
			continue
		}
		if err := pipeline.ReleaseFrame(handle); err != nil {
			return err
		}
	}
	elapsed := time.Since(start)

	if len(latencies) == 0 {
		return fmt.Errorf("all %d captures failed", count)
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	fmt.Printf("done in %s (%d ok, %d failed)\n", elapsed.Round(time.Millisecond), len(latencies), failures)
	fmt.Printf("  throughput: %.1f captures/s\n", float64(len(latencies))/elapsed.Seconds())
	fmt.Printf("  latency p50: %s\n", percentile(latencies, 50))
	fmt.Printf("  latency p95: %s\n", percentile(latencies, 95))
	fmt.Printf("  latency p99: %s\n", percentile(latencies, 99))
	fmt.Printf("  latency max: %s\n", latencies[len(latencies)-1])

	stats := pipeline.Stats()
	fmt.Printf("  avg frame: %d bytes\n", stats.AvgFrameBytes)
	return nil
}

// percentile returns the p-th percentile of sorted latencies.
func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
