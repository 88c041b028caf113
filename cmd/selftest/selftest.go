// Package selftest implements the one-shot startup validation command.
package selftest

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/conf"
	"github.com/thewriterben/wildcam-go/internal/controller"
	"github.com/thewriterben/wildcam-go/internal/hardware"
)

// Command returns the selftest command.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Capture one frame end-to-end and validate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSelfTest(settings)
		},
	}
}

func runSelfTest(settings *conf.Settings) error {
	port := hardware.NewSimulatedPort(hardware.SimulatedPortConfig{
		FrameSize: camera.FrameSizeVGA,
	})
	monitor := hardware.NewSimulatedPowerMonitor(0.9)

	ctrl, err := controller.New(controller.Options{
		Settings:     settings,
		Port:         port,
		PowerMonitor: monitor,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := ctrl.SelfTest(ctx)
	if err != nil {
		fmt.Printf("self test FAILED: %v\n", err)
		return err
	}

	fmt.Println("self test PASSED")
	fmt.Printf("  frame: %dx%d, %d bytes\n", result.Width, result.Height, result.FrameBytes)
	fmt.Printf("  latency: %s\n", result.Latency)
	fmt.Println()
	fmt.Print(ctrl.Status().String())
	return nil
}
