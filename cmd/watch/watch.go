// Package watch implements the long-running capture and detection command.
package watch

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thewriterben/wildcam-go/internal/camera"
	"github.com/thewriterben/wildcam-go/internal/conf"
	"github.com/thewriterben/wildcam-go/internal/controller"
	"github.com/thewriterben/wildcam-go/internal/hardware"
	"github.com/thewriterben/wildcam-go/internal/logging"
	"github.com/thewriterben/wildcam-go/internal/observability"
	"github.com/thewriterben/wildcam-go/internal/suncalc"
)

var batteryStart float64

// Command returns the watch command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the capture core until interrupted",
		Long: "Runs the detection, power and consumer loops against the " +
			"simulated capture port. SIGUSR1 simulates a hardware motion edge.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(settings)
		},
	}
	cmd.Flags().Float64Var(&batteryStart, "battery", 0.9, "Initial battery fraction (0-1)")
	return cmd
}

func runWatch(settings *conf.Settings) error {
	logger := logging.ForService("watch")
	if logger == nil {
		logger = slog.Default()
	}

	var metrics *observability.Metrics
	if settings.Telemetry.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			return err
		}
		metrics = m
		go func() {
			logger.Info("telemetry endpoint listening", "listen", settings.Telemetry.Listen)
			if err := metrics.Serve(settings.Telemetry.Listen); err != nil {
				logger.Error("telemetry endpoint failed", "error", err)
			}
		}()
	}

	port := hardware.NewSimulatedPort(hardware.SimulatedPortConfig{
		FrameSize: camera.FrameSizeVGA,
	})
	monitor := hardware.NewSimulatedPowerMonitor(batteryStart)

	ctrl, err := controller.New(controller.Options{
		Settings:     settings,
		Port:         port,
		PowerMonitor: monitor,
		Storage:      &controller.FileStorage{NodeID: settings.Node.ID},
		Daylight:     suncalc.NewSunCalc(settings.Node.Latitude, settings.Node.Longitude),
		Metrics:      metrics,
	})
	if err != nil {
		return err
	}

	if result, err := ctrl.SelfTest(context.Background()); err != nil {
		logger.Error("startup self test failed", "error", err, "detail", result.Detail)
		return err
	}
	logger.Info("startup self test passed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	edgeSignals := make(chan os.Signal, 8)
	signal.Notify(edgeSignals, syscall.SIGUSR1)
	go func() {
		for range edgeSignals {
			ctrl.Signal()
		}
	}()

	err = ctrl.Run(ctx)
	logger.Info("capture core stopped")
	logger.Info("final status report", "status", ctrl.Status().String())
	return err
}
