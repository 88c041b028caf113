package main

import (
	"fmt"
	"os"

	"github.com/thewriterben/wildcam-go/cmd"
	"github.com/thewriterben/wildcam-go/internal/conf"
	"github.com/thewriterben/wildcam-go/internal/logging"
)

func main() {
	logging.Init()

	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	var closeLog func() error
	if settings.Log.Enabled {
		fileLogger, closeFn, err := logging.NewFileLogger(settings.Log.Path, "wildcam",
			logging.LevelForDebug(settings.Debug), logging.RotationConfig{
				MaxSizeMB:  settings.Log.MaxSizeMB,
				MaxBackups: settings.Log.MaxBackups,
				MaxAgeDays: settings.Log.MaxAgeDays,
			})
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
		logging.SetStructured(fileLogger)
		closeLog = closeFn
	}

	rootCmd := cmd.RootCommand(settings)
	err = rootCmd.Execute()

	if closeLog != nil {
		_ = closeLog()
	}
	if err != nil {
		os.Exit(1)
	}
}
