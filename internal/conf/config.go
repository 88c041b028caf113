// config.go: settings struct and functions to load and access the settings.
package conf

import (
	stderrors "errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// NodeSettings identifies this camera node and its site.
type NodeSettings struct {
	ID        string  // node identifier used in logs and saved image metadata
	Latitude  float64 // site latitude, used for daylight calculation
	Longitude float64 // site longitude, used for daylight calculation
}

// LogSettings contains settings for file logging.
type LogSettings struct {
	Enabled    bool   // true to enable file logging
	Path       string // path to log file
	MaxSizeMB  int    // max log file size before rotation
	MaxBackups int    // rotated files to retain
	MaxAgeDays int    // max age of rotated files
}

// CaptureSettings contains settings for the frame acquisition pipeline.
type CaptureSettings struct {
	DeadlineMs      int    // per-capture deadline in milliseconds
	QueueSize       int    // handoff queue capacity, 0 to derive from buffer pool recommendation
	FastMemoryMinKB int    // safety margin of fast memory below which slow memory is used
	SlowMemoryMinKB int    // minimum slow memory required before refusing allocation
	SaveFolder      string // folder passed to the storage collaborator
}

// FusionSettings contains settings for the motion fusion engine.
type FusionSettings struct {
	Policy              string  // edge_only, difference_only, both_required, either_suffices, adaptive
	EdgeSensitivity     float64 // passive sensor sensitivity 0-1
	DiffSensitivity     float64 // frame-difference sensitivity 0-1
	CooldownMs          int     // refractory period after a positive verdict
	ConfidenceThreshold float64 // verdicts below this are forced negative
	FalsePositiveFilter bool    // true to enable the ordered false-positive filter
	MinMotionBlocks     int     // frame blocks a difference-only detection must cover
	DebounceMs          int     // edge trigger debounce window
}

// PowerSettings contains settings for the power-adaptive controller.
type PowerSettings struct {
	ControlIntervalMs int // how often the power state is sampled and applied
}

// RecoverySettings contains settings for the failure recovery manager.
type RecoverySettings struct {
	SensorResetThreshold int // consecutive failures before sensor reconfiguration
	PortReinitThreshold  int // consecutive failures before full port reinitialization
}

// TelemetrySettings contains settings for the Prometheus telemetry endpoint.
type TelemetrySettings struct {
	Enabled bool   // true to expose metrics over HTTP
	Listen  string // listen address and port, e.g. "0.0.0.0:8090"
}

// Settings is the top-level configuration for the camera core.
type Settings struct {
	Debug     bool
	Node      NodeSettings
	Log       LogSettings
	Capture   CaptureSettings
	Fusion    FusionSettings
	Power     PowerSettings
	Recovery  RecoverySettings
	Telemetry TelemetrySettings
}

// CaptureDeadline returns the configured per-capture deadline as a duration.
func (s *Settings) CaptureDeadline() time.Duration {
	return time.Duration(s.Capture.DeadlineMs) * time.Millisecond
}

// Cooldown returns the configured fusion cooldown as a duration.
func (s *Settings) Cooldown() time.Duration {
	return time.Duration(s.Fusion.CooldownMs) * time.Millisecond
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration into the global settings instance.
// The prior configuration is retained if the new one fails validation.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("WILDCAM")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !stderrors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("fatal error reading config file: %w", err)
		}
		// No config file found, defaults apply.
		log.Println("config file not found, using defaults")
	}

	return nil
}

// Setting returns the global settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				log.Fatalf("error loading settings: %v", err)
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// GetDefaultConfigPaths returns the directories searched for config.yaml,
// in priority order: working directory, then the user config directory.
func GetDefaultConfigPaths() ([]string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("error getting working directory: %w", err)
	}

	paths := []string{wd}

	if configDir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(configDir, "wildcam-go"))
	}

	return paths, nil
}
