// defaults.go: default values registered with viper before config load.
package conf

import "github.com/spf13/viper"

// setDefaultConfig registers the default for every setting so a missing
// config file yields a fully usable configuration.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Node
	viper.SetDefault("node.id", "wildcam-0")
	viper.SetDefault("node.latitude", 0.0)
	viper.SetDefault("node.longitude", 0.0)

	// Logging
	viper.SetDefault("log.enabled", false)
	viper.SetDefault("log.path", "logs/wildcam.log")
	viper.SetDefault("log.maxsizemb", 100)
	viper.SetDefault("log.maxbackups", 3)
	viper.SetDefault("log.maxagedays", 28)

	// Capture pipeline
	viper.SetDefault("capture.deadlinems", 5000)
	viper.SetDefault("capture.queuesize", 0) // derive from buffer pool recommendation
	viper.SetDefault("capture.fastmemoryminkb", 100)
	viper.SetDefault("capture.slowmemoryminkb", 512)
	viper.SetDefault("capture.savefolder", "wildlife_images")

	// Motion fusion
	viper.SetDefault("fusion.policy", "either_suffices")
	viper.SetDefault("fusion.edgesensitivity", 0.7)
	viper.SetDefault("fusion.diffsensitivity", 0.5)
	viper.SetDefault("fusion.cooldownms", 2000)
	viper.SetDefault("fusion.confidencethreshold", 0.3)
	viper.SetDefault("fusion.falsepositivefilter", true)
	viper.SetDefault("fusion.minmotionblocks", 5)
	viper.SetDefault("fusion.debouncems", 2000)

	// Power controller
	viper.SetDefault("power.controlintervalms", 30000)

	// Failure recovery
	viper.SetDefault("recovery.sensorresetthreshold", 5)
	viper.SetDefault("recovery.portreinitthreshold", 10)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.listen", "0.0.0.0:8090")
}
