package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"obdboard/internal/cmd/root"
	"obdboard/internal/mqtt"
	"obdboard/pkg/log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "obdboard",
	Short: "Live OBD-II dashboard for ELM327 adapters",
	Run:   root.Run,
}

func init() {
	cobra.OnInitialize(initLogger)

	defaultLogFile := filepath.Join(os.TempDir(), "obdboard.log")

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().Bool("no-tui", false, "Print readings to stdout instead of drawing the dashboard")
	rootCmd.PersistentFlags().Bool("mock", false, "Use the simulated adapter")
	rootCmd.PersistentFlags().String("log-file", defaultLogFile, "Log file used while the dashboard is shown")
	rootCmd.PersistentFlags().String("mqtt-broker", "", "Publish readings to this MQTT broker (e.g. tcp://localhost:1883)")
	rootCmd.PersistentFlags().String("mqtt-topic", mqtt.DefaultTopic, "MQTT topic for readings")

	for _, name := range []string{"debug", "no-tui", "mock", "log-file", "mqtt-broker", "mqtt-topic"} {
		viper.BindPFlag(name, rootCmd.PersistentFlags().Lookup(name))
	}

	// Set default values
	viper.SetDefault("debug", false)
	viper.SetDefault("no-tui", false)
	viper.SetDefault("mock", false)
	viper.SetDefault("log-file", defaultLogFile)
	viper.SetDefault("mqtt-topic", mqtt.DefaultTopic)

	viper.SetEnvPrefix("obdboard")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// initLogger keeps the terminal clean while the TUI owns it.
func initLogger() {
	file := viper.GetString("log-file")
	if viper.GetBool("no-tui") {
		file = ""
	}
	log.InitLogger(viper.GetBool("debug"), file)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
