// Package commands implements the CLI commands for domnode.
package commands

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/domnode/internal/logger"
	"github.com/jmylchreest/domnode/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "domnode",
	Short: "Reduce rendered web pages to their visible, semantic structure",
	Long: `Domnode reads a rendered page, either as HTML markup or as a Chrome
DevTools DOMSnapshot.captureSnapshot result, builds a normalized element
tree annotated with computed styles and bounding boxes, and strips it down
to the nodes that are visible and carry semantic meaning.

Examples:
  # Filter a saved page with the full pipeline
  domnode filter page.html

  # Filter a browser snapshot, keeping only visibility filtering
  domnode filter snapshot.json --preset visible --format yaml

  # Fetch a page and print the surviving text
  domnode filter https://example.com --format text

  # Read from stdin and show per-stage statistics
  cat page.html | domnode filter - --stats`,
	Version:           version.String(),
	SilenceUsage:      true,
	PersistentPreRunE: initLogger,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.domnode.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (overrides --debug/--quiet)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit logs as JSON")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log_json", rootCmd.PersistentFlags().Lookup("log-json"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".domnode")
		viper.SetConfigType("yaml")
	}

	// Environment variables, e.g. DOMNODE_PRESET or DOMNODE_KEEP_ATTR
	viper.SetEnvPrefix("DOMNODE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

func initLogger(cmd *cobra.Command, _ []string) error {
	return logger.Init(logger.Options{
		Level:  viper.GetString("log_level"),
		Debug:  viper.GetBool("debug"),
		Quiet:  viper.GetBool("quiet"),
		JSON:   viper.GetBool("log_json"),
		Output: cmd.ErrOrStderr(),
	})
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
