// Package cmd implements the CLI commands for sellerscope.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "sellerscope",
	Short: "Keyword market snapshots for Amazon sellers",
	Long: "Sellerscope serves cached market snapshots per keyword and marketplace, " +
		"and keeps them fresh through a prioritized refresh queue fed by user " +
		"requests and a demand-driven staleness policy.",
}

func init() {
	rootCmd.PersistentFlags().String("config", "config.yaml", "config file path")
	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))

	// Any config key can be overridden via SELLERSCOPE_* env vars,
	// e.g. SELLERSCOPE_CONFIG=/etc/sellerscope/config.yaml.
	viper.SetEnvPrefix("SELLERSCOPE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

// configPath returns the config file path from the flag or the
// SELLERSCOPE_CONFIG environment variable.
func configPath() string {
	return viper.GetString("config")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
