package cli

import (
	"fmt"
	"os"

	"github.com/andywolf/ctxbudget/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ctxbudget",
	Short: "ctxbudget - Context-window budget scheduling for capability units",
	Long: `ctxbudget governs which tools and capability layers fit inside a
context-window budget. It tracks weighted units, resolves layer dependency
closures and mutual-exclusion constraints, and evicts stale units when an
activation would exceed the configured ceiling.

Definitions come from a YAML manifest; the budget, eviction strategy and
thresholds come from config or environment.

Example:
  ctxbudget plan git-advanced --manifest tools.yaml`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Set version for --version flag
	rootCmd.Version = version.Short()
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .ctxbudget.yaml)")
	rootCmd.PersistentFlags().String("manifest", "", "tool/layer manifest file")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable verbose output")
	_ = viper.BindPFlag("manifest.path", rootCmd.PersistentFlags().Lookup("manifest"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		cwd, err := os.Getwd()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error getting working directory:", err)
			os.Exit(1)
		}

		viper.AddConfigPath(cwd)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".ctxbudget")
	}

	viper.SetEnvPrefix("CTXBUDGET")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	}
}
