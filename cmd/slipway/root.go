package slipway

import (
	stderrors "errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/opnlabs/slipway/pkg/config"
)

var (
	cfgFile string
	debug   bool
	jsonOut bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "slipway",
	Short: "Slipway checks and plans release pipelines",
	Long: `Slipway parses pipeline definition files, lints them and plans which jobs
a pushed ref would run. Jobs delegate their steps to templates owned by
repository resources; slipway inspects and orders them but never executes
anything.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Config file (default .slipwayrc.yaml in $HOME or the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&jsonOut, "json", "j", false, "Machine readable output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".slipwayrc")
	}

	viper.SetEnvPrefix("SLIPWAY")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !stderrors.As(err, &notFound) {
			log.Warn("could not read config file", "err", err)
		}
	}

	log.SetReportTimestamp(false)
	if debug || viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	if noColor || viper.GetBool("no-color") {
		color.NoColor = true
	}
	if viper.ConfigFileUsed() != "" {
		log.Debug("using config file", "path", viper.ConfigFileUsed())
	}
}

// Execute runs the CLI. Commands report their own failures and exit 1;
// anything surfacing here is a usage error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err)
		os.Exit(2)
	}
}

// pipelineArg returns the explicit path argument, the configured default, or
// a well known pipeline file discovered in the current directory.
func pipelineArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	if path := viper.GetString("pipeline"); path != "" {
		return path
	}
	path, err := config.Discover(".")
	if err != nil {
		log.Fatal(err)
	}
	return path
}
