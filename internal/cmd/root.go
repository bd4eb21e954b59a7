package cmd

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Iron-Ham/workplan/internal/config"
	perrors "github.com/Iron-Ham/workplan/internal/errors"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitError      = 1
	ExitPlanFailed = 2
)

var rootCmd = &cobra.Command{
	Use:   "workplan",
	Short: "Parallel execution planner for backlog work items",
	Long: `Workplan reads the children of a parent work item from a tracker,
orders them into blocks of items that can run concurrently, and routes each
item to autonomous agent execution or a human based on a deterministic
risk policy.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExitCode maps an error returned by Execute to a process exit code.
// Failures that abort planning without a plan exit with ExitPlanFailed so
// scripts can tell them apart from usage and configuration errors.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case perrors.IsFatal(err):
		return ExitPlanFailed
	default:
		return ExitError
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/workplan/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// A .env in the working directory may carry tracker credentials
	_ = godotenv.Load()

	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("WORKPLAN")
	// e.g., WORKPLAN_TRACKER_AZURE_PAT for tracker.azure.pat
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
