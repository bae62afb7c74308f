package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/grc-cli/internal/config"
)

var (
	cfg *config.Config

	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "grc-cli",
	Short: "Compliance checklist generation and reconciliation",
	Long: "Scopes AI projects against an industry taxonomy, derives compliance checklists " +
		"from versioned control packs, and keeps user progress across pack upgrades.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		loaded, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		return eris.Wrap(config.InitLogger(cfg.Log), "init logger")
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
