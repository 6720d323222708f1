package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/config"
)

var cfg *config.Config

var offline bool

var rootCmd = &cobra.Command{
	Use:   "provider-directory",
	Short: "Healthcare provider directory reconciliation pipeline",
	Long:  "Reconciles provider records against the NPI registry and address lookups, enriches them from practice websites, scores and routes each profile, and maintains a versioned directory.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "use stub collaborators instead of live APIs")
}
