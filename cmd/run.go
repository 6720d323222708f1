package main

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/model"
)

var (
	runID      string
	runName    string
	runNPI     string
	runPhone   string
	runAddress string
	runCity    string
	runState   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single provider record",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if runID == "" {
			runID = uuid.NewString()
			zap.L().Info("generated provider ID", zap.String("provider_id", runID))
		}

		row := model.InputRow{
			ProviderID: runID,
			FullName:   runName,
			NPI:        runNPI,
			Phone:      runPhone,
			Address:    runAddress,
			City:       runCity,
			State:      runState,
		}

		profile := env.Pipeline.ProcessRecord(ctx, row)

		entry, err := env.Store.UpsertProfile(ctx, profile)
		if err != nil {
			return eris.Wrap(err, "persist profile")
		}

		zap.L().Info("record processed",
			zap.String("provider_id", profile.ProviderID),
			zap.String("decision", string(profile.QA.Decision)),
			zap.Float64("confidence", profile.QA.ProfileConfidence),
			zap.Int64("version_id", entry.ID),
			zap.String("change_summary", entry.ChangeSummary),
		)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profile)
	},
}

func init() {
	runCmd.Flags().StringVar(&runID, "id", "", "provider ID (generated if omitted)")
	runCmd.Flags().StringVar(&runName, "name", "", "provider full name (required)")
	runCmd.Flags().StringVar(&runNPI, "npi", "", "NPI number")
	runCmd.Flags().StringVar(&runPhone, "phone", "", "phone number")
	runCmd.Flags().StringVar(&runAddress, "address", "", "street address")
	runCmd.Flags().StringVar(&runCity, "city", "", "city")
	runCmd.Flags().StringVar(&runState, "state", "", "state")
	_ = runCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(runCmd)
}
