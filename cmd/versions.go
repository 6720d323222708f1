package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/provider-directory/internal/model"
)

var versionsJSON bool

var versionsCmd = &cobra.Command{
	Use:   "versions <provider-id>",
	Short: "Show the version history for a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		providerID := args[0]

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		entries, err := st.ListVersions(ctx, providerID)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return eris.Errorf("no versions found for provider %s", providerID)
		}

		if versionsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		fmt.Printf("Version history for %s (%d entries)\n\n", providerID, len(entries))
		for _, e := range entries {
			confidence := 0.0
			decision := model.DecisionHold
			if e.Snapshot != nil && e.Snapshot.QA != nil {
				confidence = e.Snapshot.QA.ProfileConfidence
				decision = e.Snapshot.QA.Decision
			}
			fmt.Printf("  %s  v%d  %s  %.3f\n", e.VersionTimestamp.Format("2006-01-02 15:04:05"), e.ID, decision, confidence)
			fmt.Printf("    %s\n", e.ChangeSummary)
		}
		return nil
	},
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsJSON, "json", false, "emit raw JSON entries")
	rootCmd.AddCommand(versionsCmd)
}
