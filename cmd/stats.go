package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/provider-directory/internal/model"
)

var (
	statsJSON bool
	statsRuns int
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show directory statistics and recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		stats, err := st.DirectoryStats(ctx)
		if err != nil {
			return err
		}
		runs, err := st.ListRuns(ctx, statsRuns)
		if err != nil {
			return err
		}

		if statsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Directory *model.DirectoryStats `json:"directory"`
				Runs      []model.RunStats      `json:"runs"`
			}{stats, runs})
		}

		fmt.Printf("Directory: %d providers\n\n", stats.Total)
		for _, d := range []model.Decision{model.DecisionAuto, model.DecisionReview, model.DecisionHold} {
			fmt.Printf("  %-7s %5d  (avg confidence %.3f)\n", d, stats.ByDecision[d], stats.AvgConfidenceByDecision[d])
		}

		fmt.Printf("\nAUTO confidence distribution: high=%d medium=%d low=%d\n",
			stats.Confidence.High, stats.Confidence.Medium, stats.Confidence.Low)

		if len(stats.TopSpecialties) > 0 {
			fmt.Println("\nTop specialties (AUTO):")
			for _, sc := range stats.TopSpecialties {
				fmt.Printf("  %-40s %d\n", sc.Specialty, sc.Count)
			}
		}

		if len(runs) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range runs {
				fmt.Printf("  %s  run=%d total=%d auto=%d review=%d hold=%d avg=%.3f\n",
					r.RunTimestamp.Format("2006-01-02 15:04:05"), r.RunID,
					r.TotalProcessed, r.AutoCount, r.ReviewCount, r.HoldCount, r.AvgAutoConfidence)
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit raw JSON")
	statsCmd.Flags().IntVar(&statsRuns, "runs", 10, "number of recent runs to show")
	rootCmd.AddCommand(statsCmd)
}
