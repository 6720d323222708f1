package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/model"
)

var (
	exportDecision string
	exportFormat   string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export directory profiles by decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		decision := model.Decision(strings.ToUpper(exportDecision))
		switch decision {
		case model.DecisionAuto, model.DecisionReview, model.DecisionHold:
		default:
			return eris.Errorf("unknown decision %q, want AUTO, REVIEW, or HOLD", exportDecision)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		profiles, err := st.ListByDecision(ctx, decision)
		if err != nil {
			return err
		}
		zap.L().Info("export",
			zap.String("decision", string(decision)),
			zap.Int("profiles", len(profiles)),
		)

		out := os.Stdout
		if exportOut != "" {
			f, err := os.Create(exportOut)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOut)
			}
			defer f.Close()
			out = f
		}

		switch exportFormat {
		case "json":
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return eris.Wrap(enc.Encode(profiles), "encode profiles")
		case "csv":
			w := csv.NewWriter(out)
			if err := w.Write(queueHeader); err != nil {
				return eris.Wrap(err, "write header")
			}
			for _, p := range profiles {
				confidence, reasons := "", ""
				if p.QA != nil {
					confidence = fmt.Sprintf("%.3f", p.QA.ProfileConfidence)
					reasons = strings.Join(p.QA.Reasons, "; ")
				}
				record := []string{
					p.ProviderID, p.Name, p.NPI, string(p.IdentityStatus), p.Address, p.Phone,
					p.EffectiveSpecialty(), confidence, string(decision), reasons,
				}
				if err := w.Write(record); err != nil {
					return eris.Wrap(err, "write row")
				}
			}
			w.Flush()
			return eris.Wrap(w.Error(), "flush csv")
		default:
			return eris.Errorf("unknown format %q, want json or csv", exportFormat)
		}
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDecision, "decision", "AUTO", "decision class to export")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
