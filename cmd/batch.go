package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-directory/internal/model"
	"github.com/sells-group/provider-directory/internal/pipeline"
)

var (
	batchInput  string
	batchOutDir string
	batchLimit  int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a CSV of provider records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		parseStart := time.Now()
		rows, err := pipeline.ParseProvidersCSV(batchInput)
		if err != nil {
			return err
		}
		if batchLimit > 0 && len(rows) > batchLimit {
			rows = rows[:batchLimit]
		}
		zap.L().Info("input parsed",
			zap.Int("rows", len(rows)),
			zap.Duration("elapsed", time.Since(parseStart)),
		)

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		processStart := time.Now()
		result, err := env.Pipeline.ProcessBatch(ctx, rows)
		if err != nil {
			return eris.Wrap(err, "process batch")
		}
		zap.L().Info("batch processed",
			zap.Int("providers", len(result.Profiles)),
			zap.Duration("elapsed", time.Since(processStart)),
		)

		writeStart := time.Now()
		if err := writeBatchArtifacts(batchOutDir, result); err != nil {
			return err
		}
		zap.L().Info("artifacts written",
			zap.String("dir", batchOutDir),
			zap.Duration("elapsed", time.Since(writeStart)),
		)

		fmt.Print(pipeline.FormatSummary(result.Stats))
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "input CSV path (required)")
	batchCmd.Flags().StringVar(&batchOutDir, "out", "out", "output directory for run artifacts")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max rows to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// writeBatchArtifacts writes the enriched JSON, the review and hold queue
// CSVs, the HOLD verification emails, and the summary and detailed reports.
func writeBatchArtifacts(dir string, result *pipeline.BatchResult) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create output dir")
	}

	data, err := json.MarshalIndent(result.Profiles, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal profiles")
	}
	if err := os.WriteFile(filepath.Join(dir, "providers_enriched.json"), data, 0o644); err != nil {
		return eris.Wrap(err, "write enriched json")
	}

	if err := writeQueueCSV(filepath.Join(dir, "review_queue.csv"), result.Review); err != nil {
		return err
	}
	if err := writeQueueCSV(filepath.Join(dir, "hold_queue.csv"), result.Hold); err != nil {
		return err
	}

	if emails := pipeline.FormatHoldEmails(result.Hold); emails != "" {
		if err := os.WriteFile(filepath.Join(dir, "hold_emails.txt"), []byte(emails), 0o644); err != nil {
			return eris.Wrap(err, "write hold emails")
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "summary_report.txt"),
		[]byte(pipeline.FormatSummary(result.Stats)), 0o644); err != nil {
		return eris.Wrap(err, "write summary report")
	}
	if err := os.WriteFile(filepath.Join(dir, "detailed_report.txt"),
		[]byte(pipeline.FormatDetailed(result.Profiles)), 0o644); err != nil {
		return eris.Wrap(err, "write detailed report")
	}

	return nil
}

var queueHeader = []string{
	"provider_id", "name", "npi", "identity_status", "address", "phone",
	"specialty", "profile_confidence", "decision", "reasons",
}

func writeQueueCSV(path string, profiles []*model.ProviderProfile) error {
	if len(profiles) == 0 {
		return nil
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(queueHeader); err != nil {
		return eris.Wrap(err, "write queue header")
	}
	for _, p := range profiles {
		record := []string{
			p.ProviderID, p.Name, p.NPI, string(p.IdentityStatus), p.Address, p.Phone,
			p.EffectiveSpecialty(),
			fmt.Sprintf("%.3f", p.QA.ProfileConfidence),
			string(p.QA.Decision),
			strings.Join(p.QA.Reasons, "; "),
		}
		if err := w.Write(record); err != nil {
			return eris.Wrap(err, "write queue row")
		}
	}
	w.Flush()
	return eris.Wrap(w.Error(), "flush queue csv")
}
