package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/facegate/internal/database"
	"github.com/kozaktomas/facegate/internal/embedding"
)

var reencodeCmd = &cobra.Command{
	Use:   "reencode",
	Short: "Rewrite legacy face encodings in the binary format",
	Long: `Walk every stored face record and rewrite encodings stored as delimited text
or JSON arrays in the canonical binary format. Records that cannot be decoded
are counted and left untouched; they are skipped at match time anyway.

Examples:
  facegate reencode --dry-run
  facegate reencode --batch-size 1000`,
	Args: cobra.NoArgs,
	RunE: runReencode,
}

func init() {
	rootCmd.AddCommand(reencodeCmd)

	reencodeCmd.Flags().Int("batch-size", 500, "Number of records loaded per query")
	reencodeCmd.Flags().Bool("dry-run", false, "Count records that would be rewritten without writing")
	reencodeCmd.Flags().Bool("no-progress", false, "Do not draw a progress bar on stderr")
}

type reencodeReport struct {
	Total         int  `json:"total"`
	Rewritten     int  `json:"rewritten"`
	AlreadyBinary int  `json:"already_binary"`
	Undecodable   int  `json:"undecodable"`
	DryRun        bool `json:"dry_run"`
}

type reencodeFailure struct {
	Error string `json:"error"`
}

func runReencode(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	report, err := reencode(cmd)
	if err != nil {
		return writeFailure(out, reencodeFailure{Error: err.Error()})
	}
	return writeResult(out, report)
}

func reencode(cmd *cobra.Command) (*reencodeReport, error) {
	batchSize := mustGetInt(cmd, "batch-size")
	dryRun := mustGetBool(cmd, "dry-run")
	noProgress := mustGetBool(cmd, "no-progress")

	if batchSize <= 0 {
		return nil, fmt.Errorf("--batch-size must be positive, got %d", batchSize)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	env, err := setupEnvironment(ctx)
	if err != nil {
		return nil, err
	}
	defer env.Close()

	total, err := env.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting face records: %w", err)
	}

	var bar *progressbar.ProgressBar
	if !noProgress {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("Re-encoding"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("records"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	report, err := reencodeRecords(ctx, env.store, batchSize, dryRun, env.log, func(n int) {
		if bar != nil {
			_ = bar.Add(n)
		}
	})
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		return nil, err
	}

	env.log.WithFields(logrus.Fields{
		"total":       report.Total,
		"rewritten":   report.Rewritten,
		"undecodable": report.Undecodable,
		"dry_run":     report.DryRun,
	}).Info("re-encoding finished")
	return report, nil
}

// reencodeRecords walks the table by id and rewrites every decodable record
// that is not stored in the binary format.
func reencodeRecords(
	ctx context.Context, store database.RecordWriter, batchSize int, dryRun bool,
	log logrus.FieldLogger, progress func(int),
) (*reencodeReport, error) {
	report := &reencodeReport{DryRun: dryRun}
	var afterID int64

	for {
		records, err := store.ListAfter(ctx, afterID, batchSize)
		if err != nil {
			return report, fmt.Errorf("listing face records after id %d: %w", afterID, err)
		}
		if len(records) == 0 {
			return report, nil
		}

		for _, r := range records {
			afterID = r.ID
			report.Total++

			vec, format, err := embedding.Decode(r.Encoding)
			switch {
			case err != nil:
				report.Undecodable++
				log.WithFields(logrus.Fields{"record_id": r.ID, "employee_id": r.EmployeeID}).
					WithError(err).Warn("undecodable face encoding left untouched")
			case format == embedding.FormatBinary:
				report.AlreadyBinary++
			default:
				if !dryRun {
					if err := store.RewriteEncoding(ctx, r.ID, vec); err != nil {
						return report, fmt.Errorf("rewriting record %d: %w", r.ID, err)
					}
				}
				report.Rewritten++
			}
		}
		progress(len(records))

		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
}
