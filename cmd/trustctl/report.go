package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"channel-trust-lab/internal/config"
	"channel-trust-lab/internal/reporting"
)

var (
	reportOutputDir string
	reportCompare   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the markdown score report and the channel CSV",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		eng, err := newEngine()
		if err != nil {
			return err
		}
		stores, cleanup, err := openStores(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		gen := reporting.NewGenerator(stores.Records, stores.History)
		report, err := gen.Generate(ctx, eng.Version(), reportCompare)
		if err != nil {
			return fmt.Errorf("generate report: %w", err)
		}

		if err := os.MkdirAll(reportOutputDir, 0755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		mdPath := filepath.Join(reportOutputDir, "SCORE_REPORT.md")
		if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
			return fmt.Errorf("write %s: %w", mdPath, err)
		}
		csvPath := filepath.Join(reportOutputDir, "channels.csv")
		if err := os.WriteFile(csvPath, []byte(reporting.RenderCSV(report.Channels)), 0644); err != nil {
			return fmt.Errorf("write %s: %w", csvPath, err)
		}

		logger.Info("report written",
			zap.String("markdown", mdPath),
			zap.String("csv", csvPath),
			zap.Int("channels", len(report.Channels)))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOutputDir, "output-dir", "output", "Output directory for report files")
	reportCmd.Flags().StringVar(&reportCompare, "compare", config.VersionV15, "Config version to compare against (empty disables)")
}
