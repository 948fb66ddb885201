package cmd

import (
	"bytes"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"billbook/internal/logger"
	"billbook/internal/report"
	"billbook/internal/sheets"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize all stored bills",
	Long: `Print one summary block per stored bill (id, customer, total, date) in the
order the bills were added.

Formats:
  text - plain text report (default)
  pdf  - single-table PDF document
  xlsx - Excel workbook

With --sheet the rows are also appended to the Google Sheet configured by
GOOGLE_SHEET_URL (worksheet GOOGLE_SHEET_WORKSHEET, default "Bills").
Requires GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS.`,
	Example: `  billbook report
  billbook report --format pdf -o bills.pdf
  billbook report --format xlsx -o bills.xlsx --sheet`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringP("format", "f", "text", "Report format: text, pdf or xlsx")
	reportCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	reportCmd.Flags().Bool("sheet", false, "Also append the rows to the configured Google Sheet")
}

func runReport(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("report")

	format, _ := cmd.Flags().GetString("format")
	outputPath, _ := cmd.Flags().GetString("output")
	toSheet, _ := cmd.Flags().GetBool("sheet")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	if toSheet && appConfig.GoogleSheetURL == "" {
		return fmt.Errorf("GOOGLE_SHEET_URL environment variable is required for --sheet")
	}

	ctx, cancel := createContext(timeoutSecs, log)
	defer cancel()

	s, err := openSession(ctx, appConfig, sessionOptions{})
	if err != nil {
		return err
	}
	defer s.Close()

	rows := s.ledger.Report()

	var data []byte
	switch format {
	case "text":
		var buf bytes.Buffer
		if err := report.WriteText(&buf, rows); err != nil {
			return fmt.Errorf("failed to render report: %w", err)
		}
		data = buf.Bytes()
	case "pdf":
		data, err = report.BuildPDF(rows, time.Now())
		if err != nil {
			return fmt.Errorf("failed to render PDF report: %w", err)
		}
	case "xlsx":
		data, err = report.BuildXLSX(rows)
		if err != nil {
			return fmt.Errorf("failed to render XLSX report: %w", err)
		}
	default:
		return fmt.Errorf("unknown report format %q (use text, pdf or xlsx)", format)
	}

	log.Info().
		Str("format", format).
		Int("bills", s.ledger.Len()).
		Msg("Report generated")

	if err := writeOutput(cmd.OutOrStdout(), data, outputPath, log); err != nil {
		return err
	}

	if toSheet {
		sheetsService, err := sheets.NewSheetsService(ctx, appConfig.GoogleSheetURL)
		if err != nil {
			return fmt.Errorf("failed to create Google Sheets service: %w", err)
		}
		written, err := sheetsService.WriteReport(ctx, rows, appConfig.GoogleSheetWorksheet)
		if err != nil {
			return fmt.Errorf("failed to write report to Google Sheet: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d rows to Google Sheet %q\n", written, appConfig.GoogleSheetWorksheet)
	}

	return nil
}
