package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cio-consistency/internal/app"
)

var (
	reportDate   string
	reportFormat string
	reportPretty bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print one day's consistency and weight gap analysis",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()

		switch strings.ToLower(reportFormat) {
		case app.FormatTable, app.FormatJSON, app.FormatMarkdown:
		default:
			return fmt.Errorf("--format must be one of table, json, markdown")
		}

		day, err := parseDay("date", reportDate, a.Config.Location())
		if err != nil {
			return err
		}

		return a.Report(cmd.Context(), app.ReportOptions{
			Day:    day,
			Format: reportFormat,
			Pretty: reportPretty,
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "Day to analyse (YYYY-MM-DD, defaults to today)")
	reportCmd.Flags().StringVar(&reportFormat, "format", app.FormatTable, "Output format: table, json or markdown")
	reportCmd.Flags().BoolVar(&reportPretty, "pretty", false, "Render markdown for the terminal")
}
