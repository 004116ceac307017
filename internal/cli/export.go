package cli

import (
	"github.com/spf13/cobra"

	"cio-consistency/internal/app"
)

var (
	exportDate         string
	exportCSVPath      string
	exportGapPNGPath   string
	exportScorePNGPath string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one day's analysis as CSV and/or PNG charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()

		day, err := parseDay("date", exportDate, a.Config.Location())
		if err != nil {
			return err
		}

		return a.Export(cmd.Context(), app.ExportOptions{
			Day:          day,
			CSVPath:      exportCSVPath,
			GapPNGPath:   exportGapPNGPath,
			ScorePNGPath: exportScorePNGPath,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportDate, "date", "", "Day to export (YYYY-MM-DD, defaults to today)")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().StringVar(&exportGapPNGPath, "png", "", "Path to write the weight gap chart")
	exportCmd.Flags().StringVar(&exportScorePNGPath, "score-png", "", "Path to write the consistency score chart")
}
