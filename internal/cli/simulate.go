package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cio-consistency/internal/alerting"
	"cio-consistency/internal/app"
)

var (
	simulateReason string
	simulateScore  int
	simulateAssets []string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic alert through the configured channels",
	RunE: func(cmd *cobra.Command, args []string) error {
		reason := alerting.Reason(simulateReason)
		if reason != alerting.ReasonLowScore && reason != alerting.ReasonRapidChange {
			return errors.New("--reason must be low_score or rapid_change")
		}
		if simulateScore < 0 || simulateScore > 100 {
			return errors.New("--score must be within 0-100")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Reason:       reason,
			OverallScore: simulateScore,
			Assets:       simulateAssets,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateReason, "reason", string(alerting.ReasonLowScore), "Alert reason: low_score or rapid_change")
	simulateCmd.Flags().IntVar(&simulateScore, "score", 35, "Overall consistency score to report")
	simulateCmd.Flags().StringSliceVar(&simulateAssets, "assets", []string{"BTC"}, "Assets named in the alert")
}
