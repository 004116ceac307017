package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cio-consistency/internal/app"
)

var (
	backfillFrom string
	backfillTo   string
)

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Recompute historical days and warm the report cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		if backfillFrom == "" || backfillTo == "" {
			return fmt.Errorf("--from and --to must be provided")
		}

		a := getApp()
		loc := a.Config.Location()

		from, err := parseDay("from", backfillFrom, loc)
		if err != nil {
			return err
		}
		to, err := parseDay("to", backfillTo, loc)
		if err != nil {
			return err
		}

		if !from.Before(to) {
			return fmt.Errorf("--from must be before --to")
		}

		return a.Backfill(cmd.Context(), app.BackfillOptions{From: from, To: to})
	},
}

func init() {
	backfillCmd.Flags().StringVar(&backfillFrom, "from", "", "First day (YYYY-MM-DD, inclusive)")
	backfillCmd.Flags().StringVar(&backfillTo, "to", "", "Last day (YYYY-MM-DD, exclusive)")
}
