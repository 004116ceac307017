package cli

import (
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API and metrics while refreshing in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := getApp()
		if serveAddr != "" {
			a.Config.API.Addr = serveAddr
		}
		return a.Serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (defaults to api.addr)")
}
