package cmd

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <id>",
	Short: "Fetch an invoice by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		conn, err := dial(ctx)
		if err != nil {
			return err
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		resp, err := request(ctx, conn, map[string]string{
			"action": "fetch_invoice",
			"id":     args[0],
		})
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
