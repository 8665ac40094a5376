package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe <type> <id>",
	Short: "Subscribe to a topic and stream its events",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		conn, err := dial(ctx)
		if err != nil {
			return err
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		resp, err := request(ctx, conn, map[string]string{
			"action": "subscribe",
			"type":   args[0],
			"id":     args[1],
		})
		if err != nil {
			return err
		}
		printJSON(resp)

		// Stream events until interrupted.
		for {
			_, frame, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("connection lost: %w", err)
			}
			printJSON(frame)
		}
	},
}

func init() {
	rootCmd.AddCommand(subscribeCmd)
}
