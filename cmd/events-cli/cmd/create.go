package cmd

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/spf13/cobra"
)

var (
	createAmount    int64
	createCurrency  string
	createAccountID int64
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new invoice",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		conn, err := dial(ctx)
		if err != nil {
			return err
		}
		defer conn.Close(websocket.StatusNormalClosure, "done")

		resp, err := request(ctx, conn, map[string]any{
			"action":     "create_invoice",
			"amount":     createAmount,
			"currency":   createCurrency,
			"account_id": createAccountID,
		})
		if err != nil {
			return err
		}
		printJSON(resp)
		return nil
	},
}

func init() {
	createCmd.Flags().Int64Var(&createAmount, "amount", 0, "invoice amount in minor units")
	createCmd.Flags().StringVar(&createCurrency, "currency", "USD", "three-letter currency code")
	createCmd.Flags().Int64Var(&createAccountID, "account-id", 0, "account the invoice belongs to")
	createCmd.MarkFlagRequired("amount")
	createCmd.MarkFlagRequired("account-id")

	rootCmd.AddCommand(createCmd)
}
