package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func registerBillingCommands(root *cobra.Command) {
	billingCmd.Flags().Bool("invoices", false, "show only invoices")
	root.AddCommand(billingCmd)
}

var billingCmd = &cobra.Command{
	Use:   "billing",
	Short: "Show your plans and invoices",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if only, _ := cmd.Flags().GetBool("invoices"); !only {
			subs, err := app.api.Subscriptions(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.out, renderSubscriptions(subs))
			fmt.Fprintln(app.out)
		}

		invoices, err := app.api.Invoices(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(app.out, titleStyle.Render("Invoices & Billing"))
		fmt.Fprintln(app.out, renderInvoices(invoices))
		return nil
	},
}
