package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/chequepro/depositslip/internal/currency"
	"github.com/chequepro/depositslip/internal/repository"
)

var listFilter repository.ChequeFilter

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cheques, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("exported") {
			v, _ := cmd.Flags().GetBool("exported")
			listFilter.Exported = &v
		}

		cheques, total, err := app.cheques.List(listFilter)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tNUMBER\tBANK\tBRANCH\tPAYEE\tAMOUNT\tSTATUS\tEXPORTED")
		for _, c := range cheques {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%t\n",
				c.ChequeDate, c.ChequeNumber, c.BankName, c.Branch, c.Payee,
				currency.Format(c.Amount, app.cfg.CurrencyLabel), c.Status, c.Exported)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d of %d cheques\n", len(cheques), total)
		return nil
	},
}

func init() {
	f := listCmd.Flags()
	f.StringVarP(&listFilter.Query, "query", "q", "", "search number, bank, branch, payee or account holder")
	f.StringVar(&listFilter.Status, "status", "", "pending, processed or deposited")
	f.StringVar(&listFilter.From, "from", "", "earliest cheque date (YYYY-MM-DD)")
	f.StringVar(&listFilter.To, "to", "", "latest cheque date (YYYY-MM-DD)")
	f.Bool("exported", false, "only exported (true) or unexported (false) cheques")
	f.IntVar(&listFilter.Page, "page", 1, "page number")
	f.IntVar(&listFilter.Limit, "limit", 20, "cheques per page")
	rootCmd.AddCommand(listCmd)
}
