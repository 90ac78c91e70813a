package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rezonia/invoice-generator/internal/processor"
	"github.com/rezonia/invoice-generator/internal/server"
)

var totalsCmd = &cobra.Command{
	Use:   "totals <snapshot>",
	Short: "Show the computed totals of a snapshot",
	Long: `Compute line amounts, subtotal, tax and grand total of a snapshot
without producing a document. Amounts are rounded to 2 decimals.

Examples:
  invoice-generator totals invoice.json
  invoice-generator totals invoice.yaml -f table`,
	Args: cobra.ExactArgs(1),
	RunE: runTotals,
}

func init() {
	rootCmd.AddCommand(totalsCmd)
}

func runTotals(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	snap, err := processor.DecodeSnapshot(data)
	if err != nil {
		return err
	}

	log := newLogger()
	defer log.Sync()

	totals, err := processor.NewPipeline(processor.WithLogger(log)).Totals(snap)
	if err != nil {
		return err
	}

	resp := server.NewTotalsResponse(snap.CurrencyCode(), totals)

	t := &table{header: []string{"LINE", "DESCRIPTION", "AMOUNT"}}
	for i, amount := range resp.Lines {
		t.add(strconv.Itoa(i+1), snap.Items[i].Description, amount)
	}
	t.add("", "Subtotal", resp.Subtotal)
	for _, tax := range resp.Taxes {
		t.add("", "Tax ("+tax.Rate+"% of "+tax.Basis+")", tax.Amount)
	}
	t.add("", "Total "+resp.Currency, resp.Total)

	return output(cmd.OutOrStdout(), resp, t)
}
