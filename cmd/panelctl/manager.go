package main

import (
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"sitepanel.org/internal/gate"
	"sitepanel.org/internal/pricing"
	"sitepanel.org/internal/views"
)

func money(d decimal.Decimal) string {
	return pricing.Money(decimal.NullDecimal{Decimal: d, Valid: true})
}

func (a *app) managerCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "manager", Short: "Manager dashboard"}

	var (
		filter pricing.ManagerFilter
		csvDir string
	)
	totals := &cobra.Command{
		Use:   "totals",
		Short: "Total prices for a site and company over a date range",
		RunE: a.guarded(gate.PathManager, func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			d, err := views.NewManagerDashboard(ctx, a.client, a.store)
			if err != nil {
				return err
			}
			d.Merge(filter)
			res, err := d.Fetch(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out, "DATE", "MATERIAL", "QTY", "UNIT", "MATERIAL $", "LABOR $", "TOTAL")
			for _, r := range res.Rows {
				tw.row(r.Date, r.MaterialName, r.Quantity.String(), r.Unit,
					pricing.Money(r.MaterialCost.NullDecimal), pricing.Money(r.LaborCost.NullDecimal), pricing.Money(r.TotalPrice.NullDecimal))
			}
			tw.row("", "TOTAL", "", "", money(res.Totals.MaterialCost), money(res.Totals.LaborCost), money(res.Totals.Total))
			if err := tw.flush(); err != nil {
				return err
			}
			if csvDir == "" {
				return nil
			}
			path := filepath.Join(csvDir, pricing.CSVFilename)
			fh, err := os.Create(path)
			if err != nil {
				return err
			}
			if err := d.ExportCSV(fh); err != nil {
				fh.Close()
				return err
			}
			if err := fh.Close(); err != nil {
				return err
			}
			a.printf("wrote %s\n", path)
			return nil
		}),
	}
	f := totals.Flags()
	f.StringVar(&filter.Site, "site", "", "site (remembered between runs)")
	f.StringVar(&filter.Company, "company", "", "company (remembered between runs)")
	f.StringVar(&filter.Start, "start", "", "range start (YYYY-MM-DD)")
	f.StringVar(&filter.End, "end", "", "range end (YYYY-MM-DD)")
	f.StringVar(&csvDir, "csv-dir", "", "export the rows as CSV into this directory")

	cmd.AddCommand(totals)
	return cmd
}
