package main

import (
	"os"

	"github.com/spf13/cobra"

	"sitepanel.org/internal/gate"
	"sitepanel.org/internal/pricing"
	"sitepanel.org/internal/views"
)

func (a *app) totalsCmd() *cobra.Command {
	var (
		start, end string
		filter     pricing.Filter
		csvPath    string
	)
	cmd := &cobra.Command{
		Use:   "totals",
		Short: "Price daily reports against the material catalog",
		RunE: a.guarded(gate.PathTotalPrice, func(cmd *cobra.Command, _ []string) error {
			page, err := views.NewTotalPrices(a.client, a.now).Load(cmd.Context(), start, end, filter)
			if err != nil {
				return err
			}
			if csvPath != "" {
				if err := writeCSVFile(csvPath, page.Table); err != nil {
					return err
				}
			}
			if page.Scope.IsRange() {
				a.printf("%s .. %s\n", page.Scope.Start, page.Scope.End)
			} else {
				a.printf("%s\n", page.Scope.Day)
			}
			tw := newTable(a.out, "DATE", "MATERIAL", "QTY", "UNIT", "LOCATION", "PANEL", "MATERIAL $", "LABOR $", "TOTAL")
			for _, l := range page.Table.Lines {
				r := l.Record
				tw.row(r.Date, r.MaterialName, r.Quantity.String(), r.Unit, r.Location, r.PanelName,
					l.MaterialPriceText(), l.LaborPriceText(), l.TotalText())
			}
			if !page.Table.Filter.SuppressCosts() {
				s := page.Table.Summary
				tw.row("", "TOTAL", "", "", "", "", money(s.MaterialCost), money(s.LaborCost), money(s.Total))
			}
			return tw.flush()
		}),
	}
	f := cmd.Flags()
	f.StringVar(&start, "start", "", "range start (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "range end (YYYY-MM-DD)")
	f.StringVar(&filter.Location, "location", "", "only rows at this location")
	f.StringVar(&filter.Panel, "panel", "", "only rows on this panel (hides costs)")
	f.StringVar(&csvPath, "csv", "", "also write the priced rows to this CSV file")
	return cmd
}

func writeCSVFile(path string, t pricing.Table) error {
	rows := t.TotalPrices()
	if len(rows) == 0 {
		return views.ErrNothingToExport
	}
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := pricing.WriteCSV(fh, rows); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}
