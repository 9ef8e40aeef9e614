package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sitepanel.org/internal/gate"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/views"
)

// recordFlags are the editable fields shared by daily reports and received
// items. Only flags the user set are applied on update.
type recordFlags struct {
	date, material, quantity, location, notes string
	panel, circuit, supplier                  string
}

func (r *recordFlags) bind(f *pflag.FlagSet, daily bool) {
	f.StringVar(&r.date, "date", "", "date (YYYY-MM-DD, default today)")
	f.StringVar(&r.material, "material", "", "material name")
	f.StringVar(&r.quantity, "quantity", "", "quantity")
	f.StringVar(&r.location, "location", "", "location on site")
	f.StringVar(&r.notes, "notes", "", "notes")
	if daily {
		f.StringVar(&r.panel, "panel", "", "panel name")
		f.StringVar(&r.circuit, "circuit", "", "circuit on the panel")
	} else {
		f.StringVar(&r.supplier, "supplier", "", "supplier")
	}
}

func overlay(f *pflag.FlagSet, name string, dst *string, v string) {
	if f.Changed(name) {
		*dst = v
	}
}

func (r *recordFlags) daily(f *pflag.FlagSet, base panelapi.DailyReport) (panelapi.DailyReport, error) {
	overlay(f, "date", &base.Date, r.date)
	overlay(f, "material", &base.MaterialName, r.material)
	overlay(f, "location", &base.Location, r.location)
	overlay(f, "notes", &base.Notes, r.notes)
	overlay(f, "panel", &base.PanelName, r.panel)
	overlay(f, "circuit", &base.Circuit, r.circuit)
	if f.Changed("quantity") {
		q, err := parseAmount("quantity", r.quantity)
		if err != nil {
			return base, err
		}
		base.Quantity = q
	}
	return base, nil
}

func (r *recordFlags) received(f *pflag.FlagSet, base panelapi.Received) (panelapi.Received, error) {
	overlay(f, "date", &base.Date, r.date)
	overlay(f, "material", &base.MaterialName, r.material)
	overlay(f, "location", &base.Location, r.location)
	overlay(f, "notes", &base.Notes, r.notes)
	overlay(f, "supplier", &base.Supplier, r.supplier)
	if f.Changed("quantity") {
		q, err := parseAmount("quantity", r.quantity)
		if err != nil {
			return base, err
		}
		base.Quantity = q
	}
	return base, nil
}

func (a *app) reportsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "reports", Short: "Daily work reports"}
	var date string

	printPage := func(page views.DailyReportPage) error {
		tw := newTable(a.out, "ID", "DATE", "MATERIAL", "QTY", "UNIT", "LOCATION", "PANEL", "CIRCUIT", "NOTES")
		for _, r := range page.Reports {
			tw.row(r.ID, r.Date, r.MaterialName, r.Quantity.String(), r.Unit, r.Location, r.PanelName, r.Circuit, r.Notes)
		}
		return tw.flush()
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List reports for a day",
		RunE: a.guarded(gate.PathDailyReport, func(cmd *cobra.Command, _ []string) error {
			page, err := views.NewDailyReports(a.client, a.now).Load(cmd.Context(), date)
			if err != nil {
				return err
			}
			return printPage(page)
		}),
	}
	list.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD, default today)")

	var rf recordFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Submit a report",
		RunE: a.guarded(gate.PathDailyReport, func(cmd *cobra.Command, _ []string) error {
			v := views.NewDailyReports(a.client, a.now)
			if _, err := v.Load(cmd.Context(), rf.date); err != nil {
				return err
			}
			r, err := rf.daily(cmd.Flags(), panelapi.DailyReport{})
			if err != nil {
				return err
			}
			if err := v.Save(cmd.Context(), "", r); err != nil {
				return err
			}
			return printPage(v.Page())
		}),
	}
	rf.bind(add.Flags(), true)

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a report on --date",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(gate.PathDailyReport, func(cmd *cobra.Command, args []string) error {
			v := views.NewDailyReports(a.client, a.now)
			page, err := v.Load(cmd.Context(), rf.date)
			if err != nil {
				return err
			}
			var base *panelapi.DailyReport
			for i := range page.Reports {
				if page.Reports[i].ID == args[0] {
					base = &page.Reports[i]
					break
				}
			}
			if base == nil {
				return &exitError{code: exitNotFound, msg: fmt.Sprintf("report %q not found on %s", args[0], page.Date)}
			}
			r, err := rf.daily(cmd.Flags(), *base)
			if err != nil {
				return err
			}
			if err := v.Save(cmd.Context(), args[0], r); err != nil {
				return err
			}
			return printPage(v.Page())
		}),
	}
	rf.bind(update.Flags(), true)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a report",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(gate.PathDailyReport, func(cmd *cobra.Command, args []string) error {
			v := views.NewDailyReports(a.client, a.now)
			if _, err := v.Load(cmd.Context(), date); err != nil {
				return err
			}
			if err := v.Delete(cmd.Context(), args[0]); err != nil {
				return notFound(err, "report", args[0])
			}
			a.printf("deleted report %s\n", args[0])
			return nil
		}),
	}
	del.Flags().StringVar(&date, "date", "", "date to show afterwards")

	cmd.AddCommand(list, add, update, del)
	return cmd
}

func (a *app) receivedCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "received", Short: "Confirmed deliveries"}
	var date string

	printPage := func(page views.ReceivedPage) error {
		tw := newTable(a.out, "ID", "DATE", "MATERIAL", "QTY", "UNIT", "SUPPLIER", "LOCATION", "NOTES")
		for _, r := range page.Items {
			tw.row(r.ID, r.Date, r.MaterialName, r.Quantity.String(), r.Unit, r.Supplier, r.Location, r.Notes)
		}
		return tw.flush()
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List deliveries for a day",
		RunE: a.guarded(gate.PathReceived, func(cmd *cobra.Command, _ []string) error {
			page, err := views.NewReceivedItems(a.client, a.now).Load(cmd.Context(), date)
			if err != nil {
				return err
			}
			return printPage(page)
		}),
	}
	list.Flags().StringVar(&date, "date", "", "date (YYYY-MM-DD, default today)")

	var rf recordFlags
	add := &cobra.Command{
		Use:   "add",
		Short: "Record a delivery",
		RunE: a.guarded(gate.PathReceived, func(cmd *cobra.Command, _ []string) error {
			v := views.NewReceivedItems(a.client, a.now)
			if _, err := v.Load(cmd.Context(), rf.date); err != nil {
				return err
			}
			r, err := rf.received(cmd.Flags(), panelapi.Received{})
			if err != nil {
				return err
			}
			if err := v.Save(cmd.Context(), "", r); err != nil {
				return err
			}
			return printPage(v.Page())
		}),
	}
	rf.bind(add.Flags(), false)

	update := &cobra.Command{
		Use:   "update ID",
		Short: "Edit a delivery on --date",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(gate.PathReceived, func(cmd *cobra.Command, args []string) error {
			v := views.NewReceivedItems(a.client, a.now)
			page, err := v.Load(cmd.Context(), rf.date)
			if err != nil {
				return err
			}
			var base *panelapi.Received
			for i := range page.Items {
				if page.Items[i].ID == args[0] {
					base = &page.Items[i]
					break
				}
			}
			if base == nil {
				return &exitError{code: exitNotFound, msg: fmt.Sprintf("delivery %q not found on %s", args[0], page.Date)}
			}
			r, err := rf.received(cmd.Flags(), *base)
			if err != nil {
				return err
			}
			if err := v.Save(cmd.Context(), args[0], r); err != nil {
				return err
			}
			return printPage(v.Page())
		}),
	}
	rf.bind(update.Flags(), false)

	del := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a delivery",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(gate.PathReceived, func(cmd *cobra.Command, args []string) error {
			v := views.NewReceivedItems(a.client, a.now)
			if _, err := v.Load(cmd.Context(), date); err != nil {
				return err
			}
			if err := v.Delete(cmd.Context(), args[0]); err != nil {
				return notFound(err, "delivery", args[0])
			}
			a.printf("deleted delivery %s\n", args[0])
			return nil
		}),
	}
	del.Flags().StringVar(&date, "date", "", "date to show afterwards")

	cmd.AddCommand(list, add, update, del)
	return cmd
}
