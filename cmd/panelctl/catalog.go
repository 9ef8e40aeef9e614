package main

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"sitepanel.org/internal/gate"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/views"
)

func (a *app) materialsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "materials", Short: "Manage the material catalog (admin)"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List materials",
		RunE: a.guarded(gate.PathMaterials, func(cmd *cobra.Command, _ []string) error {
			rows, err := views.NewCatalogs(a.client).Materials(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(a.out, "NAME", "UNIT", "MATERIAL", "LABOR")
			for _, m := range rows {
				tw.row(m.MaterialName, m.Unit, m.MaterialPrice.String(), m.LaborPrice.String())
			}
			return tw.flush()
		}),
	}

	var (
		m            panelapi.Material
		matPrice     string
		laborPrice   string
		originalName string
	)
	save := func(update bool) func(*cobra.Command, []string) error {
		return a.guarded(gate.PathMaterials, func(cmd *cobra.Command, _ []string) error {
			var err error
			if m.MaterialPrice, err = parseAmount("material-price", matPrice); err != nil {
				return err
			}
			if m.LaborPrice, err = parseAmount("labor-price", laborPrice); err != nil {
				return err
			}
			original := ""
			if update {
				original = originalName
				if strings.TrimSpace(original) == "" {
					original = m.MaterialName
				}
			}
			if err := views.NewCatalogs(a.client).SaveMaterial(cmd.Context(), original, m); err != nil {
				return err
			}
			a.printf("saved material %s\n", m.MaterialName)
			return nil
		})
	}
	materialFlags := func(c *cobra.Command) *cobra.Command {
		f := c.Flags()
		f.StringVar(&m.MaterialName, "name", "", "material name")
		f.StringVar(&m.Unit, "unit", "", "unit of measure")
		f.StringVar(&matPrice, "material-price", "", "material price per unit")
		f.StringVar(&laborPrice, "labor-price", "", "labor price per unit")
		return c
	}
	add := materialFlags(&cobra.Command{Use: "add", Short: "Add a material", RunE: save(false)})
	update := materialFlags(&cobra.Command{Use: "update", Short: "Edit a material", RunE: save(true)})
	update.Flags().StringVar(&originalName, "original", "", "current name when renaming")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a material",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(gate.PathMaterials, func(cmd *cobra.Command, args []string) error {
			if err := views.NewCatalogs(a.client).DeleteMaterial(cmd.Context(), args[0]); err != nil {
				return notFound(err, "material", args[0])
			}
			a.printf("deleted material %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}

func (a *app) panelsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "panels", Short: "Manage panels and circuits (admin)"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List panels with their circuits",
		RunE: a.guarded(gate.PathPanels, func(cmd *cobra.Command, _ []string) error {
			groups, err := views.NewCatalogs(a.client).Panels(cmd.Context())
			if err != nil {
				return err
			}
			tw := newTable(a.out, "PANEL", "CIRCUITS")
			for _, g := range groups {
				tw.row(g.PanelName, strings.Join(g.Circuits, ", "))
			}
			return tw.flush()
		}),
	}

	var (
		p            panelapi.Panel
		originalName string
	)
	save := func(update bool) func(*cobra.Command, []string) error {
		return a.guarded(gate.PathPanels, func(cmd *cobra.Command, _ []string) error {
			original := ""
			if update {
				original = originalName
				if strings.TrimSpace(original) == "" {
					original = p.PanelName
				}
			}
			if err := views.NewCatalogs(a.client).SavePanel(cmd.Context(), original, p); err != nil {
				return err
			}
			a.printf("saved panel %s\n", p.PanelName)
			return nil
		})
	}
	panelFlags := func(c *cobra.Command) *cobra.Command {
		f := c.Flags()
		f.StringVar(&p.PanelName, "name", "", "panel name")
		f.StringVar(&p.Circuit, "circuit", "", "circuit")
		return c
	}
	add := panelFlags(&cobra.Command{Use: "add", Short: "Add a panel circuit", RunE: save(false)})
	update := panelFlags(&cobra.Command{Use: "update", Short: "Edit a panel", RunE: save(true)})
	update.Flags().StringVar(&originalName, "original", "", "current name when renaming")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete every row of a panel",
		Args:  cobra.ExactArgs(1),
		RunE: a.guarded(gate.PathPanels, func(cmd *cobra.Command, args []string) error {
			if err := views.NewCatalogs(a.client).DeletePanel(cmd.Context(), args[0]); err != nil {
				return notFound(err, "panel", args[0])
			}
			a.printf("deleted panel %s\n", args[0])
			return nil
		}),
	}

	cmd.AddCommand(list, add, update, del)
	return cmd
}

func (a *app) settingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show profile and site statistics",
		RunE: a.guarded(gate.PathSettings, func(cmd *cobra.Command, _ []string) error {
			d, err := views.Settings(cmd.Context(), a.client)
			if err != nil {
				return err
			}
			u, s := d.UserDetails, d.SiteStatistics
			tw := newTable(a.out)
			tw.row("username", u.Username)
			tw.row("role", string(u.Role))
			tw.row("site", u.Site)
			tw.row("company", u.Company)
			if u.CreatedAt != "" {
				tw.row("created", u.CreatedAt)
			}
			tw.row("daily reports", strconv.Itoa(s.DailyReports))
			tw.row("materials", strconv.Itoa(s.Materials))
			tw.row("received items", strconv.Itoa(s.ReceivedItems))
			tw.row("total prices", strconv.Itoa(s.TotalPrices))
			tw.row("monthly reports", strconv.Itoa(s.MonthlyReports))
			return tw.flush()
		}),
	}
}
