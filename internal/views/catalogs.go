package views

import (
	"context"
	"strings"

	"sitepanel.org/internal/catalog"
	"sitepanel.org/internal/panelapi"
)

// Catalogs drives the admin material and panel pages.
type Catalogs struct {
	api   Backend
	guard Guard
}

func NewCatalogs(api Backend) *Catalogs { return &Catalogs{api: api} }

func (c *Catalogs) Materials(ctx context.Context) ([]panelapi.Material, error) {
	return c.api.ListMaterials(ctx)
}

// Panels returns the panel rows grouped by name.
func (c *Catalogs) Panels(ctx context.Context) ([]catalog.PanelGroup, error) {
	rows, err := c.api.ListPanels(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.GroupPanels(rows), nil
}

func validateMaterial(m panelapi.Material) error {
	if strings.TrimSpace(m.MaterialName) == "" {
		return ErrMaterialRequired
	}
	for _, p := range []panelapi.Amount{m.MaterialPrice, m.LaborPrice} {
		if p.Valid && p.Decimal.IsNegative() {
			return ErrNegativePrice
		}
	}
	return nil
}

// SaveMaterial creates m, or replaces the entry named original when set.
func (c *Catalogs) SaveMaterial(ctx context.Context, original string, m panelapi.Material) error {
	if err := validateMaterial(m); err != nil {
		return err
	}
	release, err := c.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()
	if strings.TrimSpace(original) == "" {
		return c.api.CreateMaterial(ctx, m)
	}
	return c.api.UpdateMaterial(ctx, panelapi.MaterialUpdate{Material: m, OriginalMaterialName: original})
}

func (c *Catalogs) DeleteMaterial(ctx context.Context, name string) error {
	release, err := c.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return c.api.DeleteMaterial(ctx, name)
}

// SavePanel creates p, or edits the row named original when set.
func (c *Catalogs) SavePanel(ctx context.Context, original string, p panelapi.Panel) error {
	if strings.TrimSpace(p.PanelName) == "" {
		return ErrPanelRequired
	}
	release, err := c.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()
	if strings.TrimSpace(original) == "" {
		return c.api.CreatePanel(ctx, p)
	}
	return c.api.UpdatePanel(ctx, panelapi.PanelUpdate{Panel: p, OriginalPanelName: original})
}

func (c *Catalogs) DeletePanel(ctx context.Context, name string) error {
	release, err := c.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()
	return c.api.DeletePanel(ctx, name)
}

// Settings loads the profile and usage statistics.
func Settings(ctx context.Context, api Backend) (panelapi.SiteDetails, error) {
	return api.UserSiteDetails(ctx)
}
