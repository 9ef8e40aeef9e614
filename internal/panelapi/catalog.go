package panelapi

import (
	"context"
	"net/http"
	"strings"
)

const (
	materialsPath = "/api/user/materials"
	panelsPath    = "/api/user/panels"
)

func (c *Client) ListMaterials(ctx context.Context) ([]Material, error) {
	return getList[Material](ctx, c, materialsPath, nil, "materials")
}

func (c *Client) CreateMaterial(ctx context.Context, m Material) error {
	return c.do(ctx, call{method: http.MethodPost, path: materialsPath, body: m})
}

// UpdateMaterial replaces the entry named u.OriginalMaterialName.
func (c *Client) UpdateMaterial(ctx context.Context, u MaterialUpdate) error {
	if strings.TrimSpace(u.OriginalMaterialName) == "" {
		u.OriginalMaterialName = u.MaterialName
	}
	return c.do(ctx, call{method: http.MethodPut, path: materialsPath, body: u})
}

func (c *Client) DeleteMaterial(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return errNameRequired
	}
	return c.do(ctx, call{method: http.MethodDelete, path: materialsPath + "/" + escape(name)})
}

func (c *Client) ListPanels(ctx context.Context) ([]Panel, error) {
	return getList[Panel](ctx, c, panelsPath, nil, "panels")
}

func (c *Client) CreatePanel(ctx context.Context, p Panel) error {
	return c.do(ctx, call{method: http.MethodPost, path: panelsPath, body: p})
}

// UpdatePanel edits the row named u.OriginalPanelName.
func (c *Client) UpdatePanel(ctx context.Context, u PanelUpdate) error {
	if strings.TrimSpace(u.OriginalPanelName) == "" {
		u.OriginalPanelName = u.PanelName
	}
	return c.do(ctx, call{method: http.MethodPut, path: panelsPath, body: u})
}

func (c *Client) DeletePanel(ctx context.Context, name string) error {
	if strings.TrimSpace(name) == "" {
		return errNameRequired
	}
	return c.do(ctx, call{method: http.MethodDelete, path: panelsPath + "/" + escape(name)})
}
