package views

import (
	"context"
	"io"
	"strings"
	"sync"

	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/pricing"
	"sitepanel.org/internal/storage"
)

// ManagerResult is one manager query's outcome.
type ManagerResult struct {
	Filter pricing.ManagerFilter
	Rows   []panelapi.TotalPrice
	Totals pricing.Totals
}

// ManagerDashboard drives the manager totals page. Site and company persist
// between runs.
type ManagerDashboard struct {
	api   Backend
	store storage.Store
	guard Guard

	mu     sync.RWMutex
	filter pricing.ManagerFilter
	result ManagerResult
}

// NewManagerDashboard prefills site and company from storage.
func NewManagerDashboard(ctx context.Context, api Backend, store storage.Store) (*ManagerDashboard, error) {
	site, err := storage.GetOr(ctx, store, storage.KeyManagerSite, "")
	if err != nil {
		return nil, err
	}
	company, err := storage.GetOr(ctx, store, storage.KeyManagerCompany, "")
	if err != nil {
		return nil, err
	}
	return &ManagerDashboard{
		api:    api,
		store:  store,
		filter: pricing.ManagerFilter{Site: site, Company: company},
	}, nil
}

// Filter returns the current form state.
func (d *ManagerDashboard) Filter() pricing.ManagerFilter {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.filter
}

// Merge overlays the non-empty fields of f onto the current filter.
func (d *ManagerDashboard) Merge(f pricing.ManagerFilter) pricing.ManagerFilter {
	d.mu.Lock()
	defer d.mu.Unlock()
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&d.filter.Site, f.Site)
	set(&d.filter.Company, f.Company)
	set(&d.filter.Start, f.Start)
	set(&d.filter.End, f.End)
	return d.filter
}

// Result returns the last successful query.
func (d *ManagerDashboard) Result() ManagerResult {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.result
}

// Fetch runs the totals query for the current filter. It persists site and
// company, establishes them as the client's scope and sums the rows.
func (d *ManagerDashboard) Fetch(ctx context.Context) (ManagerResult, error) {
	f := d.Filter()
	if err := f.Validate(); err != nil {
		return ManagerResult{}, err
	}
	release, err := d.guard.Acquire()
	if err != nil {
		return ManagerResult{}, err
	}
	defer release()

	scope := f.Scope()
	if err := d.store.Set(ctx, storage.KeyManagerSite, scope.Site); err != nil {
		obs.Logger().Warn().Err(err).Msg("persist manager site")
	}
	if err := d.store.Set(ctx, storage.KeyManagerCompany, scope.Company); err != nil {
		obs.Logger().Warn().Err(err).Msg("persist manager company")
	}
	d.api.EstablishScope(scope)

	rows, err := d.api.ManagerTotalPrices(ctx, scope, strings.TrimSpace(f.Start), strings.TrimSpace(f.End))
	if err != nil {
		return ManagerResult{}, err
	}
	res := ManagerResult{Filter: f, Rows: rows, Totals: pricing.ManagerTotals(rows)}
	d.mu.Lock()
	d.result = res
	d.mu.Unlock()
	return res, nil
}

// ExportCSV writes the last result in the export format.
func (d *ManagerDashboard) ExportCSV(w io.Writer) error {
	res := d.Result()
	if len(res.Rows) == 0 {
		return ErrNothingToExport
	}
	return pricing.WriteCSV(w, res.Rows)
}
