package views

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sitepanel.org/internal/catalog"
	"sitepanel.org/internal/panelapi"
)

// DailyReportPage is everything the daily report screen shows.
type DailyReportPage struct {
	Date      string
	Reports   []panelapi.DailyReport
	Materials []panelapi.Material
	Panels    []catalog.PanelGroup
}

// DailyReports drives the daily report page.
type DailyReports struct {
	api   Backend
	now   clock
	seq   Sequencer
	guard Guard

	mu   sync.RWMutex
	page DailyReportPage
}

func NewDailyReports(api Backend, now func() time.Time) *DailyReports {
	if now == nil {
		now = time.Now
	}
	return &DailyReports{api: api, now: now}
}

// Page returns the last applied page.
func (v *DailyReports) Page() DailyReportPage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

// Load fetches the reports for date (today when empty) together with the
// material and panel catalogs. Nothing changes unless all three succeed.
func (v *DailyReports) Load(ctx context.Context, date string) (DailyReportPage, error) {
	ticket := v.seq.Next()
	page := DailyReportPage{Date: dayOr(date, v.now)}

	var panels []panelapi.Panel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page.Reports, err = v.api.DailyReportsByDate(gctx, page.Date)
		return err
	})
	g.Go(func() error {
		var err error
		page.Materials, err = v.api.ListMaterials(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		panels, err = v.api.ListPanels(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return v.Page(), err
	}
	page.Panels = catalog.GroupPanels(panels)

	if err := v.seq.Apply(ticket, func() {
		v.mu.Lock()
		v.page = page
		v.mu.Unlock()
	}); err != nil {
		return v.Page(), err
	}
	return page, nil
}

// Save creates r, or updates the report id when id is set, then reloads the
// current date. The unit always comes from the catalog.
func (v *DailyReports) Save(ctx context.Context, id string, r panelapi.DailyReport) error {
	if err := checkQuantity(r.MaterialName, r.Quantity); err != nil {
		return err
	}
	release, err := v.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()

	current := v.Page()
	if r.PanelName != "" && len(current.Panels) > 0 && !catalog.ValidCircuit(current.Panels, r.PanelName, r.Circuit) {
		return ErrUnknownCircuit
	}
	r = catalog.ApplyUnit(r, current.Materials)
	r.Date = dayOr(r.Date, v.now)
	if id != "" {
		err = v.api.UpdateDailyReport(ctx, id, r)
	} else {
		err = v.api.CreateDailyReport(ctx, r)
	}
	if err != nil {
		return err
	}
	_, err = v.Load(ctx, current.Date)
	return err
}

// Delete removes a report and reloads.
func (v *DailyReports) Delete(ctx context.Context, id string) error {
	release, err := v.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := v.api.DeleteDailyReport(ctx, id); err != nil {
		return err
	}
	_, err = v.Load(ctx, v.Page().Date)
	return err
}
