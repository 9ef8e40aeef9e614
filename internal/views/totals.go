package views

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/pricing"
)

// TotalPricePage is the priced view of daily reports for a date scope.
type TotalPricePage struct {
	Scope     pricing.DateScope
	Records   []panelapi.DailyReport
	Materials []panelapi.Material
	Table     pricing.Table
	Locations []string
	Panels    []string
}

// TotalPrices drives the total price page.
type TotalPrices struct {
	api Backend
	now clock
	seq Sequencer

	mu   sync.RWMutex
	page TotalPricePage
}

func NewTotalPrices(api Backend, now func() time.Time) *TotalPrices {
	if now == nil {
		now = time.Now
	}
	return &TotalPrices{api: api, now: now}
}

func (v *TotalPrices) Page() TotalPricePage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

// Load fetches the reports for start..end, or today when the range is
// incomplete, and prices them. A catalog failure leaves every row unpriced
// rather than failing the page.
func (v *TotalPrices) Load(ctx context.Context, start, end string, f pricing.Filter) (TotalPricePage, error) {
	ticket := v.seq.Next()
	page := TotalPricePage{Scope: pricing.ResolveDateScope(start, end, v.now())}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if page.Scope.IsRange() {
			page.Records, err = v.api.DailyReportsByRange(gctx, page.Scope.Start, page.Scope.End)
		} else {
			page.Records, err = v.api.DailyReportsByDate(gctx, page.Scope.Day)
		}
		return err
	})
	g.Go(func() error {
		materials, err := v.api.ListMaterials(gctx)
		if err != nil {
			obs.Logger().Warn().Err(err).Msg("material catalog unavailable; totals left unpriced")
			return nil
		}
		page.Materials = materials
		return nil
	})
	if err := g.Wait(); err != nil {
		return v.Page(), err
	}
	page = price(page, f)

	if err := v.seq.Apply(ticket, func() {
		v.mu.Lock()
		v.page = page
		v.mu.Unlock()
	}); err != nil {
		return v.Page(), err
	}
	return page, nil
}

// Refilter re-prices the loaded records under f without a network call.
func (v *TotalPrices) Refilter(f pricing.Filter) TotalPricePage {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.page = price(v.page, f)
	return v.page
}

func price(page TotalPricePage, f pricing.Filter) TotalPricePage {
	page.Table = pricing.Aggregate(page.Records, pricing.NewCatalog(page.Materials), f)
	page.Locations = pricing.LocationOptions(page.Records)
	page.Panels = pricing.PanelOptions(page.Records)
	return page
}
