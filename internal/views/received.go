package views

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sitepanel.org/internal/catalog"
	"sitepanel.org/internal/panelapi"
)

// ReceivedPage is everything the deliveries screen shows.
type ReceivedPage struct {
	Date      string
	Items     []panelapi.Received
	Materials []panelapi.Material
}

// ReceivedItems drives the deliveries page.
type ReceivedItems struct {
	api   Backend
	now   clock
	seq   Sequencer
	guard Guard

	mu   sync.RWMutex
	page ReceivedPage
}

func NewReceivedItems(api Backend, now func() time.Time) *ReceivedItems {
	if now == nil {
		now = time.Now
	}
	return &ReceivedItems{api: api, now: now}
}

func (v *ReceivedItems) Page() ReceivedPage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.page
}

// Load fetches deliveries for date and the material catalog.
func (v *ReceivedItems) Load(ctx context.Context, date string) (ReceivedPage, error) {
	ticket := v.seq.Next()
	page := ReceivedPage{Date: dayOr(date, v.now)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		page.Items, err = v.api.ReceivedByDate(gctx, page.Date)
		return err
	})
	g.Go(func() error {
		var err error
		page.Materials, err = v.api.ListMaterials(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return v.Page(), err
	}
	if err := v.seq.Apply(ticket, func() {
		v.mu.Lock()
		v.page = page
		v.mu.Unlock()
	}); err != nil {
		return v.Page(), err
	}
	return page, nil
}

// Save creates r, or updates the item id when id is set, then reloads.
func (v *ReceivedItems) Save(ctx context.Context, id string, r panelapi.Received) error {
	if err := checkQuantity(r.MaterialName, r.Quantity); err != nil {
		return err
	}
	release, err := v.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()

	current := v.Page()
	r = catalog.ApplyReceivedUnit(r, current.Materials)
	r.Date = dayOr(r.Date, v.now)
	if id != "" {
		err = v.api.UpdateReceived(ctx, id, r)
	} else {
		err = v.api.CreateReceived(ctx, r)
	}
	if err != nil {
		return err
	}
	_, err = v.Load(ctx, current.Date)
	return err
}

func (v *ReceivedItems) Delete(ctx context.Context, id string) error {
	release, err := v.guard.Acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := v.api.DeleteReceived(ctx, id); err != nil {
		return err
	}
	_, err = v.Load(ctx, v.Page().Date)
	return err
}
