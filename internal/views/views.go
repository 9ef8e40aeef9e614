// Package views loads and mutates the data behind each page: concurrent
// reads, stale response rejection and one-at-a-time mutations.
package views

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/pricing"
)

var (
	// ErrBusy is returned when a mutation is already in flight.
	ErrBusy = errors.New("views: another change is in progress")
	// ErrStale is returned when a newer load superseded this one.
	ErrStale = errors.New("views: response superseded by a newer request")

	ErrMaterialRequired = errors.New("views: material is required")
	ErrNegativeQuantity = errors.New("views: quantity must not be negative")
	ErrNegativePrice    = errors.New("views: prices must not be negative")
	ErrPanelRequired    = errors.New("views: panel name is required")
	ErrUnknownCircuit   = errors.New("views: circuit does not belong to the panel")
	ErrNothingToExport  = errors.New("views: no rows to export")
)

// Backend is the slice of the API client the views use.
type Backend interface {
	ListMaterials(ctx context.Context) ([]panelapi.Material, error)
	CreateMaterial(ctx context.Context, m panelapi.Material) error
	UpdateMaterial(ctx context.Context, u panelapi.MaterialUpdate) error
	DeleteMaterial(ctx context.Context, name string) error

	ListPanels(ctx context.Context) ([]panelapi.Panel, error)
	CreatePanel(ctx context.Context, p panelapi.Panel) error
	UpdatePanel(ctx context.Context, u panelapi.PanelUpdate) error
	DeletePanel(ctx context.Context, name string) error

	DailyReportsByDate(ctx context.Context, date string) ([]panelapi.DailyReport, error)
	DailyReportsByRange(ctx context.Context, start, end string) ([]panelapi.DailyReport, error)
	CreateDailyReport(ctx context.Context, r panelapi.DailyReport) error
	UpdateDailyReport(ctx context.Context, id string, r panelapi.DailyReport) error
	DeleteDailyReport(ctx context.Context, id string) error

	ReceivedByDate(ctx context.Context, date string) ([]panelapi.Received, error)
	CreateReceived(ctx context.Context, r panelapi.Received) error
	UpdateReceived(ctx context.Context, id string, r panelapi.Received) error
	DeleteReceived(ctx context.Context, id string) error

	ManagerTotalPrices(ctx context.Context, scope panelapi.Scope, start, end string) ([]panelapi.TotalPrice, error)
	EstablishScope(s panelapi.Scope)
	UserSiteDetails(ctx context.Context) (panelapi.SiteDetails, error)
}

// Ticket identifies one load.
type Ticket uint64

// Sequencer tags loads so that only the most recently issued one may apply
// its result.
type Sequencer struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Next issues a ticket, superseding every earlier one.
func (s *Sequencer) Next() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return Ticket(s.issued)
}

// Apply runs fn if t is still the newest ticket and has not been applied.
func (s *Sequencer) Apply(t Ticket, fn func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(t) != s.issued || uint64(t) <= s.applied {
		return ErrStale
	}
	s.applied = uint64(t)
	fn()
	return nil
}

// Guard admits one mutation at a time.
type Guard struct {
	busy atomic.Bool
}

// Acquire returns a release func, or ErrBusy.
func (g *Guard) Acquire() (func(), error) {
	if !g.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	return func() { g.busy.Store(false) }, nil
}

// Busy reports whether a mutation holds the guard.
func (g *Guard) Busy() bool { return g.busy.Load() }

type clock func() time.Time

func (c clock) today() string { return c().Format(pricing.DateLayout) }

func dayOr(date string, now clock) string {
	date = strings.TrimSpace(date)
	if len(date) > len(pricing.DateLayout) {
		date = date[:len(pricing.DateLayout)]
	}
	if date == "" {
		return now.today()
	}
	return date
}

func checkQuantity(material string, q panelapi.Amount) error {
	if strings.TrimSpace(material) == "" {
		return ErrMaterialRequired
	}
	if q.Valid && q.Decimal.IsNegative() {
		return ErrNegativeQuantity
	}
	return nil
}
