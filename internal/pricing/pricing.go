// Package pricing joins daily report quantities against the material price
// catalog and derives per-row and summary costs.
package pricing

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"sitepanel.org/internal/panelapi"
)

// Placeholder is shown for any cost that is unknown or suppressed.
const Placeholder = "—"

// Price is a material's unit prices.
type Price struct {
	Material decimal.Decimal
	Labor    decimal.Decimal
}

// Catalog maps a normalised material name to its prices.
type Catalog map[string]Price

func key(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// NewCatalog indexes materials by name. Entries without a name are skipped and
// unparseable prices count as zero.
func NewCatalog(materials []panelapi.Material) Catalog {
	c := make(Catalog, len(materials))
	for _, m := range materials {
		k := key(m.MaterialName)
		if k == "" {
			continue
		}
		c[k] = Price{Material: m.MaterialPrice.OrZero(), Labor: m.LaborPrice.OrZero()}
	}
	return c
}

// Lookup finds the prices for name.
func (c Catalog) Lookup(name string) (Price, bool) {
	p, ok := c[key(name)]
	return p, ok
}

// Filter narrows the rows. Empty fields match everything.
type Filter struct {
	Location string
	Panel    string
}

// Match reports whether r passes the filter. Comparison is exact after
// trimming and lower-casing.
func (f Filter) Match(r panelapi.DailyReport) bool {
	if loc := key(f.Location); loc != "" && key(r.Location) != loc {
		return false
	}
	if panel := key(f.Panel); panel != "" && key(r.PanelName) != panel {
		return false
	}
	return true
}

// SuppressCosts reports whether cost columns are hidden. They are while a
// panel filter is active.
func (f Filter) SuppressCosts() bool { return key(f.Panel) != "" }

// Line is one priced row. Costs are invalid when the material has no catalog
// entry.
type Line struct {
	Record        panelapi.DailyReport
	MaterialPrice decimal.NullDecimal
	LaborPrice    decimal.NullDecimal
	MaterialCost  decimal.NullDecimal
	LaborCost     decimal.NullDecimal
	Total         decimal.NullDecimal
	Suppressed    bool
}

func (l Line) show(d decimal.NullDecimal) string {
	if l.Suppressed {
		return Placeholder
	}
	return Money(d)
}

// MaterialPriceText is the unit material price as displayed.
func (l Line) MaterialPriceText() string { return l.show(l.MaterialPrice) }

// LaborPriceText is the unit labor price as displayed.
func (l Line) LaborPriceText() string { return l.show(l.LaborPrice) }

// TotalText is the row total as displayed.
func (l Line) TotalText() string { return l.show(l.Total) }

// Summary sums the filtered rows. Unknown costs count as zero.
type Summary struct {
	Rows         int
	MaterialCost decimal.Decimal
	LaborCost    decimal.Decimal
	Total        decimal.Decimal
}

// Table is the aggregation result.
type Table struct {
	Lines   []Line
	Summary Summary
	Filter  Filter
}

// PriceLine computes the costs for one record.
func PriceLine(r panelapi.DailyReport, c Catalog) Line {
	line := Line{Record: r}
	p, ok := c.Lookup(r.MaterialName)
	if !ok {
		return line
	}
	q := r.Quantity.OrZero()
	materialCost := q.Mul(p.Material)
	laborCost := q.Mul(p.Labor)
	line.MaterialPrice = valid(p.Material)
	line.LaborPrice = valid(p.Labor)
	line.MaterialCost = valid(materialCost)
	line.LaborCost = valid(laborCost)
	line.Total = valid(materialCost.Add(laborCost))
	return line
}

// Aggregate prices the records that pass f. records is not modified.
func Aggregate(records []panelapi.DailyReport, c Catalog, f Filter) Table {
	t := Table{Lines: []Line{}, Filter: f}
	suppress := f.SuppressCosts()
	for _, r := range records {
		if !f.Match(r) {
			continue
		}
		line := PriceLine(r, c)
		line.Suppressed = suppress
		t.Lines = append(t.Lines, line)

		t.Summary.Rows++
		t.Summary.MaterialCost = t.Summary.MaterialCost.Add(orZero(line.MaterialCost))
		t.Summary.LaborCost = t.Summary.LaborCost.Add(orZero(line.LaborCost))
		t.Summary.Total = t.Summary.Total.Add(orZero(line.Total))
	}
	return t
}

// TotalPrices converts the table into rows for export. Unknown and suppressed
// costs stay invalid, the same cells the table shows as Placeholder.
func (t Table) TotalPrices() []panelapi.TotalPrice {
	out := make([]panelapi.TotalPrice, 0, len(t.Lines))
	for _, l := range t.Lines {
		row := panelapi.TotalPrice{
			ID:           l.Record.ID,
			Date:         l.Record.Date,
			MaterialName: l.Record.MaterialName,
			Quantity:     l.Record.Quantity,
			Unit:         l.Record.Unit,
		}
		if !l.Suppressed {
			row.MaterialCost = panelapi.Amount{NullDecimal: l.MaterialCost}
			row.LaborCost = panelapi.Amount{NullDecimal: l.LaborCost}
			row.TotalPrice = panelapi.Amount{NullDecimal: l.Total}
		}
		out = append(out, row)
	}
	return out
}

// LocationOptions lists the distinct non-empty locations, sorted.
func LocationOptions(records []panelapi.DailyReport) []string {
	return distinct(records, func(r panelapi.DailyReport) string { return r.Location })
}

// PanelOptions lists the distinct non-empty panel names, sorted.
func PanelOptions(records []panelapi.DailyReport) []string {
	return distinct(records, func(r panelapi.DailyReport) string { return r.PanelName })
}

func distinct(records []panelapi.DailyReport, field func(panelapi.DailyReport) string) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, r := range records {
		v := strings.TrimSpace(field(r))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Totals are the manager dashboard sums.
type Totals struct {
	MaterialCost decimal.Decimal
	LaborCost    decimal.Decimal
	Total        decimal.Decimal
}

// ManagerTotals sums backend priced rows, reading missing values as zero.
func ManagerTotals(rows []panelapi.TotalPrice) Totals {
	var t Totals
	for _, r := range rows {
		t.MaterialCost = t.MaterialCost.Add(r.MaterialCost.OrZero())
		t.LaborCost = t.LaborCost.Add(r.LaborCost.OrZero())
		t.Total = t.Total.Add(r.TotalPrice.OrZero())
	}
	return t
}

// Money renders d as $x.xx, or Placeholder when invalid.
func Money(d decimal.NullDecimal) string {
	if !d.Valid {
		return Placeholder
	}
	return "$" + d.Decimal.StringFixed(2)
}

func valid(d decimal.Decimal) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
