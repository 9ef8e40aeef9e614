package pricing

import (
	"errors"
	"strings"
	"time"

	"sitepanel.org/internal/panelapi"
)

// DateLayout is the backend's calendar day format.
const DateLayout = "2006-01-02"

// ErrIncompleteFilter is returned when a manager query lacks a field.
var ErrIncompleteFilter = errors.New("pricing: site, company, start and end are required")

// DateScope is either a single day or an inclusive range.
type DateScope struct {
	Day   string
	Start string
	End   string
}

// IsRange reports whether the scope spans Start..End.
func (d DateScope) IsRange() bool { return d.Start != "" && d.End != "" }

// ResolveDateScope uses the range when both ends are set, otherwise the local
// calendar day of now.
func ResolveDateScope(start, end string, now time.Time) DateScope {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start != "" && end != "" {
		return DateScope{Start: start, End: end}
	}
	return DateScope{Day: now.Format(DateLayout)}
}

// ManagerFilter is the manager dashboard's query form.
type ManagerFilter struct {
	Site    string
	Company string
	Start   string
	End     string
}

// CanQuery reports whether every field is set.
func (f ManagerFilter) CanQuery() bool {
	for _, v := range []string{f.Site, f.Company, f.Start, f.End} {
		if strings.TrimSpace(v) == "" {
			return false
		}
	}
	return true
}

// Validate returns ErrIncompleteFilter unless CanQuery.
func (f ManagerFilter) Validate() error {
	if !f.CanQuery() {
		return ErrIncompleteFilter
	}
	return nil
}

// Scope is the site/company part of the filter.
func (f ManagerFilter) Scope() panelapi.Scope {
	return panelapi.Scope{Site: strings.TrimSpace(f.Site), Company: strings.TrimSpace(f.Company)}
}
