// Package gate decides, from a session snapshot, whether a route renders,
// waits for hydration or redirects.
package gate

import (
	"context"
	"strings"

	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/session"
)

// Route paths.
const (
	PathHome        = "/"
	PathHomeAlias   = "/home"
	PathLogin       = "/login"
	PathRegister    = "/register"
	PathDailyReport = "/daily-report"
	PathMaterials   = "/materials"
	PathPanels      = "/panel"
	PathReceived    = "/received"
	PathTotalPrice  = "/totalprice"
	PathManager     = "/manager"
	PathSettings    = "/settings"
)

// Kind is the outcome of a gate decision.
type Kind int

const (
	Loading Kind = iota
	RedirectLogin
	RedirectHome
	Render
	NotFound
)

func (k Kind) String() string {
	switch k {
	case Loading:
		return "loading"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case Render:
		return "render"
	case NotFound:
		return "not-found"
	}
	return "unknown"
}

// Route is a guarded destination. An empty AllowRoles admits any
// authenticated user.
type Route struct {
	Path        string
	Title       string
	Description string
	AllowRoles  []panelapi.Role
	Public      bool
}

// Allows reports whether role may render r.
func (r Route) Allows(role panelapi.Role) bool {
	if len(r.AllowRoles) == 0 {
		return true
	}
	for _, allowed := range r.AllowRoles {
		if allowed == role {
			return true
		}
	}
	return false
}

// Decision is where navigation ends up. From carries the originally requested
// path on RedirectLogin.
type Decision struct {
	Kind  Kind
	To    string
	From  string
	Route Route
}

// Decide applies the guard rules in order: wait for hydration, require a
// session, check the role, render. Denial by role is silent.
func Decide(snap session.Snapshot, r Route, target string) Decision {
	if r.Public {
		return Decision{Kind: Render, To: r.Path, Route: r}
	}
	if !snap.Initialized() {
		return Decision{Kind: Loading, Route: r}
	}
	if !snap.IsAuthenticated() {
		return Decision{Kind: RedirectLogin, To: PathLogin, From: target, Route: r}
	}
	if !r.Allows(snap.Role()) {
		return Decision{Kind: RedirectHome, To: PathHome, Route: r}
	}
	return Decision{Kind: Render, To: r.Path, Route: r}
}

// PostLoginTarget is where to go after a successful login: the path that
// triggered the redirect, or home.
func PostLoginTarget(d Decision) string {
	if d.Kind == RedirectLogin && strings.TrimSpace(d.From) != "" {
		return d.From
	}
	return PathHome
}

// Table resolves paths to routes.
type Table struct {
	routes  map[string]Route
	order   []string
	aliases map[string]string
}

// NewTable builds a table. Later routes replace earlier ones with the same
// path.
func NewTable(routes ...Route) *Table {
	t := &Table{routes: make(map[string]Route), aliases: make(map[string]string)}
	for _, r := range routes {
		if _, seen := t.routes[r.Path]; !seen {
			t.order = append(t.order, r.Path)
		}
		t.routes[r.Path] = r
	}
	return t
}

// Alias makes from resolve to the route at to.
func (t *Table) Alias(from, to string) *Table {
	t.aliases[from] = to
	return t
}

// DefaultTable is the application's route table.
func DefaultTable() *Table {
	anyone := []panelapi.Role(nil)
	return NewTable(
		Route{Path: PathLogin, Title: "Sign in", Public: true},
		Route{Path: PathRegister, Title: "Register", Public: true},
		Route{Path: PathHome, Title: "Dashboard", AllowRoles: anyone},
		Route{Path: PathDailyReport, Title: "Daily Report", Description: "Submit site work logs and progress", AllowRoles: anyone},
		Route{Path: PathMaterials, Title: "Materials", Description: "Track materials requested and received", AllowRoles: []panelapi.Role{panelapi.RoleAdmin}},
		Route{Path: PathPanels, Title: "Panels", Description: "Maintain panels and their circuits", AllowRoles: []panelapi.Role{panelapi.RoleAdmin}},
		Route{Path: PathReceived, Title: "Received", Description: "Confirm deliveries and quantities", AllowRoles: anyone},
		Route{Path: PathTotalPrice, Title: "Total Price", Description: "Review site totals and approvals", AllowRoles: anyone},
		Route{Path: PathManager, Title: "Manager Dashboard", Description: "Site/company totals, exports", AllowRoles: []panelapi.Role{panelapi.RoleManager, panelapi.RoleAdmin}},
		Route{Path: PathSettings, Title: "Settings", Description: "Manage profile, company, and site", AllowRoles: anyone},
	).Alias(PathHomeAlias, PathHome)
}

// Lookup resolves path, following aliases.
func (t *Table) Lookup(path string) (Route, bool) {
	path = normalize(path)
	if to, ok := t.aliases[path]; ok {
		path = to
	}
	r, ok := t.routes[path]
	return r, ok
}

// Navigate decides what happens when target is requested.
func (t *Table) Navigate(snap session.Snapshot, target string) Decision {
	r, ok := t.Lookup(target)
	if !ok {
		return Decision{Kind: NotFound, To: normalize(target)}
	}
	return Decide(snap, r, normalize(target))
}

// Visible lists the dashboard feature routes role may open, in table order.
func (t *Table) Visible(role panelapi.Role) []Route {
	var out []Route
	for _, path := range t.order {
		r := t.routes[path]
		if r.Public || r.Path == PathHome {
			continue
		}
		if r.Allows(role) {
			out = append(out, r)
		}
	}
	return out
}

// Visible lists the default table's feature routes for role.
func Visible(role panelapi.Role) []Route {
	return DefaultTable().Visible(role)
}

func normalize(path string) string {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return PathHome
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

// Source is what Watch observes; *session.Store satisfies it.
type Source interface {
	Subscribe(ctx context.Context) <-chan session.Snapshot
}

// Watch re-decides target on every session change and emits each decision
// that differs from the previous one. The channel closes when ctx ends.
func Watch(ctx context.Context, src Source, t *Table, target string) <-chan Decision {
	out := make(chan Decision, 1)
	snaps := src.Subscribe(ctx)
	go func() {
		defer close(out)
		var last *Decision
		for snap := range snaps {
			d := t.Navigate(snap, target)
			if last != nil && sameOutcome(*last, d) {
				continue
			}
			last = &d
			select {
			case out <- d:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func sameOutcome(a, b Decision) bool {
	return a.Kind == b.Kind && a.To == b.To && a.From == b.From
}
