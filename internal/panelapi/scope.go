package panelapi

import (
	"context"
	"strings"
)

// Scope selects the site and company a manager is working on. It is sent as
// X-Site and X-Company on every non-auth request once complete.
type Scope struct {
	Site    string
	Company string
}

// Complete reports whether both parts are set.
func (s Scope) Complete() bool {
	return strings.TrimSpace(s.Site) != "" && strings.TrimSpace(s.Company) != ""
}

type scopeKey struct{}

// WithScope scopes the requests made with ctx, taking precedence over the
// client's established scope.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// ScopeFromContext returns the scope attached by WithScope.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	if ctx == nil {
		return Scope{}, false
	}
	s, ok := ctx.Value(scopeKey{}).(Scope)
	return s, ok
}

// EstablishScope makes s the default scope for later non-auth requests.
func (c *Client) EstablishScope(s Scope) {
	c.mu.Lock()
	c.scope = s
	c.mu.Unlock()
}

// ClearScope drops the established scope.
func (c *Client) ClearScope() {
	c.mu.Lock()
	c.scope = Scope{}
	c.mu.Unlock()
}

// EstablishedScope returns the scope set by EstablishScope.
func (c *Client) EstablishedScope() Scope {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.scope
}

func (c *Client) scopeFor(ctx context.Context) Scope {
	if s, ok := ScopeFromContext(ctx); ok && s.Complete() {
		return s
	}
	return c.EstablishedScope()
}
