// Package backendtest is an in-memory stand-in for the panel REST backend,
// used by package tests and the smoke command.
package backendtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer     = "sitepanel-backendtest"
	bearer     = "Bearer "
	defaultTTL = time.Hour
)

var errInvalidToken = errors.New("invalid token")

// Account is a registered user.
type Account struct {
	Username  string `json:"username"`
	Password  string `json:"-"`
	Role      string `json:"role"`
	Site      string `json:"site,omitempty"`
	Company   string `json:"company,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// Recorded is one request as seen by the server.
type Recorded struct {
	Method string
	Path   string
	Query  string
	Header http.Header
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Server fakes the backend. Zero configuration serves an empty backend; use
// AddAccount and the Seed helpers to populate it.
type Server struct {
	srv    *httptest.Server
	secret []byte

	mu          sync.Mutex
	ttl         time.Duration
	accounts    map[string]Account
	revoked     map[string]bool
	requests    []Recorded
	failLogout  bool
	wrapLists   bool
	materials   []doc
	panels      []doc
	reports     []doc
	received    []doc
	totalPrices []doc
}

// Option configures Server.
type Option func(*Server)

// WithTokenTTL sets the lifetime of issued tokens.
func WithTokenTTL(d time.Duration) Option {
	return func(s *Server) { s.ttl = d }
}

// WithWrappedLists makes list endpoints answer {key: [...]} instead of a bare
// array.
func WithWrappedLists() Option {
	return func(s *Server) { s.wrapLists = true }
}

// New starts a server. Callers must Close it.
func New(opts ...Option) *Server {
	s := &Server{
		secret:   []byte(uuid.NewString()),
		ttl:      defaultTTL,
		accounts: make(map[string]Account),
		revoked:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = httptest.NewServer(s.routes())
	return s
}

// URL is the base URL to hand to the client.
func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() { s.srv.Close() }

// AddAccount registers an account directly.
func (s *Server) AddAccount(a Account) {
	if a.CreatedAt == "" {
		a.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	s.mu.Lock()
	s.accounts[a.Username] = a
	s.mu.Unlock()
}

// FailLogout makes the logout endpoint answer 500.
func (s *Server) FailLogout(fail bool) {
	s.mu.Lock()
	s.failLogout = fail
	s.mu.Unlock()
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []Recorded {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Recorded, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request for method and path.
func (s *Server) LastRequest(method, path string) (Recorded, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if r := s.requests[i]; r.Method == method && r.Path == path {
			return r, true
		}
	}
	return Recorded{}, false
}

// Revoked reports whether token was invalidated by logout.
func (s *Server) Revoked(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked[token]
}

// IssueToken signs a token for username valid for ttl. A negative ttl yields
// an already expired token.
func (s *Server) IssueToken(username, role string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(username) == "" {
		return "", errors.New("username is required")
	}
	now := time.Now().UTC()
	c := claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *Server) parseToken(token string) (*claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errInvalidToken
		}
		return s.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, errInvalidToken
	}
	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, errInvalidToken
	}
	s.mu.Lock()
	revoked := s.revoked[token]
	s.mu.Unlock()
	if revoked {
		return nil, errInvalidToken
	}
	return c, nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, Recorded{
			Method: r.Method,
			Path:   r.URL.Path,
			Query:  r.URL.RawQuery,
			Header: r.Header.Clone(),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

type authedHandler func(w http.ResponseWriter, r *http.Request, acct Account)

// authed rejects requests without a valid bearer token or, when roles are
// given, whose account holds none of them.
func (s *Server) authed(h authedHandler, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		c, err := s.parseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		s.mu.Lock()
		acct, ok := s.accounts[c.Subject]
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unknown user")
			return
		}
		if len(roles) > 0 && !contains(roles, acct.Role) {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
		h(w, r, acct)
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("GET /api/auth/me", s.authed(func(w http.ResponseWriter, r *http.Request, acct Account) {
		writeJSON(w, http.StatusOK, map[string]any{"user": acct})
	}))
	s.catalogRoutes(mux)
	s.recordRoutes(mux)
	mux.HandleFunc("GET /api/manager/total-prices", s.authed(s.handleManagerTotals, "manager", "admin"))
	mux.HandleFunc("GET /api/settings/user-site-details", s.authed(s.handleSiteDetails))
	return s.record(mux)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Site     string `json:"site"`
		Company  string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	s.mu.Lock()
	acct, ok := s.accounts[req.Username]
	ttl := s.ttl
	s.mu.Unlock()
	if !ok || acct.Password != req.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if acct.Role != "manager" && (req.Site != acct.Site || req.Company != acct.Company) {
		writeError(w, http.StatusUnauthorized, "Site or company does not match")
		return
	}
	token, err := s.IssueToken(acct.Username, acct.Role, ttl)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": acct})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Role     string `json:"role"`
		Site     string `json:"site"`
		Company  string `json:"company"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if req.Role == "" {
		req.Role = "user"
	}
	s.mu.Lock()
	_, exists := s.accounts[req.Username]
	s.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, "Username already exists")
		return
	}
	acct := Account{Username: req.Username, Password: req.Password, Role: req.Role, Site: req.Site, Company: req.Company}
	s.AddAccount(acct)
	writeJSON(w, http.StatusCreated, map[string]any{"user": acct})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	fail := s.failLogout
	s.mu.Unlock()
	if fail {
		writeError(w, http.StatusInternalServerError, "logout unavailable")
		return
	}
	if token, err := extractBearerToken(r.Header.Get("Authorization")); err == nil {
		s.mu.Lock()
		s.revoked[token] = true
		s.mu.Unlock()
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out"})
}

func (s *Server) handleSiteDetails(w http.ResponseWriter, r *http.Request, acct Account) {
	s.mu.Lock()
	stats := map[string]int{
		"dailyReports":   len(s.reports),
		"materials":      len(s.materials),
		"receivedItems":  len(s.received),
		"totalPrices":    len(s.totalPrices),
		"monthlyReports": 0,
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"userDetails": acct, "siteStatistics": stats})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"message": msg})
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
