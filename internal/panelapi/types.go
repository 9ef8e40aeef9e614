package panelapi

import (
	"bytes"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Role is trusted as delivered by the backend.
type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleManager:
		return true
	}
	return false
}

// User is the authenticated principal.
type User struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	Site     string `json:"site,omitempty"`
	Company  string `json:"company,omitempty"`
}

// ErrSiteCompanyRequired is returned for user/admin logins without a scope.
var ErrSiteCompanyRequired = errors.New("site and company are required for user/admin login")

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Site     string `json:"site"`
	Company  string `json:"company"`
}

// ForAccount prepares credentials for the chosen account type. Manager logins
// carry no site or company; user and admin logins must name both.
func (c Credentials) ForAccount(manager bool) (Credentials, error) {
	if manager {
		c.Site, c.Company = "", ""
		return c, nil
	}
	if strings.TrimSpace(c.Site) == "" || strings.TrimSpace(c.Company) == "" {
		return c, ErrSiteCompanyRequired
	}
	return c, nil
}

// Profile is the registration payload.
type Profile struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
	Site     string `json:"site,omitempty"`
	Company  string `json:"company,omitempty"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Amount is a tolerant JSON number. The backend sends numbers, numeric
// strings, empty strings or null; anything that does not parse is invalid
// rather than an error.
type Amount struct {
	decimal.NullDecimal
}

// NewAmount returns a valid Amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{decimal.NullDecimal{Decimal: d, Valid: true}}
}

// AmountFromString parses s, returning an invalid Amount on failure.
func AmountFromString(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}
	}
	return NewAmount(d)
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	*a = AmountFromString(strings.Trim(string(b), `"`))
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Decimal.String()), nil
}

// OrZero returns the value, or zero when invalid.
func (a Amount) OrZero() decimal.Decimal {
	if !a.Valid {
		return decimal.Zero
	}
	return a.Decimal
}

func (a Amount) String() string {
	if !a.Valid {
		return ""
	}
	return a.Decimal.String()
}

// Material is a catalog entry keyed by MaterialName.
type Material struct {
	ID            string `json:"_id,omitempty"`
	MaterialName  string `json:"materialName"`
	Unit          string `json:"unit"`
	MaterialPrice Amount `json:"materialPrice"`
	LaborPrice    Amount `json:"laborPrice"`
}

// MaterialUpdate renames or reprices the entry called OriginalMaterialName.
type MaterialUpdate struct {
	Material
	OriginalMaterialName string `json:"originalMaterialName"`
}

// Panel is one panel/circuit row. Several rows may share a PanelName.
type Panel struct {
	ID        string `json:"_id,omitempty"`
	PanelName string `json:"panelName"`
	Circuit   string `json:"circuit"`
}

// PanelUpdate edits the row called OriginalPanelName.
type PanelUpdate struct {
	Panel
	OriginalPanelName string `json:"originalPanelName"`
}

// DailyReport is one line of a site work log.
type DailyReport struct {
	ID           string `json:"_id,omitempty"`
	Date         string `json:"date"`
	MaterialName string `json:"materialName"`
	Quantity     Amount `json:"quantity"`
	Unit         string `json:"unit"`
	Location     string `json:"location,omitempty"`
	Notes        string `json:"notes,omitempty"`
	PanelName    string `json:"panelName,omitempty"`
	Circuit      string `json:"circuit,omitempty"`
}

// Received is one confirmed delivery.
type Received struct {
	ID           string `json:"_id,omitempty"`
	Date         string `json:"date"`
	MaterialName string `json:"materialName"`
	Quantity     Amount `json:"quantity"`
	Unit         string `json:"unit"`
	Supplier     string `json:"supplier,omitempty"`
	Location     string `json:"location,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// TotalPrice is a priced line as stored by the backend.
type TotalPrice struct {
	ID           string `json:"_id,omitempty"`
	Date         string `json:"date,omitempty"`
	MaterialName string `json:"materialName"`
	Quantity     Amount `json:"quantity"`
	Unit         string `json:"unit,omitempty"`
	MaterialCost Amount `json:"materialCost"`
	LaborCost    Amount `json:"laborCost"`
	TotalPrice   Amount `json:"totalPrice"`
}

// SiteDetails backs the settings page.
type SiteDetails struct {
	UserDetails    UserDetails    `json:"userDetails"`
	SiteStatistics SiteStatistics `json:"siteStatistics"`
}

type UserDetails struct {
	Username  string `json:"username"`
	Role      Role   `json:"role"`
	Site      string `json:"site"`
	Company   string `json:"company"`
	CreatedAt string `json:"createdAt,omitempty"`
}

type SiteStatistics struct {
	DailyReports   int `json:"dailyReports"`
	Materials      int `json:"materials"`
	ReceivedItems  int `json:"receivedItems"`
	TotalPrices    int `json:"totalPrices"`
	MonthlyReports int `json:"monthlyReports"`
}
