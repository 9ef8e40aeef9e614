package panelapi

import (
	"context"
	"net/http"
	"net/url"
)

const (
	dailyReportsPath = "/api/user/daily-reports"
	receivedPath     = "/api/user/received"
	totalPricesPath  = "/api/user/total-prices"
	managerTotalPath = "/api/manager/total-prices"
	siteDetailsPath  = "/api/settings/user-site-details"
)

// creates are sent as a one-element batch
type batch[T any] struct {
	Materials []T `json:"materials"`
}

func rangeQuery(start, end string) url.Values {
	return url.Values{"start": {start}, "end": {end}}
}

func (c *Client) ListDailyReports(ctx context.Context) ([]DailyReport, error) {
	return getList[DailyReport](ctx, c, dailyReportsPath, nil, "reports")
}

func (c *Client) DailyReportsByDate(ctx context.Context, date string) ([]DailyReport, error) {
	return getList[DailyReport](ctx, c, dailyReportsPath+"/date/"+escape(date), nil, "reports")
}

// DailyReportsByRange lists reports dated start..end inclusive.
func (c *Client) DailyReportsByRange(ctx context.Context, start, end string) ([]DailyReport, error) {
	return getList[DailyReport](ctx, c, dailyReportsPath+"/range", rangeQuery(start, end), "reports")
}

func (c *Client) CreateDailyReport(ctx context.Context, r DailyReport) error {
	return c.do(ctx, call{method: http.MethodPost, path: dailyReportsPath, body: batch[DailyReport]{Materials: []DailyReport{r}}})
}

func (c *Client) UpdateDailyReport(ctx context.Context, id string, r DailyReport) error {
	if err := requireID("daily report", id); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodPut, path: dailyReportsPath + "/" + escape(id), body: r})
}

func (c *Client) DeleteDailyReport(ctx context.Context, id string) error {
	if err := requireID("daily report", id); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodDelete, path: dailyReportsPath + "/" + escape(id)})
}

func (c *Client) ListReceived(ctx context.Context) ([]Received, error) {
	return getList[Received](ctx, c, receivedPath, nil, "received")
}

func (c *Client) ReceivedByDate(ctx context.Context, date string) ([]Received, error) {
	return getList[Received](ctx, c, receivedPath+"/date/"+escape(date), nil, "received")
}

func (c *Client) CreateReceived(ctx context.Context, r Received) error {
	return c.do(ctx, call{method: http.MethodPost, path: receivedPath, body: batch[Received]{Materials: []Received{r}}})
}

func (c *Client) UpdateReceived(ctx context.Context, id string, r Received) error {
	if err := requireID("received", id); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodPut, path: receivedPath + "/" + escape(id), body: r})
}

func (c *Client) DeleteReceived(ctx context.Context, id string) error {
	if err := requireID("received", id); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodDelete, path: receivedPath + "/" + escape(id)})
}

func (c *Client) ListTotalPrices(ctx context.Context) ([]TotalPrice, error) {
	return getList[TotalPrice](ctx, c, totalPricesPath, nil, "prices")
}

func (c *Client) TotalPricesByDate(ctx context.Context, date string) ([]TotalPrice, error) {
	return getList[TotalPrice](ctx, c, totalPricesPath+"/date/"+escape(date), nil, "prices")
}

func (c *Client) TotalPricesByRange(ctx context.Context, start, end string) ([]TotalPrice, error) {
	return getList[TotalPrice](ctx, c, totalPricesPath+"/range", rangeQuery(start, end), "prices")
}

func (c *Client) CreateTotalPrice(ctx context.Context, p TotalPrice) error {
	return c.do(ctx, call{method: http.MethodPost, path: totalPricesPath, body: batch[TotalPrice]{Materials: []TotalPrice{p}}})
}

func (c *Client) UpdateTotalPrice(ctx context.Context, id string, p TotalPrice) error {
	if err := requireID("total price", id); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodPut, path: totalPricesPath + "/" + escape(id), body: p})
}

func (c *Client) DeleteTotalPrice(ctx context.Context, id string) error {
	if err := requireID("total price", id); err != nil {
		return err
	}
	return c.do(ctx, call{method: http.MethodDelete, path: totalPricesPath + "/" + escape(id)})
}

// ManagerTotalPrices runs the manager aggregate query for scope over
// start..end. scope is sent with this call regardless of the established one.
func (c *Client) ManagerTotalPrices(ctx context.Context, scope Scope, start, end string) ([]TotalPrice, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return getList[TotalPrice](WithScope(ctx, scope), c, managerTotalPath, rangeQuery(start, end), "prices")
}

// UserSiteDetails returns the profile and usage statistics for settings.
func (c *Client) UserSiteDetails(ctx context.Context) (SiteDetails, error) {
	var out SiteDetails
	if err := c.do(ctx, call{method: http.MethodGet, path: siteDetailsPath, out: &out}); err != nil {
		return SiteDetails{}, err
	}
	return out, nil
}
