package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sitepanel.org/internal/ids"
	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/pricing"
	"sitepanel.org/internal/session"
	"sitepanel.org/internal/storage"
	"sitepanel.org/internal/views"
)

type smokeConfig struct {
	BaseURL  string
	Username string
	Password string
	Site     string
	Company  string
}

type smokeResult struct {
	User     string
	ReportID string
	Total    string
	Took     time.Duration
}

// run signs in, round-trips a material and a daily report, checks the
// priced total and cleans up after itself. The account must be an admin.
func run(ctx context.Context, cfg smokeConfig) (smokeResult, error) {
	client, err := panelapi.New(cfg.BaseURL, panelapi.WithTimeout(5*time.Second))
	if err != nil {
		return smokeResult{}, err
	}
	store := storage.NewMemory()
	defer store.Close()

	sess := session.New(client, store)
	sess.Hydrate(ctx)
	creds, err := panelapi.Credentials{Username: cfg.Username, Password: cfg.Password, Site: cfg.Site, Company: cfg.Company}.ForAccount(false)
	if err != nil {
		return smokeResult{}, err
	}
	if res := sess.Login(ctx, creds); !res.OK {
		return smokeResult{}, fmt.Errorf("login: %s", res.Message)
	}
	defer sess.Logout(ctx)

	runID := ids.New()
	started, err := ids.Time(runID)
	if err != nil {
		return smokeResult{}, err
	}
	ctx = obs.WithRequestID(ctx, runID)
	material := "smoke-" + runID

	catalogs := views.NewCatalogs(client)
	if err := catalogs.SaveMaterial(ctx, "", panelapi.Material{
		MaterialName:  material,
		Unit:          "m",
		MaterialPrice: panelapi.NewAmount(decimal.NewFromInt(2)),
		LaborPrice:    panelapi.NewAmount(decimal.NewFromInt(1)),
	}); err != nil {
		return smokeResult{}, fmt.Errorf("create material: %w", err)
	}
	defer func() {
		if err := catalogs.DeleteMaterial(context.WithoutCancel(ctx), material); err != nil {
			obs.Logger().Warn().Err(err).Str("material", material).Msg("smoke cleanup")
		}
	}()

	daily := views.NewDailyReports(client, nil)
	page, err := daily.Load(ctx, "")
	if err != nil {
		return smokeResult{}, fmt.Errorf("load daily reports: %w", err)
	}
	if err := daily.Save(ctx, "", panelapi.DailyReport{
		MaterialName: material,
		Quantity:     panelapi.NewAmount(decimal.NewFromInt(10)),
		Notes:        runID,
	}); err != nil {
		return smokeResult{}, fmt.Errorf("create report: %w", err)
	}

	var report *panelapi.DailyReport
	for _, r := range daily.Page().Reports {
		if r.Notes == runID {
			report = &r
			break
		}
	}
	if report == nil {
		return smokeResult{}, fmt.Errorf("report not listed for %s", page.Date)
	}
	defer func() {
		if err := daily.Delete(context.WithoutCancel(ctx), report.ID); err != nil {
			obs.Logger().Warn().Err(err).Str("id", report.ID).Msg("smoke cleanup")
		}
	}()
	if report.Unit != "m" {
		return smokeResult{}, fmt.Errorf("unit not taken from catalog: %q", report.Unit)
	}

	table := pricing.Aggregate([]panelapi.DailyReport{*report}, pricing.NewCatalog(daily.Page().Materials), pricing.Filter{})
	if want := decimal.NewFromInt(30); !table.Summary.Total.Equal(want) {
		return smokeResult{}, errors.New("priced total " + table.Summary.Total.String() + " != 30")
	}

	return smokeResult{
		User:     cfg.Username,
		ReportID: report.ID,
		Total:    pricing.Money(decimal.NullDecimal{Decimal: table.Summary.Total, Valid: true}),
		Took:     time.Since(started),
	}, nil
}
