package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"sitepanel.org/internal/backendtest"
)

func main() {
	cfg := smokeConfig{
		BaseURL:  os.Getenv("PANEL_SMOKE_BASE_URL"),
		Username: envOr("PANEL_SMOKE_USERNAME", "smoke"),
		Password: envOr("PANEL_SMOKE_PASSWORD", "smoke"),
		Site:     envOr("PANEL_SMOKE_SITE", "smoke-site"),
		Company:  envOr("PANEL_SMOKE_COMPANY", "smoke-co"),
	}
	if cfg.BaseURL == "" {
		srv := backendtest.New()
		defer srv.Close()
		srv.AddAccount(backendtest.Account{Username: cfg.Username, Password: cfg.Password, Role: "admin", Site: cfg.Site, Company: cfg.Company})
		cfg.BaseURL = srv.URL()
		log.Printf("PANEL_SMOKE_BASE_URL not set; using in-process backend at %s", cfg.BaseURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	res, err := run(ctx, cfg)
	if err != nil {
		log.Fatalf("smoke against %s: %v", cfg.BaseURL, err)
	}
	fmt.Printf("✅ panel smoke test passed: user=%s report=%s total=%s took=%s\n", res.User, res.ReportID, res.Total, res.Took.Round(time.Millisecond))
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
