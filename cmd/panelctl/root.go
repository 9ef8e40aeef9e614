package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"sitepanel.org/internal/config"
	"sitepanel.org/internal/gate"
	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/session"
	"sitepanel.org/internal/storage"
)

// rootDeps lets tests inject state that would otherwise come from config.
type rootDeps struct {
	store storage.Store
	now   func() time.Time
}

type app struct {
	deps    rootDeps
	cfg     config.Config
	store   storage.Store
	client  *panelapi.Client
	session *session.Store
	routes  *gate.Table
	now     func() time.Time
	out     io.Writer

	configFile  string
	envFile     string
	baseURL     string
	driver      string
	logLevel    string
	dumpMetrics bool
}

func newApp(deps rootDeps) *app {
	a := &app{deps: deps, routes: gate.DefaultTable(), now: deps.now}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// execute runs one command line and releases the store whatever the outcome.
func (a *app) execute(ctx context.Context, args []string, out io.Writer) error {
	cmd := a.command()
	cmd.SetArgs(args)
	if out != nil {
		cmd.SetOut(out)
		cmd.SetErr(out)
	}
	err := cmd.ExecuteContext(ctx)
	if serr := a.stop(); err == nil {
		err = serr
	}
	return err
}

func (a *app) command() *cobra.Command {
	root := &cobra.Command{
		Use:           "panelctl",
		Short:         "Construction site materials and reporting client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a.out = cmd.OutOrStdout()
			return a.start(cmd.Context())
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	flags.StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env)")
	flags.StringVar(&a.baseURL, "base-url", "", "backend base URL (overrides PANEL_API_BASE_URL)")
	flags.StringVar(&a.driver, "storage", "", "client storage driver: badger, postgres or memory")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (overrides PANEL_LOG_LEVEL)")
	flags.BoolVar(&a.dumpMetrics, "metrics", false, "print client request metrics on exit")

	root.AddCommand(
		a.loginCmd(),
		a.registerCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.dashboardCmd(),
		a.materialsCmd(),
		a.panelsCmd(),
		a.reportsCmd(),
		a.receivedCmd(),
		a.totalsCmd(),
		a.managerCmd(),
		a.settingsCmd(),
	)
	return root
}

func (a *app) start(ctx context.Context) error {
	cfg, err := config.Load(config.Options{EnvFile: a.envFile, ConfigFile: a.configFile})
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.API.BaseURL = a.baseURL
	}
	if a.driver != "" {
		cfg.Storage.Driver = a.driver
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	obs.Configure(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	obs.Init()
	obs.InitBuildInfo(version, commit)

	a.store = a.deps.store
	if a.store == nil {
		if a.store, err = config.OpenStore(ctx, cfg.Storage); err != nil {
			return err
		}
	}
	a.client, err = panelapi.New(cfg.API.BaseURL,
		panelapi.WithTimeout(cfg.API.Timeout),
		panelapi.WithRateLimit(cfg.API.RatePerSec, cfg.API.Burst),
	)
	if err != nil {
		return err
	}
	a.session = session.New(a.client, a.store)
	a.session.Hydrate(ctx)
	return nil
}

func (a *app) stop() error {
	if a.dumpMetrics && a.out != nil {
		if err := writeMetrics(a.out); err != nil {
			return err
		}
	}
	// injected stores belong to the caller
	if a.store != nil && a.deps.store == nil {
		err := a.store.Close()
		a.store = nil
		return err
	}
	return nil
}

func writeMetrics(w io.Writer) error {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "panel_client_") && mf.GetName() != "build_info" {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

// enter runs the route guard for a command. Only Render proceeds.
func (a *app) enter(path string) error {
	d := a.routes.Navigate(a.session.Snapshot(), path)
	switch d.Kind {
	case gate.Render:
		return nil
	case gate.RedirectLogin:
		return &exitError{code: exitSignedOut, msg: fmt.Sprintf("not signed in: run `panelctl login --from %s`", d.From)}
	case gate.RedirectHome:
		return &exitError{code: exitRedirected, msg: "redirected to " + d.To}
	case gate.NotFound:
		return &exitError{code: exitNotFound, msg: "no such page: " + d.To}
	}
	return &exitError{code: exitFailure, msg: "session is still loading"}
}

// guarded wraps a RunE with the route guard for path.
func (a *app) guarded(path string, run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.enter(path); err != nil {
			return err
		}
		return run(cmd, args)
	}
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func parseAmount(flag, value string) (panelapi.Amount, error) {
	amt := panelapi.AmountFromString(value)
	if strings.TrimSpace(value) != "" && !amt.Valid {
		return amt, fmt.Errorf("--%s: %q is not a number", flag, value)
	}
	return amt, nil
}
