package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sitepanel.org/internal/backendtest"
	"sitepanel.org/internal/panelapi"
	"sitepanel.org/internal/pricing"
	"sitepanel.org/internal/storage"
)

type harness struct {
	t     *testing.T
	srv   *backendtest.Server
	store storage.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("PANEL_STORAGE_DRIVER", "memory")
	srv := backendtest.New()
	t.Cleanup(srv.Close)
	srv.AddAccount(backendtest.Account{Username: "admin", Password: "pw", Role: "admin", Site: "S1", Company: "C1"})
	srv.AddAccount(backendtest.Account{Username: "worker", Password: "pw", Role: "user", Site: "S1", Company: "C1"})
	srv.AddAccount(backendtest.Account{Username: "boss", Password: "pw", Role: "manager"})
	return &harness{t: t, srv: srv, store: storage.NewMemory()}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	now := func() time.Time { return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC) }
	var out bytes.Buffer
	err := newApp(rootDeps{store: h.store, now: now}).execute(context.Background(), append([]string{"--base-url", h.srv.URL()}, args...), &out)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("panelctl %s: %v (output %q)", strings.Join(args, " "), errorText(err), out)
	}
	return out
}

func (h *harness) login(user string) {
	h.t.Helper()
	args := []string{"login", "-u", user, "-p", "pw"}
	if user == "boss" {
		args = append(args, "--manager")
	} else {
		args = append(args, "--site", "S1", "--company", "C1")
	}
	h.mustRun(args...)
}

func TestGuardedCommandRequiresLogin(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("reports", "list")
	if exitCode(err) != exitSignedOut {
		t.Fatalf("expected signed-out exit, got %v", err)
	}
	if !strings.Contains(errorText(err), "--from /daily-report") {
		t.Fatalf("login hint should carry the origin: %q", errorText(err))
	}
}

func TestLoginPersistsTokenAcrossRuns(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("login", "-u", "worker", "-p", "pw", "--site", "S1", "--company", "C1", "--from", "/received")
	if !strings.Contains(out, "signed in as worker (user)") || !strings.Contains(out, "continue at /received") {
		t.Fatalf("unexpected login output: %q", out)
	}
	token, err := h.store.Get(context.Background(), storage.KeyAuthToken)
	if err != nil || token == "" {
		t.Fatalf("token not persisted: %q %v", token, err)
	}

	out = h.mustRun("whoami")
	if !strings.HasPrefix(out, "worker\tuser\tS1\tC1") {
		t.Fatalf("unexpected whoami: %q", out)
	}
}

func TestLoginRequiresSiteForUsers(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("login", "-u", "worker", "-p", "pw")
	if err == nil || !strings.Contains(errorText(err), "site and company are required") {
		t.Fatalf("expected site/company error, got %v", err)
	}
}

func TestLoginFailureShowsBackendMessage(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("login", "-u", "worker", "-p", "wrong", "--site", "S1", "--company", "C1")
	if err == nil || errorText(err) != "Invalid credentials" {
		t.Fatalf("expected backend message, got %v", err)
	}
}

func TestUserIsRedirectedFromAdminPages(t *testing.T) {
	h := newHarness(t)
	h.login("worker")
	_, err := h.run("materials", "list")
	if exitCode(err) != exitRedirected || errorText(err) != "redirected to /" {
		t.Fatalf("expected redirect home, got %v", err)
	}
}

func TestDashboardListsRoleRoutes(t *testing.T) {
	h := newHarness(t)
	h.login("boss")
	out := h.mustRun("dashboard")
	if !strings.Contains(out, "/manager") || strings.Contains(out, "/materials") {
		t.Fatalf("manager dashboard wrong: %q", out)
	}
}

func TestLogoutRevokesAndForgets(t *testing.T) {
	h := newHarness(t)
	h.login("worker")
	token, _ := h.store.Get(context.Background(), storage.KeyAuthToken)
	h.mustRun("logout")
	if _, err := h.store.Get(context.Background(), storage.KeyAuthToken); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("token still stored: %v", err)
	}
	if !h.srv.Revoked(token) {
		t.Fatal("server did not see logout")
	}
	if _, err := h.run("whoami"); exitCode(err) != exitSignedOut {
		t.Fatalf("expected signed-out after logout, got %v", err)
	}
}

func TestMaterialsAdminFlow(t *testing.T) {
	h := newHarness(t)
	h.login("admin")
	h.mustRun("materials", "add", "--name", "Cable", "--unit", "m", "--material-price", "2", "--labor-price", "1")
	h.mustRun("materials", "update", "--original", "Cable", "--name", "Cable 3x2.5", "--unit", "m", "--material-price", "2.5", "--labor-price", "1")
	out := h.mustRun("materials", "list")
	if !strings.Contains(out, "Cable 3x2.5") || !strings.Contains(out, "2.5") {
		t.Fatalf("unexpected list: %q", out)
	}
	if _, err := h.run("materials", "add", "--name", "Pipe", "--material-price", "-1"); err == nil {
		t.Fatal("negative price accepted")
	}
	if _, err := h.run("materials", "add", "--name", "Pipe", "--material-price", "abc"); err == nil {
		t.Fatal("non-numeric price accepted")
	}
	h.mustRun("materials", "delete", "Cable 3x2.5")
	if got := len(h.srv.Materials()); got != 0 {
		t.Fatalf("expected empty catalog, got %d", got)
	}
}

func TestPanelsGroupCircuits(t *testing.T) {
	h := newHarness(t)
	h.login("admin")
	h.mustRun("panels", "add", "--name", "DB-1", "--circuit", "C2")
	h.mustRun("panels", "add", "--name", "DB-1", "--circuit", "C1")
	out := h.mustRun("panels", "list")
	if !strings.Contains(out, "C1, C2") {
		t.Fatalf("circuits not grouped: %q", out)
	}
}

func TestReportsAddUpdateDelete(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedMaterial("Cable", "m", 2, 1)
	h.srv.SeedPanel("DB-1", "C1")
	h.login("worker")

	h.mustRun("reports", "add", "--material", "Cable", "--quantity", "10", "--location", "L1", "--panel", "DB-1", "--circuit", "C1")
	reports := h.srv.DailyReports()
	if len(reports) != 1 {
		t.Fatalf("expected one report, got %d", len(reports))
	}
	r := reports[0]
	if r["unit"] != "m" || r["date"] != "2024-05-01" {
		t.Fatalf("unit or date not defaulted: %+v", r)
	}
	id, _ := r["_id"].(string)

	if _, err := h.run("reports", "add", "--material", "Cable", "--quantity", "1", "--panel", "DB-1", "--circuit", "C9"); err == nil {
		t.Fatal("unknown circuit accepted")
	}

	h.mustRun("reports", "update", id, "--notes", "second floor")
	r = h.srv.DailyReports()[0]
	if r["notes"] != "second floor" || r["location"] != "L1" {
		t.Fatalf("update should overlay only changed fields: %+v", r)
	}

	out := h.mustRun("reports", "list", "--date", "2024-05-01")
	if !strings.Contains(out, "second floor") {
		t.Fatalf("list missing report: %q", out)
	}

	h.mustRun("reports", "delete", id)
	if got := len(h.srv.DailyReports()); got != 0 {
		t.Fatalf("expected report deleted, %d left", got)
	}
}

func TestReceivedAdd(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedMaterial("Conduit", "pcs", 1, 1)
	h.login("worker")
	out := h.mustRun("received", "add", "--material", "Conduit", "--quantity", "4", "--supplier", "ACME")
	if !strings.Contains(out, "ACME") || !strings.Contains(out, "pcs") {
		t.Fatalf("unexpected received output: %q", out)
	}
	if _, err := h.run("received", "add", "--material", "Conduit", "--quantity", "-4"); err == nil {
		t.Fatal("negative quantity accepted")
	}
}

func TestTotalsPricesAndExports(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedMaterial("Cable", "m", 2, 1)
	h.srv.SeedDailyReport(map[string]any{"date": "2024-05-01", "materialName": "Cable", "quantity": 10, "location": "L1", "panelName": "DB-1"})
	h.srv.SeedDailyReport(map[string]any{"date": "2024-05-01", "materialName": "Mystery", "quantity": 3, "location": "L2"})
	h.login("worker")

	csvPath := filepath.Join(t.TempDir(), "totals.csv")
	out := h.mustRun("totals", "--csv", csvPath)
	if !strings.Contains(out, "$30.00") || !strings.Contains(out, pricing.Placeholder) {
		t.Fatalf("unexpected totals: %q", out)
	}
	fh, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer fh.Close()
	rows, err := pricing.ParseCSV(fh)
	if err != nil || len(rows) != 2 {
		t.Fatalf("csv rows %d err %v", len(rows), err)
	}

	panelCSV := filepath.Join(t.TempDir(), "panel.csv")
	out = h.mustRun("totals", "--panel", "DB-1", "--csv", panelCSV)
	rowsOut := dataRows(out)
	if len(rowsOut) != 1 || !strings.Contains(rowsOut[0], "Cable") {
		t.Fatalf("panel filter rows: %q", rowsOut)
	}
	for _, row := range rowsOut {
		cells := strings.Fields(row)
		for _, cell := range cells[len(cells)-3:] {
			if cell != pricing.Placeholder {
				t.Fatalf("panel filter should hide costs, got %q in %q", cell, row)
			}
		}
		if strings.Contains(row, "TOTAL") {
			t.Fatalf("summary row shown under panel filter: %q", row)
		}
	}
	pf, err := os.Open(panelCSV)
	if err != nil {
		t.Fatalf("open panel csv: %v", err)
	}
	defer pf.Close()
	exported, err := pricing.ParseCSV(pf)
	if err != nil || len(exported) != 1 {
		t.Fatalf("panel csv rows %d err %v", len(exported), err)
	}
	if !exported[0].TotalPrice.OrZero().IsZero() || !exported[0].MaterialCost.OrZero().IsZero() {
		t.Fatalf("panel csv leaked costs: %+v", exported[0])
	}
}

// dataRows drops the date line and the column header from totals output.
func dataRows(out string) []string {
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}
	return lines[2:]
}

func TestManagerTotalsRemembersScope(t *testing.T) {
	h := newHarness(t)
	h.srv.SeedTotalPrice(map[string]any{"date": "2024-05-02", "materialName": "Cable", "quantity": 10, "materialCost": 20, "laborCost": 10, "totalPrice": 30})
	h.login("boss")

	dir := t.TempDir()
	out := h.mustRun("manager", "totals", "--site", "S1", "--company", "C1", "--start", "2024-05-01", "--end", "2024-05-31", "--csv-dir", dir)
	if !strings.Contains(out, "$30.00") {
		t.Fatalf("unexpected manager totals: %q", out)
	}
	req, ok := h.srv.LastRequest("GET", "/api/manager/total-prices")
	if !ok || req.Header.Get("X-Site") != "S1" || req.Header.Get("X-Company") != "C1" {
		t.Fatalf("scope headers missing: %+v", req)
	}
	if _, err := os.Stat(filepath.Join(dir, pricing.CSVFilename)); err != nil {
		t.Fatalf("csv not written: %v", err)
	}

	// site and company come back from storage
	h.mustRun("manager", "totals", "--start", "2024-05-01", "--end", "2024-05-31")

	if _, err := h.run("manager", "totals", "--start", "2024-05-01"); err == nil {
		t.Fatal("incomplete filter accepted")
	}
}

func TestUserCannotOpenManager(t *testing.T) {
	h := newHarness(t)
	h.login("worker")
	if _, err := h.run("manager", "totals"); exitCode(err) != exitRedirected {
		t.Fatalf("expected redirect, got %v", err)
	}
}

func TestSettingsShowsStatistics(t *testing.T) {
	h := newHarness(t)
	h.login("worker")
	out := h.mustRun("settings")
	for _, want := range []string{"worker", "S1", "daily reports"} {
		if !strings.Contains(out, want) {
			t.Fatalf("settings missing %q: %q", want, out)
		}
	}
}

func TestMetricsFlagPrintsClientCounters(t *testing.T) {
	h := newHarness(t)
	out := h.mustRun("--metrics", "login", "-u", "boss", "-p", "pw", "--manager")
	if !strings.Contains(out, `panel_client_requests_total{method="POST",route="/api/auth/login",status="200"}`) {
		t.Fatalf("metrics missing login request: %q", out)
	}
	if !strings.Contains(out, "build_info") {
		t.Fatalf("metrics missing build_info: %q", out)
	}
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	h := newHarness(t)
	h.login("admin")
	cases := [][]string{
		{"materials", "delete", "Ghost"},
		{"panels", "delete", "DB-9"},
		{"reports", "delete", "no-such-id"},
		{"received", "delete", "no-such-id"},
	}
	for _, args := range cases {
		_, err := h.run(args...)
		if exitCode(err) != exitNotFound {
			t.Fatalf("%v: exit %d (%v), want not found", args, exitCode(err), err)
		}
		if !strings.Contains(errorText(err), "not found") {
			t.Fatalf("%v: message %q", args, errorText(err))
		}
	}
	if _, err := h.run("reports", "update", "no-such-id", "--notes", "x"); exitCode(err) != exitNotFound {
		t.Fatalf("update of a missing report: %v", err)
	}
}

func TestBackendStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		code int
		text string
	}{
		{&panelapi.APIError{StatusCode: 401, Message: "jwt expired"}, exitSignedOut, "session expired or revoked: run `panelctl login`"},
		{fmt.Errorf("load: %w", &panelapi.APIError{StatusCode: 403, Message: "Admin only"}), exitRedirected, "not permitted for your role: Admin only"},
		{&panelapi.APIError{StatusCode: 500, Message: "boom"}, exitFailure, "boom"},
		{errors.New("plain"), exitFailure, "plain"},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.code {
			t.Fatalf("exitCode(%v) = %d, want %d", tc.err, got, tc.code)
		}
		if got := errorText(tc.err); got != tc.text {
			t.Fatalf("errorText(%v) = %q, want %q", tc.err, got, tc.text)
		}
	}
}
