package main

import (
	"context"
	"testing"
	"time"

	"sitepanel.org/internal/backendtest"
)

func TestSmokeAgainstFakeBackend(t *testing.T) {
	srv := backendtest.New(backendtest.WithWrappedLists())
	defer srv.Close()
	srv.AddAccount(backendtest.Account{Username: "smoke", Password: "pw", Role: "admin", Site: "S", Company: "C"})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	res, err := run(ctx, smokeConfig{BaseURL: srv.URL(), Username: "smoke", Password: "pw", Site: "S", Company: "C"})
	if err != nil {
		t.Fatalf("smoke run: %v", err)
	}
	if res.Total != "$30.00" || res.ReportID == "" || res.Took < 0 || res.Took > 10*time.Second {
		t.Fatalf("unexpected result: %+v", res)
	}
	if n := len(srv.DailyReports()); n != 0 {
		t.Fatalf("smoke left %d reports behind", n)
	}
	if n := len(srv.Materials()); n != 0 {
		t.Fatalf("smoke left %d materials behind", n)
	}
	if reqs := srv.Requests(); len(reqs) == 0 {
		t.Fatal("no requests recorded")
	}
}

func TestSmokeFailsOnBadLogin(t *testing.T) {
	srv := backendtest.New()
	defer srv.Close()

	_, err := run(context.Background(), smokeConfig{BaseURL: srv.URL(), Username: "ghost", Password: "pw", Site: "S", Company: "C"})
	if err == nil {
		t.Fatal("expected login failure")
	}
}
