package backendtest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, _ := json.Marshal(body)
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func TestLoginIssuesUsableToken(t *testing.T) {
	s := New()
	defer s.Close()
	s.AddAccount(Account{Username: "alice", Password: "pw", Role: "admin", Site: "S1", Company: "C1"})

	resp := postJSON(t, s.URL()+"/api/auth/login", map[string]string{"username": "alice", "password": "pw", "site": "S1", "company": "C1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out struct {
		Token string  `json:"token"`
		User  Account `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Token == "" || out.User.Role != "admin" {
		t.Fatalf("unexpected login payload: %+v", out)
	}

	req, _ := http.NewRequest(http.MethodGet, s.URL()+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+out.Token)
	me, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	me.Body.Close()
	if me.StatusCode != http.StatusOK {
		t.Fatalf("me status %d", me.StatusCode)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s := New()
	defer s.Close()
	s.AddAccount(Account{Username: "alice", Password: "pw", Role: "manager"})

	resp := postJSON(t, s.URL()+"/api/auth/login", map[string]string{"username": "alice", "password": "nope"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if out["message"] != "Invalid credentials" {
		t.Fatalf("unexpected message %q", out["message"])
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := New()
	defer s.Close()
	s.AddAccount(Account{Username: "bob", Password: "pw", Role: "user"})

	token, err := s.IssueToken("bob", "user", -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, s.URL()+"/api/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestManagerTotalsRequireScopeHeaders(t *testing.T) {
	s := New()
	defer s.Close()
	s.AddAccount(Account{Username: "mgr", Password: "pw", Role: "manager"})
	token, err := s.IssueToken("mgr", "manager", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}

	cases := []struct {
		name string
		site string
		want int
	}{
		{name: "missing headers", want: http.StatusBadRequest},
		{name: "scoped", site: "S1", want: http.StatusOK},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(http.MethodGet, s.URL()+"/api/manager/total-prices?start=2024-01-01&end=2024-01-31", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		if tc.site != "" {
			req.Header.Set("X-Site", tc.site)
			req.Header.Set("X-Company", "C1")
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: status %d, want %d", tc.name, resp.StatusCode, tc.want)
		}
	}
}
