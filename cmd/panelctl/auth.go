package main

import (
	"strings"

	"github.com/spf13/cobra"

	"sitepanel.org/internal/gate"
	"sitepanel.org/internal/obs"
	"sitepanel.org/internal/panelapi"
)

func (a *app) loginCmd() *cobra.Command {
	var (
		creds   panelapi.Credentials
		manager bool
		from    string
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if snap := a.session.Snapshot(); snap.IsAuthenticated() {
				a.printf("already signed in as %s; redirected to %s\n", snap.User.Username, gate.PathHome)
				return nil
			}
			c, err := creds.ForAccount(manager)
			if err != nil {
				return err
			}
			res := a.session.Login(ctx, c)
			if !res.OK {
				return &exitError{code: exitFailure, msg: res.Message}
			}
			target := gate.PostLoginTarget(gate.Decision{Kind: gate.RedirectLogin, From: from})
			a.printf("signed in as %s (%s)\n", res.User.Username, res.User.Role)
			a.printf("continue at %s\n", target)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&creds.Username, "username", "u", "", "username")
	f.StringVarP(&creds.Password, "password", "p", "", "password")
	f.StringVar(&creds.Site, "site", "", "site (user and admin accounts)")
	f.StringVar(&creds.Company, "company", "", "company (user and admin accounts)")
	f.BoolVar(&manager, "manager", false, "sign in with a manager account")
	f.StringVar(&from, "from", "", "page to return to after signing in")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var (
		profile panelapi.Profile
		role    string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			profile.Role = panelapi.Role(strings.ToLower(strings.TrimSpace(role)))
			if profile.Role != "" && !profile.Role.Valid() {
				return &exitError{code: exitFailure, msg: "unknown role " + role}
			}
			res := a.session.Register(cmd.Context(), profile)
			if !res.OK {
				return &exitError{code: exitFailure, msg: res.Message}
			}
			a.printf("registered %s; sign in with `panelctl login`\n", profile.Username)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&profile.Username, "username", "u", "", "username")
	f.StringVarP(&profile.Password, "password", "p", "", "password")
	f.StringVar(&role, "role", "", "user, admin or manager")
	f.StringVar(&profile.Site, "site", "", "site")
	f.StringVar(&profile.Company, "company", "", "company")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored token and revoke it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.session.Logout(cmd.Context())
			a.printf("signed out\n")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: a.guarded(gate.PathHome, func(cmd *cobra.Command, _ []string) error {
			u, err := a.session.RequireUser()
			if err != nil {
				return err
			}
			a.printf("%s\t%s\t%s\t%s\n", u.Username, u.Role, u.Site, u.Company)
			return nil
		}),
	}
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "List the pages available to the signed-in user",
		RunE: a.guarded(gate.PathHome, func(cmd *cobra.Command, _ []string) error {
			snap := a.session.Snapshot()
			obs.Logger().Debug().Str("role", string(snap.Role())).Msg("dashboard")
			tw := newTable(a.out)
			for _, r := range a.routes.Visible(snap.Role()) {
				tw.row(r.Path, r.Title, r.Description)
			}
			return tw.flush()
		}),
	}
}
