package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"sitepanel.org/internal/panelapi"
)

var (
	version = "0.1.0"
	commit  = ""
)

func main() {
	if err := newApp(rootDeps{}).execute(context.Background(), os.Args[1:], nil); err != nil {
		fmt.Fprintln(os.Stderr, errorText(err))
		os.Exit(exitCode(err))
	}
}

// Exit codes.
const (
	exitFailure    = 1
	exitSignedOut  = 3
	exitRedirected = 4
	exitNotFound   = 5
)

// exitError carries a process exit code with the message shown to the user.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		return ee.code
	case panelapi.IsUnauthorized(err):
		return exitSignedOut
	case panelapi.IsForbidden(err):
		return exitRedirected
	}
	return exitFailure
}

// errorText prefers the backend's own message.
func errorText(err error) string {
	var ee *exitError
	switch {
	case errors.As(err, &ee):
		return ee.msg
	case panelapi.IsUnauthorized(err):
		return "session expired or revoked: run `panelctl login`"
	case panelapi.IsForbidden(err):
		return "not permitted for your role: " + panelapi.MessageOr(err, "forbidden")
	}
	return panelapi.MessageOr(err, err.Error())
}

// notFound turns a backend 404 on kind/name into a plain not-found exit.
func notFound(err error, kind, name string) error {
	if panelapi.IsNotFound(err) {
		return &exitError{code: exitNotFound, msg: fmt.Sprintf("%s %q not found", kind, name)}
	}
	return err
}
