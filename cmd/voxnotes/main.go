package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/aretw0/voxnotes/pkg/core"
)

func main() {
	Execute()
}

// fatal prints msg and err, plus a hint for errors the user can fix, and exits.
func fatal(msg string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	if hint := hintFor(err); hint != "" {
		fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
	}
	os.Exit(1)
}

func hintFor(err error) string {
	var authErr *core.AuthError
	switch {
	case errors.Is(err, core.ErrUnknownCategory):
		return "run 'voxnotes categories list' to see the categories"
	case errors.Is(err, core.ErrNotFound):
		return "run 'voxnotes list --all' to see note ids"
	case errors.Is(err, core.ErrMalformedStore):
		return "notes.json could not be read; fix or move it and try again"
	case errors.As(err, &authErr):
		return "set a service account with 'voxnotes settings credentials <file>'"
	}
	return ""
}
