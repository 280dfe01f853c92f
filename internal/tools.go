//go:build tools

// Package internal pins the dev-time tool dependencies so go mod
// keeps them.
package internal

import (
	_ "golang.org/x/lint/golint"
	_ "golang.org/x/tools/cmd/stringer"
)
