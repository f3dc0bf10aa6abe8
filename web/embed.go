// Package web holds the page templates, legal copy and static assets that
// are compiled into the server binary.
package web

import "embed"

//go:embed templates/*.html content/*.md static/*
var FS embed.FS
