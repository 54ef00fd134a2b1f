// Package web embeds the tracker's HTML templates and static assets.
package web

import "embed"

// TemplatesFS holds templates/*.html.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds static/* (css, js).
//
//go:embed static/*
var StaticFS embed.FS
