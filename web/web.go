// Package web embeds the static user and admin panel pages.
package web

import (
	"embed"
	"io/fs"
)

// Page file names inside Assets.
const (
	UserPage  = "user.html"
	AdminPage = "admin.html"
)

//go:embed static/*
var embedded embed.FS

// Assets exposes the panel files rooted at the static directory.
var Assets fs.FS

func init() {
	sub, err := fs.Sub(embedded, "static")
	if err != nil {
		panic(err)
	}
	Assets = sub
}
