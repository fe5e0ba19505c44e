// Package ui provides the embedded downloader page.
package ui

import (
	_ "embed"
)

// IndexHTML is the downloader page. With JavaScript it posts to /get_video
// and renders the JSON result; without it the form posts to /preview.
//
//go:embed index.html
var IndexHTML []byte
