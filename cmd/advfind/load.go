package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hazyhaar/advfind/browser"
	"github.com/hazyhaar/advfind/finder/dom"
	"github.com/hazyhaar/advfind/render"
)

func isURL(src string) bool {
	return strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://")
}

// loadDocument parses a local file or renders a URL through Chrome.
func loadDocument(ctx context.Context, src string) (*dom.Document, error) {
	if isURL(src) {
		l := browser.New(browserConfig())
		defer l.Close()
		return l.Load(ctx, src)
	}
	return parseFile(src)
}

func parseFile(path string) (*dom.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	doc, err := dom.Parse(f, "file://"+filepath.ToSlash(abs))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// writeOutput renders doc to path, or to stdout when path is empty or "-".
func writeOutput(doc *dom.Document, path, format string) error {
	r, f, err := renderer(format)
	if err != nil {
		return err
	}
	if path == "" || path == "-" {
		return r.Write(os.Stdout, doc, f)
	}
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Write(out, doc, f); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func renderer(format string) (*render.Renderer, render.Format, error) {
	f, err := render.ParseFormat(format)
	if err != nil {
		return nil, "", err
	}
	return render.New(cfg.Highlight.Element), f, nil
}
