package handlers

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

//go:embed assets
var assets embed.FS

type index struct {
	tmpl *template.Template
	data indexData
}

type indexData struct {
	Build    string
	NodeHost string
}

func newIndex(build string, nodeHost string) (index, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return index{}, err
	}

	ig := index{
		tmpl: tmpl,
		data: indexData{
			Build:    build,
			NodeHost: nodeHost,
		},
	}

	return ig, nil
}

func (ig index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var buf bytes.Buffer
	if err := ig.tmpl.Execute(&buf, ig.data); err != nil {
		return fmt.Errorf("executing index template: %w", err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)

	return err
}
