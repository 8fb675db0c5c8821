package report

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"
)

//go:embed templates
var content embed.FS

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, rep Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteHTML renders the report as a self-contained HTML page.
func WriteHTML(w io.Writer, rep Report) error {
	tmpl, err := template.New("report.html").Funcs(template.FuncMap{
		"duration": func(d time.Duration) string { return d.Round(time.Millisecond).String() },
	}).ParseFS(content, "templates/report.html")
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := tmpl.Execute(w, rep); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Save writes the JSON and HTML renditions into dir, creating it if needed.
// either path may be disabled by passing an empty name.
func Save(dir, jsonName, htmlName string, rep Report) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}

	write := func(name string, render func(io.Writer, Report) error) error {
		f, err := os.Create(filepath.Join(dir, name)) //nolint:gosec // path comes from config
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		if err := render(f, rep); err != nil {
			return err
		}
		return f.Close()
	}

	if jsonName != "" {
		if err := write(jsonName, WriteJSON); err != nil {
			return err
		}
	}
	if htmlName != "" {
		if err := write(htmlName, WriteHTML); err != nil {
			return err
		}
	}
	return nil
}
