package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/learnportal/internal/client/models"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Template functions available in all templates.
var templateFuncs = template.FuncMap{
	"shortAddress": models.ShortAddress,
	"relTime": func(t time.Time) string {
		if t.IsZero() {
			return "-"
		}
		return humanize.Time(t)
	},
	"progressColor": func(p int) string {
		switch {
		case p >= 100:
			return "green"
		case p >= 50:
			return "blue"
		case p > 0:
			return "yellow"
		default:
			return "gray"
		}
	},
	"statusLabel": func(s models.ToolStatus) string {
		switch s {
		case models.ToolActive:
			return "Active"
		case models.ToolMaintenance:
			return "Maintenance"
		default:
			return "Inactive"
		}
	},
	"statusColor": func(s models.ToolStatus) string {
		switch s {
		case models.ToolActive:
			return "green"
		case models.ToolMaintenance:
			return "yellow"
		default:
			return "gray"
		}
	},
	"count": func(n int, word string) string {
		return humanize.Comma(int64(n)) + " " + pluralize(n, word)
	},
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// parsePages parses every page together with the shared layout. Pages are
// keyed by file name without extension.
func parsePages() (map[string]*template.Template, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		if f == layoutFile {
			continue
		}
		tmpl, err := template.New(path.Base(f)).Funcs(templateFuncs).ParseFS(templateFS, layoutFile, f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		pages[strings.TrimSuffix(path.Base(f), ".html")] = tmpl
	}
	return pages, nil
}
