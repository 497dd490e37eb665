package ui

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"time"

	"package-dashboard/internal/packages"
)

//go:embed templates/*.tmpl
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var funcs = template.FuncMap{
	"passFail": func(broken bool) string {
		if broken {
			return "Fail"
		}
		return "Pass"
	},
	"orEmpty": func(s string) string {
		if s == "" {
			return packages.DefaultStatus
		}
		return s
	},
	"when": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format("2006-01-02 15:04:05 MST")
	},
	// stamp round-trips a comment timestamp through a form field.
	"stamp": func(t time.Time) string {
		return t.UTC().Format(time.RFC3339Nano)
	},
	"label": func(bt packages.BuildType) string { return bt.Label() },
}

func parse(page string) *template.Template {
	return template.Must(template.New("layout.tmpl").Funcs(funcs).
		ParseFS(templateFiles, "templates/layout.tmpl", "templates/"+page))
}

var (
	dashboardTmpl = parse("dashboard.tmpl")
	detailTmpl    = parse("detail.tmpl")
)

// Static is the stylesheet tree served under /.assets/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

func RenderDashboard(w io.Writer, p DashboardPage) error {
	return dashboardTmpl.ExecuteTemplate(w, "layout", p)
}

func RenderDetail(w io.Writer, p DetailPage) error {
	return detailTmpl.ExecuteTemplate(w, "layout", p)
}
