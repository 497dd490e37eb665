package ui

import (
	"time"

	"package-dashboard/internal/packages"
)

// PackagesPerPage is the dashboard table's page size.
const PackagesPerPage = 25

type Row struct {
	Number  int
	Package packages.Package
	Summary string
}

type DashboardPage struct {
	Title      string
	Query      string
	Rows       []Row
	Total      int
	Page       int
	TotalPages int
	PrevPage   int
	NextPage   int
}

// NewDashboardPage numbers rows continuously across pages.
func NewDashboardPage(pkgs []packages.Package, total int, query string, page int) DashboardPage {
	if page < 1 {
		page = 1
	}
	d := DashboardPage{
		Title:      "Package Build Status",
		Query:      query,
		Total:      total,
		Page:       page,
		TotalPages: (total + PackagesPerPage - 1) / PackagesPerPage,
	}
	offset := (page - 1) * PackagesPerPage
	for i := range pkgs {
		d.Rows = append(d.Rows, Row{
			Number:  offset + i + 1,
			Package: pkgs[i],
			Summary: packages.Summary(&pkgs[i]),
		})
	}
	if page > 1 {
		d.PrevPage = page - 1
	}
	if page < d.TotalPages {
		d.NextPage = page + 1
	}
	return d
}

type BrokenBox struct {
	Key     string
	Label   string
	Checked bool
}

type DetailPage struct {
	Title       string
	Package     *packages.Package
	BuildTypes  []packages.BuildType
	Broken      []BrokenBox
	History     packages.Page[packages.Entry]
	PageNumbers []int
	// EditType and EditStamp select the history row shown as an edit form.
	EditType  packages.BuildType
	EditStamp time.Time
	Error     string
}

func NewDetailPage(p *packages.Package, page int) DetailPage {
	d := DetailPage{
		Title:      p.Name,
		Package:    p,
		BuildTypes: packages.BuildTypes,
		History:    packages.Paginate(packages.History(p.Comments), page, packages.CommentsPerPage),
	}
	for _, bt := range packages.BuildTypes {
		d.Broken = append(d.Broken, BrokenBox{
			Key:     packages.BrokenKey(bt),
			Label:   string(bt) + " Broken",
			Checked: p.Broken(bt),
		})
	}
	for i := 1; i <= d.History.TotalPages; i++ {
		d.PageNumbers = append(d.PageNumbers, i)
	}
	return d
}

// Editing reports whether e is the comment selected for inline editing.
func (d DetailPage) Editing(e packages.Entry) bool {
	return e.BuildType == d.EditType && e.Timestamp.UnixMilli() == d.EditStamp.UnixMilli()
}
