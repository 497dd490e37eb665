package packages

import (
	"slices"
)

// CommentsPerPage is the page size of the comment history view.
const CommentsPerPage = 3

// Entry is a comment tagged with the build type it was filed under.
type Entry struct {
	BuildType BuildType `json:"type"`
	Comment
}

// History merges all build-type lists into one feed, newest first.
// Equal timestamps keep build-type order, then insertion order.
func History(c Comments) []Entry {
	var out []Entry
	for _, bt := range BuildTypes {
		for _, cm := range c[bt] {
			out = append(out, Entry{BuildType: bt, Comment: cm})
		}
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.Timestamp.Compare(a.Timestamp)
	})
	return out
}

// Latest returns the newest comment across all build types.
func Latest(c Comments) (Entry, bool) {
	h := History(c)
	if len(h) == 0 {
		return Entry{}, false
	}
	return h[0], true
}

// Summary renders the dashboard's latest-comment cell.
func Summary(p *Package) string {
	if p.LatestComment == nil || *p.LatestComment == "" {
		return "N/A"
	}
	if p.LatestBuildType == nil {
		return *p.LatestComment
	}
	return string(*p.LatestBuildType) + ": " + *p.LatestComment
}

// Page is one page of a paginated slice.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
	Total      int `json:"total"`
}

// Paginate cuts items into 1-based pages, clamping page into range.
func Paginate[T any](items []T, page, perPage int) Page[T] {
	if perPage <= 0 {
		perPage = CommentsPerPage
	}
	total := len(items)
	pages := (total + perPage - 1) / perPage
	if page < 1 {
		page = 1
	}
	if pages > 0 && page > pages {
		page = pages
	}
	start := (page - 1) * perPage
	end := min(start+perPage, total)
	out := []T{}
	if start < total {
		out = items[start:end]
	}
	return Page[T]{Items: out, Page: page, PerPage: perPage, TotalPages: pages, Total: total}
}
