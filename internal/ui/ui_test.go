package ui

import (
	"bytes"
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"package-dashboard/internal/packages"
)

func samplePackage() *packages.Package {
	p := &packages.Package{ID: "pkg-1", Name: "zlib", Owner: "core", CIBroken: true, Comments: packages.NewComments()}
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		p.AddComment(packages.BuildCI, "alice", "note", base.Add(time.Duration(i)*time.Minute))
	}
	p.AddComment(packages.BuildDocker, "bob", "layer cache <stale>", base.Add(time.Hour))
	return p
}

func TestRenderDashboard(t *testing.T) {
	p := samplePackage()
	d := NewDashboardPage([]packages.Package{*p}, 26, "zl", 2)
	assert.Equal(t, 2, d.TotalPages)
	assert.Equal(t, 1, d.PrevPage)
	assert.Zero(t, d.NextPage)
	require.Len(t, d.Rows, 1)
	assert.Equal(t, 26, d.Rows[0].Number)

	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, d))
	html := buf.String()
	assert.Contains(t, html, "Package Build Status")
	assert.Contains(t, html, `<a href="/packages/pkg-1">zlib</a>`)
	assert.Contains(t, html, `<td class="Fail">Fail</td>`)
	assert.Contains(t, html, "Docker: layer cache &lt;stale&gt;")
	assert.Contains(t, html, "<td>Empty</td>")
}

func TestRenderDashboardEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderDashboard(&buf, NewDashboardPage(nil, 0, "", 1)))
	assert.Contains(t, buf.String(), "No packages found.")
}

func TestDetailPageHistory(t *testing.T) {
	p := samplePackage()
	d := NewDetailPage(p, 1)
	assert.Equal(t, []int{1, 2}, d.PageNumbers)
	require.Len(t, d.History.Items, packages.CommentsPerPage)
	assert.Equal(t, packages.BuildDocker, d.History.Items[0].BuildType)

	require.Len(t, d.Broken, len(packages.BuildTypes))
	assert.Equal(t, "ciBroken", d.Broken[1].Key)
	assert.True(t, d.Broken[1].Checked)
	assert.False(t, d.Broken[0].Checked)
}

func TestRenderDetailEditing(t *testing.T) {
	p := samplePackage()
	d := NewDetailPage(p, 1)
	top := d.History.Items[0]
	d.EditType, d.EditStamp = top.BuildType, top.Timestamp
	assert.True(t, d.Editing(top))
	assert.False(t, d.Editing(d.History.Items[1]))

	var buf bytes.Buffer
	require.NoError(t, RenderDetail(&buf, d))
	html := buf.String()
	assert.Contains(t, html, `action="/packages/pkg-1/comments/edit"`)
	assert.Contains(t, html, "layer cache &lt;stale&gt;</textarea>")
	assert.Contains(t, html, `<option value="BI">BI Build</option>`)
	assert.Contains(t, html, "Docker Build")
}

func TestStaticStylesheet(t *testing.T) {
	b, err := fs.ReadFile(Static(), "style.css")
	require.NoError(t, err)
	assert.Contains(t, string(b), "td.Fail")
}
