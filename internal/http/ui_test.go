package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"package-dashboard/internal/packages"
)

func postForm(t *testing.T, s *Server, path string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.Routes().ServeHTTP(rec, req)
	return rec
}

func TestDashboardPage(t *testing.T) {
	s, _, _ := newTestServer()
	rec := do(t, s, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "openssl")
	assert.Contains(t, rec.Body.String(), "Docker: base image bump")
}

func TestDetailPage(t *testing.T) {
	s, _, _ := newTestServer()
	rec := do(t, s, "GET", "/packages/"+pkgID+"?edit=2024-03-01T09:30:00.123Z&type=CI", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "flaky test</textarea>")
	assert.Contains(t, body, `name="ciBroken"`)

	rec = do(t, s, "GET", "/packages/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFormAddCommentRedirects(t *testing.T) {
	s, store, _ := newTestServer()
	rec := postForm(t, s, "/packages/"+pkgID+"/comments", url.Values{"buildType": {"Image Build"}, "text": {"rebuilt"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/packages/"+pkgID, rec.Header().Get("Location"))
	assert.Equal(t, packages.BuildImage, *store.pkgs[pkgID].LatestBuildType)

	rec = postForm(t, s, "/packages/"+pkgID+"/comments", url.Values{"buildType": {"CI"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "error=")
}

func TestFormEditAndDeleteKeepPage(t *testing.T) {
	s, store, _ := newTestServer()
	rec := postForm(t, s, "/packages/"+pkgID+"/comments/edit", url.Values{
		"type": {"CI"}, "timestamp": {"2024-03-01T09:30:00.123Z"}, "text": {"quarantined"}, "page": {"2"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/packages/"+pkgID+"?page=2", rec.Header().Get("Location"))
	assert.Equal(t, "quarantined", store.pkgs[pkgID].Comments[packages.BuildCI][0].Text)

	rec = postForm(t, s, "/packages/"+pkgID+"/comments/delete", url.Values{
		"type": {"CI"}, "timestamp": {"2024-03-01T09:30:00.123Z"},
	})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Empty(t, store.pkgs[pkgID].Comments[packages.BuildCI])

	rec = postForm(t, s, "/packages/"+pkgID+"/comments/delete", url.Values{
		"type": {"CI"}, "timestamp": {"2024-03-01T09:30:00.123Z"},
	})
	assert.Contains(t, rec.Header().Get("Location"), "Comment+not+found")
}

func TestFormBrokenStateIsComplete(t *testing.T) {
	s, store, _ := newTestServer()
	store.pkgs[pkgID].DockerBroken = true

	rec := postForm(t, s, "/packages/"+pkgID+"/broken-state", url.Values{"ciBroken": {"on"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	p := store.pkgs[pkgID]
	assert.True(t, p.CIBroken)
	assert.False(t, p.DockerBroken)
}

func TestFormImageSize(t *testing.T) {
	s, store, _ := newTestServer()
	rec := postForm(t, s, "/packages/"+pkgID+"/image-size", url.Values{"imageSize": {"1.1GB"}})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "1.1GB", store.pkgs[pkgID].ImageSize)

	rec = postForm(t, s, "/packages/missing/image-size", url.Values{"imageSize": {"1GB"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAssets(t *testing.T) {
	s, _, _ := newTestServer()
	rec := do(t, s, "GET", "/.assets/style.css", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "td.Fail")
}
