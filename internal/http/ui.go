package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"package-dashboard/internal/packages"
	"package-dashboard/internal/ui"
)

func (s *Server) mountUI(r chi.Router) {
	r.Handle("/.assets/*", http.StripPrefix("/.assets/", http.FileServer(http.FS(ui.Static()))))
	r.Get("/", s.dashboard)
	r.Route("/packages/{id}", func(r chi.Router) {
		r.Get("/", s.packageDetail)
		r.Post("/comments", s.formAddComment)
		r.Post("/comments/edit", s.formEditComment)
		r.Post("/comments/delete", s.formDeleteComment)
		r.Post("/broken-state", s.formBrokenState)
		r.Post("/image-size", s.formImageSize)
	})
}

// htmlError answers a page request. Domain errors keep their message, others are logged.
func htmlError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, packages.ErrPackageNotFound):
		http.Error(w, "Package not found", http.StatusNotFound)
	default:
		logrus.WithError(err).WithField("request_id", m.GetReqID(r.Context())).Error("rendering page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func render(w http.ResponseWriter, r *http.Request, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		htmlError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	page := max(queryInt(r, "page", 1), 1)
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	pkgs, total, err := s.Store.List(r.Context(), packages.Filter{
		Query:  q,
		Limit:  ui.PackagesPerPage,
		Offset: (page - 1) * ui.PackagesPerPage,
	})
	if err != nil {
		htmlError(w, r, err)
		return
	}
	render(w, r, func(b *bytes.Buffer) error {
		return ui.RenderDashboard(b, ui.NewDashboardPage(pkgs, total, q, page))
	})
}

func (s *Server) packageDetail(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		htmlError(w, r, err)
		return
	}
	q := r.URL.Query()
	d := ui.NewDetailPage(p, queryInt(r, "page", 1))
	d.Error = q.Get("error")
	if ts, err := time.Parse(time.RFC3339Nano, q.Get("edit")); err == nil {
		if bt, err := packages.NormalizeBuildType(q.Get("type")); err == nil {
			d.EditType, d.EditStamp = bt, ts
		}
	}
	render(w, r, func(b *bytes.Buffer) error { return ui.RenderDetail(b, d) })
}

// backToDetail sends the browser to the details page, carrying the history page
// and, when the form was rejected, the reason.
func backToDetail(w http.ResponseWriter, r *http.Request, problem string) {
	v := url.Values{}
	if p, err := strconv.Atoi(r.PostFormValue("page")); err == nil && p > 1 {
		v.Set("page", strconv.Itoa(p))
	}
	if problem != "" {
		v.Set("error", problem)
	}
	target := "/packages/" + url.PathEscape(chi.URLParam(r, "id"))
	if len(v) > 0 {
		target += "?" + v.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// formResult redirects on success and on client errors; the rest are server errors.
func formResult(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case err == nil:
		backToDetail(w, r, "")
	case errors.Is(err, packages.ErrPackageNotFound):
		http.Error(w, "Package not found", http.StatusNotFound)
	case errors.Is(err, packages.ErrCommentNotFound):
		backToDetail(w, r, "Comment not found")
	case errors.Is(err, packages.ErrInvalidBuildType):
		backToDetail(w, r, "Invalid build type")
	case errors.Is(err, packages.ErrInvalidInput):
		backToDetail(w, r, err.Error())
	default:
		htmlError(w, r, err)
	}
}

func formCommentRef(r *http.Request) (packages.BuildType, time.Time, error) {
	bt, err := packages.NormalizeBuildType(r.PostFormValue("type"))
	if err != nil {
		return "", time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, r.PostFormValue("timestamp"))
	if err != nil {
		return "", time.Time{}, packages.ErrInvalidInput
	}
	return bt, ts, nil
}

func (s *Server) formAddComment(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.PostFormValue("text"))
	if text == "" {
		backToDetail(w, r, "buildType and text are required")
		return
	}
	bt, err := packages.NormalizeBuildType(r.PostFormValue("buildType"))
	if err != nil {
		formResult(w, r, err)
		return
	}
	_, err = s.Store.AddComment(r.Context(), chi.URLParam(r, "id"), bt, s.Author, text)
	formResult(w, r, err)
}

func (s *Server) formEditComment(w http.ResponseWriter, r *http.Request) {
	text := strings.TrimSpace(r.PostFormValue("text"))
	if text == "" {
		backToDetail(w, r, "type, text, and timestamp are required")
		return
	}
	bt, ts, err := formCommentRef(r)
	if err != nil {
		formResult(w, r, err)
		return
	}
	_, err = s.Store.EditComment(r.Context(), chi.URLParam(r, "id"), bt, ts, text)
	formResult(w, r, err)
}

func (s *Server) formDeleteComment(w http.ResponseWriter, r *http.Request) {
	bt, ts, err := formCommentRef(r)
	if err != nil {
		formResult(w, r, err)
		return
	}
	_, err = s.Store.DeleteComment(r.Context(), chi.URLParam(r, "id"), bt, ts)
	formResult(w, r, err)
}

// formBrokenState treats the checkbox form as the complete state: unchecked
// boxes are not submitted and clear their flag.
func (s *Server) formBrokenState(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		formResult(w, r, packages.ErrInvalidInput)
		return
	}
	u := packages.BrokenUpdate{}
	for _, bt := range packages.BuildTypes {
		u[bt] = r.PostForm.Get(packages.BrokenKey(bt)) != ""
	}
	_, err := s.Store.SetBroken(r.Context(), chi.URLParam(r, "id"), u)
	formResult(w, r, err)
}

func (s *Server) formImageSize(w http.ResponseWriter, r *http.Request) {
	size := strings.TrimSpace(r.PostFormValue("imageSize"))
	if size == "" {
		backToDetail(w, r, "imageSize is required")
		return
	}
	_, err := s.Store.SetImageSize(r.Context(), chi.URLParam(r, "id"), size)
	formResult(w, r, err)
}
