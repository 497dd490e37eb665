package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	m "github.com/go-chi/chi/v5/middleware"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"package-dashboard/internal/importer"
	"package-dashboard/internal/packages"
	"package-dashboard/internal/schemas"
	"package-dashboard/internal/worker"
)

// TaskQueue is the part of the asynq client the API needs.
type TaskQueue interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

type Server struct {
	Store packages.Store
	Queue TaskQueue
	// Ping checks the database for /healthz.
	Ping func(context.Context) error
	// Author is recorded on new comments.
	Author string
	// CORSOrigins may call /api from other origins.
	CORSOrigins []string
}

func NewServer(addr string, s *Server) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(m.RequestID, m.RealIP, RequestLogger, m.Recoverer)

	r.Get("/healthz", s.healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(CORS(s.CORSOrigins))
		r.Route("/packages", func(r chi.Router) {
			r.Get("/", s.listPackages)
			r.Get("/export", s.exportPackages)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getPackage)
				r.Get("/comments", s.commentHistory)
				r.Post("/comments", s.addComment)
				r.Put("/comments/edit", s.editComment)
				r.Delete("/comments/delete", s.deleteComment)
				r.Put("/image-size", s.setImageSize)
				r.Post("/image-size/refresh", s.refreshImageSize)
				r.Put("/broken-state", s.setBrokenState)
			})
		})
		r.Post("/imports", s.enqueueImport)
		r.Post("/exports", s.enqueueExport)
	})

	s.mountUI(r)
	return r
}

type errResp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to client errors. Anything else is logged and
// reported as a 500 carrying only the generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error, generic string) {
	switch {
	case errors.Is(err, packages.ErrPackageNotFound):
		writeJSON(w, http.StatusNotFound, errResp{"Package not found"})
	case errors.Is(err, packages.ErrCommentNotFound):
		writeJSON(w, http.StatusNotFound, errResp{"Comment not found"})
	case errors.Is(err, packages.ErrInvalidBuildType):
		writeJSON(w, http.StatusBadRequest, errResp{"Invalid build type"})
	case errors.Is(err, packages.ErrNoBrokenFields):
		writeJSON(w, http.StatusBadRequest, errResp{"No valid fields to update"})
	case errors.Is(err, packages.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errResp{err.Error()})
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"request_id": m.GetReqID(r.Context()),
			"path":       r.URL.Path,
		}).Error(generic)
		writeJSON(w, http.StatusInternalServerError, errResp{generic})
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body", packages.ErrInvalidInput)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	if s.Ping != nil {
		if err := s.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "db error"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func (s *Server) listPackages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := packages.Filter{
		Query:  q.Get("q"),
		Status: q.Get("status"),
		Owner:  q.Get("owner"),
		Limit:  queryInt(r, "limit", 0),
		Offset: queryInt(r, "offset", 0),
	}
	if b := q.Get("broken"); b != "" {
		bt, err := packages.NormalizeBuildType(b)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		f.Broken = bt
	}
	pkgs, total, err := s.Store.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err, "Internal server error")
		return
	}
	if pkgs == nil {
		pkgs = []packages.Package{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, pkgs)
}

func (s *Server) getPackage(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) commentHistory(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Internal server error")
		return
	}
	page := packages.Paginate(packages.History(p.Comments), queryInt(r, "page", 1), queryInt(r, "perPage", packages.CommentsPerPage))
	writeJSON(w, http.StatusOK, schemas.CommentHistory(page))
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	var req schemas.AddCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if strings.TrimSpace(req.BuildType) == "" || strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"buildType and text are required"})
		return
	}
	bt, err := packages.NormalizeBuildType(req.BuildType)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	p, err := s.Store.AddComment(r.Context(), chi.URLParam(r, "id"), bt, s.Author, req.Text)
	if err != nil {
		writeError(w, r, err, "Error adding comment")
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func parseCommentRef(ref schemas.CommentRef) (packages.BuildType, time.Time, error) {
	bt, err := packages.NormalizeBuildType(ref.Kind())
	if err != nil {
		return "", time.Time{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(ref.Timestamp))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%w: timestamp must be RFC 3339", packages.ErrInvalidInput)
	}
	return bt, ts, nil
}

func (s *Server) editComment(w http.ResponseWriter, r *http.Request) {
	var req schemas.EditCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if req.Kind() == "" || strings.TrimSpace(req.Text) == "" || req.Timestamp == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"type, text, and timestamp are required"})
		return
	}
	bt, ts, err := parseCommentRef(req.CommentRef)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	p, err := s.Store.EditComment(r.Context(), chi.URLParam(r, "id"), bt, ts, req.Text)
	if err != nil {
		writeError(w, r, err, "Error editing comment")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteComment(w http.ResponseWriter, r *http.Request) {
	var req schemas.DeleteCommentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if req.Kind() == "" || req.Timestamp == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"type and timestamp are required"})
		return
	}
	bt, ts, err := parseCommentRef(req.CommentRef)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	p, err := s.Store.DeleteComment(r.Context(), chi.URLParam(r, "id"), bt, ts)
	if err != nil {
		writeError(w, r, err, "Error deleting comment")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) setImageSize(w http.ResponseWriter, r *http.Request) {
	var req schemas.ImageSizeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if strings.TrimSpace(req.ImageSize) == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"imageSize is required"})
		return
	}
	p, err := s.Store.SetImageSize(r.Context(), chi.URLParam(r, "id"), strings.TrimSpace(req.ImageSize))
	if err != nil {
		writeError(w, r, err, "Error updating image size")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) setBrokenState(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := decodeBody(r, &body); err != nil {
		writeError(w, r, err, "")
		return
	}
	u, err := packages.ParseBrokenUpdate(body)
	if err != nil {
		writeError(w, r, err, "")
		return
	}
	p, err := s.Store.SetBroken(r.Context(), chi.URLParam(r, "id"), u)
	if err != nil {
		writeError(w, r, err, "Error updating broken state")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) exportPackages(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if _, err := importer.Export(r.Context(), s.Store, &buf); err != nil {
		writeError(w, r, err, "Error exporting packages")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="packages.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, task *asynq.Task, err error) {
	if err != nil {
		writeError(w, r, err, "Error creating task")
		return
	}
	if s.Queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, errResp{"task queue unavailable"})
		return
	}
	info, err := s.Queue.EnqueueContext(r.Context(), task)
	if err != nil {
		writeError(w, r, err, "Error enqueueing task")
		return
	}
	writeJSON(w, http.StatusAccepted, schemas.TaskAccepted{TaskID: info.ID, Queue: info.Queue, Type: info.Type})
}

func (s *Server) refreshImageSize(w http.ResponseWriter, r *http.Request) {
	p, err := s.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Internal server error")
		return
	}
	task, err := worker.NewImageSizeTask(p.ID)
	s.enqueue(w, r, task, err)
}

func (s *Server) enqueueImport(w http.ResponseWriter, r *http.Request) {
	var req schemas.ImportRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err, "")
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeJSON(w, http.StatusBadRequest, errResp{"source is required"})
		return
	}
	task, err := worker.NewImportTask(strings.TrimSpace(req.Source))
	s.enqueue(w, r, task, err)
}

func (s *Server) enqueueExport(w http.ResponseWriter, r *http.Request) {
	var req schemas.ExportRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, err, "")
			return
		}
	}
	task, err := worker.NewExportTask(strings.TrimSpace(req.Destination))
	s.enqueue(w, r, task, err)
}
