// Package httpapi exposes worksheet sessions over a small JSON REST API.
package httpapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/sirupsen/logrus"
)

// Server holds one worksheet session per (spreadsheet, worksheet) pair, so the
// entry cache survives across requests
type Server struct {
	client *sheetrows.Client
	log    logrus.FieldLogger

	mu       sync.Mutex
	sessions map[sheetrows.WorksheetKeys]*session
}

// session serializes access to a Worksheet, which is not safe for concurrent use
type session struct {
	mu sync.Mutex
	ws *sheetrows.Worksheet
}

// NewServer creates a Server on top of client
func NewServer(client *sheetrows.Client, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		client:   client,
		log:      log,
		sessions: make(map[sheetrows.WorksheetKeys]*session),
	}
}

// Router returns the http handler with all routes applied
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	return s.applyRoutes(r)
}

func (s *Server) applyRoutes(r chi.Router) chi.Router {
	r.Get("/spreadsheets", s.listSpreadsheets)
	r.Route("/spreadsheets/{spreadsheet}/worksheets", func(r chi.Router) {
		r.Get("/", s.listWorksheets)
		r.Route("/{worksheet}", func(r chi.Router) {
			r.Post("/flush", s.flush)
			r.Route("/rows", func(r chi.Router) {
				r.Get("/", s.listRows)
				r.Post("/", s.insertRow)
				r.Delete("/", s.deleteAllRows)
				r.Patch("/by-index/{index}", s.updateRowByIndex)
				r.Delete("/by-index/{index}", s.deleteRowByIndex)
				r.Get("/{id}", s.getRow)
				r.Patch("/{id}", s.updateRow)
				r.Delete("/{id}", s.deleteRow)
			})
		})
	})
	return r
}

// session returns the session of the worksheet named in the request path
func (s *Server) session(r *http.Request) *session {
	keys := sheetrows.WorksheetKeys{
		SpreadsheetKey: chi.URLParam(r, "spreadsheet"),
		WorksheetKey:   chi.URLParam(r, "worksheet"),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[keys]
	if !ok {
		sess = &session{ws: s.client.Worksheet(keys.SpreadsheetKey, keys.WorksheetKey)}
		s.sessions[keys] = sess
	}
	return sess
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("request served")
	})
}
