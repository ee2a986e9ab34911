package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	sheetrows "github.com/ideamans/go-sheetrows"
	"github.com/ideamans/go-sheetrows/internal/listquery"
)

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) listSpreadsheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.client.ListSpreadsheets(r.Context())
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, sheets)
}

func (s *Server) listWorksheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.client.ListWorksheets(r.Context(), chi.URLParam(r, "spreadsheet"))
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, sheets)
}

func (s *Server) flush(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.ws.FlushCache()
	w.WriteHeader(http.StatusNoContent)
}

// listRows accepts q, orderby and reverse for the feed query, plus repeated
// where=column=value pairs applied locally
func (s *Server) listRows(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	direction, err := sheetrows.ParseDirection(query.Get("reverse"))
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}
	predicate, err := wherePredicate(query["where"])
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	rows, err := sess.ws.Rows(r.Context(), sheetrows.RowsOptions{
		Filter:    query.Get("q"),
		OrderBy:   query.Get("orderby"),
		Direction: direction,
		Predicate: predicate,
	})
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, rows)
}

func (s *Server) getRow(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	row, err := sess.ws.GetRow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, row)
}

func (s *Server) insertRow(w http.ResponseWriter, r *http.Request) {
	row, ok := decodeRow(w, r)
	if !ok {
		return
	}

	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	inserted, err := sess.ws.InsertRow(r.Context(), row)
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusCreated, inserted)
}

func (s *Server) updateRow(w http.ResponseWriter, r *http.Request) {
	row, ok := decodeRow(w, r)
	if !ok {
		return
	}
	row[sheetrows.IDField] = chi.URLParam(r, "id")

	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	updated, err := sess.ws.UpdateRow(r.Context(), row)
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, updated)
}

func (s *Server) updateRowByIndex(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}
	row, ok := decodeRow(w, r)
	if !ok {
		return
	}

	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	updated, err := sess.ws.UpdateRowByIndex(r.Context(), index, row)
	if err != nil {
		s.sendError(w, err)
		return
	}
	sendJSON(w, http.StatusOK, updated)
}

func (s *Server) deleteRow(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.ws.DeleteRow(r.Context(), sheetrows.Row{sheetrows.IDField: chi.URLParam(r, "id")}); err != nil {
		s.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteRowByIndex(w http.ResponseWriter, r *http.Request) {
	index, ok := indexParam(w, r)
	if !ok {
		return
	}

	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.ws.DeleteRowByIndex(r.Context(), index); err != nil {
		s.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllRows(w http.ResponseWriter, r *http.Request) {
	sess := s.session(r)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.ws.DeleteAllRows(r.Context()); err != nil {
		s.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// statusOf maps library errors onto HTTP statuses
func statusOf(err error) int {
	switch {
	case errors.Is(err, listquery.ErrSyntax), errors.Is(err, listquery.ErrInvalidOrderBy):
		return http.StatusBadRequest
	case errors.Is(err, sheetrows.ErrMissingIdentifier), errors.Is(err, sheetrows.ErrIndexOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, sheetrows.ErrRowNotFound), errors.Is(err, sheetrows.ErrWorksheetNotFound):
		return http.StatusNotFound
	case errors.Is(err, sheetrows.ErrUpdateRejected), errors.Is(err, sheetrows.ErrInsertRejected),
		errors.Is(err, sheetrows.ErrRemoteUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) sendError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).Error("request failed")
	}
	sendJSON(w, status, errorBody{Error: err.Error()})
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeRow(w http.ResponseWriter, r *http.Request) (sheetrows.Row, bool) {
	var row sheetrows.Row
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid row body: %v", err)})
		return nil, false
	}
	if row == nil {
		row = sheetrows.Row{}
	}
	return row, true
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		sendJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("invalid index: %v", err)})
		return 0, false
	}
	return index, true
}

// wherePredicate builds an exact-match predicate from column=value pairs
func wherePredicate(pairs []string) (sheetrows.Predicate, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	want := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		col, value, ok := strings.Cut(pair, "=")
		if !ok || col == "" {
			return nil, fmt.Errorf("invalid where %q (want column=value)", pair)
		}
		want[col] = value
	}

	return func(row sheetrows.Row) bool {
		for col, value := range want {
			if row.GetAsString(col, "") != value {
				return false
			}
		}
		return true
	}, nil
}
