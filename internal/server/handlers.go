package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/roach88/todosync/internal/todo"
)

type createRequest struct {
	Title string `json:"title"`
}

type deleteResponse struct {
	ID string `json:"id"`
}

func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	var (
		items []todo.Item
		err   error
	)
	if search := strings.TrimSpace(r.URL.Query().Get("search")); search != "" {
		items, err = s.svc.Search(r.Context(), search)
	} else {
		items, err = s.svc.List(r.Context())
	}
	if err != nil {
		writeError(w, err)
		return
	}
	if items == nil {
		items = []todo.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) getItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) createItem(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.svc.Create(r.Context(), req.Title)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) updateItem(w http.ResponseWriter, r *http.Request) {
	var patch todo.Patch
	if err := decodeBody(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	item, err := s.svc.Update(r.Context(), mux.Vars(r)["id"], patch.Completed)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) deleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := s.svc.Delete(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: id})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"streams": s.gw.Len(),
	})
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a JSON object, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return todo.NewValidationError("body", err.Error())
	}
	return nil
}

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes one failure. Field is set for validation errors and
// ID for not-found errors.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
	ID      string `json:"id,omitempty"`
}

// Error codes.
const (
	CodeValidation = "validation"
	CodeNotFound   = "not_found"
	CodeInternal   = "internal"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var (
		ve *todo.ValidationError
		ne *todo.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: ErrorDetail{
			Code: CodeValidation, Message: ve.Message, Field: ve.Field,
		}})
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, ErrorBody{Error: ErrorDetail{
			Code: CodeNotFound, Message: ne.Error(), ID: ne.ID,
		}})
	default:
		slog.Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: ErrorDetail{
			Code: CodeInternal, Message: "internal error",
		}})
	}
}
