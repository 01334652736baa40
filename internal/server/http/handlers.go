package httpserver

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/rzbill/catalog/internal/catalog"
	"github.com/rzbill/catalog/internal/cursor"
	"github.com/rzbill/catalog/internal/storage"
	logpkg "github.com/rzbill/catalog/pkg/log"
)

const maxCursorBody = 4 << 10

// CatalogInfo tells clients where the served catalog lives.
type CatalogInfo struct {
	BaseAddress string `json:"baseAddress"`
	Index       string `json:"index"`
}

func (s *Server) handleCatalogInfo(w http.ResponseWriter, r *http.Request) {
	st := s.rt.Storage()
	WriteJSON(w, http.StatusOK, CatalogInfo{BaseAddress: st.BaseAddress(), Index: st.ResolveURI(catalog.RootName)})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		rel = catalog.RootName
	}
	if strings.Contains(rel, "..") {
		WriteError(w, http.StatusBadRequest, "invalid_path", "path must stay inside the catalog")
		return
	}
	st := s.rt.Storage()
	c, ok, err := st.Load(r.Context(), st.ResolveURI(rel))
	switch {
	case errors.Is(err, storage.ErrOutsideBase):
		WriteError(w, http.StatusBadRequest, "invalid_path", err.Error())
		return
	case err != nil:
		s.logger.Error("load document", logpkg.Str("path", rel), logpkg.Err(err))
		WriteError(w, http.StatusInternalServerError, "storage_error", "could not load document")
		return
	case !ok:
		WriteError(w, http.StatusNotFound, "not_found", rel)
		return
	}
	if c.ContentType != "" {
		w.Header().Set("Content-Type", c.ContentType)
	}
	if c.CacheControl != "" {
		w.Header().Set("Cache-Control", c.CacheControl)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(c.Data)
}

func (s *Server) handleListCursors(w http.ResponseWriter, r *http.Request) {
	all, err := s.rt.Cursors().List()
	if err != nil {
		s.logger.Error("list cursors", logpkg.Err(err))
		WriteError(w, http.StatusInternalServerError, "storage_error", "could not list cursors")
		return
	}
	WriteJSON(w, http.StatusOK, all)
}

func (s *Server) handleGetCursor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	c, ok, err := s.rt.Cursors().Get(name)
	switch {
	case errors.Is(err, cursor.ErrInvalidName):
		WriteError(w, http.StatusBadRequest, "invalid_name", err.Error())
		return
	case err != nil:
		s.logger.Error("get cursor", logpkg.Str("name", name), logpkg.Err(err))
		WriteError(w, http.StatusInternalServerError, "storage_error", "could not load cursor")
		return
	case !ok:
		WriteError(w, http.StatusNotFound, "not_found", name)
		return
	}
	WriteJSON(w, http.StatusOK, cursor.Document{Value: &c})
}

func (s *Server) handlePutCursor(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCursorBody))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	c, err := cursor.DecodeDocument(body)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}
	stored, err := s.rt.Cursors().Commit(r.Context(), name, c)
	switch {
	case errors.Is(err, cursor.ErrInvalidName):
		WriteError(w, http.StatusBadRequest, "invalid_name", err.Error())
		return
	case err != nil:
		s.logger.Error("commit cursor", logpkg.Str("name", name), logpkg.Err(err))
		WriteError(w, http.StatusInternalServerError, "storage_error", "could not store cursor")
		return
	}
	s.logger.Debug("cursor committed", logpkg.Str("name", name), logpkg.Str("value", stored.String()))
	WriteJSON(w, http.StatusOK, cursor.Document{Value: &stored})
}
