package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	ferrors "github.com/appdock/appdock/internal/foundation/errors"
)

// handleListApps returns every managed application's current state.
func (s *Server) handleListApps(w http.ResponseWriter, r *http.Request) {
	s.Success(w, http.StatusOK, s.deps.Store.Snapshot().Apps)
}

// handleGetApp returns one application's state.
func (s *Server) handleGetApp(w http.ResponseWriter, r *http.Request) {
	appID := chi.URLParam(r, "id")

	app, err := s.deps.Store.Get(appID)
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryNotFound) {
			s.Error(w, http.StatusNotFound, "application not known")
			return
		}
		s.Error(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.Success(w, http.StatusOK, app)
}

// handleSnapshot returns the full consistent state snapshot with its revision,
// which is what change-feed consumers re-read after a cue.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	s.Success(w, http.StatusOK, s.deps.Store.Snapshot())
}

// CatalogItem is a catalog entry with its description rendered for display.
type CatalogItem struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	DescriptionHTML string `json:"description_html,omitempty"`
}

// handleCatalog searches the application catalog.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if s.deps.Catalog == nil {
		s.Success(w, http.StatusOK, []CatalogItem{})
		return
	}

	entries := s.deps.Catalog.Search(r.URL.Query().Get("q"))
	items := make([]CatalogItem, 0, len(entries))
	for _, e := range entries {
		item := CatalogItem{ID: e.ID, Name: e.Name, Description: e.Description}
		if html, err := s.deps.Catalog.DescriptionHTML(e); err == nil {
			item.DescriptionHTML = html
		}
		items = append(items, item)
	}
	s.Success(w, http.StatusOK, items)
}
