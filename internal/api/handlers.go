package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quarryhq/quarry/internal/catalog"
	"github.com/quarryhq/quarry/internal/progress/sinks"
	"github.com/quarryhq/quarry/internal/scrape"
)

type siteInfo struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	BaseURL string `json:"base_url"`
}

func (s *Server) listSites(w http.ResponseWriter, _ *http.Request) {
	out := make([]siteInfo, 0, len(s.ordered))
	for _, ad := range s.ordered {
		out = append(out, siteInfo{Name: ad.Name, Kind: string(ad.Kind), BaseURL: ad.BaseURL})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) siteSearch(w http.ResponseWriter, r *http.Request) {
	ad, ok := s.adapters[chi.URLParam(r, "site")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown site")
		return
	}
	if ad.Kind != scrape.KindSearch {
		writeError(w, http.StatusBadRequest, "site does not support search")
		return
	}
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	rs, err := s.engine.Search(r.Context(), ad, term)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) siteGallery(w http.ResponseWriter, r *http.Request) {
	ad, ok := s.adapters[chi.URLParam(r, "site")]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown site")
		return
	}
	ref := scrape.GalleryRef{
		AlbumURL: r.URL.Query().Get("url"),
		Username: r.URL.Query().Get("user"),
	}
	if ref.AlbumURL == "" && ref.Username == "" {
		writeError(w, http.StatusBadRequest, "url or user parameter is required")
		return
	}
	rs, err := s.engine.Gallery(r.Context(), ad, ref)
	if err != nil {
		// The engine fails before any fetch only on bad input: wrong kind,
		// wrong host, missing reference.
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) searchAll(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	var searchable []scrape.Adapter
	for _, ad := range s.ordered {
		if ad.Kind == scrape.KindSearch {
			searchable = append(searchable, ad)
		}
	}
	writeJSON(w, http.StatusOK, s.engine.SearchAll(r.Context(), searchable, term))
}

type statsResponse struct {
	Visits int64 `json:"visits"`
	sinks.Snapshot
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	resp := statsResponse{Visits: s.visits.Load()}
	if s.stats != nil {
		resp.Snapshot = s.stats.Snapshot()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listServers(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotFound, "catalog not configured")
		return
	}
	servers, err := s.repo.ListServers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, servers)
}

func (s *Server) getServer(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotFound, "catalog not configured")
		return
	}
	server, err := s.repo.GetServer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, server)
}

func (s *Server) listModels(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotFound, "catalog not configured")
		return
	}
	models, err := s.repo.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "catalog unavailable")
		return
	}
	writeJSON(w, http.StatusOK, models)
}

func (s *Server) getModel(w http.ResponseWriter, r *http.Request) {
	if s.repo == nil {
		writeError(w, http.StatusNotFound, "catalog not configured")
		return
	}
	model, err := s.repo.GetModel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeCatalogError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model)
}

func writeCatalogError(w http.ResponseWriter, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeError(w, http.StatusInternalServerError, "catalog unavailable")
}
