package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/startup-factory/unitalk/pkg/mediaflow"
)

// CollectionHandler serves the media attached to a collection
type CollectionHandler struct {
	service mediaflow.Service
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(service mediaflow.Service) *CollectionHandler {
	return &CollectionHandler{service: service}
}

// Routes returns the router for collection endpoints
func (h *CollectionHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{kind}/{collection_id}/media", h.ListMedia)
	return r
}

// ListMedia lists viewable media attached to a collection
func (h *CollectionHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	kind := mediaflow.CollectionKind(chi.URLParam(r, "kind"))
	if !kind.IsValid() {
		http.Error(w, "Invalid collection kind", http.StatusBadRequest)
		return
	}

	collectionID, err := uuid.Parse(chi.URLParam(r, "collection_id"))
	if err != nil {
		http.Error(w, "Invalid collection ID", http.StatusBadRequest)
		return
	}

	assets, err := h.service.ListAttachedMedia(r.Context(), mediaflow.CollectionTarget{
		Kind: kind,
		ID:   collectionID,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := make([]MediaResponse, 0, len(assets))
	for _, asset := range assets {
		resp = append(resp, mediaResponse(asset))
	}

	render.JSON(w, r, resp)
}
