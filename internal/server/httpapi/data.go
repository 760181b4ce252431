package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/datavault/internal/server/models"
)

func (r *Router) handleFetchItems(w http.ResponseWriter, req *http.Request) {
	items, err := r.svc.FetchItems(req.Context(), tokenFrom(req.Context()))
	if err != nil {
		r.fail(w, err)
		return
	}
	if items == nil {
		items = []models.DataItem{}
	}
	writeData(w, http.StatusOK, items)
}

func (r *Router) handleCreateItem(w http.ResponseWriter, req *http.Request) {
	var payload models.ItemPayload
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	item, err := r.svc.CreateItem(req.Context(), tokenFrom(req.Context()), payload)
	if err != nil {
		r.fail(w, err)
		return
	}
	writeData(w, http.StatusCreated, item)
}

func (r *Router) handleUpdateItem(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	var patch models.ItemPatch
	if err := json.NewDecoder(req.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	item, err := r.svc.UpdateItem(req.Context(), tokenFrom(req.Context()), id, patch)
	if err != nil {
		r.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, item)
}

func (r *Router) handleDeleteItem(w http.ResponseWriter, req *http.Request) {
	id := chi.URLParam(req, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}

	item, err := r.svc.DeleteItem(req.Context(), tokenFrom(req.Context()), id)
	if err != nil {
		r.fail(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]any{
		"message": "item deleted",
		"item":    item,
	})
}
