package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
)

func ListCategories(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Repo.Categories.GetAllCategories(r.Context())
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func CreateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.CategoryInput
		if err := decodeBody(r, &in); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		c, err := d.Repo.Categories.AddCategory(r.Context(), in)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func GetCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		c, err := d.Repo.Categories.GetCategory(r.Context(), id)
		if err == nil && c == nil {
			err = notFound("category", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func UpdateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var patch domain.CategoryPatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		c, err := d.Repo.Categories.UpdateCategory(r.Context(), id, patch)
		if err == nil && c == nil {
			err = notFound("category", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// DeleteCategory removes the category. Its bookmarks stay, uncategorized if
// it was their only one.
func DeleteCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		deleted, err := d.Repo.Categories.DeleteCategory(r.Context(), id)
		if err == nil && !deleted {
			err = notFound("category", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
