package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
)

type bookmarkCreateRequest struct {
	domain.BookmarkInput
	Categories []int64 `json:"categories"`
}

type bookmarkUpdateRequest struct {
	domain.BookmarkPatch
	// nil leaves the links untouched, [] removes them all.
	Categories *[]int64 `json:"categories"`
}

// ListBookmarks answers GET /api/bookmarks with the filtered listing.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := parseFilters(r, d)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		list, err := d.Repo.Bookmarks.FilterBookmarks(r.Context(), f)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// parseFilters reads category, q, from, to, sort and order. Without an
// explicit sort the user's sortOrder preference applies.
func parseFilters(r *http.Request, d deps.Deps) (domain.Filters, error) {
	q := r.URL.Query()
	f := domain.Filters{
		CategoryID: strings.TrimSpace(q.Get("category")),
		Query:      strings.TrimSpace(q.Get("q")),
	}

	var err error
	if f.DateFrom, err = parseDate(q.Get("from"), false); err != nil {
		return f, err
	}
	if f.DateTo, err = parseDate(q.Get("to"), true); err != nil {
		return f, err
	}
	if _, _, err := f.CategoryScope(); err != nil {
		return f, apperr.Wrap(apperr.KindValidation, "invalid category filter", err)
	}

	sort, order := q.Get("sort"), q.Get("order")
	if sort == "" && order == "" && d.Settings != nil {
		f.SortBy, f.SortOrder = d.Settings.Get().Sort()
		return f, nil
	}
	if f.SortBy, err = domain.ParseSortField(sort); err != nil {
		return f, apperr.Wrap(apperr.KindValidation, "invalid sort", err)
	}
	if f.SortOrder, err = domain.ParseSortOrder(order); err != nil {
		return f, apperr.Wrap(apperr.KindValidation, "invalid order", err)
	}
	return f, nil
}

// parseDate accepts epoch milliseconds or a YYYY-MM-DD day. A day used as an
// upper bound covers the whole day.
func parseDate(raw string, endOfDay bool) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ms, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.UTC)
	if err != nil {
		return 0, apperr.Newf(apperr.KindValidation, "invalid date %q", raw)
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Millisecond)
	}
	return day.UnixMilli(), nil
}

func CreateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bookmarkCreateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Repo.Bookmarks.AddBookmark(r.Context(), req.BookmarkInput, req.Categories)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		d.Logger.Info("🔖 bookmark created", logger.Int64("id", b.ID), logger.String("url", b.URL))
		writeJSON(w, http.StatusCreated, b)
	}
}

func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Repo.Bookmarks.GetBookmark(r.Context(), id)
		if err == nil && b == nil {
			err = notFound("bookmark", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func UpdateBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var req bookmarkUpdateRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		var categoryIDs []int64
		if req.Categories != nil {
			categoryIDs = append([]int64{}, *req.Categories...)
		}
		b, err := d.Repo.Bookmarks.UpdateBookmark(r.Context(), id, req.BookmarkPatch, categoryIDs)
		if err == nil && b == nil {
			err = notFound("bookmark", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func DeleteBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		deleted, err := d.Repo.Bookmarks.DeleteBookmark(r.Context(), id)
		if err == nil && !deleted {
			err = notFound("bookmark", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// VisitBookmark records one visit and returns the updated bookmark.
func VisitBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		b, err := d.Repo.Bookmarks.RecordVisit(r.Context(), id)
		if err == nil && b == nil {
			err = notFound("bookmark", id)
		}
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

func SearchBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := d.Repo.Bookmarks.SearchBookmarks(r.Context(), r.URL.Query().Get("q"))
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
