package handlers

import (
	"errors"
	"io"
	"net/http"
	"net/http/httputil"
	"regexp"
	"strings"

	"github.com/MrSnakeDoc/bookmarker/internal/apperr"
	"github.com/MrSnakeDoc/bookmarker/internal/domain"
	"github.com/MrSnakeDoc/bookmarker/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarker/internal/logger"
	"github.com/MrSnakeDoc/bookmarker/internal/utils"
)

var hostName = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)

// Favicon fetches the favicon of ?domain= through the offline cache, so icons
// seen once keep showing while offline.
func Favicon(d deps.Deps) http.HandlerFunc {
	client := &http.Client{Transport: d.Registration}

	return func(w http.ResponseWriter, r *http.Request) {
		host := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("domain")))
		if host == "" || len(host) > 253 || !hostName.MatchString(host) {
			writeError(w, r, d.Logger, apperr.Newf(apperr.KindValidation, "invalid domain %q", host))
			return
		}

		req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, domain.FaviconLookup(host), nil)
		if err != nil {
			writeError(w, r, d.Logger, err)
			return
		}
		resp, err := client.Do(req)
		if err != nil {
			writeError(w, r, d.Logger, asNetworkError(err))
			return
		}
		defer utils.Close(resp.Body)

		for _, h := range []string{"Content-Type", "Cache-Control", "X-Bookmarker-Cache"} {
			if v := resp.Header.Get(h); v != "" {
				w.Header().Set(h, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			d.Logger.Debug("failed to write favicon", logger.Error(err))
		}
	}
}

// asNetworkError keeps the kind of a classified error. http.Client wraps
// transport errors in *url.Error, which errors.As sees through.
func asNetworkError(err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Wrap(apperr.KindNetwork, "upstream request failed", err)
}

// Offline serves the application shell origin through the offline cache.
func Offline(d deps.Deps) http.Handler {
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(d.Origin)
			pr.SetXForwarded()
		},
		Transport: d.Registration,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if errors.Is(err, r.Context().Err()) {
				return
			}
			d.Logger.Warn("offline proxy failed",
				logger.String("path", r.URL.Path),
				logger.Error(err))
			writeError(w, r, d.Logger, asNetworkError(err))
		},
	}
	return proxy
}
