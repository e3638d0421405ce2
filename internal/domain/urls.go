package domain

import (
	"errors"
	"net/url"
	"strings"
)

// FaviconService is the lookup endpoint used when a bookmark has no favicon.
const FaviconService = "https://www.google.com/s2/favicons"

// ParseBookmarkURL accepts absolute http(s) URLs only.
func ParseBookmarkURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, errors.New("url is malformed")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New("url must use http or https")
	}
	if u.Hostname() == "" {
		return nil, errors.New("url has no host")
	}
	return u, nil
}

// DisplayHost is the hostname without a leading "www.".
func DisplayHost(u *url.URL) string {
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FaviconURL derives the favicon lookup URL for a bookmark address.
func FaviconURL(u *url.URL) string {
	return FaviconLookup(u.Hostname())
}

// FaviconLookup is the favicon service URL for a bare host name.
func FaviconLookup(host string) string {
	return FaviconService + "?domain=" + url.QueryEscape(host)
}
