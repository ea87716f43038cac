// Package resolve turns image references found in documents into absolute locations.
package resolve

import (
	"net/url"
	"path/filepath"
	"strings"
)

// ImagePath resolves src against the location of the document that references it.
// Absolute URLs, absolute file paths and data URIs are returned as-is (cleaned).
// Relative references are resolved against base, which may be a URL, a file://
// URL or a file path. An empty string is returned when the reference cannot be
// resolved: empty src, relative src without base, or an unsupported scheme.
func ImagePath(base, src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "data:") {
		return src
	}

	ref, err := url.Parse(src)
	if err != nil {
		return ""
	}

	if ref.IsAbs() {
		switch strings.ToLower(ref.Scheme) {
		case "http", "https":
			return ref.String()
		case "file":
			return filepath.Clean(ref.Path)
		default:
			return ""
		}
	}

	baseURL, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		baseURL = nil
	}

	if baseURL != nil && isWebScheme(baseURL.Scheme) {
		return baseURL.ResolveReference(ref).String()
	}

	// Protocol-relative reference without a web base.
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}

	if filepath.IsAbs(ref.Path) {
		return filepath.Clean(ref.Path)
	}

	basePath := strings.TrimSpace(base)
	if baseURL != nil && strings.EqualFold(baseURL.Scheme, "file") {
		basePath = baseURL.Path
	}
	if basePath == "" {
		return ""
	}

	dir := basePath
	if !strings.HasSuffix(basePath, "/") && !strings.HasSuffix(basePath, string(filepath.Separator)) {
		dir = filepath.Dir(basePath)
	}

	abs, err := filepath.Abs(filepath.Join(dir, filepath.FromSlash(ref.Path)))
	if err != nil {
		return ""
	}
	return abs
}

// Base applies an HTML <base href> to the declared document location.
// A relative href is resolved against the declared location.
func Base(declared, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return declared
	}
	ref, err := url.Parse(href)
	if err != nil {
		return declared
	}
	if ref.IsAbs() {
		return ref.String()
	}
	resolved := ImagePath(declared, href)
	if resolved == "" {
		return declared
	}
	if strings.HasSuffix(href, "/") && !strings.HasSuffix(resolved, "/") {
		resolved += "/"
	}
	return resolved
}

func isWebScheme(scheme string) bool {
	s := strings.ToLower(scheme)
	return s == "http" || s == "https"
}
