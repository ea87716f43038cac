// Package imageloader fetches image bytes referenced by documents.
package imageloader

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Loader implements the interface.
var _ driven.ImageLoader = (*Loader)(nil)

// Default limits.
const (
	DefaultMaxBytes = 20 << 20
	DefaultTimeout  = 30 * time.Second
)

// Config holds configuration for the image loader.
type Config struct {
	// MaxBytes rejects larger images (default: 20 MiB).
	MaxBytes int64

	// Timeout bounds remote fetches (default: 30s).
	Timeout time.Duration

	// AllowRemote enables http(s) fetches.
	AllowRemote bool
}

// Loader reads images from files, http(s) URLs and data URIs.
type Loader struct {
	client      *http.Client
	maxBytes    int64
	allowRemote bool
}

// New creates a loader.
func New(cfg Config) *Loader {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Loader{
		client:      &http.Client{Timeout: cfg.Timeout},
		maxBytes:    cfg.MaxBytes,
		allowRemote: cfg.AllowRemote,
	}
}

// Load returns the image data and its MIME type.
func (l *Loader) Load(ctx context.Context, location string) ([]byte, string, error) {
	location = strings.TrimSpace(location)
	switch {
	case location == "":
		return nil, "", fmt.Errorf("%w: empty image location", domain.ErrInvalidInput)
	case strings.HasPrefix(location, "data:"):
		return l.decodeDataURI(location)
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return l.fetch(ctx, location)
	default:
		return l.readFile(location)
	}
}

func (l *Loader) readFile(path string) ([]byte, string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", fmt.Errorf("stat image: %w", err)
	}
	if info.Size() > l.maxBytes {
		return nil, "", fmt.Errorf("%w: image %s is %d bytes", domain.ErrInvalidInput, path, info.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	mimeType, err := imageType(data, mime.TypeByExtension(strings.ToLower(filepath.Ext(path))))
	return data, mimeType, err
}

func (l *Loader) fetch(ctx context.Context, location string) ([]byte, string, error) {
	if !l.allowRemote {
		return nil, "", fmt.Errorf("%w: remote images disabled", domain.ErrUnsupportedType)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, http.NoBody)
	if err != nil {
		return nil, "", fmt.Errorf("create image request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, l.maxBytes)
	}

	declared := resp.Header.Get("Content-Type")
	if declared == "" {
		if u, err := url.Parse(location); err == nil {
			declared = mime.TypeByExtension(strings.ToLower(filepath.Ext(u.Path)))
		}
	}
	mimeType, err := imageType(data, declared)
	return data, mimeType, err
}

// decodeDataURI handles data:[<mediatype>][;base64],<data>.
func (l *Loader) decodeDataURI(uri string) ([]byte, string, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, "", fmt.Errorf("%w: malformed data URI", domain.ErrInvalidInput)
	}

	params := strings.Split(header, ";")
	declared := params[0]
	encoded := false
	for _, p := range params[1:] {
		if strings.EqualFold(p, "base64") {
			encoded = true
		}
	}

	var data []byte
	if encoded {
		decoded, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: decode data URI: %w", domain.ErrInvalidInput, err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("%w: decode data URI: %w", domain.ErrInvalidInput, err)
		}
		data = []byte(unescaped)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, "", fmt.Errorf("%w: image exceeds %d bytes", domain.ErrInvalidInput, l.maxBytes)
	}

	mimeType, err := imageType(data, declared)
	return data, mimeType, err
}

// imageType picks the declared type when it names an image, else sniffs the bytes.
func imageType(data []byte, declared string) (string, error) {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
			return mt, nil
		}
	}
	sniffed := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(sniffed); err == nil && strings.HasPrefix(mt, "image/") {
		return mt, nil
	}
	return "", fmt.Errorf("%w: not an image (%s)", domain.ErrUnsupportedType, sniffed)
}
