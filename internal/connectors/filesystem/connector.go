// Package filesystem reads documents from a local directory tree and watches it for changes.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
)

// maxFileSize is the largest file read into a document.
const maxFileSize = 32 << 20

// ErrClosed is returned when the connector has been closed.
var ErrClosed = errors.New("connector closed")

// Connector walks a directory and turns each supported file into a RawDocument.
// Source names are slash-separated paths relative to the root, optionally
// prefixed so that several trees can share one index.
type Connector struct {
	prefix   string
	rootPath string
	accept   map[string]bool

	mu      sync.Mutex
	closed  bool
	watcher *fsnotify.Watcher
}

// New creates a connector for rootPath. mimeTypes restricts the files read;
// an empty list accepts every file with a detectable type.
func New(prefix, rootPath string, mimeTypes []string) *Connector {
	var accept map[string]bool
	if len(mimeTypes) > 0 {
		accept = make(map[string]bool, len(mimeTypes))
		for _, mt := range mimeTypes {
			accept[mt] = true
		}
	}
	return &Connector{
		prefix:   strings.Trim(prefix, "/"),
		rootPath: rootPath,
		accept:   accept,
	}
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// SourceName returns the logical source name of a file under the root.
func (c *Connector) SourceName(path string) string {
	rel, err := filepath.Rel(c.rootPath, path)
	if err != nil {
		rel = filepath.Base(path)
	}
	name := filepath.ToSlash(rel)
	if c.prefix != "" {
		return c.prefix + "/" + name
	}
	return name
}

// Walk streams every supported file under the root.
// Both channels are closed when the walk finishes.
func (c *Connector) Walk(ctx context.Context) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		if err := c.checkRoot(); err != nil {
			errs <- err
			return
		}

		err := filepath.WalkDir(c.rootPath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logger.Warn("skipping %s: %v", path, err)
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if path != c.rootPath && isHidden(d.Name()) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			doc, ok := c.read(path)
			if !ok {
				return nil
			}
			select {
			case docs <- doc:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		if err != nil {
			errs <- err
		}
	}()

	return docs, errs
}

// Watch reports created, modified and deleted files until ctx is cancelled.
// New subdirectories are watched as they appear.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := c.checkRoot(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := addTree(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	c.watcher = watcher

	changes := make(chan domain.RawDocumentChange)
	go c.watchLoop(ctx, watcher, changes)
	return changes, nil
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, changes chan<- domain.RawDocumentChange) {
	defer close(changes)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			change, ok := c.translate(watcher, event)
			if !ok {
				continue
			}
			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// translate maps a filesystem event to a document change.
func (c *Connector) translate(watcher *fsnotify.Watcher, event fsnotify.Event) (domain.RawDocumentChange, bool) {
	if isHidden(filepath.Base(event.Name)) {
		return domain.RawDocumentChange{}, false
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return domain.RawDocumentChange{
			Type: domain.ChangeDeleted,
			Document: domain.RawDocument{
				Source:  c.SourceName(event.Name),
				BaseURI: event.Name,
			},
		}, true

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil {
			return domain.RawDocumentChange{}, false
		}
		if info.IsDir() {
			if event.Has(fsnotify.Create) {
				if err := addTree(watcher, event.Name); err != nil {
					logger.Warn("watch %s: %v", event.Name, err)
				}
			}
			return domain.RawDocumentChange{}, false
		}
		doc, ok := c.read(event.Name)
		if !ok {
			return domain.RawDocumentChange{}, false
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return domain.RawDocumentChange{Type: changeType, Document: doc}, true

	default:
		return domain.RawDocumentChange{}, false
	}
}

// Close stops any active watch. Close is idempotent.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// ReadFile loads a single file as a document named by source.
// An empty source uses the file name.
func ReadFile(path, source string) (domain.RawDocument, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.RawDocument{}, err
	}
	if info.IsDir() {
		return domain.RawDocument{}, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > maxFileSize {
		return domain.RawDocument{}, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, maxFileSize)
	}

	content, err := os.ReadFile(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return domain.RawDocument{}, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if source == "" {
		source = filepath.Base(path)
	}
	return domain.RawDocument{
		Source:   source,
		BaseURI:  abs,
		MIMEType: normalisers.DetectMIMEType(path, content),
		Content:  content,
	}, nil
}

// read loads a file under the root, reporting false for unsupported files.
func (c *Connector) read(path string) (domain.RawDocument, bool) {
	doc, err := ReadFile(path, c.SourceName(path))
	if err != nil {
		logger.Debug("skipping %s: %v", path, err)
		return domain.RawDocument{}, false
	}
	if doc.MIMEType == "" || (c.accept != nil && !c.accept[doc.MIMEType]) {
		logger.Debug("skipping %s: unsupported type %q", path, doc.MIMEType)
		return domain.RawDocument{}, false
	}
	return doc, true
}

func (c *Connector) checkRoot() error {
	info, err := os.Stat(c.rootPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("root path error: %s does not exist", c.rootPath)
		}
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}
	return nil
}

// addTree watches dir and every non-hidden directory below it.
func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isHidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
