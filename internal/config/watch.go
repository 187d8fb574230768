package config

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"time"
)

const defaultCatalogPath = "configs/courts.yaml"

// catalogWatcher reloads the catalog when the file content changes. Touching
// the file without editing it is not a reload.
type catalogWatcher struct {
	path     string
	digest   [sha256.Size]byte
	missing  bool
	onUpdate func(*Catalog)
	onError  func(error)
}

// WatchCatalog loads the catalog, hands it to onUpdate and then checks the
// file every interval until ctx is done. The first load must succeed. Later
// failures go to onError once per bad version and the last good catalog stays
// in use.
func WatchCatalog(ctx context.Context, path string, interval time.Duration, onUpdate func(*Catalog), onError func(error)) error {
	if path == "" {
		path = defaultCatalogPath
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	w := &catalogWatcher{path: path, onUpdate: onUpdate, onError: onError}
	if err := w.load(); err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := w.load(); err != nil && w.onError != nil {
					w.onError(err)
				}
			}
		}
	}()
	return nil
}

// load reads the file and publishes it if the content is new. It returns nil
// when nothing changed or when the failure was already reported.
func (w *catalogWatcher) load() error {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if w.missing {
			return nil
		}
		w.missing = true
		return fmt.Errorf("read catalog: %w", err)
	}
	w.missing = false

	sum := sha256.Sum256(data)
	if sum == w.digest {
		return nil
	}
	w.digest = sum

	c, err := ParseCatalog(data)
	if err != nil {
		return err
	}
	if w.onUpdate != nil {
		w.onUpdate(c)
	}
	return nil
}
