package config

import "sync/atomic"

type catalogSnapshot struct {
	catalog *Catalog
	version uint64
}

// CatalogStore holds the current catalog. Reloads swap the whole value and
// bump the version, so anything derived from a catalog can be keyed by it.
type CatalogStore struct {
	current atomic.Pointer[catalogSnapshot]
}

func NewCatalogStore(c *Catalog) *CatalogStore {
	s := &CatalogStore{}
	s.current.Store(&catalogSnapshot{catalog: c, version: 1})
	return s
}

// Current returns the latest catalog.
func (s *CatalogStore) Current() *Catalog {
	return s.current.Load().catalog
}

// Snapshot returns the latest catalog together with its version.
func (s *CatalogStore) Snapshot() (*Catalog, uint64) {
	snap := s.current.Load()
	return snap.catalog, snap.version
}

// Replace swaps in a freshly loaded catalog. Nil is ignored.
func (s *CatalogStore) Replace(c *Catalog) {
	if c == nil {
		return
	}
	for {
		old := s.current.Load()
		if s.current.CompareAndSwap(old, &catalogSnapshot{catalog: c, version: old.version + 1}) {
			return
		}
	}
}
