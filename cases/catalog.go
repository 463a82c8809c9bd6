package cases

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Catalog holds the current case table and can swap it for a freshly loaded one.
type Catalog struct {
	mu       sync.RWMutex
	path     string
	table    *Table
	loadedAt time.Time
}

// NewCatalog loads the workbook at path.
func NewCatalog(path string) (*Catalog, error) {
	c := &Catalog{path: path}
	if _, err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewStaticCatalog wraps an already built table; Reload on it fails.
func NewStaticCatalog(t *Table) *Catalog {
	return &Catalog{table: t, loadedAt: time.Now()}
}

// Table returns the current table.
func (c *Catalog) Table() *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.table
}

// LoadedAt is when the current table was loaded.
func (c *Catalog) LoadedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loadedAt
}

// Reload re-reads the workbook and swaps the table in. On error the
// previous table stays in place.
func (c *Catalog) Reload() (int, error) {
	if c.path == "" {
		return 0, fmt.Errorf("catalog has no source workbook")
	}
	rows, err := LoadXLSX(c.path)
	if err != nil {
		return 0, err
	}
	t := NewTable(rows)

	c.mu.Lock()
	c.table = t
	c.loadedAt = time.Now()
	c.mu.Unlock()

	log.Printf("Case catalog reloaded: %d rows, %d phases", t.Len(), len(t.Phases()))
	return t.Len(), nil
}
