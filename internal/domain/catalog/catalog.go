// Package catalog holds the static list of entries a reel can land on.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/okian/gamespin/internal/domain/model"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// Sentinel errors.
var (
	ErrEmpty        = errors.New("catalog has no entries")
	ErrInvalidEntry = errors.New("invalid catalog entry")
	ErrUnknownEntry = errors.New("unknown catalog entry")
)

type document struct {
	Entries []model.Entry `yaml:"entries"`
}

// Catalog is an immutable, ordered set of entries keyed by ID.
type Catalog struct {
	entries []model.Entry
	byID    map[string]int
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a YAML catalog from path. An empty path yields Default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Entries)
}

// New validates entries and builds a catalog. Unknown rarities become
// common.
func New(entries []model.Entry) (*Catalog, error) {
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	c := &Catalog{
		entries: make([]model.Entry, 0, len(entries)),
		byID:    make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		e.ID = strings.TrimSpace(e.ID)
		if e.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no id", ErrInvalidEntry, i)
		}
		if e.Title == "" {
			return nil, fmt.Errorf("%w: %s has no title", ErrInvalidEntry, e.ID)
		}
		if _, dup := c.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidEntry, e.ID)
		}
		if !knownRarity(e.Rarity) {
			e.Rarity = model.RarityCommon
		}
		c.byID[e.ID] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c, nil
}

func knownRarity(r model.Rarity) bool {
	switch r {
	case model.RarityCommon, model.RarityUncommon, model.RarityRare, model.RarityEpic, model.RarityLegendary:
		return true
	}
	return false
}

// Entries returns a copy of all entries in file order.
func (c *Catalog) Entries() []model.Entry {
	return append([]model.Entry(nil), c.entries...)
}

// Len is the number of entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Get looks up an entry by ID.
func (c *Catalog) Get(id string) (model.Entry, bool) {
	i, ok := c.byID[id]
	if !ok {
		return model.Entry{}, false
	}
	return c.entries[i], true
}

// Contains reports whether id is in the catalog.
func (c *Catalog) Contains(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// Validate checks that every id is known.
func (c *Catalog) Validate(ids []string) error {
	for _, id := range ids {
		if !c.Contains(id) {
			return fmt.Errorf("%w: %s", ErrUnknownEntry, id)
		}
	}
	return nil
}
