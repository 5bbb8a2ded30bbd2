package store

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"github.com/thereayou/zylo/pkg/apperrors"
)

// collection is one JSON array file kept fully in memory. Every flush rewrites
// the whole file through the handle opened at startup.
type collection[T any] struct {
	path  string
	file  *os.File
	items []T
}

func openCollection[T any](path string) (*collection[T], error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &collection[T]{path: path, file: f, items: []T{}}, nil
}

// load fills the collection from disk. A malformed file leaves the collection
// empty, keeps a copy of the bad bytes next to it and reports StoreCorrupt.
func (c *collection[T]) load() error {
	if _, err := c.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	data, err := io.ReadAll(c.file)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	var items []T
	if err := json.Unmarshal(data, &items); err != nil {
		_ = os.WriteFile(c.path+".corrupt", data, 0o644)
		c.items = []T{}
		return apperrors.StoreCorrupt(c.path, err)
	}
	if items == nil {
		items = []T{}
	}
	c.items = items
	return nil
}

func (c *collection[T]) flush() error {
	data, err := json.MarshalIndent(c.items, "", "  ")
	if err != nil {
		return apperrors.StoreWrite(c.path, err)
	}
	if err := c.file.Truncate(0); err != nil {
		return apperrors.StoreWrite(c.path, err)
	}
	if _, err := c.file.WriteAt(data, 0); err != nil {
		return apperrors.StoreWrite(c.path, err)
	}
	if err := c.file.Sync(); err != nil {
		return apperrors.StoreWrite(c.path, err)
	}
	return nil
}

func (c *collection[T]) close() error {
	return c.file.Close()
}
