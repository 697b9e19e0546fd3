// Package catalog holds the immutable share → schema → table catalog served
// by the sharing API. It is built once at startup and never mutated.
package catalog

import (
	"slices"

	"deltashare-mock/internal/domain"
)

var _ domain.CatalogReader = (*Catalog)(nil)

// Catalog is a single share containing a single schema of tables.
// Lookups are exact and case-sensitive.
type Catalog struct {
	share   domain.Share
	schema  domain.Schema
	tables  []domain.Table
	byName  map[string]int
	version int64
}

// Version returns the fixed table version advertised for this run.
func (c *Catalog) Version() int64 { return c.version }

// Shares lists every share. There is exactly one.
func (c *Catalog) Shares() []domain.Share {
	return []domain.Share{c.share}
}

// Share returns the share named name.
func (c *Catalog) Share(name string) (domain.Share, error) {
	if name != c.share.Name {
		return domain.Share{}, domain.ErrNotFound("Share not found")
	}
	return c.share, nil
}

// Schemas lists the schemas of a share.
func (c *Catalog) Schemas(share string) ([]domain.Schema, error) {
	if _, err := c.Share(share); err != nil {
		return nil, err
	}
	return []domain.Schema{c.schema}, nil
}

// Schema returns one schema of a share.
func (c *Catalog) Schema(share, schema string) (domain.Schema, error) {
	if _, err := c.Share(share); err != nil {
		return domain.Schema{}, err
	}
	if schema != c.schema.Name {
		return domain.Schema{}, domain.ErrNotFound("Schema not found")
	}
	return c.schema, nil
}

// Tables lists the tables of one schema in declaration order.
func (c *Catalog) Tables(share, schema string) ([]domain.Table, error) {
	if _, err := c.Schema(share, schema); err != nil {
		return nil, err
	}
	return c.cloneTables(), nil
}

// AllTables lists the tables of every schema in a share.
func (c *Catalog) AllTables(share string) ([]domain.Table, error) {
	if _, err := c.Share(share); err != nil {
		return nil, err
	}
	return c.cloneTables(), nil
}

// Table returns a single table.
func (c *Catalog) Table(share, schema, table string) (domain.Table, error) {
	if _, err := c.Schema(share, schema); err != nil {
		return domain.Table{}, err
	}
	i, ok := c.byName[table]
	if !ok {
		return domain.Table{}, domain.ErrNotFound("Table not found")
	}
	return cloneTable(c.tables[i]), nil
}

func (c *Catalog) cloneTables() []domain.Table {
	out := make([]domain.Table, len(c.tables))
	for i, t := range c.tables {
		out[i] = cloneTable(t)
	}
	return out
}

func cloneTable(t domain.Table) domain.Table {
	t.Columns = slices.Clone(t.Columns)
	return t
}
