package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"deltashare-mock/internal/domain"
)

// Definition is the configuration a Catalog is built from. It is the shape
// of the optional YAML catalog file.
type Definition struct {
	Share   EntityDef  `yaml:"share"`
	Schema  EntityDef  `yaml:"schema"`
	Version int64      `yaml:"version"`
	Tables  []TableDef `yaml:"tables"`
}

// EntityDef names a share or schema. ID is derived from the name when empty.
type EntityDef struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// TableDef declares one table.
type TableDef struct {
	Name     string      `yaml:"name"`
	ID       string      `yaml:"id"`
	Format   string      `yaml:"format"`
	RowCount int64       `yaml:"rowCount"`
	SizeHint int64       `yaml:"sizeHint"`
	Columns  []ColumnDef `yaml:"columns"`
}

// ColumnDef declares one column. Nullable defaults to true.
type ColumnDef struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable"`
}

const defaultSizeHint = 1024

var primitiveTypes = map[string]bool{
	"string": true, "long": true, "integer": true, "short": true, "byte": true,
	"float": true, "double": true, "boolean": true, "binary": true,
	"date": true, "timestamp": true,
}

// New validates def and builds an immutable Catalog from it.
func New(def Definition) (*Catalog, error) {
	if def.Share.Name == "" {
		return nil, domain.ErrValidation("catalog: share name is required")
	}
	if def.Schema.Name == "" {
		return nil, domain.ErrValidation("catalog: schema name is required")
	}
	if def.Version <= 0 {
		return nil, domain.ErrValidation("catalog: version must be positive, got %d", def.Version)
	}
	if len(def.Tables) == 0 {
		return nil, domain.ErrValidation("catalog: at least one table is required")
	}

	share := domain.Share{Name: def.Share.Name, ID: def.Share.ID}
	if share.ID == "" {
		share.ID = domain.DeriveID(share.Name)
	}
	schema := domain.Schema{Name: def.Schema.Name, ID: def.Schema.ID, Share: share.Name}
	if schema.ID == "" {
		schema.ID = domain.DeriveID(share.Name + "." + schema.Name)
	}

	c := &Catalog{
		share:   share,
		schema:  schema,
		tables:  make([]domain.Table, 0, len(def.Tables)),
		byName:  make(map[string]int, len(def.Tables)),
		version: def.Version,
	}
	for _, td := range def.Tables {
		t, err := buildTable(td, share, schema, def.Version)
		if err != nil {
			return nil, err
		}
		if _, dup := c.byName[t.Name]; dup {
			return nil, domain.ErrValidation("catalog: duplicate table %q", t.Name)
		}
		c.byName[t.Name] = len(c.tables)
		c.tables = append(c.tables, t)
	}
	return c, nil
}

func buildTable(td TableDef, share domain.Share, schema domain.Schema, version int64) (domain.Table, error) {
	if td.Name == "" {
		return domain.Table{}, domain.ErrValidation("catalog: table name is required")
	}
	format := domain.Format(td.Format)
	if td.Format == "" {
		format = domain.FormatParquet
	}
	if !format.Valid() {
		return domain.Table{}, domain.ErrValidation("catalog: table %q has unsupported format %q", td.Name, td.Format)
	}
	if len(td.Columns) == 0 {
		return domain.Table{}, domain.ErrValidation("catalog: table %q has no columns", td.Name)
	}

	t := domain.Table{
		Name:     td.Name,
		ID:       td.ID,
		Schema:   schema.Name,
		Share:    share.Name,
		ShareID:  share.ID,
		Format:   format,
		Version:  version,
		RowCount: td.RowCount,
		SizeHint: td.SizeHint,
		Columns:  make([]domain.Column, 0, len(td.Columns)),
	}
	if t.ID == "" {
		t.ID = domain.DeriveID(share.Name + "." + schema.Name + "." + td.Name)
	}
	if t.SizeHint <= 0 {
		t.SizeHint = defaultSizeHint
	}

	seen := make(map[string]bool, len(td.Columns))
	for _, cd := range td.Columns {
		if cd.Name == "" {
			return domain.Table{}, domain.ErrValidation("catalog: table %q has a column without a name", td.Name)
		}
		if seen[cd.Name] {
			return domain.Table{}, domain.ErrValidation("catalog: table %q has duplicate column %q", td.Name, cd.Name)
		}
		seen[cd.Name] = true
		if !primitiveTypes[cd.Type] {
			return domain.Table{}, domain.ErrValidation("catalog: column %s.%s has unsupported type %q", td.Name, cd.Name, cd.Type)
		}
		nullable := true
		if cd.Nullable != nil {
			nullable = *cd.Nullable
		}
		t.Columns = append(t.Columns, domain.Column{Name: cd.Name, Type: cd.Type, Nullable: nullable})
	}
	return t, nil
}

// Parse decodes a YAML catalog definition. Unknown keys are rejected.
func Parse(r io.Reader) (Definition, error) {
	var def Definition
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return Definition{}, domain.ErrValidation("catalog: empty definition")
		}
		return Definition{}, fmt.Errorf("decode catalog: %w", err)
	}
	return def, nil
}

// LoadFile reads and builds a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	def, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c, err := New(def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Load returns the catalog described by path, or the built-in catalog when
// path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}
