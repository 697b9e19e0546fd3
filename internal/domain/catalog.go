package domain

import "strings"

// Format is the on-disk format a table's content is delivered in.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
)

// Extension returns the file extension (with the leading dot) for the format.
func (f Format) Extension() string {
	return "." + string(f)
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == FormatCSV || f == FormatParquet
}

// FormatFromExtension maps a file extension to a Format. The extension may
// be given with or without the leading dot and is matched case-insensitively.
func FormatFromExtension(ext string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "csv":
		return FormatCSV, true
	case "parquet":
		return FormatParquet, true
	default:
		return "", false
	}
}

// Share is the top-level named collection exposed to clients.
type Share struct {
	Name string
	ID   string
}

// Schema is a namespace of tables within a share.
type Schema struct {
	Name  string
	ID    string
	Share string
}

// Column describes one field of a table's logical schema.
type Column struct {
	Name     string
	Type     string // Delta primitive type name: long, integer, string, double, boolean, date
	Nullable bool
}

// Table is a named dataset with a fixed column schema and format.
type Table struct {
	Name     string
	ID       string
	Schema   string
	Share    string
	ShareID  string
	Columns  []Column
	Format   Format
	Version  int64
	RowCount int64 // advertised in file stats
	SizeHint int64 // advertised file size in bytes
}

// ObjectPath returns the logical file path of the table's content,
// e.g. "sample_data/customers.parquet".
func (t Table) ObjectPath() string {
	return t.Schema + "/" + t.Name + t.Format.Extension()
}

// FileDescriptor points a client at the bytes of a table. A fresh ID is
// generated on every issuance.
type FileDescriptor struct {
	URL             string
	ID              string
	PartitionValues map[string]string
	Size            int64
	Stats           string
}
