package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		ok   bool
	}{
		{".csv", FormatCSV, true},
		{"csv", FormatCSV, true},
		{".PARQUET", FormatParquet, true},
		{".json", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := FormatFromExtension(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
	}
}

func TestFormat_ExtensionAndValid(t *testing.T) {
	assert.Equal(t, ".csv", FormatCSV.Extension())
	assert.Equal(t, ".parquet", FormatParquet.Extension())
	assert.True(t, FormatCSV.Valid())
	assert.False(t, Format("delta").Valid())
}

func TestTable_ObjectPath(t *testing.T) {
	tbl := Table{Name: "orders", Schema: "sample_data", Format: FormatCSV}
	assert.Equal(t, "sample_data/orders.csv", tbl.ObjectPath())
}

func TestIDs(t *testing.T) {
	assert.NotEqual(t, NewFileID(), NewFileID())
	_, err := uuid.Parse(NewFileID())
	assert.NoError(t, err)

	assert.Equal(t, DeriveID("a.b"), DeriveID("a.b"))
	assert.NotEqual(t, DeriveID("a.b"), DeriveID("a.c"))
}
