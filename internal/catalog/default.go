package catalog

// Identifiers of the built-in catalog. They are fixed so clients can cache by id.
const (
	DefaultShareName  = "fairgrounds_share"
	DefaultShareID    = "4f6a0c2e-8d1b-4b7a-9e3f-2a5c7d9e1b60"
	DefaultSchemaName = "sample_data"
	DefaultSchemaID   = "9b2d4e6f-1a3c-4e5b-8d7f-0c2e4a6b8d1f"
	DefaultVersion    = 486
)

func notNull() *bool {
	f := false
	return &f
}

// DefaultDefinition describes the built-in fairgrounds sample catalog.
func DefaultDefinition() Definition {
	return Definition{
		Share:   EntityDef{Name: DefaultShareName, ID: DefaultShareID},
		Schema:  EntityDef{Name: DefaultSchemaName, ID: DefaultSchemaID},
		Version: DefaultVersion,
		Tables: []TableDef{
			{
				Name:     "customers",
				ID:       "c1a5e7f0-3b2d-4c6e-9a8f-1d3b5c7e9f01",
				Format:   "parquet",
				RowCount: 10,
				Columns: []ColumnDef{
					{Name: "customer_id", Type: "long", Nullable: notNull()},
					{Name: "first_name", Type: "string"},
					{Name: "last_name", Type: "string"},
					{Name: "email", Type: "string"},
					{Name: "city", Type: "string"},
					{Name: "signup_date", Type: "date"},
				},
			},
			{
				Name:     "orders",
				ID:       "0d7e9a1b-5c3f-4e2d-8b6a-2f4c6e8a0b12",
				Format:   "csv",
				RowCount: 10,
				Columns: []ColumnDef{
					{Name: "order_id", Type: "long", Nullable: notNull()},
					{Name: "customer_id", Type: "long"},
					{Name: "product_id", Type: "long"},
					{Name: "quantity", Type: "integer"},
					{Name: "order_total", Type: "double"},
					{Name: "order_date", Type: "date"},
				},
			},
			{
				Name:     "products",
				ID:       "7f1c3e5a-9b2d-4f6e-a8c0-3e5a7c9e1b23",
				Format:   "csv",
				RowCount: 10,
				Columns: []ColumnDef{
					{Name: "product_id", Type: "long", Nullable: notNull()},
					{Name: "product_name", Type: "string"},
					{Name: "category", Type: "string"},
					{Name: "price", Type: "double"},
					{Name: "in_stock", Type: "boolean"},
				},
			},
		},
	}
}

// Default builds the built-in catalog. The definition is static, so a
// failure here is a programming error.
func Default() *Catalog {
	c, err := New(DefaultDefinition())
	if err != nil {
		panic("catalog: invalid built-in definition: " + err.Error())
	}
	return c
}
