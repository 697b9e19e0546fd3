// Package sharing builds Delta Sharing protocol responses from the catalog.
package sharing

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"deltashare-mock/internal/domain"
)

// MinReaderVersion is the protocol reader version every table advertises.
const MinReaderVersion = 1

// TableResponse is an NDJSON table response: the table version, sent as a
// header, and the lines of the body in order.
type TableResponse struct {
	Version int64
	Lines   []any
}

// Service answers protocol operations. It holds no mutable state.
type Service struct {
	catalog domain.CatalogReader
	token   string
	logger  *slog.Logger
}

// NewService creates a sharing service. token is embedded in every file URL
// handed out by Query.
func NewService(catalog domain.CatalogReader, token string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{catalog: catalog, token: token, logger: logger}
}

// ListShares returns every share. Pagination parameters are not supported;
// all items come back in one page.
func (s *Service) ListShares(_ context.Context) *ListResponse[ShareItem] {
	shares := s.catalog.Shares()
	items := make([]ShareItem, 0, len(shares))
	for _, sh := range shares {
		items = append(items, ShareItem{Name: sh.Name, ID: sh.ID})
	}
	return &ListResponse[ShareItem]{Items: items}
}

// GetShare returns one share.
func (s *Service) GetShare(_ context.Context, share string) (*ShareResponse, error) {
	sh, err := s.catalog.Share(share)
	if err != nil {
		return nil, err
	}
	return &ShareResponse{Share: ShareItem{Name: sh.Name, ID: sh.ID}}, nil
}

// ListSchemas returns the schemas of a share.
func (s *Service) ListSchemas(_ context.Context, share string) (*ListResponse[SchemaItem], error) {
	schemas, err := s.catalog.Schemas(share)
	if err != nil {
		return nil, err
	}
	items := make([]SchemaItem, 0, len(schemas))
	for _, sc := range schemas {
		items = append(items, SchemaItem{Name: sc.Name, ID: sc.ID, Share: sc.Share})
	}
	return &ListResponse[SchemaItem]{Items: items}, nil
}

// ListTables returns the tables of one schema.
func (s *Service) ListTables(_ context.Context, share, schema string) (*ListResponse[TableItem], error) {
	tables, err := s.catalog.Tables(share, schema)
	if err != nil {
		return nil, err
	}
	return &ListResponse[TableItem]{Items: tableItems(tables)}, nil
}

// ListAllTables returns the tables of every schema in a share.
func (s *Service) ListAllTables(_ context.Context, share string) (*ListResponse[TableItem], error) {
	tables, err := s.catalog.AllTables(share)
	if err != nil {
		return nil, err
	}
	return &ListResponse[TableItem]{Items: tableItems(tables)}, nil
}

func tableItems(tables []domain.Table) []TableItem {
	items := make([]TableItem, 0, len(tables))
	for _, t := range tables {
		items = append(items, TableItem{Name: t.Name, Schema: t.Schema, Share: t.Share, ShareID: t.ShareID, ID: t.ID})
	}
	return items
}

// Version returns the table's version.
func (s *Service) Version(_ context.Context, share, schema, table string) (int64, error) {
	t, err := s.catalog.Table(share, schema, table)
	if err != nil {
		return 0, err
	}
	return t.Version, nil
}

// Metadata returns the protocol and metadata lines for a table.
func (s *Service) Metadata(_ context.Context, share, schema, table string) (*TableResponse, error) {
	t, err := s.catalog.Table(share, schema, table)
	if err != nil {
		return nil, err
	}
	meta, err := metadataLine(t)
	if err != nil {
		return nil, err
	}
	return &TableResponse{
		Version: t.Version,
		Lines:   []any{protocolLine(), meta},
	}, nil
}

// Query returns the protocol and metadata lines followed by one file line.
// baseURL is the externally visible server root the file URL is built on.
func (s *Service) Query(ctx context.Context, share, schema, table string, req QueryRequest, baseURL string) (*TableResponse, error) {
	t, err := s.catalog.Table(share, schema, table)
	if err != nil {
		return nil, err
	}
	if req.LimitHint != nil || len(req.PredicateHints) > 0 || req.Version != nil {
		s.logger.DebugContext(ctx, "query hints ignored",
			"table", t.Share+"."+t.Schema+"."+t.Name,
			"limit_hint", req.LimitHint,
			"predicate_hints", len(req.PredicateHints),
		)
	}

	meta, err := metadataLine(t)
	if err != nil {
		return nil, err
	}
	desc, err := s.Descriptor(t, baseURL)
	if err != nil {
		return nil, err
	}
	return &TableResponse{
		Version: t.Version,
		Lines:   []any{protocolLine(), meta, fileLine(desc)},
	}, nil
}

func protocolLine() ProtocolLine {
	return ProtocolLine{Protocol: Protocol{MinReaderVersion: MinReaderVersion}}
}

func metadataLine(t domain.Table) (MetadataLine, error) {
	schemaString, err := SchemaString(t.Columns)
	if err != nil {
		return MetadataLine{}, fmt.Errorf("encode schema of %s: %w", t.Name, err)
	}
	return MetadataLine{MetaData: Metadata{
		ID:               t.ID,
		Name:             t.Name,
		Format:           FormatSpec{Provider: string(t.Format)},
		SchemaString:     schemaString,
		PartitionColumns: []string{},
		Configuration:    map[string]string{},
	}}, nil
}

// SchemaString serializes columns as a Delta struct type.
func SchemaString(columns []domain.Column) (string, error) {
	st := StructType{Type: "struct", Fields: make([]StructField, 0, len(columns))}
	for _, c := range columns {
		st.Fields = append(st.Fields, StructField{
			Name:     c.Name,
			Type:     c.Type,
			Nullable: c.Nullable,
			Metadata: map[string]any{},
		})
	}
	b, err := json.Marshal(st)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Descriptor issues a descriptor for t's content with a fresh ID.
func (s *Service) Descriptor(t domain.Table, baseURL string) (domain.FileDescriptor, error) {
	stats, err := json.Marshal(FileStats{
		NumRecords: t.RowCount,
		MinValues:  map[string]any{},
		MaxValues:  map[string]any{},
		NullCount:  map[string]any{},
	})
	if err != nil {
		return domain.FileDescriptor{}, fmt.Errorf("encode stats of %s: %w", t.Name, err)
	}
	return domain.FileDescriptor{
		URL:             s.FileURL(baseURL, t),
		ID:              domain.NewFileID(),
		PartitionValues: map[string]string{},
		Size:            t.SizeHint,
		Stats:           string(stats),
	}, nil
}

func fileLine(d domain.FileDescriptor) FileLine {
	pv := d.PartitionValues
	if pv == nil {
		pv = map[string]string{}
	}
	return FileLine{File: FileAction{
		URL:             d.URL,
		ID:              d.ID,
		PartitionValues: pv,
		Size:            d.Size,
		Stats:           d.Stats,
	}}
}

// FileURL returns the tokenized URL a client fetches t's content from.
func (s *Service) FileURL(baseURL string, t domain.Table) string {
	u := baseURL + "/files/" + url.PathEscape(t.Schema) + "/" + url.PathEscape(t.Name+t.Format.Extension())
	return u + "?" + url.Values{"token": {s.token}}.Encode()
}
