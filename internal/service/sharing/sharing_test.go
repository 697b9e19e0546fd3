package sharing

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltashare-mock/internal/catalog"
	"deltashare-mock/internal/domain"
)

const (
	testToken = "tok en&x"
	baseURL   = "http://localhost:8080"
)

func newTestService() *Service {
	return NewService(catalog.Default(), testToken, nil)
}

func TestListShares(t *testing.T) {
	resp := newTestService().ListShares(context.Background())

	require.Len(t, resp.Items, 1)
	assert.Equal(t, ShareItem{Name: catalog.DefaultShareName, ID: catalog.DefaultShareID}, resp.Items[0])

	b, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "nextPageToken")
}

func TestGetShare(t *testing.T) {
	svc := newTestService()

	resp, err := svc.GetShare(context.Background(), catalog.DefaultShareName)
	require.NoError(t, err)
	assert.Equal(t, catalog.DefaultShareName, resp.Share.Name)

	_, err = svc.GetShare(context.Background(), "nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Share not found", nf.Message)
}

func TestListSchemasAndTables(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	schemas, err := svc.ListSchemas(ctx, catalog.DefaultShareName)
	require.NoError(t, err)
	require.Len(t, schemas.Items, 1)
	assert.Equal(t, SchemaItem{Name: catalog.DefaultSchemaName, ID: catalog.DefaultSchemaID, Share: catalog.DefaultShareName}, schemas.Items[0])

	tables, err := svc.ListTables(ctx, catalog.DefaultShareName, catalog.DefaultSchemaName)
	require.NoError(t, err)
	all, err := svc.ListAllTables(ctx, catalog.DefaultShareName)
	require.NoError(t, err)

	assert.Equal(t, all.Items, tables.Items)
	var names []string
	for _, it := range tables.Items {
		names = append(names, it.Name)
		assert.Equal(t, catalog.DefaultShareID, it.ShareID)
		assert.Equal(t, catalog.DefaultSchemaName, it.Schema)
	}
	assert.Equal(t, []string{"customers", "orders", "products"}, names)

	_, err = svc.ListTables(ctx, catalog.DefaultShareName, "nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Schema not found", nf.Message)
}

func TestVersion(t *testing.T) {
	svc := newTestService()

	v, err := svc.Version(context.Background(), catalog.DefaultShareName, catalog.DefaultSchemaName, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(catalog.DefaultVersion), v)

	_, err = svc.Version(context.Background(), catalog.DefaultShareName, catalog.DefaultSchemaName, "nope")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Table not found", nf.Message)
}

func TestMetadata(t *testing.T) {
	resp, err := newTestService().Metadata(context.Background(), catalog.DefaultShareName, catalog.DefaultSchemaName, "customers")
	require.NoError(t, err)

	assert.Equal(t, int64(catalog.DefaultVersion), resp.Version)
	require.Len(t, resp.Lines, 2)
	assert.Equal(t, ProtocolLine{Protocol: Protocol{MinReaderVersion: 1}}, resp.Lines[0])

	meta := resp.Lines[1].(MetadataLine).MetaData
	assert.Equal(t, "customers", meta.Name)
	assert.Equal(t, "parquet", meta.Format.Provider)
	assert.Empty(t, meta.PartitionColumns)
	assert.NotNil(t, meta.PartitionColumns)
	assert.NotNil(t, meta.Configuration)

	var st StructType
	require.NoError(t, json.Unmarshal([]byte(meta.SchemaString), &st))
	assert.Equal(t, "struct", st.Type)
	var fields []string
	for _, f := range st.Fields {
		fields = append(fields, f.Name)
		assert.NotNil(t, f.Metadata)
	}
	assert.Equal(t, []string{"customer_id", "first_name", "last_name", "email", "city", "signup_date"}, fields)
	assert.Equal(t, "long", st.Fields[0].Type)
	assert.False(t, st.Fields[0].Nullable)
	assert.True(t, st.Fields[1].Nullable)
}

func TestSchemaString_WireShape(t *testing.T) {
	s, err := SchemaString([]domain.Column{{Name: "id", Type: "long", Nullable: false}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"struct","fields":[{"name":"id","type":"long","nullable":false,"metadata":{}}]}`, s)
}

func TestQuery(t *testing.T) {
	svc := newTestService()
	limit := int64(5)

	resp, err := svc.Query(context.Background(), catalog.DefaultShareName, catalog.DefaultSchemaName, "orders",
		QueryRequest{LimitHint: &limit}, baseURL)
	require.NoError(t, err)
	require.Len(t, resp.Lines, 3)

	meta := resp.Lines[1].(MetadataLine).MetaData
	assert.Equal(t, "csv", meta.Format.Provider)

	file := resp.Lines[2].(FileLine).File
	u, err := url.Parse(file.URL)
	require.NoError(t, err)
	assert.Equal(t, "/files/sample_data/orders.csv", u.Path)
	assert.Equal(t, testToken, u.Query().Get("token"))
	assert.Equal(t, "localhost:8080", u.Host)
	_, err = uuid.Parse(file.ID)
	assert.NoError(t, err)
	assert.NotNil(t, file.PartitionValues)
	assert.Positive(t, file.Size)

	var stats FileStats
	require.NoError(t, json.Unmarshal([]byte(file.Stats), &stats))
	assert.Equal(t, int64(10), stats.NumRecords)
	assert.JSONEq(t, `{"numRecords":10,"minValues":{},"maxValues":{},"nullCount":{}}`, file.Stats)
}

func TestQuery_LimitHintDoesNotChangeResult(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	one := int64(1)

	a, err := svc.Query(ctx, catalog.DefaultShareName, catalog.DefaultSchemaName, "products", QueryRequest{}, baseURL)
	require.NoError(t, err)
	b, err := svc.Query(ctx, catalog.DefaultShareName, catalog.DefaultSchemaName, "products", QueryRequest{LimitHint: &one}, baseURL)
	require.NoError(t, err)

	fa, fb := a.Lines[2].(FileLine).File, b.Lines[2].(FileLine).File
	assert.Equal(t, fa.URL, fb.URL)
	assert.Equal(t, fa.Size, fb.Size)
	assert.Equal(t, fa.Stats, fb.Stats)
	assert.NotEqual(t, fa.ID, fb.ID, "file ids are fresh per query")
}

func TestDescriptor(t *testing.T) {
	svc := newTestService()
	tbl, err := catalog.Default().Table(catalog.DefaultShareName, catalog.DefaultSchemaName, "customers")
	require.NoError(t, err)

	a, err := svc.Descriptor(tbl, baseURL)
	require.NoError(t, err)
	b, err := svc.Descriptor(tbl, baseURL)
	require.NoError(t, err)

	assert.Equal(t, svc.FileURL(baseURL, tbl), a.URL)
	assert.Equal(t, tbl.SizeHint, a.Size)
	assert.Empty(t, a.PartitionValues)
	assert.NotEqual(t, a.ID, b.ID)

	line := fileLine(a)
	assert.Equal(t, a.URL, line.File.URL)
	assert.Equal(t, a.ID, line.File.ID)
	assert.Equal(t, a.Stats, line.File.Stats)

	raw, err := json.Marshal(fileLine(domain.FileDescriptor{URL: "u", ID: "i"}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"file":{"url":"u","id":"i","partitionValues":{},"size":0,"stats":""}}`, string(raw))
}

func TestQuery_UnknownTable(t *testing.T) {
	_, err := newTestService().Query(context.Background(), catalog.DefaultShareName, catalog.DefaultSchemaName, "nope", QueryRequest{}, baseURL)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Table not found", nf.Message)
}
