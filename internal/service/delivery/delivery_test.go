package delivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltashare-mock/internal/domain"
	"deltashare-mock/internal/testutil"
)

const testBucket = "delta-sharing-data"

var customersCSV = []byte("customer_id,first_name\n1,Ava\n2,Liam\n")

func seedFS() fstest.MapFS {
	return fstest.MapFS{
		"sample_data/customers.csv": {Data: customersCSV},
	}
}

type recorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *recorder) RecordDelivery(format, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, format+":"+outcome)
}

func newTestService(store domain.ObjectStore, seed fstest.MapFS, rec Recorder) *Service {
	opts := Options{Bucket: testBucket, Recorder: rec}
	if seed != nil {
		opts.Seed = seed
	}
	return NewService(store, opts, nil)
}

func readAll(t *testing.T, p *Payload) []byte {
	t.Helper()
	defer p.Body.Close() //nolint:errcheck
	data, err := io.ReadAll(p.Body)
	require.NoError(t, err)
	return data
}

func states(res *Resolution) []State {
	out := make([]State, 0, len(res.Transitions))
	for _, tr := range res.Transitions {
		out = append(out, tr.To)
	}
	return out
}

func TestParsePath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Request
		wantErr string
	}{
		{"csv", "sample_data/customers.csv", Request{"sample_data", "customers", domain.FormatCSV}, ""},
		{"parquet with leading slash", "/sample_data/orders.parquet", Request{"sample_data", "orders", domain.FormatParquet}, ""},
		{"uppercase extension", "sample_data/orders.CSV", Request{"sample_data", "orders", domain.FormatCSV}, ""},
		{"unsupported extension", "sample_data/customers.json", Request{}, "Unsupported file format"},
		{"no extension", "sample_data/customers", Request{}, "Unsupported file format"},
		{"traversal", "../etc/passwd.csv", Request{}, "Invalid file path"},
		{"missing schema", "customers.csv", Request{}, "Invalid file path"},
		{"nested", "a/b/customers.csv", Request{}, "Invalid file path"},
		{"empty table", "sample_data/.csv", Request{}, "Invalid file path"},
		{"empty", "", Request{}, "Invalid file path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			if tt.wantErr != "" {
				var ve *domain.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantErr, ve.Message)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDeliver_ParquetNeverTouchesStore(t *testing.T) {
	store := testutil.NewMockObjectStore()
	svc := newTestService(store, seedFS(), nil)

	for _, table := range []string{"customers", "orders", "products", "unknown_table"} {
		p, err := svc.Deliver(context.Background(), "sample_data/"+table+".parquet")
		require.NoError(t, err, table)
		data := readAll(t, p)

		assert.Equal(t, "application/octet-stream", p.ContentType)
		assert.Equal(t, SourceSynthetic, p.Source)
		assert.Equal(t, int64(len(data)), p.Size)
		assert.Equal(t, []byte("PAR1"), data[:4], table)
		assert.Equal(t, []byte("PAR1"), data[len(data)-4:], table)
	}
	assert.Equal(t, 0, store.CallCount())
}

func TestSyntheticParquet_Readable(t *testing.T) {
	tests := []struct {
		table string
		rows  int64
		cols  []string
	}{
		{"customers", 5, []string{"customer_id", "first_name", "last_name", "email", "city", "signup_date"}},
		{"orders", 5, []string{"order_id", "customer_id", "product_id", "quantity", "order_total", "order_date"}},
		{"products", 5, []string{"product_id", "product_name", "category", "price", "in_stock"}},
		{"anything_else", 1, []string{"id", "value"}},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			data, err := SyntheticParquet(tt.table)
			require.NoError(t, err)

			mem := memory.NewGoAllocator()
			tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(data),
				parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
			require.NoError(t, err)
			defer tbl.Release()

			assert.Equal(t, tt.rows, tbl.NumRows())
			var names []string
			for _, f := range tbl.Schema().Fields() {
				names = append(names, f.Name)
			}
			assert.Equal(t, tt.cols, names)
		})
	}
}

func TestSyntheticParquet_Deterministic(t *testing.T) {
	a, err := SyntheticParquet("orders")
	require.NoError(t, err)
	b, err := SyntheticParquet("orders")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDeliver_CSVSeedsEmptyStore(t *testing.T) {
	store := testutil.NewMockObjectStore()
	rec := &recorder{}
	svc := newTestService(store, seedFS(), rec)

	p, err := svc.Deliver(context.Background(), "sample_data/customers.csv")
	require.NoError(t, err)

	assert.Equal(t, customersCSV, readAll(t, p))
	assert.Equal(t, "text/csv", p.ContentType)
	assert.Equal(t, "customers.csv", p.Filename)
	assert.Equal(t, SourceStore, p.Source)
	assert.True(t, store.Buckets[testBucket])
	assert.Equal(t, 1, store.CallsTo("MakeBucket"))
	assert.Equal(t, 1, store.CallsTo("PutObject"))
	assert.Equal(t, []string{"csv:ok"}, rec.seen)
}

func TestResolve_Transitions(t *testing.T) {
	t.Run("fresh store goes through initializing", func(t *testing.T) {
		svc := newTestService(testutil.NewMockObjectStore(), seedFS(), nil)

		res := svc.Resolve(context.Background(), "sample_data", "customers")
		require.NoError(t, res.Err)
		assert.Equal(t, StateReady, res.State)
		assert.True(t, res.Seeded)
		assert.Equal(t, []State{StateInitializing, StateReady}, states(res))
		assert.Equal(t, "sample_data/customers.csv", res.Key)
	})

	t.Run("second resolution is a no-op", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		svc := newTestService(store, seedFS(), nil)

		first := svc.Resolve(context.Background(), "sample_data", "customers")
		require.Equal(t, StateReady, first.State)

		second := svc.Resolve(context.Background(), "sample_data", "customers")
		assert.Equal(t, StateReady, second.State)
		assert.False(t, second.Seeded)
		assert.Equal(t, []State{StateReady}, states(second))
		assert.Equal(t, 1, store.CallsTo("MakeBucket"))
		assert.Equal(t, 1, store.CallsTo("PutObject"))
	})

	t.Run("key prefix applies to object key only", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		svc := NewService(store, Options{Bucket: testBucket, KeyPrefix: "lake/", Seed: seedFS()}, nil)

		res := svc.Resolve(context.Background(), "sample_data", "customers")
		require.Equal(t, StateReady, res.State)
		assert.Contains(t, store.Objects, testBucket+"/lake/sample_data/customers.csv")
	})

	t.Run("no seed file is not found after retry", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		svc := newTestService(store, seedFS(), nil)

		res := svc.Resolve(context.Background(), "sample_data", "orders")
		assert.Equal(t, StateFailed, res.State)
		var nf *domain.NotFoundError
		require.ErrorAs(t, res.Err, &nf)
		assert.Equal(t, "File not found", nf.Message)
		// initial check plus two re-checks
		assert.Equal(t, 3, store.CallsTo("StatObject"))
		assert.Equal(t, 0, store.CallsTo("PutObject"))
	})

	t.Run("object appearing on retry is ready", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		stats := 0
		store.StatObjectFn = func(_ context.Context, bucket, key string) (domain.ObjectInfo, error) {
			stats++
			if stats < 3 {
				return domain.ObjectInfo{}, domain.ErrNotFound("absent")
			}
			return domain.ObjectInfo{Key: key, Size: 10}, nil
		}
		svc := newTestService(store, nil, nil)

		res := svc.Resolve(context.Background(), "sample_data", "orders")
		assert.Equal(t, StateReady, res.State)
		assert.Equal(t, 3, stats)
	})
}

func TestResolve_StoreFailures(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("unreachable store", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		store.BucketExistsFn = func(context.Context, string) (bool, error) {
			return false, domain.ErrUnavailable(boom, "object store unreachable")
		}
		svc := newTestService(store, seedFS(), nil)

		res := svc.Resolve(context.Background(), "sample_data", "customers")
		assert.Equal(t, StateFailed, res.State)
		var ue *domain.UnavailableError
		require.ErrorAs(t, res.Err, &ue)
		assert.Equal(t, 1, store.CallCount())
	})

	t.Run("bucket creation failure is unavailable", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		store.MakeBucketFn = func(context.Context, string) error {
			return domain.ErrStorage("AccessDenied", nil, "create bucket")
		}
		svc := newTestService(store, seedFS(), nil)

		res := svc.Resolve(context.Background(), "sample_data", "customers")
		var ue *domain.UnavailableError
		require.ErrorAs(t, res.Err, &ue)
		assert.Equal(t, 0, store.CallsTo("StatObject"))
	})

	t.Run("upload failure is unavailable", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		store.PutObjectFn = func(context.Context, string, string, io.Reader, int64, string) error {
			return boom
		}
		svc := newTestService(store, seedFS(), nil)

		res := svc.Resolve(context.Background(), "sample_data", "customers")
		assert.Equal(t, StateFailed, res.State)
		var ue *domain.UnavailableError
		require.ErrorAs(t, res.Err, &ue)
		assert.ErrorIs(t, res.Err, boom)
	})

	t.Run("other stat error keeps its classification", func(t *testing.T) {
		store := testutil.NewMockObjectStore()
		store.StatObjectFn = func(context.Context, string, string) (domain.ObjectInfo, error) {
			return domain.ObjectInfo{}, domain.ErrStorage("AccessDenied", nil, "stat object")
		}
		svc := newTestService(store, seedFS(), nil)

		res := svc.Resolve(context.Background(), "sample_data", "customers")
		var se *domain.StorageError
		require.ErrorAs(t, res.Err, &se)
		assert.Equal(t, "AccessDenied", se.Code)
		assert.Equal(t, 0, store.CallsTo("PutObject"))
	})
}

func TestDeliver_RecordsOutcomes(t *testing.T) {
	store := testutil.NewMockObjectStore()
	rec := &recorder{}
	svc := newTestService(store, fstest.MapFS{}, rec)

	_, err := svc.Deliver(context.Background(), "sample_data/customers.xlsx")
	require.Error(t, err)
	_, err = svc.Deliver(context.Background(), "sample_data/missing.csv")
	require.Error(t, err)
	p, err := svc.Deliver(context.Background(), "sample_data/products.parquet")
	require.NoError(t, err)
	_ = p.Body.Close()

	assert.Equal(t, []string{"invalid:rejected", "csv:not_found", "parquet:ok"}, rec.seen)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "unresolved", StateUnresolved.String())
	assert.Equal(t, "initializing", StateInitializing.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "failed", StateFailed.String())
	assert.Equal(t, "state(9)", State(9).String())
}
