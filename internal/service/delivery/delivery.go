// Package delivery serves the bytes behind file descriptor URLs: synthetic
// Parquet for columnar requests and object-store-backed CSV otherwise.
package delivery

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"deltashare-mock/internal/domain"
)

const (
	contentTypeCSV    = "text/csv"
	contentTypeBinary = "application/octet-stream"
)

// Payload source labels.
const (
	SourceSynthetic = "synthetic"
	SourceStore     = "store"
)

// Recorder observes delivery outcomes. The metrics package implements it.
type Recorder interface {
	RecordDelivery(format, outcome string)
}

// Payload is a file ready to be written to the client. The caller must
// close Body.
type Payload struct {
	Body        io.ReadCloser
	ContentType string
	Filename    string
	Size        int64 // -1 when unknown
	Source      string
	Attachment  bool // send Content-Disposition: attachment
}

// Request is a parsed /files/ object path.
type Request struct {
	Schema string
	Table  string
	Format domain.Format
}

// ParsePath splits "<schema>/<table>.<ext>" into its parts.
func ParsePath(objectPath string) (Request, error) {
	p := strings.TrimPrefix(objectPath, "/")
	if p == "" || strings.Contains(p, "..") || strings.Contains(p, "\\") {
		return Request{}, domain.ErrValidation("Invalid file path")
	}
	schema, file, ok := strings.Cut(p, "/")
	if !ok || schema == "" || file == "" || strings.Contains(file, "/") {
		return Request{}, domain.ErrValidation("Invalid file path")
	}
	ext := path.Ext(file)
	table := strings.TrimSuffix(file, ext)
	if table == "" {
		return Request{}, domain.ErrValidation("Invalid file path")
	}
	format, ok := domain.FormatFromExtension(ext)
	if !ok {
		return Request{}, domain.ErrValidation("Unsupported file format")
	}
	return Request{Schema: schema, Table: table, Format: format}, nil
}

// Options configures a Service.
type Options struct {
	Bucket    string
	KeyPrefix string
	Seed      fs.FS // local seed files laid out as <schema>/<table>.csv; may be nil
	Recorder  Recorder
}

// Service resolves file requests to payloads.
type Service struct {
	store     domain.ObjectStore
	bucket    string
	keyPrefix string
	seed      fs.FS
	recorder  Recorder
	logger    *slog.Logger
}

// NewService creates a delivery service. The store is touched only when a
// CSV file is requested.
func NewService(store domain.ObjectStore, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		bucket:    opts.Bucket,
		keyPrefix: opts.KeyPrefix,
		seed:      opts.Seed,
		recorder:  opts.Recorder,
		logger:    logger,
	}
}

// Key returns the object key backing schema/table's CSV content.
func (s *Service) Key(schema, table string) string {
	return s.keyPrefix + schema + "/" + table + domain.FormatCSV.Extension()
}

// Resolve runs backing-object resolution for schema/table and returns the
// full record of what happened. It does not read the object.
func (s *Service) Resolve(ctx context.Context, schema, table string) *Resolution {
	r := &resolver{
		store:    s.store,
		seed:     s.seed,
		seedPath: schema + "/" + table + domain.FormatCSV.Extension(),
		logger:   s.logger,
		res:      &Resolution{Bucket: s.bucket, Key: s.Key(schema, table)},
	}
	return r.run(ctx)
}

// Deliver returns the payload for objectPath.
func (s *Service) Deliver(ctx context.Context, objectPath string) (*Payload, error) {
	req, err := ParsePath(objectPath)
	if err != nil {
		s.record("invalid", "rejected")
		return nil, err
	}

	var p *Payload
	switch req.Format {
	case domain.FormatParquet:
		p, err = s.synthetic(req)
	default:
		p, err = s.fromStore(ctx, req)
	}
	s.record(string(req.Format), outcome(err))
	return p, err
}

func (s *Service) synthetic(req Request) (*Payload, error) {
	data, err := SyntheticParquet(req.Table)
	if err != nil {
		return nil, err
	}
	return &Payload{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: contentTypeBinary,
		Filename:    req.Table + domain.FormatParquet.Extension(),
		Size:        int64(len(data)),
		Source:      SourceSynthetic,
	}, nil
}

func (s *Service) fromStore(ctx context.Context, req Request) (*Payload, error) {
	res := s.Resolve(ctx, req.Schema, req.Table)
	if res.State != StateReady {
		return nil, res.Err
	}

	body, info, err := s.store.GetObject(ctx, res.Bucket, res.Key)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.ErrNotFound("File not found")
		}
		return nil, err
	}
	size := info.Size
	if size <= 0 {
		size = -1
	}
	return &Payload{
		Body:        body,
		ContentType: contentTypeCSV,
		Filename:    req.Table + domain.FormatCSV.Extension(),
		Size:        size,
		Source:      SourceStore,
		Attachment:  true,
	}, nil
}

func (s *Service) record(format, result string) {
	if s.recorder != nil {
		s.recorder.RecordDelivery(format, result)
	}
}

func outcome(err error) string {
	var (
		nf *domain.NotFoundError
		ue *domain.UnavailableError
		ve *domain.ValidationError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &nf):
		return "not_found"
	case errors.As(err, &ue):
		return "unavailable"
	case errors.As(err, &ve):
		return "rejected"
	default:
		return "error"
	}
}
