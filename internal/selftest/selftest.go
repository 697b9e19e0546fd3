// Package selftest drives a running sharing server through the same calls
// a Delta Sharing client makes and reports what worked.
package selftest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// Step is the outcome of one check.
type Step struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Detail   string        `json:"detail"`
	Duration time.Duration `json:"durationNs"`
}

// Report collects every step of a run.
type Report struct {
	Server string `json:"server"`
	Steps  []Step `json:"steps"`
}

// OK reports whether every step passed.
func (rep *Report) OK() bool {
	if len(rep.Steps) == 0 {
		return false
	}
	for _, s := range rep.Steps {
		if !s.OK {
			return false
		}
	}
	return true
}

// Options configures a Runner.
type Options struct {
	BaseURL     string
	Token       string
	HTTPClient  *http.Client // default: 10s timeout
	LimitHint   int          // sent with each query; default 5
	Concurrency int          // parallel queries and file fetches; default 4
}

// Runner executes the self-test sequence.
type Runner struct {
	base        string
	token       string
	http        *http.Client
	limitHint   int
	concurrency int
}

// NewRunner creates a Runner.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		base:        strings.TrimRight(opts.BaseURL, "/"),
		token:       opts.Token,
		http:        opts.HTTPClient,
		limitHint:   opts.LimitHint,
		concurrency: opts.Concurrency,
	}
	if r.http == nil {
		r.http = &http.Client{Timeout: 10 * time.Second}
	}
	if r.limitHint <= 0 {
		r.limitHint = 5
	}
	if r.concurrency <= 0 {
		r.concurrency = 4
	}
	return r
}

type named struct {
	Name string `json:"name"`
}

type listResponse struct {
	Items []named `json:"items"`
}

// Run checks health, walks share → schema → tables, reads metadata, queries
// every table, and fetches every file URL returned. The walk stops at the
// first failed listing; queries and fetches all run.
func (r *Runner) Run(ctx context.Context) *Report {
	rep := &Report{Server: r.base}

	rep.add(r.step("health", func() (string, error) {
		_, err := r.get(ctx, "/health", false)
		return "server is healthy", err
	}))

	var shares listResponse
	if !rep.add(r.step("list shares", func() (string, error) {
		return countDetail("share", r.getJSON(ctx, "/shares", &shares), len(shares.Items))
	})) || len(shares.Items) == 0 {
		return rep
	}
	share := shares.Items[0].Name

	var schemas listResponse
	if !rep.add(r.step("list schemas in "+share, func() (string, error) {
		return countDetail("schema", r.getJSON(ctx, "/shares/"+url.PathEscape(share)+"/schemas", &schemas), len(schemas.Items))
	})) || len(schemas.Items) == 0 {
		return rep
	}
	schema := schemas.Items[0].Name

	var tables listResponse
	tablesPath := "/shares/" + url.PathEscape(share) + "/schemas/" + url.PathEscape(schema) + "/tables"
	if !rep.add(r.step("list tables in "+schema, func() (string, error) {
		return countDetail("table", r.getJSON(ctx, tablesPath, &tables), len(tables.Items))
	})) || len(tables.Items) == 0 {
		return rep
	}

	first := tables.Items[0].Name
	rep.add(r.step("metadata of "+first, func() (string, error) {
		lines, err := r.ndjson(ctx, http.MethodGet, tablesPath+"/"+url.PathEscape(first)+"/metadata", nil)
		if err != nil {
			return "", err
		}
		if err := expectLines(lines, "protocol", "metaData"); err != nil {
			return "", err
		}
		return "protocol and metadata present", nil
	}))

	queries := make([]Step, len(tables.Items))
	fileURLs := make([][]string, len(tables.Items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, t := range tables.Items {
		g.Go(func() error {
			queries[i] = r.step("query "+t.Name, func() (string, error) {
				urls, err := r.query(gctx, tablesPath+"/"+url.PathEscape(t.Name)+"/query")
				fileURLs[i] = urls
				return countDetail("file", err, len(urls))
			})
			return nil
		})
	}
	_ = g.Wait()
	rep.add(queries...)

	var urls []string
	for _, u := range fileURLs {
		urls = append(urls, u...)
	}
	fetches := make([]Step, len(urls))
	g, gctx = errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, u := range urls {
		g.Go(func() error {
			fetches[i] = r.step("fetch "+displayURL(u), func() (string, error) {
				n, err := r.fetch(gctx, u)
				return fmt.Sprintf("%d bytes", n), err
			})
			return nil
		})
	}
	_ = g.Wait()
	rep.add(fetches...)

	return rep
}

// add appends steps and reports whether the last one passed.
func (rep *Report) add(steps ...Step) bool {
	rep.Steps = append(rep.Steps, steps...)
	return len(steps) > 0 && steps[len(steps)-1].OK
}

func (r *Runner) step(name string, fn func() (string, error)) Step {
	start := time.Now()
	detail, err := fn()
	s := Step{Name: name, OK: err == nil, Detail: detail, Duration: time.Since(start)}
	if err != nil {
		s.Detail = err.Error()
	}
	return s
}

func countDetail(noun string, err error, n int) (string, error) {
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("no %ss returned", noun)
	}
	if n == 1 {
		return "1 " + noun, nil
	}
	return fmt.Sprintf("%d %ss", n, noun), nil
}

func (r *Runner) query(ctx context.Context, path string) ([]string, error) {
	body, err := json.Marshal(map[string]int{"limitHint": r.limitHint})
	if err != nil {
		return nil, err
	}
	lines, err := r.ndjson(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	if err := expectLines(lines, "protocol", "metaData"); err != nil {
		return nil, err
	}
	var urls []string
	for _, line := range lines[2:] {
		raw, ok := line["file"]
		if !ok {
			return nil, fmt.Errorf("unexpected line with keys %v", keys(line))
		}
		var f struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, fmt.Errorf("decode file line: %w", err)
		}
		urls = append(urls, f.URL)
	}
	return urls, nil
}

// fetch downloads a file URL as a client would: the URL already carries
// its token, so no Authorization header is sent.
func (r *Runner) fetch(ctx context.Context, fileURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return 0, err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return 0, statusError(resp)
	}
	n, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("empty file")
	}
	return n, nil
}

func (r *Runner) get(ctx context.Context, path string, authed bool) ([]byte, error) {
	return r.do(ctx, http.MethodGet, path, nil, authed)
}

func (r *Runner) getJSON(ctx context.Context, path string, v any) error {
	body, err := r.get(ctx, path, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (r *Runner) ndjson(ctx context.Context, method, path string, body []byte) ([]map[string]json.RawMessage, error) {
	data, err := r.do(ctx, method, path, body, true)
	if err != nil {
		return nil, err
	}
	var lines []map[string]json.RawMessage
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var m map[string]json.RawMessage
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			return nil, fmt.Errorf("decode line %d: %w", len(lines)+1, err)
		}
		lines = append(lines, m)
	}
	return lines, sc.Err()
}

func (r *Runner) do(ctx context.Context, method, path string, body []byte, authed bool) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.base+path, rd)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}
	return io.ReadAll(resp.Body)
}

func statusError(resp *http.Response) error {
	var e struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, e.Error)
	}
	return fmt.Errorf("HTTP %d", resp.StatusCode)
}

func expectLines(lines []map[string]json.RawMessage, want ...string) error {
	if len(lines) < len(want) {
		return fmt.Errorf("got %d lines, want at least %d", len(lines), len(want))
	}
	for i, k := range want {
		if _, ok := lines[i][k]; !ok {
			return fmt.Errorf("line %d: want %q, got keys %v", i+1, k, keys(lines[i]))
		}
	}
	return nil
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// displayURL strips the query string so tokens never reach the report.
func displayURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}
