// Package api provides the HTTP surface of the sharing server.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"deltashare-mock/internal/domain"
	"deltashare-mock/internal/service/delivery"
	"deltashare-mock/internal/service/sharing"
)

// maxQueryBody bounds the query request body.
const maxQueryBody = 1 << 20

// Handler serves the protocol and file routes.
type Handler struct {
	sharing       *sharing.Service
	files         *delivery.Service
	publicBaseURL string
	logger        *slog.Logger
}

// NewHandler creates a Handler. publicBaseURL may be empty, in which case
// file URLs are built from each request's Host.
func NewHandler(sharingSvc *sharing.Service, files *delivery.Service, publicBaseURL string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		sharing:       sharingSvc,
		files:         files,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Health reports liveness. It never touches the catalog or the store.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// ListShares handles GET /shares.
func (h *Handler) ListShares(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.sharing.ListShares(r.Context()))
}

// GetShare handles GET /shares/{share}.
func (h *Handler) GetShare(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sharing.GetShare(r.Context(), chi.URLParam(r, "share"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListSchemas handles GET /shares/{share}/schemas.
func (h *Handler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sharing.ListSchemas(r.Context(), chi.URLParam(r, "share"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListAllTables handles GET /shares/{share}/all-tables.
func (h *Handler) ListAllTables(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sharing.ListAllTables(r.Context(), chi.URLParam(r, "share"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListTables handles GET /shares/{share}/schemas/{schema}/tables.
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	resp, err := h.sharing.ListTables(r.Context(), chi.URLParam(r, "share"), chi.URLParam(r, "schema"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetMetadata handles GET .../tables/{table}/metadata.
func (h *Handler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	share, schema, table := tableParams(r)
	resp, err := h.sharing.Metadata(r.Context(), share, schema, table)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	h.writeTable(w, r, resp)
}

// GetVersion handles GET .../tables/{table}/version.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	share, schema, table := tableParams(r)
	v, err := h.sharing.Version(r.Context(), share, schema, table)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	w.Header().Set(TableVersionHeader, strconv.FormatInt(v, 10))
	writeJSON(w, http.StatusOK, sharing.VersionResponse{Version: v})
}

// QueryTable handles POST .../tables/{table}/query. The body is optional.
func (h *Handler) QueryTable(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQueryRequest(r)
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	share, schema, table := tableParams(r)
	resp, err := h.sharing.Query(r.Context(), share, schema, table, req, h.baseURL(r))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	h.writeTable(w, r, resp)
}

// GetFile handles GET /files/*.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	p, err := h.files.Deliver(r.Context(), chi.URLParam(r, "*"))
	if err != nil {
		writeDomainError(w, r, h.logger, err)
		return
	}
	defer p.Body.Close() //nolint:errcheck

	w.Header().Set("Content-Type", p.ContentType)
	if p.Attachment {
		w.Header().Set("Content-Disposition", `attachment; filename="`+p.Filename+`"`)
	}
	if p.Size >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(p.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, p.Body); err != nil {
		h.logger.WarnContext(r.Context(), "file stream interrupted", "path", r.URL.Path, "source", p.Source, "error", err)
	}
}

func (h *Handler) writeTable(w http.ResponseWriter, r *http.Request, resp *sharing.TableResponse) {
	if err := writeNDJSON(w, resp.Version, resp.Lines); err != nil {
		writeDomainError(w, r, h.logger, err)
	}
}

// baseURL is the configured public URL, or the scheme and host the client
// used to reach this request.
func (h *Handler) baseURL(r *http.Request) string {
	if h.publicBaseURL != "" {
		return h.publicBaseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func tableParams(r *http.Request) (share, schema, table string) {
	return chi.URLParam(r, "share"), chi.URLParam(r, "schema"), chi.URLParam(r, "table")
}

func decodeQueryRequest(r *http.Request) (sharing.QueryRequest, error) {
	var req sharing.QueryRequest
	if r.Body == nil {
		return req, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxQueryBody))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return req, nil
		}
		return req, domain.ErrValidation("Invalid request body")
	}
	return req, nil
}
