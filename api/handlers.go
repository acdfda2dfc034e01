package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"feed_importer/countries"
	"feed_importer/models"
	"feed_importer/services"
)

const maxRequestBody = 32 << 20

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	importer *services.Importer
	profiles *countries.Table
	pinger   Pinger
}

func NewHandlers(importer *services.Importer, profiles *countries.Table) *Handlers {
	if profiles == nil {
		profiles = countries.Default()
	}
	return &Handlers{importer: importer, profiles: profiles}
}

func (h *Handlers) SetPinger(p Pinger) {
	h.pinger = p
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			RespondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Parse handles POST /v1/parse. Nothing is written to the catalog.
func (h *Handlers) Parse(w http.ResponseWriter, r *http.Request) {
	var req ParseRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	req.Format = normalizeFormat(req.Format)
	if !checkContent(w, req.Content, req.Format) {
		return
	}

	var result *models.ParseResult
	var err error
	if req.Format != "" {
		result, err = h.importer.ParseWithFormat(r.Context(), req.Content, req.Format, req.Country)
	} else {
		result, err = h.importer.DetectAndParse(r.Context(), req.Content, req.Country)
	}
	if err != nil {
		writePipelineError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

// Import handles POST /v1/tenants/{tenantID}/imports.
func (h *Handlers) Import(w http.ResponseWriter, r *http.Request) {
	tenantID := strings.TrimSpace(chi.URLParam(r, "tenantID"))
	if tenantID == "" {
		WriteJSONError(w, http.StatusBadRequest, "tenant id is required")
		return
	}

	var req ImportRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	req.Format = normalizeFormat(req.Format)
	if !checkContent(w, req.Content, req.Format) {
		return
	}

	result, err := h.importer.Import(r.Context(), services.ImportRequest{
		TenantID: tenantID,
		Content:  req.Content,
		Country:  req.Country,
		Format:   req.Format,
		DryRun:   req.DryRun,
	})
	if err != nil {
		writePipelineError(w, err)
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

func (h *Handlers) ListFormats(w http.ResponseWriter, r *http.Request) {
	RespondWithJSON(w, http.StatusOK, formatDTOs(models.Formats))
}

func (h *Handlers) ListCountries(w http.ResponseWriter, r *http.Request) {
	profiles := h.profiles.Profiles()
	out := make([]CountryDTO, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, CountryDTO{
			Code:     p.Code,
			Name:     p.Name,
			Currency: p.Currency,
			Formats:  formatDTOs(h.importer.Registry().FormatsForCountry(p.Code)),
		})
	}
	RespondWithJSON(w, http.StatusOK, out)
}

// CountryFormats accepts a code, name or alias in the path.
func (h *Handlers) CountryFormats(w http.ResponseWriter, r *http.Request) {
	p, ok := h.profiles.Detect(chi.URLParam(r, "code"))
	if !ok {
		WriteJSONError(w, http.StatusNotFound, fmt.Sprintf("unknown country %q", chi.URLParam(r, "code")))
		return
	}
	RespondWithJSON(w, http.StatusOK, formatDTOs(h.importer.Registry().FormatsForCountry(p.Code)))
}

func formatDTOs(formats []models.Format) []FormatDTO {
	out := make([]FormatDTO, 0, len(formats))
	for _, f := range formats {
		out = append(out, FormatDTO{Format: f, DisplayName: f.DisplayName()})
	}
	return out
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			WriteJSONError(w, http.StatusBadRequest, "request body is empty")
		case errors.As(err, &tooLarge):
			WriteJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		default:
			WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		}
		return false
	}
	return true
}

func normalizeFormat(f models.Format) models.Format {
	return models.Format(strings.ToLower(strings.TrimSpace(string(f))))
}

func checkContent(w http.ResponseWriter, content string, format models.Format) bool {
	if strings.TrimSpace(content) == "" {
		WriteJSONError(w, http.StatusBadRequest, "field 'content' is required")
		return false
	}
	if format != "" && !format.Valid() {
		WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return false
	}
	return true
}

func writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrNoStrategy),
		errors.Is(err, services.ErrNoRecords),
		errors.Is(err, services.ErrUnparsable):
		WriteJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		WriteJSONError(w, http.StatusServiceUnavailable, err.Error())
	default:
		WriteJSONError(w, http.StatusInternalServerError, err.Error())
	}
}
