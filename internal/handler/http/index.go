package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Sumit-Saurabh98/indexsearch/pkg/httputil"
	"github.com/Sumit-Saurabh98/indexsearch/pkg/validator"

	"github.com/Sumit-Saurabh98/indexsearch/internal/service"
)

// BulkIndexRequest is the JSON request body for bulk indexing products.
type BulkIndexRequest struct {
	Products []service.IndexProductInput `json:"products" validate:"required,min=1,max=500"`
}

func writeBodyError(w http.ResponseWriter, err error) {
	httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
		Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
	})
}

// writeIndexError renders validation failures with field detail and anything
// else through the standard error envelope.
func (h *SearchHandler) writeIndexError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *validator.ValidationError
	if errors.As(err, &ve) {
		httputil.WriteValidationError(w, ve)
		return
	}
	httputil.WriteError(w, r, err, h.logger)
}

// IndexProduct handles POST /api/v1/search/index
func (h *SearchHandler) IndexProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req service.IndexProductInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBodyError(w, err)
		return
	}

	product, err := h.service.IndexProduct(r.Context(), &req)
	if err != nil {
		h.writeIndexError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusCreated, product)
}

// BulkIndex handles POST /api/v1/search/bulk
func (h *SearchHandler) BulkIndex(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)

	var req BulkIndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBodyError(w, err)
		return
	}
	if err := validator.Validate(&req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	indexed, err := h.service.BulkIndex(r.Context(), req.Products)
	if err != nil {
		h.writeIndexError(w, r, err)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]any{"indexed": indexed, "status": "ok"})
}

// GetProduct handles GET /api/v1/search/{id}
func (h *SearchHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/search/{id}
func (h *SearchHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

// Reindex handles POST /api/v1/search/reindex. The rebuild runs in the
// background and outlives the request.
func (h *SearchHandler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := context.WithoutCancel(r.Context())
	go func() {
		indexed, err := h.service.Reindex(ctx)
		if err != nil {
			h.logger.ErrorContext(ctx, "background reindex failed",
				slog.Int("indexed", indexed),
				slog.String("error", err.Error()),
			)
		}
	}()

	httputil.WriteData(w, http.StatusAccepted, map[string]string{"status": "reindex started"})
}
