package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/service"
	"github.com/SIACAML/cooqu-order/internal/upstream"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
	"github.com/SIACAML/cooqu-order/pkg/httputil"
)

// multipartMemory is how much of a submission is held in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// OrderHandler serves draft validation and order submission.
type OrderHandler struct {
	orders      *service.OrderService
	maxBodySize int64
	logger      *slog.Logger
}

// NewOrderHandler creates the order HTTP handler. maxBodySize caps the whole
// multipart submission, photos included.
func NewOrderHandler(orders *service.OrderService, maxBodySize int64, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orders:      orders,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Validate handles POST /api/v1/orders/validate: runs draft validation
// without submitting, returning the same field-keyed errors a submit would.
func (h *OrderHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var draft domain.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if fields := h.orders.Validate(&draft); fields != nil {
		httputil.WriteFieldErrors(w, fields)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]bool{"valid": true}})
}

// Submit handles POST /api/v1/orders. The body is multipart/form-data: an
// "order" part carrying the draft JSON and zero or more "photos" file parts.
func (h *OrderHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			httputil.WriteError(w, r,
				apperrors.InvalidInput("submission too large"), h.logger)
			return
		}
		httputil.WriteError(w, r,
			apperrors.InvalidInput("expected multipart form data: "+err.Error()), h.logger)
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	raw := r.FormValue("order")
	if raw == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput(`missing "order" form part`), h.logger)
		return
	}
	var draft domain.Draft
	if err := json.NewDecoder(strings.NewReader(raw)).Decode(&draft); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid order payload: "+err.Error()), h.logger)
		return
	}

	photos, closers, err := openPhotos(r.MultipartForm.File["photos"])
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()

	receipt, err := h.orders.Submit(r.Context(), sid, &draft, photos)
	if err != nil {
		var failed *service.ValidationFailed
		if errors.As(err, &failed) {
			httputil.WriteFieldErrors(w, failed.Fields)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: receipt})
}

// openPhotos opens each uploaded photo part for streaming into the upstream
// payload. Callers must close every returned closer.
func openPhotos(headers []*multipart.FileHeader) ([]upstream.Photo, []multipart.File, error) {
	photos := make([]upstream.Photo, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			for _, c := range closers {
				_ = c.Close()
			}
			return nil, nil, apperrors.InvalidInput("unreadable photo upload: " + fh.Filename)
		}
		closers = append(closers, f)
		photos = append(photos, upstream.Photo{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}
	return photos, closers, nil
}
