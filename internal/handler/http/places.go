package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/internal/geocode"
	"github.com/SIACAML/cooqu-order/internal/service"
	apperrors "github.com/SIACAML/cooqu-order/pkg/errors"
	"github.com/SIACAML/cooqu-order/pkg/httputil"
	"github.com/SIACAML/cooqu-order/pkg/validator"
)

// PlacesHandler serves address search, resolution, and confirmation.
type PlacesHandler struct {
	places  *service.PlacesService
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewPlacesHandler creates the places HTTP handler.
func NewPlacesHandler(places *service.PlacesService, logger *slog.Logger) *PlacesHandler {
	return &PlacesHandler{
		places:  places,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// resolvedView pairs a geocoder result with which of its fields are locked
// in the confirmation form.
type resolvedView struct {
	Lat         float64         `json:"lat"`
	Lng         float64         `json:"lng"`
	FullAddress string          `json:"full_address"`
	Area        string          `json:"area,omitempty"`
	City        string          `json:"city,omitempty"`
	State       string          `json:"state,omitempty"`
	Pincode     string          `json:"pincode,omitempty"`
	Locked      map[string]bool `json:"locked"`
}

// ConfirmAddressRequest is the JSON body for address confirmation. House
// number and landmark are the user-supplied additions to a resolved result.
type ConfirmAddressRequest struct {
	FullAddress string  `json:"full_address" validate:"required,min=5"`
	HouseNo     string  `json:"house_no"`
	Area        string  `json:"area"`
	City        string  `json:"city"`
	State       string  `json:"state"`
	Pincode     string  `json:"pincode" validate:"omitempty,len=6,numeric"`
	Landmark    string  `json:"landmark"`
	Lat         float64 `json:"lat"`
	Lng         float64 `json:"lng"`
}

// Search handles GET /api/v1/places/search?q=...&seq=N.
func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	q := r.URL.Query().Get("q")
	seq, err := strconv.ParseUint(r.URL.Query().Get("seq"), 10, 64)
	if err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("seq must be a non-negative integer"), h.logger)
		return
	}

	result, err := h.places.Search(r.Context(), sid, q, seq)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: result})
}

// Resolve handles GET /api/v1/places/resolve?place_id=....
func (h *PlacesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	resolved, err := h.places.Resolve(r.Context(), r.URL.Query().Get("place_id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOfResolved(resolved)})
}

// Reverse handles GET /api/v1/places/reverse?lat=..&lng=...
func (h *PlacesHandler) Reverse(w http.ResponseWriter, r *http.Request) {
	lat, errLat := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(r.URL.Query().Get("lng"), 64)
	if errLat != nil || errLng != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("lat and lng must be decimal numbers"), h.logger)
		return
	}

	resolved, err := h.places.ReverseResolve(r.Context(), lat, lng)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOfResolved(resolved)})
}

// Confirm handles POST /api/v1/address/confirm.
func (h *PlacesHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	sid, ok := sessionIDFromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, apperrors.Unauthorized("no session"), h.logger)
		return
	}

	var req ConfirmAddressRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	sess, err := h.places.ConfirmAddress(r.Context(), sid, domain.Address{
		FullAddress: req.FullAddress,
		HouseNo:     req.HouseNo,
		Area:        req.Area,
		City:        req.City,
		State:       req.State,
		Pincode:     req.Pincode,
		Landmark:    req.Landmark,
		Lat:         req.Lat,
		Lng:         req.Lng,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: viewOf(sess, h.nowFunc())})
}

func viewOfResolved(r *geocode.Resolved) *resolvedView {
	return &resolvedView{
		Lat:         r.Lat,
		Lng:         r.Lng,
		FullAddress: r.FormattedAddress,
		Area:        r.Area,
		City:        r.City,
		State:       r.State,
		Pincode:     r.Pincode,
		Locked:      r.Locked(),
	}
}
