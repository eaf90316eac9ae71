package http

import (
	"net/http"

	"github.com/SIACAML/cooqu-order/internal/domain"
	"github.com/SIACAML/cooqu-order/pkg/httputil"
)

// catalogBody is computed once; the lists are fixed per build.
var catalogBody = map[string]any{
	"order_types":  domain.OrderTypes(),
	"categories":   domain.Categories(),
	"diet_types":   domain.DietTypes(),
	"units":        domain.Units(),
	"cuisines":     domain.Cuisines(),
	"event_styles": domain.EventStyles(),
	"defaults":     domain.NewDraft(),
}

// Catalog handles GET /api/v1/catalog: the enum lists and default draft the
// order form renders from.
func Catalog(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: catalogBody})
}
