package handler

import (
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/model"
	"storefront/internal/orderstatus"
)

// cartResponse is the projection plus the derived upload locks.
type cartResponse struct {
	CartID        string             `json:"cart_id,omitempty"`
	Lines         []cartLineView     `json:"lines"`
	TotalQuantity int                `json:"total_quantity"`
	CheckoutURL   string             `json:"checkout_url,omitempty"`
	Locks         []model.UploadLock `json:"locks"`
}

type cartLineView struct {
	model.CartLine
	Label string `json:"label"`
}

func (h *Handler) newCartResponse(p model.Projection) cartResponse {
	lines := make([]cartLineView, len(p.Lines))
	for i, line := range p.Lines {
		lines[i] = cartLineView{CartLine: line, Label: catalog.CartLineLabel(line)}
	}
	resp := cartResponse{
		CartID:        p.CartID,
		Lines:         lines,
		TotalQuantity: p.TotalQuantity,
		Locks:         h.locks.Snapshot(),
	}
	if !p.IsEmpty() {
		resp.CheckoutURL = p.CheckoutURL
	}
	return resp
}

// addLineRequest is the body of POST /cart/lines.
type addLineRequest struct {
	ProductID  string            `json:"product_id"`
	VariantID  string            `json:"variant_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// handleGetCart returns the local cart projection.
// GET /cart
func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.newCartResponse(h.cart.Projection()))
}

// handleAddLine adds one unit of a variant.
// POST /cart/lines
func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	proj, err := h.cart.AddLine(r.Context(), model.LineIntent{
		ProductID:  req.ProductID,
		VariantID:  req.VariantID,
		Attributes: req.Attributes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.newCartResponse(proj))
}

// handleRemoveLine removes a line by its server-assigned id.
// Line ids are gids with "//" and often a "?cart=" suffix, so clients must
// path-escape them (url.PathEscape); an unescaped id is redirected by the
// mux and never reaches this handler.
// DELETE /cart/lines/{id}
func (h *Handler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	proj, err := h.cart.RemoveLine(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.newCartResponse(proj))
}

// handleClearCart empties the cart and starts a fresh one.
// POST /cart/clear
func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	proj, err := h.cart.ClearCart(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.newCartResponse(proj))
}

// handleRefreshCart rebuilds the projection from the server. Never fails;
// an unreachable cart shows as empty.
// POST /cart/refresh
func (h *Handler) handleRefreshCart(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.newCartResponse(h.cart.RefreshFromServer(r.Context())))
}

// handleCheckout redirects to the hosted checkout.
// GET /checkout
func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	checkoutURL, ok := h.cart.CheckoutURL()
	if !ok {
		h.writeError(w, model.NewCartEmptyError())
		return
	}
	http.Redirect(w, r, checkoutURL, http.StatusFound)
}

// handleOrderStatus redirects to the shop's order status page.
// GET /orders/status?order_number=&email=
func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	statusURL, err := orderstatus.StatusURL(h.opts.ShopDomain, q.Get("order_number"), q.Get("email"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	http.Redirect(w, r, statusURL, http.StatusFound)
}
