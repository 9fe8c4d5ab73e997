package handler

import (
	"net/http"

	"storefront/internal/catalog"
	"storefront/internal/model"
)

// productView is a product as the storefront displays it.
type productView struct {
	ID                 string        `json:"id"`
	Title              string        `json:"title"`
	Handle             string        `json:"handle"`
	PriceLabel         string        `json:"price_label"`
	DescriptionPreview string        `json:"description_preview,omitempty"`
	DescriptionHTML    string        `json:"description_html,omitempty"`
	Image              model.Image   `json:"image"`
	Variants           []variantView `json:"variants"`
	AvailableForSale   bool          `json:"available_for_sale"`

	// DesignLocked is true while a custom design line for this product is in
	// the cart.
	DesignLocked bool `json:"design_locked"`
}

type variantView struct {
	ID               string `json:"id"`
	Label            string `json:"label"`
	AvailableForSale bool   `json:"available_for_sale"`
}

func (h *Handler) newProductView(p model.Product) productView {
	variants := make([]variantView, len(p.Variants))
	for i, v := range p.Variants {
		variants[i] = variantView{
			ID:               v.ID,
			Label:            catalog.VariantLabel(v),
			AvailableForSale: v.AvailableForSale,
		}
	}
	return productView{
		ID:                 p.ID,
		Title:              p.Title,
		Handle:             p.Handle,
		PriceLabel:         catalog.PriceRangeLabel(p.PriceRange),
		DescriptionPreview: catalog.Truncate(p.Description, catalog.DescriptionPreviewLength),
		DescriptionHTML:    catalog.SanitizeDescription(p.DescriptionHTML),
		Image:              p.FirstImage(),
		Variants:           variants,
		AvailableForSale:   p.AvailableForSale,
		DesignLocked:       h.locks.IsLocked(p.ID),
	}
}

// handleListCollections returns every collection.
// GET /collections
func (h *Handler) handleListCollections(w http.ResponseWriter, r *http.Request) {
	collections, err := h.catalog.ListCollections(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if collections == nil {
		collections = []model.Collection{}
	}
	h.writeJSON(w, http.StatusOK, collectionsResponse{Collections: collections})
}

type collectionsResponse struct {
	Collections []model.Collection `json:"collections"`
}

// handleListProducts returns one page of a collection's products.
// GET /collections/{handle}/products?page=
func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	products, err := h.catalog.ListProducts(r.Context(), r.PathValue("handle"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeProductPage(w, products, page)
}

// handleListAllProducts returns one page of the products of every collection.
// GET /products?page=
func (h *Handler) handleListAllProducts(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	products, err := h.catalog.ListAllProducts(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeProductPage(w, products, page)
}

// productPage is one page of product views.
type productPage = catalog.Page[productView]

func (h *Handler) productPage(products []model.Product, page int) productPage {
	p := catalog.Paginate(products, page, h.opts.PageSize)
	views := make([]productView, len(p.Items))
	for i, product := range p.Items {
		views[i] = h.newProductView(product)
	}
	return productPage{
		Items:      views,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		TotalItems: p.TotalItems,
	}
}

func (h *Handler) writeProductPage(w http.ResponseWriter, products []model.Product, page int) {
	h.writeJSON(w, http.StatusOK, h.productPage(products, page))
}
