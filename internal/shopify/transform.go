package shopify

import (
	"sort"
	"strings"

	"storefront/internal/model"
)

// =============================================================================
// SHOPIFY → STOREFRONT TRANSFORMATION
// =============================================================================
//
// Parsing stays in this package. Everything above the gateway sees only
// model types, and cart projections are always built through
// model.NewProjection so the total is recomputed from the lines.
// =============================================================================

func collectionToModel(n CollectionNode) model.Collection {
	c := model.Collection{
		ID:          n.ID,
		Title:       n.Title,
		Handle:      n.Handle,
		Description: n.Description,
	}
	if n.Image != nil {
		c.ImageURL = n.Image.URL
		c.ImageAlt = n.Image.AltText
	}
	return c
}

func productToModel(n ProductNode) model.Product {
	p := model.Product{
		ID:              n.ID,
		Title:           n.Title,
		Handle:          n.Handle,
		Description:     n.Description,
		DescriptionHTML: n.DescriptionHTML,
		PriceRange: model.PriceRange{
			Min: moneyToModel(n.PriceRange.MinVariantPrice),
			Max: moneyToModel(n.PriceRange.MaxVariantPrice),
		},
		Images:           make([]model.Image, 0, len(n.Images.Edges)),
		Variants:         make([]model.Variant, 0, len(n.Variants.Edges)),
		Tags:             n.Tags,
		Vendor:           n.Vendor,
		ProductType:      n.ProductType,
		AvailableForSale: n.AvailableForSale,
	}
	for _, img := range n.Images.Nodes() {
		p.Images = append(p.Images, model.Image{URL: img.URL, AltText: img.AltText})
	}
	for _, v := range n.Variants.Nodes() {
		p.Variants = append(p.Variants, variantToModel(v))
	}
	return p
}

func variantToModel(n VariantNode) model.Variant {
	v := model.Variant{
		ID:               n.ID,
		Title:            n.Title,
		Price:            moneyToModel(n.Price),
		AvailableForSale: n.AvailableForSale,
	}
	if n.CompareAtPrice != nil {
		m := moneyToModel(*n.CompareAtPrice)
		v.CompareAtPrice = &m
	}
	for _, o := range n.SelectedOptions {
		v.Options = append(v.Options, model.SelectedOption{Name: o.Name, Value: o.Value})
	}
	return v
}

func moneyToModel(m MoneyV2) model.Money {
	return model.Money{Amount: m.Amount, CurrencyCode: m.CurrencyCode}
}

// cartToProjection rebuilds the local projection from a server cart.
// The server's totalQuantity is ignored; the total is derived from the lines.
func cartToProjection(c *CartNode) model.Projection {
	if c == nil {
		return model.EmptyProjection()
	}
	lines := make([]model.CartLine, 0, len(c.Lines.Edges))
	for _, n := range c.Lines.Nodes() {
		line := model.CartLine{
			LineID:       n.ID,
			VariantID:    n.Merchandise.ID,
			ProductID:    n.Merchandise.Product.ID,
			Quantity:     n.Quantity,
			ProductTitle: n.Merchandise.Product.Title,
			VariantTitle: n.Merchandise.Title,
		}
		if len(n.Attributes) > 0 {
			line.Attributes = make(map[string]string, len(n.Attributes))
			for _, a := range n.Attributes {
				line.Attributes[a.Key] = a.Value
			}
		}
		lines = append(lines, line)
	}
	return model.NewProjection(c.ID, lines, c.CheckoutURL)
}

// attributesToInput converts a map to the Storefront attribute list.
// Keys are sorted so identical maps always produce identical requests.
func attributesToInput(attrs map[string]string) []Attribute {
	if len(attrs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Attribute, 0, len(keys))
	for _, k := range keys {
		out = append(out, Attribute{Key: k, Value: attrs[k]})
	}
	return out
}

// isCartMissing reports whether user errors say the cart itself is gone.
// Errors on other fields (a bad line id, a sold out variant) are not.
func isCartMissing(errs []UserError) bool {
	for _, e := range errs {
		if len(e.Field) > 0 && e.Field[len(e.Field)-1] == "cartId" {
			return true
		}
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "cart") && strings.Contains(msg, "does not exist") &&
			!strings.Contains(msg, "line") {
			return true
		}
	}
	return false
}

// firstMessage returns the user-facing message of the first user error.
func firstMessage(errs []UserError) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Message
}
