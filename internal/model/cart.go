// Package model defines the storefront catalog and cart types and the error taxonomy
// shared by every layer.
package model

// === Cart Types ===

// CartIdentity is the pair that addresses one remote cart.
// The two fields are persisted and cleared together, never individually.
type CartIdentity struct {
	CartID      string `json:"cart_id"`
	CheckoutURL string `json:"checkout_url"`
}

// IsZero reports whether no cart is addressed.
func (c CartIdentity) IsZero() bool {
	return c.CartID == ""
}

// CartLine is one line of the remote cart as last reported by the server.
type CartLine struct {
	LineID     string            `json:"line_id"`
	VariantID  string            `json:"variant_id"`
	ProductID  string            `json:"product_id"`
	Quantity   int               `json:"quantity"`
	Attributes map[string]string `json:"attributes,omitempty"`

	// Display only
	ProductTitle string `json:"product_title,omitempty"`
	VariantTitle string `json:"variant_title,omitempty"`
}

// Projection is the local view of a remote cart, rebuilt wholesale from each
// authoritative server response. Construct it with NewProjection so that
// TotalQuantity always equals the sum of line quantities.
type Projection struct {
	CartID        string     `json:"cart_id,omitempty"`
	Lines         []CartLine `json:"lines"`
	TotalQuantity int        `json:"total_quantity"`
	CheckoutURL   string     `json:"checkout_url,omitempty"`
}

// NewProjection builds a projection from server-reported lines.
// The lines slice is copied; callers may reuse theirs.
func NewProjection(cartID string, lines []CartLine, checkoutURL string) Projection {
	copied := make([]CartLine, len(lines))
	total := 0
	for i, line := range lines {
		copied[i] = line
		if line.Attributes != nil {
			attrs := make(map[string]string, len(line.Attributes))
			for k, v := range line.Attributes {
				attrs[k] = v
			}
			copied[i].Attributes = attrs
		}
		total += line.Quantity
	}
	return Projection{
		CartID:        cartID,
		Lines:         copied,
		TotalQuantity: total,
		CheckoutURL:   checkoutURL,
	}
}

// EmptyProjection is the projection of a cart with no lines.
func EmptyProjection() Projection {
	return NewProjection("", nil, "")
}

// IsEmpty reports whether the cart holds nothing to check out.
func (p Projection) IsEmpty() bool {
	return p.TotalQuantity == 0
}

// LineIDs returns the ids of every line, in server order.
func (p Projection) LineIDs() []string {
	ids := make([]string, 0, len(p.Lines))
	for _, line := range p.Lines {
		ids = append(ids, line.LineID)
	}
	return ids
}

// Line returns the line with the given id.
func (p Projection) Line(lineID string) (CartLine, bool) {
	for _, line := range p.Lines {
		if line.LineID == lineID {
			return line, true
		}
	}
	return CartLine{}, false
}

// LineIntent is a request to add one unit of a variant to the cart.
type LineIntent struct {
	ProductID  string            `json:"product_id"`
	VariantID  string            `json:"variant_id"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// UploadLock is the derived per-product custom design lock.
// LineID is set only while Locked.
type UploadLock struct {
	ProductID string `json:"product_id"`
	Locked    bool   `json:"locked"`
	LineID    string `json:"line_id,omitempty"`
}
