package model

// === Catalog Types ===

// Collection is a named group of products.
type Collection struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Handle      string `json:"handle"`
	Description string `json:"description,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
	ImageAlt    string `json:"image_alt,omitempty"`
}

// Product is a sellable item with one or more variants.
type Product struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Handle           string     `json:"handle"`
	Description      string     `json:"description,omitempty"`
	DescriptionHTML  string     `json:"description_html,omitempty"`
	PriceRange       PriceRange `json:"price_range"`
	Images           []Image    `json:"images"`
	Variants         []Variant  `json:"variants"`
	Tags             []string   `json:"tags,omitempty"`
	Vendor           string     `json:"vendor,omitempty"`
	ProductType      string     `json:"product_type,omitempty"`
	AvailableForSale bool       `json:"available_for_sale"`
}

// PriceRange spans the cheapest and most expensive variant.
type PriceRange struct {
	Min Money `json:"min"`
	Max Money `json:"max"`
}

// Image is a product image reference.
type Image struct {
	URL     string `json:"url"`
	AltText string `json:"alt_text,omitempty"`
}

// Variant is a concrete purchasable option of a product.
type Variant struct {
	ID               string           `json:"id"`
	Title            string           `json:"title"`
	Price            Money            `json:"price"`
	CompareAtPrice   *Money           `json:"compare_at_price,omitempty"`
	AvailableForSale bool             `json:"available_for_sale"`
	Options          []SelectedOption `json:"options,omitempty"`
}

// SelectedOption is one option value of a variant, e.g. Size=M.
type SelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// FirstImage returns the primary image, or a zero Image when there is none.
func (p Product) FirstImage() Image {
	if len(p.Images) == 0 {
		return Image{}
	}
	return p.Images[0]
}
