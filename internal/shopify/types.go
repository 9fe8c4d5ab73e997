// Package shopify implements the catalog and cart gateways on top of the
// Shopify Storefront GraphQL API.
//
// Authentication:
// Every request carries the public Storefront access token in the
// X-Shopify-Storefront-Access-Token header. No customer login is involved;
// carts are anonymous and addressed only by their gid.
//
// Cart lifecycle:
// Carts expire server side. Any operation against an expired cart returns
// either a null cart or a user error on the cartId field; both are reported
// as model.ErrCartNotFound so the session layer can replace the identity.
package shopify

// === GraphQL Envelope ===

// GraphQLResponse is the top-level envelope of every Storefront API response.
type GraphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []GraphQLError `json:"errors,omitempty"`
}

// GraphQLError is a query-level error (syntax, throttling, access).
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// UserError is a mutation-level validation error.
type UserError struct {
	Field   []string `json:"field,omitempty"`
	Message string   `json:"message"`
	Code    string   `json:"code,omitempty"`
}

// GraphQLRequest is the POST body sent to the endpoint.
type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// === Connections ===

// Connection is a Relay-style edge list.
type Connection[T any] struct {
	Edges []Edge[T] `json:"edges"`
}

// Edge wraps one node of a connection.
type Edge[T any] struct {
	Node T `json:"node"`
}

// Nodes flattens the connection.
func (c Connection[T]) Nodes() []T {
	nodes := make([]T, 0, len(c.Edges))
	for _, e := range c.Edges {
		nodes = append(nodes, e.Node)
	}
	return nodes
}

// === Catalog Types ===

// MoneyV2 is the Storefront API money type. Amount is a decimal string.
type MoneyV2 struct {
	Amount       string `json:"amount"`
	CurrencyCode string `json:"currencyCode"`
}

// ImageNode is a product or collection image.
type ImageNode struct {
	URL     string `json:"url"`
	AltText string `json:"altText"`
}

// CollectionNode is a collection as returned by the collections query.
type CollectionNode struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Handle      string     `json:"handle"`
	Description string     `json:"description"`
	Image       *ImageNode `json:"image"`
}

// ProductNode is a product with its first variants and images.
type ProductNode struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Handle          string `json:"handle"`
	Description     string `json:"description"`
	DescriptionHTML string `json:"descriptionHtml"`
	PriceRange      struct {
		MinVariantPrice MoneyV2 `json:"minVariantPrice"`
		MaxVariantPrice MoneyV2 `json:"maxVariantPrice"`
	} `json:"priceRange"`
	Images           Connection[ImageNode]   `json:"images"`
	Variants         Connection[VariantNode] `json:"variants"`
	Tags             []string                `json:"tags"`
	ProductType      string                  `json:"productType"`
	Vendor           string                  `json:"vendor"`
	AvailableForSale bool                    `json:"availableForSale"`
}

// VariantNode is a purchasable product variant.
type VariantNode struct {
	ID               string   `json:"id"`
	Title            string   `json:"title"`
	Price            MoneyV2  `json:"price"`
	CompareAtPrice   *MoneyV2 `json:"compareAtPrice"`
	AvailableForSale bool     `json:"availableForSale"`
	SelectedOptions  []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
}

type collectionsData struct {
	Collections Connection[CollectionNode] `json:"collections"`
}

type collectionProductsData struct {
	Collection *struct {
		ID       string                  `json:"id"`
		Title    string                  `json:"title"`
		Products Connection[ProductNode] `json:"products"`
	} `json:"collection"`
}

// === Cart Types ===

// CartNode is the cart shape shared by every cart query and mutation.
type CartNode struct {
	ID            string                   `json:"id"`
	CheckoutURL   string                   `json:"checkoutUrl"`
	TotalQuantity int                      `json:"totalQuantity"`
	Lines         Connection[CartLineNode] `json:"lines"`
}

// CartLineNode is one merchandise line.
type CartLineNode struct {
	ID          string      `json:"id"`
	Quantity    int         `json:"quantity"`
	Attributes  []Attribute `json:"attributes"`
	Merchandise struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Product struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"product"`
	} `json:"merchandise"`
}

// Attribute is a custom key/value pair on a cart line.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CartLineInput is the input type of cartLinesAdd.
type CartLineInput struct {
	MerchandiseID string      `json:"merchandiseId"`
	Quantity      int         `json:"quantity"`
	Attributes    []Attribute `json:"attributes,omitempty"`
}

// cartPayload is the common shape of cart mutation payloads.
type cartPayload struct {
	Cart       *CartNode   `json:"cart"`
	UserErrors []UserError `json:"userErrors"`
}

type cartData struct {
	Cart *CartNode `json:"cart"`
}

type cartCreateData struct {
	CartCreate cartPayload `json:"cartCreate"`
}

type cartLinesAddData struct {
	CartLinesAdd cartPayload `json:"cartLinesAdd"`
}

type cartLinesRemoveData struct {
	CartLinesRemove cartPayload `json:"cartLinesRemove"`
}
