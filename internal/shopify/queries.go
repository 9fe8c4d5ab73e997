package shopify

// =============================================================================
// STOREFRONT API DOCUMENTS
// =============================================================================
//
// User input (collection handles, cart and line ids) is always passed as
// GraphQL variables, never interpolated into the document text.
// =============================================================================

const collectionsQuery = `query Collections {
  collections(first: 20) {
    edges {
      node {
        id
        title
        handle
        description
        image { url altText }
      }
    }
  }
}`

const collectionProductsQuery = `query CollectionProducts($handle: String!) {
  collection(handle: $handle) {
    id
    title
    products(first: 50) {
      edges {
        node {
          id
          title
          handle
          description
          descriptionHtml
          priceRange {
            minVariantPrice { amount currencyCode }
            maxVariantPrice { amount currencyCode }
          }
          images(first: 3) { edges { node { url altText } } }
          variants(first: 10) {
            edges {
              node {
                id
                title
                price { amount currencyCode }
                compareAtPrice { amount currencyCode }
                availableForSale
                selectedOptions { name value }
              }
            }
          }
          tags
          productType
          vendor
          availableForSale
        }
      }
    }
  }
}`

const cartFields = `fragment CartFields on Cart {
  id
  checkoutUrl
  totalQuantity
  lines(first: 100) {
    edges {
      node {
        id
        quantity
        attributes { key value }
        merchandise {
          ... on ProductVariant {
            id
            title
            product { id title }
          }
        }
      }
    }
  }
}`

const cartCreateMutation = `mutation CartCreate {
  cartCreate(input: {}) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}
` + cartFields

const cartQuery = `query Cart($cartId: ID!) {
  cart(id: $cartId) { ...CartFields }
}
` + cartFields

const cartLinesAddMutation = `mutation CartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}
` + cartFields

const cartLinesRemoveMutation = `mutation CartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
  cartLinesRemove(cartId: $cartId, lineIds: $lineIds) {
    cart { ...CartFields }
    userErrors { field message code }
  }
}
` + cartFields
