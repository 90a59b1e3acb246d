package shopify

// VesselTag marks the products this service owns
const VesselTag = "vessel"

// Metafield that carries the enabled flag on a vessel product
const (
	EnabledNamespace = "candle"
	EnabledKey       = "enabled"
)

// Product option names for the two variant axes
const (
	WaxOptionName  = "Wax"
	WickOptionName = "Wick"
)

const pageSize = 250

// VesselsQuery pages through vessel products with their variants and enabled metafield
const VesselsQuery = `
query vessels($first: Int!, $after: String, $query: String!) {
  products(first: $first, after: $after, query: $query) {
    pageInfo {
      hasNextPage
      endCursor
    }
    edges {
      node {
        id
        handle
        title
        status
        enabled: metafield(namespace: "candle", key: "enabled") {
          value
        }
        variants(first: 250) {
          pageInfo {
            hasNextPage
            endCursor
          }
          edges {
            node {
              id
              sku
              price
              selectedOptions {
                name
                value
              }
            }
          }
        }
      }
    }
  }
}
`

// VesselVariantsQuery pages through the variants of one product once the
// first page embedded in VesselsQuery is exhausted
const VesselVariantsQuery = `
query vesselVariants($id: ID!, $first: Int!, $after: String) {
  product(id: $id) {
    variants(first: $first, after: $after) {
      pageInfo {
        hasNextPage
        endCursor
      }
      edges {
        node {
          id
          sku
          price
          selectedOptions {
            name
            value
          }
        }
      }
    }
  }
}
`
