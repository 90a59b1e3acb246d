package shopify

// ProductSetMutation creates a product or replaces an existing one, variants included
const ProductSetMutation = `
mutation productSet($input: ProductSetInput!, $synchronous: Boolean!) {
  productSet(input: $input, synchronous: $synchronous) {
    product {
      id
    }
    userErrors {
      field
      message
      code
    }
  }
}
`

// ProductUpdateMutation is used to flip a product between ACTIVE and DRAFT
const ProductUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product {
      id
      status
    }
    userErrors {
      field
      message
    }
  }
}
`

// MetafieldsSetMutation sets metafields on a resource (the candle.enabled flag on a product)
const MetafieldsSetMutation = `
mutation metafieldsSet($metafields: [MetafieldsSetInput!]!) {
  metafieldsSet(metafields: $metafields) {
    metafields {
      key
      namespace
      value
    }
    userErrors {
      field
      message
      code
    }
  }
}
`

// ProductDeleteMutation deletes a product and all of its variants
const ProductDeleteMutation = `
mutation productDelete($input: ProductDeleteInput!) {
  productDelete(input: $input) {
    deletedProductId
    userErrors {
      field
      message
    }
  }
}
`

// ProductSetInput is the input of productSet
type ProductSetInput struct {
	ID             *string                 `json:"id,omitempty"`
	Handle         string                  `json:"handle"`
	Title          string                  `json:"title"`
	Status         string                  `json:"status"`
	Tags           []string                `json:"tags"`
	ProductOptions []OptionSetInput        `json:"productOptions"`
	Variants       []VariantSetInput       `json:"variants"`
	Metafields     []ProductMetafieldInput `json:"metafields,omitempty"`
}

type OptionSetInput struct {
	Name   string             `json:"name"`
	Values []OptionValueInput `json:"values"`
}

type OptionValueInput struct {
	Name string `json:"name"`
}

type VariantSetInput struct {
	OptionValues  []VariantOptionValueInput `json:"optionValues"`
	Price         string                    `json:"price"`
	InventoryItem *InventoryItemInput       `json:"inventoryItem,omitempty"`
}

type VariantOptionValueInput struct {
	OptionName string `json:"optionName"`
	Name       string `json:"name"`
}

type InventoryItemInput struct {
	SKU     string `json:"sku"`
	Tracked bool   `json:"tracked"`
}

// ProductMetafieldInput sets a metafield inline on product input
type ProductMetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// MetafieldsSetInput is used with metafieldsSet mutation
type MetafieldsSetInput struct {
	OwnerID   string `json:"ownerId"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}
