package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

const (
	statusActive = "ACTIVE"
	statusDraft  = "DRAFT"
)

type vesselsPage struct {
	Products struct {
		PageInfo struct {
			HasNextPage bool   `json:"hasNextPage"`
			EndCursor   string `json:"endCursor"`
		} `json:"pageInfo"`
		Edges []struct {
			Node productNode `json:"node"`
		} `json:"edges"`
	} `json:"products"`
}

type productNode struct {
	ID      string `json:"id"`
	Handle  string `json:"handle"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Enabled *struct {
		Value string `json:"value"`
	} `json:"enabled"`
	Variants variantConnection `json:"variants"`
}

type variantConnection struct {
	PageInfo struct {
		HasNextPage bool   `json:"hasNextPage"`
		EndCursor   string `json:"endCursor"`
	} `json:"pageInfo"`
	Edges []struct {
		Node variantNode `json:"node"`
	} `json:"edges"`
}

type variantNode struct {
	ID              string `json:"id"`
	SKU             string `json:"sku"`
	Price           string `json:"price"`
	SelectedOptions []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	} `json:"selectedOptions"`
}

type variantsPage struct {
	Product *struct {
		Variants variantConnection `json:"variants"`
	} `json:"product"`
}

// ListVessels returns every product tagged as a vessel
func (c *Client) ListVessels(ctx context.Context) ([]domain.RemoteProduct, error) {
	var out []domain.RemoteProduct
	var after interface{}
	for page := 1; ; page++ {
		resp, err := c.Execute(ctx, VesselsQuery, map[string]interface{}{
			"first": pageSize,
			"after": after,
			"query": "tag:" + VesselTag,
		})
		if err != nil {
			return nil, fmt.Errorf("list vessels page %d: %w", page, err)
		}

		var result vesselsPage
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal vessels page %d: %w", page, err)
		}

		for _, edge := range result.Products.Edges {
			node := edge.Node
			if node.ID != "" && node.Variants.PageInfo.HasNextPage {
				if err := c.fetchRemainingVariants(ctx, &node); err != nil {
					return nil, err
				}
			}
			p, err := toRemoteProduct(node)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}

		if !result.Products.PageInfo.HasNextPage {
			break
		}
		if result.Products.PageInfo.EndCursor == "" {
			return nil, fmt.Errorf("list vessels page %d: hasNextPage without endCursor", page)
		}
		after = result.Products.PageInfo.EndCursor
	}

	c.logger.Debug("Listed vessels", zap.Int("count", len(out)))
	return out, nil
}

// fetchRemainingVariants appends the variants past the first page to n
func (c *Client) fetchRemainingVariants(ctx context.Context, n *productNode) error {
	page := n.Variants
	for page.PageInfo.HasNextPage {
		if page.PageInfo.EndCursor == "" {
			return fmt.Errorf("vessel %s variants: hasNextPage without endCursor", n.Handle)
		}
		resp, err := c.Execute(ctx, VesselVariantsQuery, map[string]interface{}{
			"id":    n.ID,
			"first": pageSize,
			"after": page.PageInfo.EndCursor,
		})
		if err != nil {
			return fmt.Errorf("list variants of vessel %s: %w", n.Handle, err)
		}
		var result variantsPage
		if err := json.Unmarshal(resp.Data, &result); err != nil {
			return fmt.Errorf("failed to unmarshal variants of vessel %s: %w", n.Handle, err)
		}
		if result.Product == nil {
			return fmt.Errorf("vessel %s disappeared while listing variants", n.Handle)
		}
		page = result.Product.Variants
		n.Variants.Edges = append(n.Variants.Edges, page.Edges...)
	}
	c.logger.Debug("Fetched extra variant pages",
		zap.String("handle", n.Handle),
		zap.Int("variants", len(n.Variants.Edges)),
	)
	return nil
}

func toRemoteProduct(n productNode) (domain.RemoteProduct, error) {
	if n.ID == "" {
		return domain.RemoteProduct{}, fmt.Errorf("vessel product without id")
	}
	if n.Handle == "" {
		return domain.RemoteProduct{}, fmt.Errorf("vessel product %s has no handle", n.ID)
	}

	enabled := n.Status == statusActive
	if n.Enabled != nil {
		v, err := strconv.ParseBool(n.Enabled.Value)
		if err != nil {
			return domain.RemoteProduct{}, fmt.Errorf("vessel %s: invalid %s.%s metafield %q", n.Handle, EnabledNamespace, EnabledKey, n.Enabled.Value)
		}
		enabled = v
	}

	p := domain.RemoteProduct{
		ID:       n.ID,
		Handle:   n.Handle,
		Title:    n.Title,
		Enabled:  enabled,
		Variants: make([]domain.RemoteVariant, 0, len(n.Variants.Edges)),
	}
	for _, edge := range n.Variants.Edges {
		v := edge.Node
		if v.ID == "" {
			return domain.RemoteProduct{}, fmt.Errorf("vessel %s has a variant without id", n.Handle)
		}
		rv := domain.RemoteVariant{ID: v.ID, SKU: v.SKU, Price: v.Price}
		for _, opt := range v.SelectedOptions {
			switch {
			case strings.EqualFold(opt.Name, WaxOptionName):
				rv.Wax = opt.Value
			case strings.EqualFold(opt.Name, WickOptionName):
				rv.Wick = opt.Value
			}
		}
		p.Variants = append(p.Variants, rv)
	}
	return p, nil
}

func enabledMetafield(enabled bool) ProductMetafieldInput {
	return ProductMetafieldInput{
		Namespace: EnabledNamespace,
		Key:       EnabledKey,
		Type:      "boolean",
		Value:     strconv.FormatBool(enabled),
	}
}

func productSetInput(vessel domain.VesselConfig, variants []domain.DesiredVariant) ProductSetInput {
	input := ProductSetInput{
		Handle: vessel.Handle,
		Title:  vessel.Title,
		Status: statusActive,
		Tags:   []string{VesselTag},
		ProductOptions: []OptionSetInput{
			{Name: WaxOptionName, Values: optionValues(variants, func(v domain.DesiredVariant) string { return v.Wax })},
			{Name: WickOptionName, Values: optionValues(variants, func(v domain.DesiredVariant) string { return v.Wick })},
		},
		Variants:   make([]VariantSetInput, 0, len(variants)),
		Metafields: []ProductMetafieldInput{enabledMetafield(true)},
	}
	for _, v := range variants {
		input.Variants = append(input.Variants, VariantSetInput{
			OptionValues: []VariantOptionValueInput{
				{OptionName: WaxOptionName, Name: v.Wax},
				{OptionName: WickOptionName, Name: v.Wick},
			},
			Price:         v.Price,
			InventoryItem: &InventoryItemInput{SKU: v.SKU},
		})
	}
	return input
}

// optionValues lists the distinct values of one axis in first-seen order
func optionValues(variants []domain.DesiredVariant, axis func(domain.DesiredVariant) string) []OptionValueInput {
	seen := make(map[string]bool)
	var out []OptionValueInput
	for _, v := range variants {
		name := axis(v)
		if seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, OptionValueInput{Name: name})
	}
	return out
}

func (c *Client) productSet(ctx context.Context, input ProductSetInput) (string, error) {
	resp, err := c.Execute(ctx, ProductSetMutation, map[string]interface{}{
		"input":       input,
		"synchronous": true,
	})
	if err != nil {
		return "", err
	}

	var result struct {
		ProductSet struct {
			Product *struct {
				ID string `json:"id"`
			} `json:"product"`
			UserErrors []UserError `json:"userErrors"`
		} `json:"productSet"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal productSet response: %w", err)
	}
	if err := checkUserErrors("productSet", result.ProductSet.UserErrors); err != nil {
		return "", err
	}
	if result.ProductSet.Product == nil || result.ProductSet.Product.ID == "" {
		return "", fmt.Errorf("productSet returned no product id")
	}
	return result.ProductSet.Product.ID, nil
}

// CreateVessel creates an active vessel product with one variant per priced wax/wick pair
func (c *Client) CreateVessel(ctx context.Context, vessel domain.VesselConfig, variants []domain.DesiredVariant) (string, error) {
	id, err := c.productSet(ctx, productSetInput(vessel, variants))
	if err != nil {
		return "", fmt.Errorf("create vessel %s: %w", vessel.Handle, err)
	}
	c.logger.Info("Created vessel product", zap.String("handle", vessel.Handle), zap.String("product_id", id))
	return id, nil
}

// UpdateVessel replaces the product's variants with the desired set and
// re-activates it
func (c *Client) UpdateVessel(ctx context.Context, current domain.RemoteProduct, vessel domain.VesselConfig, variants []domain.DesiredVariant) error {
	input := productSetInput(vessel, variants)
	input.ID = &current.ID
	if _, err := c.productSet(ctx, input); err != nil {
		return fmt.Errorf("update vessel %s: %w", vessel.Handle, err)
	}
	c.logger.Info("Updated vessel product", zap.String("handle", vessel.Handle), zap.String("product_id", current.ID))
	return nil
}

// SetVesselEnabled flips the product status and the enabled metafield
func (c *Client) SetVesselEnabled(ctx context.Context, productID string, enabled bool) error {
	status := statusDraft
	if enabled {
		status = statusActive
	}

	resp, err := c.Execute(ctx, ProductUpdateMutation, map[string]interface{}{
		"input": map[string]interface{}{"id": productID, "status": status},
	})
	if err != nil {
		return fmt.Errorf("set status on %s: %w", productID, err)
	}
	var updated struct {
		ProductUpdate struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"productUpdate"`
	}
	if err := json.Unmarshal(resp.Data, &updated); err != nil {
		return fmt.Errorf("failed to unmarshal productUpdate response: %w", err)
	}
	if err := checkUserErrors("productUpdate", updated.ProductUpdate.UserErrors); err != nil {
		return err
	}

	mf := enabledMetafield(enabled)
	resp, err = c.Execute(ctx, MetafieldsSetMutation, map[string]interface{}{
		"metafields": []MetafieldsSetInput{{
			OwnerID:   productID,
			Namespace: mf.Namespace,
			Key:       mf.Key,
			Type:      mf.Type,
			Value:     mf.Value,
		}},
	})
	if err != nil {
		return fmt.Errorf("set enabled metafield on %s: %w", productID, err)
	}
	var set struct {
		MetafieldsSet struct {
			UserErrors []UserError `json:"userErrors"`
		} `json:"metafieldsSet"`
	}
	if err := json.Unmarshal(resp.Data, &set); err != nil {
		return fmt.Errorf("failed to unmarshal metafieldsSet response: %w", err)
	}
	if err := checkUserErrors("metafieldsSet", set.MetafieldsSet.UserErrors); err != nil {
		return err
	}

	c.logger.Info("Set vessel enabled", zap.String("product_id", productID), zap.Bool("enabled", enabled))
	return nil
}

// DeleteVessel permanently deletes the product
func (c *Client) DeleteVessel(ctx context.Context, productID string) error {
	resp, err := c.Execute(ctx, ProductDeleteMutation, map[string]interface{}{
		"input": map[string]interface{}{"id": productID},
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", productID, err)
	}
	var result struct {
		ProductDelete struct {
			DeletedProductID *string     `json:"deletedProductId"`
			UserErrors       []UserError `json:"userErrors"`
		} `json:"productDelete"`
	}
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to unmarshal productDelete response: %w", err)
	}
	if err := checkUserErrors("productDelete", result.ProductDelete.UserErrors); err != nil {
		return err
	}
	c.logger.Info("Deleted vessel product", zap.String("product_id", productID))
	return nil
}
