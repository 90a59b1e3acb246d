package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/config"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/deploy"
	"github.com/Tobiscuit/three-chicks-and-a-wick-admin-sub003/internal/domain"
)

var _ deploy.Catalog = (*Client)(nil)

type recordedRequest struct {
	Token string
	Body  GraphQLRequest
}

// graphQLServer answers each request with the next canned response body
type graphQLServer struct {
	t         *testing.T
	mu        sync.Mutex
	responses []string
	status    int
	requests  []recordedRequest
}

func newGraphQLServer(t *testing.T, responses ...string) (*graphQLServer, *Client) {
	g := &graphQLServer{t: t, responses: responses, status: http.StatusOK}
	srv := httptest.NewServer(g)
	t.Cleanup(srv.Close)
	client := NewClient(config.ShopifyConfig{Endpoint: srv.URL, AccessToken: "shpat_test"}, zap.NewNop())
	return g, client
}

func (g *graphQLServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var body GraphQLRequest
	raw, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(raw, &body)
	}
	if err != nil {
		g.t.Errorf("bad request body: %v", err)
	}
	g.requests = append(g.requests, recordedRequest{Token: r.Header.Get("X-Shopify-Access-Token"), Body: body})

	if g.status != http.StatusOK {
		w.WriteHeader(g.status)
		_, _ = w.Write([]byte(`{"errors":"unavailable"}`))
		return
	}
	if len(g.responses) == 0 {
		g.t.Errorf("unexpected request: %s", body.Query)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	next := g.responses[0]
	g.responses = g.responses[1:]
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(next))
}

func (g *graphQLServer) Requests() []recordedRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]recordedRequest(nil), g.requests...)
}

func TestNewClient_BuildsEndpointFromDomain(t *testing.T) {
	c := NewClient(config.ShopifyConfig{ShopDomain: "https://three-chicks.myshopify.com/", APIVersion: "2025-07"}, nil)
	assert.Equal(t, "https://three-chicks.myshopify.com/admin/api/2025-07/graphql.json", c.endpoint)
}

func TestListVessels_PagesAndMaps(t *testing.T) {
	page1 := `{"data":{"products":{
		"pageInfo":{"hasNextPage":true,"endCursor":"c1"},
		"edges":[{"node":{
			"id":"gid://shopify/Product/1","handle":"wide-mason","title":"Wide Mason","status":"ACTIVE",
			"enabled":{"value":"true"},
			"variants":{"edges":[
				{"node":{"id":"gid://shopify/ProductVariant/11","sku":"WIDE-MASON-SOY-WOOD","price":"19.00",
					"selectedOptions":[{"name":"Wax","value":"soy"},{"name":"Wick","value":"wood"}]}}
			]}
		}}]}}}`
	page2 := `{"data":{"products":{
		"pageInfo":{"hasNextPage":false,"endCursor":"c2"},
		"edges":[
			{"node":{"id":"gid://shopify/Product/2","handle":"tin","title":"Tin","status":"DRAFT","enabled":null,"variants":{"edges":[]}}},
			{"node":{"id":"gid://shopify/Product/3","handle":"amber","title":"Amber","status":"ACTIVE","enabled":{"value":"false"},"variants":{"edges":[]}}}
		]}}}`
	srv, client := newGraphQLServer(t, page1, page2)

	got, err := client.ListVessels(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, domain.RemoteProduct{
		ID: "gid://shopify/Product/1", Handle: "wide-mason", Title: "Wide Mason", Enabled: true,
		Variants: []domain.RemoteVariant{{ID: "gid://shopify/ProductVariant/11", SKU: "WIDE-MASON-SOY-WOOD", Wax: "soy", Wick: "wood", Price: "19.00"}},
	}, got[0])
	assert.False(t, got[1].Enabled, "missing metafield falls back to status")
	assert.False(t, got[2].Enabled, "metafield wins over status")

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "shpat_test", reqs[0].Token)
	assert.Equal(t, "tag:vessel", reqs[0].Body.Variables["query"])
	assert.Nil(t, reqs[0].Body.Variables["after"])
	assert.Equal(t, "c1", reqs[1].Body.Variables["after"])
}

func TestListVessels_PagesVariants(t *testing.T) {
	products := `{"data":{"products":{
		"pageInfo":{"hasNextPage":false,"endCursor":"p1"},
		"edges":[{"node":{
			"id":"gid://shopify/Product/7","handle":"big-tin","title":"Big Tin","status":"ACTIVE",
			"enabled":{"value":"true"},
			"variants":{"pageInfo":{"hasNextPage":true,"endCursor":"v1"},"edges":[
				{"node":{"id":"gid://shopify/ProductVariant/71","sku":"BIG-TIN-SOY-WOOD","price":"9.00",
					"selectedOptions":[{"name":"Wax","value":"soy"},{"name":"Wick","value":"wood"}]}}
			]}
		}}]}}}`
	more := `{"data":{"product":{"variants":{
		"pageInfo":{"hasNextPage":false,"endCursor":"v2"},
		"edges":[{"node":{"id":"gid://shopify/ProductVariant/72","sku":"BIG-TIN-SOY-COTTON","price":"8.50",
			"selectedOptions":[{"name":"Wax","value":"soy"},{"name":"Wick","value":"cotton"}]}}]
	}}}}`
	srv, client := newGraphQLServer(t, products, more)

	got, err := client.ListVessels(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Len(t, got[0].Variants, 2)
	assert.Equal(t, "BIG-TIN-SOY-COTTON", got[0].Variants[1].SKU)
	assert.Equal(t, "cotton", got[0].Variants[1].Wick)

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, VesselVariantsQuery, reqs[1].Body.Query)
	assert.Equal(t, "gid://shopify/Product/7", reqs[1].Body.Variables["id"])
	assert.Equal(t, "v1", reqs[1].Body.Variables["after"])
}

func TestListVessels_RejectsMalformedProducts(t *testing.T) {
	tests := []struct {
		name string
		node string
		want string
	}{
		{"missing handle", `{"id":"gid://shopify/Product/1","handle":"","status":"ACTIVE","variants":{"edges":[]}}`, "has no handle"},
		{"variant without id", `{"id":"gid://shopify/Product/1","handle":"tin","status":"ACTIVE","variants":{"edges":[{"node":{"id":"","sku":"X","price":"1.00","selectedOptions":[]}}]}}`, "variant without id"},
		{"bad metafield", `{"id":"gid://shopify/Product/1","handle":"tin","status":"ACTIVE","enabled":{"value":"maybe"},"variants":{"edges":[]}}`, "invalid candle.enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := `{"data":{"products":{"pageInfo":{"hasNextPage":false},"edges":[{"node":` + tt.node + `}]}}}`
			_, client := newGraphQLServer(t, resp)
			_, err := client.ListVessels(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestExecute_Errors(t *testing.T) {
	t.Run("non-2xx status", func(t *testing.T) {
		srv, client := newGraphQLServer(t)
		srv.mu.Lock()
		srv.status = http.StatusServiceUnavailable
		srv.mu.Unlock()
		_, err := client.ListVessels(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "status 503")
	})

	t.Run("graphql errors", func(t *testing.T) {
		_, client := newGraphQLServer(t, `{"errors":[{"message":"Throttled"},{"message":"Access denied"}]}`)
		_, err := client.Execute(context.Background(), VesselsQuery, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Throttled; Access denied")
	})
}

func TestCreateVessel_SendsProductSet(t *testing.T) {
	srv, client := newGraphQLServer(t,
		`{"data":{"productSet":{"product":{"id":"gid://shopify/Product/9"},"userErrors":[]}}}`)

	v := domain.VesselConfig{Handle: "wide-mason", Title: "Wide Mason", Enabled: true}
	variants := []domain.DesiredVariant{
		{SKU: "WIDE-MASON-SOY-WOOD", Wax: "soy", Wick: "wood", Price: "19.00"},
		{SKU: "WIDE-MASON-SOY-COTTON", Wax: "soy", Wick: "cotton", Price: "18.00"},
	}
	id, err := client.CreateVessel(context.Background(), v, variants)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Product/9", id)

	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, strings.Contains(reqs[0].Body.Query, "productSet("))

	var input ProductSetInput
	raw, err := json.Marshal(reqs[0].Body.Variables["input"])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &input))
	assert.Nil(t, input.ID)
	assert.Equal(t, "wide-mason", input.Handle)
	assert.Equal(t, "ACTIVE", input.Status)
	assert.Equal(t, []string{"vessel"}, input.Tags)
	assert.Equal(t, []OptionSetInput{
		{Name: "Wax", Values: []OptionValueInput{{Name: "soy"}}},
		{Name: "Wick", Values: []OptionValueInput{{Name: "wood"}, {Name: "cotton"}}},
	}, input.ProductOptions)
	require.Len(t, input.Variants, 2)
	assert.Equal(t, "19.00", input.Variants[0].Price)
	assert.Equal(t, "WIDE-MASON-SOY-WOOD", input.Variants[0].InventoryItem.SKU)
	assert.Equal(t, []ProductMetafieldInput{{Namespace: "candle", Key: "enabled", Type: "boolean", Value: "true"}}, input.Metafields)
}

func TestUpdateVessel_UserErrors(t *testing.T) {
	_, client := newGraphQLServer(t,
		`{"data":{"productSet":{"product":null,"userErrors":[{"field":["input","variants","0","price"],"message":"Price is invalid","code":"INVALID"}]}}}`)

	current := domain.RemoteProduct{ID: "gid://shopify/Product/1", Handle: "tin"}
	err := client.UpdateVessel(context.Background(), current, domain.VesselConfig{Handle: "tin", Title: "Tin"}, nil)
	require.Error(t, err)

	var ue *UserErrorsError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "productSet", ue.Mutation)
	assert.Contains(t, err.Error(), "input.variants.0.price: Price is invalid")
}

func TestSetVesselEnabled(t *testing.T) {
	srv, client := newGraphQLServer(t,
		`{"data":{"productUpdate":{"product":{"id":"gid://shopify/Product/1","status":"DRAFT"},"userErrors":[]}}}`,
		`{"data":{"metafieldsSet":{"metafields":[],"userErrors":[]}}}`,
	)

	require.NoError(t, client.SetVesselEnabled(context.Background(), "gid://shopify/Product/1", false))

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, map[string]interface{}{"id": "gid://shopify/Product/1", "status": "DRAFT"}, reqs[0].Body.Variables["input"])
	mfs, ok := reqs[1].Body.Variables["metafields"].([]interface{})
	require.True(t, ok)
	require.Len(t, mfs, 1)
	assert.Equal(t, "false", mfs[0].(map[string]interface{})["value"])
}

func TestSetVesselEnabled_StopsOnStatusUserErrors(t *testing.T) {
	srv, client := newGraphQLServer(t,
		`{"data":{"productUpdate":{"product":null,"userErrors":[{"field":["id"],"message":"Product does not exist"}]}}}`)

	err := client.SetVesselEnabled(context.Background(), "gid://shopify/Product/404", true)
	var ue *UserErrorsError
	require.ErrorAs(t, err, &ue)
	assert.Len(t, srv.Requests(), 1)
}

func TestDeleteVessel(t *testing.T) {
	srv, client := newGraphQLServer(t,
		`{"data":{"productDelete":{"deletedProductId":"gid://shopify/Product/1","userErrors":[]}}}`)

	require.NoError(t, client.DeleteVessel(context.Background(), "gid://shopify/Product/1"))
	reqs := srv.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, map[string]interface{}{"id": "gid://shopify/Product/1"}, reqs[0].Body.Variables["input"])
}
