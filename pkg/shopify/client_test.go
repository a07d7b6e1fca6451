package shopify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "key", APISecret: "secret", BaseURL: srv.URL})
}

func TestClient_FetchOrders(t *testing.T) {
	var gotAfter interface{}
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2024-10/graphql.json", r.URL.Path)
		assert.Equal(t, "tok", r.Header.Get("X-Shopify-Access-Token"))

		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotAfter = req.Variables["after"]

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"orders":{"edges":[{"cursor":"c1","node":{
			"id":"gid://shopify/Order/10","name":"#1010",
			"lineItems":{"edges":[{"node":{"id":"gid://shopify/LineItem/1","title":"Mug","vendor":"Acme","quantity":3,
			"image":{"url":"https://cdn/x.png"},"product":{"id":"gid://shopify/Product/77"},"variant":{"id":"gid://shopify/ProductVariant/8"}}},
			{"node":{"id":"gid://shopify/LineItem/2","title":"Tip","vendor":"","quantity":1,"product":null,"variant":null}}]}}}],
			"pageInfo":{"hasNextPage":true,"endCursor":"c1"}}}}`))
	})

	page, err := client.FetchOrders(context.Background(), Session{Shop: "demo.myshopify.com", AccessToken: "tok"}, 50, "")
	require.NoError(t, err)
	assert.Nil(t, gotAfter)
	assert.True(t, page.HasNextPage)
	assert.Equal(t, "c1", page.EndCursor)
	require.Len(t, page.Orders, 1)

	order := page.Orders[0]
	assert.Equal(t, int64(10), order.ExternalID)
	require.Len(t, order.LineItems, 2)
	assert.Equal(t, int64(77), order.LineItems[0].ProductID)
	assert.Equal(t, "https://cdn/x.png", order.LineItems[0].ImageURL)
	assert.Equal(t, int64(0), order.LineItems[1].ProductID)
}

func TestClient_GraphQLErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"errors":[{"message":"Throttled"}]}`))
	})

	_, err := client.FetchProductVendors(context.Background(), Session{Shop: "demo.myshopify.com"}, 50, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Throttled")
}

func TestClient_FetchProductVendorsDedup(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"products":{"edges":[
			{"node":{"vendor":"Acme"}},{"node":{"vendor":"Acme"}},{"node":{"vendor":" "}},{"node":{"vendor":"Globex"}}],
			"pageInfo":{"hasNextPage":false,"endCursor":"z"}}}}`))
	})

	page, err := client.FetchProductVendors(context.Background(), Session{Shop: "demo.myshopify.com"}, 50, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme", "Globex"}, page.Vendors)
	assert.False(t, page.HasNextPage)
}

func TestClient_ExchangeToken(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/oauth/access_token", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "the-code", body["code"])
		assert.Equal(t, "key", body["client_id"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"shpat_1","scope":"read_orders"}`))
	})

	resp, err := client.ExchangeToken(context.Background(), "demo.myshopify.com", "the-code")
	require.NoError(t, err)
	assert.Equal(t, "shpat_1", resp.AccessToken)
}
