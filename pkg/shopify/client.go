package shopify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shopify_vendor_hub/pkg/utils"

	"github.com/go-resty/resty/v2"
)

const (
	ordersQuery = `query Orders($first: Int!, $after: String) {
  orders(first: $first, after: $after, sortKey: CREATED_AT) {
    edges {
      cursor
      node {
        id
        name
        createdAt
        updatedAt
        lineItems(first: 100) {
          edges {
            node {
              id
              title
              vendor
              quantity
              image { url }
              product { id }
              variant { id }
            }
          }
        }
      }
    }
    pageInfo { hasNextPage endCursor }
  }
}`

	productVendorsQuery = `query ProductVendors($first: Int!, $after: String) {
  products(first: $first, after: $after) {
    edges { node { vendor } }
    pageInfo { hasNextPage endCursor }
  }
}`

	shopQuery = `{ shop { name email myshopifyDomain } }`
)

// API Shopify Admin 接口
type API interface {
	FetchOrders(ctx context.Context, s Session, first int, after string) (*OrderPage, error)
	FetchProductVendors(ctx context.Context, s Session, first int, after string) (*VendorPage, error)
	FetchShop(ctx context.Context, s Session) (*ShopInfo, error)
	ExchangeToken(ctx context.Context, shop, code string) (*AccessTokenResp, error)
}

// Config 客户端配置
type Config struct {
	APIKey     string
	APISecret  string
	APIVersion string
	Timeout    time.Duration
	Retries    int
	// BaseURL 非空时替代 https://{shop}（测试 / 本地代理）
	BaseURL string
}

// Client 基于 Resty 的 Shopify 客户端
type Client struct {
	cfg  Config
	http *resty.Client
}

var _ API = (*Client)(nil)

// NewClient 创建客户端
func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-10"
	}
	return &Client{
		cfg:  cfg,
		http: utils.NewHTTPClient(cfg.Timeout, cfg.Retries),
	}
}

func (c *Client) shopURL(shop string) string {
	if c.cfg.BaseURL != "" {
		return strings.TrimRight(c.cfg.BaseURL, "/")
	}
	return "https://" + shop
}

func (c *Client) graphQLEndpoint(shop string) string {
	return fmt.Sprintf("%s/admin/api/%s/graphql.json", c.shopURL(shop), c.cfg.APIVersion)
}

// query 执行 GraphQL 请求
func query[T any](ctx context.Context, c *Client, s Session, q string, vars map[string]interface{}) (*T, error) {
	var out graphQLResponse[T]
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("X-Shopify-Access-Token", s.AccessToken).
		SetHeader("Content-Type", "application/json").
		SetBody(graphQLRequest{Query: q, Variables: vars}).
		SetResult(&out).
		Post(c.graphQLEndpoint(s.Shop))
	if err != nil {
		return nil, fmt.Errorf("请求 Shopify 失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("Shopify 返回错误状态 %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	if len(out.Errors) > 0 {
		msgs := make([]string, 0, len(out.Errors))
		for _, e := range out.Errors {
			msgs = append(msgs, e.Message)
		}
		return nil, errors.New("GraphQL 错误: " + strings.Join(msgs, "; "))
	}
	return &out.Data, nil
}

// FetchOrders 拉取一页订单（after 为空表示第一页）
func (c *Client) FetchOrders(ctx context.Context, s Session, first int, after string) (*OrderPage, error) {
	vars := map[string]interface{}{"first": first}
	if after != "" {
		vars["after"] = after
	}

	data, err := query[ordersData](ctx, c, s, ordersQuery, vars)
	if err != nil {
		return nil, err
	}

	page := &OrderPage{
		HasNextPage: data.Orders.PageInfo.HasNextPage,
		EndCursor:   data.Orders.PageInfo.EndCursor,
	}
	for _, edge := range data.Orders.Edges {
		order, err := edge.Node.ToOrder()
		if err != nil {
			return nil, fmt.Errorf("解析订单 %s 失败: %w", edge.Node.ID, err)
		}
		page.Orders = append(page.Orders, order)
		// 游标取本页最后一条
		if edge.Cursor != "" {
			page.EndCursor = edge.Cursor
		}
	}
	return page, nil
}

// FetchProductVendors 拉取一页商品的供应商名称（去重、去空）
func (c *Client) FetchProductVendors(ctx context.Context, s Session, first int, after string) (*VendorPage, error) {
	vars := map[string]interface{}{"first": first}
	if after != "" {
		vars["after"] = after
	}

	data, err := query[productVendorsData](ctx, c, s, productVendorsQuery, vars)
	if err != nil {
		return nil, err
	}

	page := &VendorPage{
		HasNextPage: data.Products.PageInfo.HasNextPage,
		EndCursor:   data.Products.PageInfo.EndCursor,
	}
	seen := make(map[string]struct{})
	for _, edge := range data.Products.Edges {
		name := strings.TrimSpace(edge.Node.Vendor)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		page.Vendors = append(page.Vendors, name)
	}
	return page, nil
}

// FetchShop 获取店铺基本信息
func (c *Client) FetchShop(ctx context.Context, s Session) (*ShopInfo, error) {
	data, err := query[shopData](ctx, c, s, shopQuery, nil)
	if err != nil {
		return nil, err
	}
	return &ShopInfo{
		Name:   data.Shop.Name,
		Email:  data.Shop.Email,
		Domain: data.Shop.MyshopifyDomain,
	}, nil
}

// ExchangeToken 用授权码换取离线访问令牌
func (c *Client) ExchangeToken(ctx context.Context, shop, code string) (*AccessTokenResp, error) {
	var out AccessTokenResp
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"client_id":     c.cfg.APIKey,
			"client_secret": c.cfg.APISecret,
			"code":          code,
		}).
		SetResult(&out).
		Post(c.shopURL(shop) + "/admin/oauth/access_token")
	if err != nil {
		return nil, fmt.Errorf("换取访问令牌失败: %w", err)
	}
	if resp.IsError() || out.AccessToken == "" {
		return nil, fmt.Errorf("换取访问令牌失败，状态 %d: %s", resp.StatusCode(), truncate(resp.String(), 300))
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
